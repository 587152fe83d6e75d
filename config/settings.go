package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server   ServerSettings   `json:"server"`
	Catalog  CatalogSettings  `json:"catalog"`
	Storage  StorageSettings  `json:"storage"`
	Playback PlaybackSettings `json:"playback"`
	Log      LogConfig        `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	// PIN gates the HTTP API; generated on first boot when empty.
	PIN string `json:"pin"`
}

// CatalogSettings configures the upstream movie catalog API.
type CatalogSettings struct {
	BaseURL       string `json:"baseUrl"`
	TimeoutSec    int    `json:"timeoutSec"`
	RetryAttempts int    `json:"retryAttempts"`
}

// StorageBackend selects the watch-progress persistence backend.
type StorageBackend string

const (
	StorageBackendFile   StorageBackend = "file"
	StorageBackendSQLite StorageBackend = "sqlite"
)

// StorageSettings configures watch-progress persistence.
type StorageSettings struct {
	Backend      StorageBackend `json:"backend"`
	Directory    string         `json:"directory"`
	DatabasePath string         `json:"databasePath"`
}

// PlaybackSettings controls session behaviour.
type PlaybackSettings struct {
	// CheckpointIntervalSec is the wall-clock period between automatic
	// progress saves while an adaptive session is playing.
	CheckpointIntervalSec int `json:"checkpointIntervalSec"`
	// ResumeThresholdSec: stored progress must exceed this to offer a resume
	// point on reopen.
	ResumeThresholdSec int `json:"resumeThresholdSec"`
	// CompletedPercent and above is treated as finished and excluded from
	// continue watching.
	CompletedPercent int `json:"completedPercent"`
	// PreferEmbed picks the embed URL over the adaptive manifest when both
	// exist. The adaptive endpoint is frequently blocked by cross-origin
	// restrictions on the content host, so embed-first is the deployed
	// default; it is policy, not a technical requirement.
	PreferEmbed *bool `json:"preferEmbed"`
	// ManifestTimeoutSec bounds the adaptive manifest load.
	ManifestTimeoutSec    int `json:"manifestTimeoutSec"`
	ContinueWatchingLimit int `json:"continueWatchingLimit"`
	HistoryLimit          int `json:"historyLimit"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	File       string `json:"file"`
	Level      string `json:"level"`
	MaxSize    int    `json:"maxSize"`
	MaxAge     int    `json:"maxAge"`
	MaxBackups int    `json:"maxBackups"`
	Compress   bool   `json:"compress"`
}

// DefaultSettings returns sane defaults for a fresh install.
func DefaultSettings() Settings {
	preferEmbed := true
	return Settings{
		Server:  ServerSettings{Host: "0.0.0.0", Port: 7788},
		Catalog: CatalogSettings{BaseURL: "https://phim.nguonc.com/api", TimeoutSec: 15, RetryAttempts: 3},
		Storage: StorageSettings{Backend: StorageBackendFile, Directory: "cache", DatabasePath: "cache/progress.db"},
		Playback: PlaybackSettings{
			CheckpointIntervalSec: 5,
			ResumeThresholdSec:    5,
			CompletedPercent:      95,
			PreferEmbed:           &preferEmbed,
			ManifestTimeoutSec:    10,
			ContinueWatchingLimit: 10,
			HistoryLimit:          50,
		},
		Log: LogConfig{
			File:       "cache/logs/backend.log",
			Level:      "info",
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   true,
		},
	}
}

// Manager loads and persists settings to a JSON file.
type Manager struct {
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

// EnsureDir ensures the parent directory exists.
func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads settings from disk or creates defaults if missing. Configs
// written before newer fields existed are backfilled with defaults.
func (m *Manager) Load() (Settings, error) {
	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		defaults := DefaultSettings()
		if err := m.Save(defaults); err != nil {
			return Settings{}, err
		}
		return defaults, nil
	}

	f, err := os.Open(m.path)
	if err != nil {
		return Settings{}, err
	}
	defer f.Close()

	var s Settings
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return Settings{}, err
	}

	// Backfill defaults for settings introduced after the config was written.
	if strings.TrimSpace(s.Server.Host) == "" {
		s.Server.Host = "0.0.0.0"
	}
	if s.Server.Port == 0 {
		s.Server.Port = 7788
	}
	if strings.TrimSpace(s.Catalog.BaseURL) == "" {
		s.Catalog.BaseURL = "https://phim.nguonc.com/api"
	}
	if s.Catalog.TimeoutSec == 0 {
		s.Catalog.TimeoutSec = 15
	}
	if s.Catalog.RetryAttempts == 0 {
		s.Catalog.RetryAttempts = 3
	}
	if s.Storage.Backend == "" {
		s.Storage.Backend = StorageBackendFile
	}
	if strings.TrimSpace(s.Storage.Directory) == "" {
		s.Storage.Directory = "cache"
	}
	if strings.TrimSpace(s.Storage.DatabasePath) == "" {
		s.Storage.DatabasePath = "cache/progress.db"
	}
	if s.Playback.CheckpointIntervalSec == 0 {
		s.Playback.CheckpointIntervalSec = 5
	}
	if s.Playback.ResumeThresholdSec == 0 {
		s.Playback.ResumeThresholdSec = 5
	}
	if s.Playback.CompletedPercent == 0 {
		s.Playback.CompletedPercent = 95
	}
	if s.Playback.PreferEmbed == nil {
		preferEmbed := true
		s.Playback.PreferEmbed = &preferEmbed
	}
	if s.Playback.ManifestTimeoutSec == 0 {
		s.Playback.ManifestTimeoutSec = 10
	}
	if s.Playback.ContinueWatchingLimit == 0 {
		s.Playback.ContinueWatchingLimit = 10
	}
	if s.Playback.HistoryLimit == 0 {
		s.Playback.HistoryLimit = 50
	}
	if strings.TrimSpace(s.Log.File) == "" {
		s.Log.File = "cache/logs/backend.log"
	}
	if s.Log.MaxSize == 0 {
		s.Log.MaxSize = 50
	}
	if s.Log.MaxBackups == 0 {
		s.Log.MaxBackups = 3
	}
	if s.Log.MaxAge == 0 {
		s.Log.MaxAge = 7
	}

	return s, nil
}

// Save writes the provided settings to disk atomically.
func (m *Manager) Save(s Settings) error {
	if m.path == "" {
		return errors.New("config path not set")
	}
	if err := m.EnsureDir(); err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, m.path)
}
