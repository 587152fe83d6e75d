// Package playback owns the lifecycle of the single active playback session:
// source resolution, resume lookup, periodic checkpointing and teardown.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"phimstream/models"
	"phimstream/services/streams"
	"phimstream/utils/timefmt"
)

// Session states. A session is Opening while the source is being attached,
// FallingBack while an adaptive failure is being recovered onto the embed
// URL, and Closed once torn down. Closed is terminal.
const (
	StateIdle        = "idle"
	StateOpening     = "opening"
	StatePlaying     = "playing"
	StatePaused      = "paused"
	StateFallingBack = "falling_back"
	StateClosed      = "closed"
)

var (
	ErrNoActiveSession = errors.New("no active playback session")
	ErrInvalidTimecode = errors.New("invalid timecode")
	ErrStreamFailed    = errors.New("stream failed and no fallback is available")
)

// ProgressGateway is the slice of the progress service the manager needs.
type ProgressGateway interface {
	Save(ctx context.Context, userID string, movie models.MovieRef, episode models.EpisodeRef, progressSec, durationSec int) (models.WatchProgressRecord, error)
	Get(ctx context.Context, userID, movieSlug, episodeName string) (*models.WatchProgressRecord, error)
}

// CandidateResolver supplies playable links for an episode when the open
// request does not carry them.
type CandidateResolver interface {
	CandidatesFor(ctx context.Context, movieSlug, episodeName string) ([]models.CandidateLink, error)
}

// Config tunes the manager. Zero values fall back to the defaults used by
// the deployed player: 5s checkpoint period, resume only above 5s.
type Config struct {
	CheckpointInterval time.Duration
	ResumeThresholdSec int
	PreferEmbed        bool
	Engine             streams.Engine
	Resolver           CandidateResolver
}

// Manager holds at most one active session. Opening a new session tears the
// previous one down completely before anything else happens, so two players
// never coexist.
type Manager struct {
	mu       sync.Mutex
	progress ProgressGateway
	selector *streams.Selector
	engine   streams.Engine
	resolver CandidateResolver

	checkpointInterval time.Duration
	resumeThreshold    int

	current *session
}

type session struct {
	id      string
	userID  string
	movie   models.MovieRef
	episode models.EpisodeRef
	source  streams.Resolved

	resumeFrom int
	resumeNote string

	handle streams.Handle

	// cancel stops the checkpoint ticker; done is closed when the ticker
	// goroutine has fully exited. Close waits on done before issuing its
	// final save so a stale tick can never land after it.
	cancel context.CancelFunc
	done   chan struct{}

	// mu guards the mutable telemetry below. The ticker goroutine reads it
	// without touching the manager lock.
	mu       sync.Mutex
	state    string
	position float64
	duration float64
}

func (s *session) snapshot() (state string, pos, dur float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.position, s.duration
}

func (s *session) setState(state string) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func NewManager(progress ProgressGateway, cfg Config) *Manager {
	if cfg.CheckpointInterval <= 0 {
		cfg.CheckpointInterval = 5 * time.Second
	}
	if cfg.ResumeThresholdSec <= 0 {
		cfg.ResumeThresholdSec = 5
	}
	engine := cfg.Engine
	if engine == nil {
		engine = streams.NewManifestProber(10 * time.Second)
	}
	return &Manager{
		progress:           progress,
		selector:           streams.NewSelector(cfg.PreferEmbed),
		engine:             engine,
		resolver:           cfg.Resolver,
		checkpointInterval: cfg.CheckpointInterval,
		resumeThreshold:    cfg.ResumeThresholdSec,
	}
}

// Open starts a session for the requested episode, replacing any active one.
// On failure no session remains active.
func (m *Manager) Open(ctx context.Context, req models.OpenSessionRequest) (models.SessionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeLocked(ctx)

	candidates := req.Candidates
	if len(candidates) == 0 && m.resolver != nil {
		var err error
		candidates, err = m.resolver.CandidatesFor(ctx, req.Movie.Slug, req.Episode.Name)
		if err != nil {
			return models.SessionInfo{}, fmt.Errorf("resolve candidates: %w", err)
		}
	}

	resolved, err := m.selector.ResolveFirst(candidates)
	if err != nil {
		return models.SessionInfo{}, err
	}

	// An adaptive pick is only honored when the engine can actually play it.
	if resolved.Kind == models.SourceKindAdaptive && !m.engine.Supported() {
		if resolved.FallbackURL == "" {
			return models.SessionInfo{}, streams.ErrNoPlayableSource
		}
		resolved = streams.Resolved{URL: resolved.FallbackURL, Kind: models.SourceKindEmbed}
	}

	sess := &session{
		id:      uuid.NewString(),
		userID:  req.UserID,
		movie:   req.Movie,
		episode: req.Episode,
		source:  resolved,
		state:   StateOpening,
	}

	if req.UserID != "" {
		prior, err := m.progress.Get(ctx, req.UserID, req.Movie.Slug, req.Episode.Name)
		if err != nil {
			log.Printf("[playback] resume lookup failed: %v", err)
		} else if prior != nil && prior.Progress > m.resumeThreshold {
			if resolved.Kind == models.SourceKindAdaptive {
				sess.resumeFrom = prior.Progress
			} else {
				sess.resumeNote = fmt.Sprintf("Lần trước bạn xem đến %s", timefmt.SecondsToClock(prior.Progress))
			}
		}
	}

	if sess.source.Kind == models.SourceKindAdaptive {
		handle, err := m.engine.Open(ctx, sess.source.URL)
		if err != nil {
			if sess.source.FallbackURL == "" {
				sess.setState(StateClosed)
				return models.SessionInfo{}, fmt.Errorf("%w: %v", ErrStreamFailed, err)
			}
			log.Printf("[playback] adaptive source failed, falling back to embed: %v", err)
			sess.setState(StateFallingBack)
			sess.source = streams.Resolved{URL: sess.source.FallbackURL, Kind: models.SourceKindEmbed}
			// The embed frame cannot be seeked, so a pending resume seek
			// degrades into the informational note.
			if sess.resumeFrom > 0 {
				sess.resumeNote = fmt.Sprintf("Lần trước bạn xem đến %s", timefmt.SecondsToClock(sess.resumeFrom))
				sess.resumeFrom = 0
			}
		} else {
			sess.handle = handle
		}
	}

	sess.setState(StatePlaying)
	m.current = sess

	if sess.source.Kind == models.SourceKindAdaptive {
		m.startTicker(sess)
	} else if sess.userID != "" {
		// Embedded frames give no telemetry; record that the episode was
		// started so it shows up as resumable at all.
		if _, err := m.progress.Save(ctx, sess.userID, sess.movie, sess.episode, 0, 0); err != nil {
			log.Printf("[playback] start checkpoint failed: %v", err)
		}
	}

	return m.infoLocked(), nil
}

func (m *Manager) startTicker(sess *session) {
	ctx, cancel := context.WithCancel(context.Background())
	sess.cancel = cancel
	sess.done = make(chan struct{})

	go func() {
		defer close(sess.done)
		ticker := time.NewTicker(m.checkpointInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				state, pos, dur := sess.snapshot()
				if state != StatePlaying || pos <= 0 || dur <= 0 {
					continue
				}
				if sess.userID == "" {
					continue
				}
				if _, err := m.progress.Save(ctx, sess.userID, sess.movie, sess.episode, int(pos), int(dur)); err != nil {
					log.Printf("[playback] checkpoint failed: %v", err)
				}
			}
		}
	}()
}

// ReportPosition feeds player telemetry into the session. The values are
// picked up by the next checkpoint tick; reporting does not save by itself.
func (m *Manager) ReportPosition(ctx context.Context, rep models.PositionReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.activeLocked()
	if sess == nil {
		return ErrNoActiveSession
	}

	sess.mu.Lock()
	if rep.Position >= 0 {
		sess.position = rep.Position
	}
	if rep.Duration > 0 {
		sess.duration = rep.Duration
	}
	sess.mu.Unlock()
	return nil
}

// Pause transitions to Paused and persists the position immediately rather
// than waiting for a tick.
func (m *Manager) Pause(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.activeLocked()
	if sess == nil {
		return ErrNoActiveSession
	}

	sess.setState(StatePaused)
	m.saveCurrentLocked(ctx, sess)
	return nil
}

// Resume transitions Paused back to Playing.
func (m *Manager) Resume(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.activeLocked()
	if sess == nil {
		return ErrNoActiveSession
	}

	sess.setState(StatePlaying)
	return nil
}

// Ended records playback completion: one checkpoint with progress pinned to
// the full duration, so the record crosses the completed threshold.
func (m *Manager) Ended(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.activeLocked()
	if sess == nil {
		return ErrNoActiveSession
	}

	sess.mu.Lock()
	dur := sess.duration
	sess.position = dur
	sess.state = StatePaused
	sess.mu.Unlock()

	if sess.userID != "" && dur > 0 {
		if _, err := m.progress.Save(ctx, sess.userID, sess.movie, sess.episode, int(dur), int(dur)); err != nil {
			log.Printf("[playback] completion checkpoint failed: %v", err)
		}
	}
	return nil
}

// ManualCheckpoint records a user-supplied position, the only checkpoint
// path for embedded-frame sources. The time string accepts "SS", "MM:SS"
// or "HH:MM:SS".
func (m *Manager) ManualCheckpoint(ctx context.Context, timeText string) (models.WatchProgressRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.activeLocked()
	if sess == nil {
		return models.WatchProgressRecord{}, ErrNoActiveSession
	}

	seconds, ok := timefmt.ClockToSeconds(timeText)
	if !ok || seconds < 0 {
		return models.WatchProgressRecord{}, ErrInvalidTimecode
	}

	_, _, dur := sess.snapshot()
	rec, err := m.progress.Save(ctx, sess.userID, sess.movie, sess.episode, seconds, int(dur))
	if err != nil {
		return models.WatchProgressRecord{}, err
	}
	return rec, nil
}

// Close tears the active session down: the checkpoint ticker is cancelled
// and drained first, then one best-effort final save is issued, then the
// engine handle is released. Closing with no active session is a no-op.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeLocked(ctx)
	return nil
}

func (m *Manager) closeLocked(ctx context.Context) {
	sess := m.current
	if sess == nil {
		return
	}
	m.current = nil

	// Ticker first. A tick that fired after the final save could revive
	// stale progress, so the goroutine must be fully gone before saving.
	if sess.cancel != nil {
		sess.cancel()
		<-sess.done
	}

	m.saveCurrentLocked(ctx, sess)

	if sess.handle != nil {
		if err := sess.handle.Close(); err != nil {
			log.Printf("[playback] release stream handle: %v", err)
		}
		sess.handle = nil
	}

	sess.setState(StateClosed)
}

// saveCurrentLocked issues a best-effort checkpoint from the session's last
// known telemetry. Storage failures are logged, never fatal to playback.
func (m *Manager) saveCurrentLocked(ctx context.Context, sess *session) {
	_, pos, dur := sess.snapshot()
	if sess.userID == "" || pos <= 0 || dur <= 0 {
		return
	}
	if _, err := m.progress.Save(ctx, sess.userID, sess.movie, sess.episode, int(pos), int(dur)); err != nil {
		log.Printf("[playback] final checkpoint failed: %v", err)
	}
}

func (m *Manager) activeLocked() *session {
	if m.current == nil {
		return nil
	}
	if state, _, _ := m.current.snapshot(); state == StateClosed {
		return nil
	}
	return m.current
}

// Current reports the active session, if any.
func (m *Manager) Current() (models.SessionInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return models.SessionInfo{}, false
	}
	return m.infoLocked(), true
}

func (m *Manager) infoLocked() models.SessionInfo {
	sess := m.current
	state, _, _ := sess.snapshot()
	return models.SessionInfo{
		ID:          sess.id,
		State:       state,
		UserID:      sess.userID,
		Movie:       sess.movie,
		Episode:     sess.episode,
		SourceURL:   sess.source.URL,
		SourceKind:  sess.source.Kind,
		FallbackURL: sess.source.FallbackURL,
		ResumeFrom:  sess.resumeFrom,
		ResumeNote:  sess.resumeNote,
	}
}
