package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"phimstream/models"
	"phimstream/services/streams"
)

type savedCheckpoint struct {
	UserID   string
	Slug     string
	Episode  string
	Progress int
	Duration int
}

type fakeProgress struct {
	mu      sync.Mutex
	saves   []savedCheckpoint
	prior   *models.WatchProgressRecord
	saveErr error
}

func (f *fakeProgress) Save(_ context.Context, userID string, movie models.MovieRef, episode models.EpisodeRef, progressSec, durationSec int) (models.WatchProgressRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return models.WatchProgressRecord{}, f.saveErr
	}
	f.saves = append(f.saves, savedCheckpoint{userID, movie.Slug, episode.Name, progressSec, durationSec})
	return models.WatchProgressRecord{Progress: progressSec, Duration: durationSec}, nil
}

func (f *fakeProgress) Get(context.Context, string, string, string) (*models.WatchProgressRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prior, nil
}

func (f *fakeProgress) saved() []savedCheckpoint {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]savedCheckpoint, len(f.saves))
	copy(out, f.saves)
	return out
}

type fakeEngine struct {
	mu          sync.Mutex
	unsupported bool
	openErr     error
	opened      []string
	closed      int
}

func (e *fakeEngine) Supported() bool { return !e.unsupported }

func (e *fakeEngine) Open(_ context.Context, url string) (streams.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.openErr != nil {
		return nil, e.openErr
	}
	e.opened = append(e.opened, url)
	return &fakeHandle{engine: e}, nil
}

func (e *fakeEngine) closedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

type fakeHandle struct {
	engine *fakeEngine
}

func (h *fakeHandle) Close() error {
	h.engine.mu.Lock()
	h.engine.closed++
	h.engine.mu.Unlock()
	return nil
}

func newTestManager(store *fakeProgress, engine *fakeEngine) *Manager {
	return NewManager(store, Config{
		CheckpointInterval: time.Hour, // ticker effectively disabled unless a test overrides
		ResumeThresholdSec: 5,
		Engine:             engine,
	})
}

func adaptiveRequest() models.OpenSessionRequest {
	return models.OpenSessionRequest{
		UserID:  "u1",
		Movie:   models.MovieRef{Slug: "dao-hai-tac", Title: "Đảo Hải Tặc"},
		Episode: models.EpisodeRef{Name: "Tập 1", ServerName: "Vietsub #1"},
		Candidates: []models.CandidateLink{
			{Name: "Tập 1", AdaptiveURL: "https://cdn.example/ep1.m3u8", EmbedURL: "https://embed.example/ep1"},
		},
	}
}

func TestOpenNoPlayableSource(t *testing.T) {
	store := &fakeProgress{}
	m := newTestManager(store, &fakeEngine{})

	req := adaptiveRequest()
	req.Candidates = []models.CandidateLink{{Name: "dead"}}

	if _, err := m.Open(context.Background(), req); !errors.Is(err, streams.ErrNoPlayableSource) {
		t.Fatalf("expected ErrNoPlayableSource, got %v", err)
	}
	if _, ok := m.Current(); ok {
		t.Error("no session should remain active after a failed open")
	}
}

func TestOpenAdaptive(t *testing.T) {
	store := &fakeProgress{}
	engine := &fakeEngine{}
	m := newTestManager(store, engine)

	info, err := m.Open(context.Background(), adaptiveRequest())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if info.State != StatePlaying {
		t.Errorf("state = %s, want playing", info.State)
	}
	if info.SourceKind != models.SourceKindAdaptive {
		t.Errorf("kind = %s, want adaptive", info.SourceKind)
	}
	if info.FallbackURL != "https://embed.example/ep1" {
		t.Errorf("fallback = %q", info.FallbackURL)
	}
	if len(store.saved()) != 0 {
		t.Errorf("adaptive open should not save, got %v", store.saved())
	}
	if len(engine.opened) != 1 {
		t.Errorf("engine opened %d times, want 1", len(engine.opened))
	}
}

func TestOpenEmbedSavesStartedCheckpoint(t *testing.T) {
	store := &fakeProgress{}
	m := newTestManager(store, &fakeEngine{})

	req := adaptiveRequest()
	req.Candidates = []models.CandidateLink{{Name: "Tập 1", EmbedURL: "https://embed.example/ep1"}}

	info, err := m.Open(context.Background(), req)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if info.SourceKind != models.SourceKindEmbed || info.State != StatePlaying {
		t.Errorf("info = %+v", info)
	}

	saves := store.saved()
	if len(saves) != 1 {
		t.Fatalf("expected one started checkpoint, got %d", len(saves))
	}
	if saves[0].Progress != 0 || saves[0].Duration != 0 {
		t.Errorf("started checkpoint = %+v, want progress=0 duration=0", saves[0])
	}
}

func TestOpenResumeThreshold(t *testing.T) {
	cases := []struct {
		name       string
		prior      int
		wantResume int
	}{
		{"below threshold", 5, 0},
		{"above threshold", 6, 6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeProgress{prior: &models.WatchProgressRecord{Progress: tc.prior, Duration: 1440}}
			m := newTestManager(store, &fakeEngine{})

			info, err := m.Open(context.Background(), adaptiveRequest())
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if info.ResumeFrom != tc.wantResume {
				t.Errorf("resumeFrom = %d, want %d", info.ResumeFrom, tc.wantResume)
			}
		})
	}
}

func TestOpenEmbedResumeNote(t *testing.T) {
	store := &fakeProgress{prior: &models.WatchProgressRecord{Progress: 754, Duration: 1440}}
	m := newTestManager(store, &fakeEngine{})

	req := adaptiveRequest()
	req.Candidates = []models.CandidateLink{{Name: "Tập 1", EmbedURL: "https://embed.example/ep1"}}

	info, err := m.Open(context.Background(), req)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if info.ResumeFrom != 0 {
		t.Errorf("embed source must not seek, resumeFrom = %d", info.ResumeFrom)
	}
	if info.ResumeNote == "" {
		t.Error("expected a resume note for prior embed progress")
	}
}

func TestOpenFallsBackToEmbed(t *testing.T) {
	store := &fakeProgress{}
	engine := &fakeEngine{openErr: errors.New("manifest blocked")}
	m := newTestManager(store, engine)

	info, err := m.Open(context.Background(), adaptiveRequest())
	if err != nil {
		t.Fatalf("Open should recover via fallback, got %v", err)
	}
	if info.State != StatePlaying {
		t.Errorf("state = %s, want playing after fallback", info.State)
	}
	if info.SourceKind != models.SourceKindEmbed {
		t.Errorf("kind = %s, want embed after fallback", info.SourceKind)
	}
	if info.SourceURL != "https://embed.example/ep1" {
		t.Errorf("url = %q", info.SourceURL)
	}
}

func TestOpenFatalWithoutFallback(t *testing.T) {
	store := &fakeProgress{}
	engine := &fakeEngine{openErr: errors.New("manifest blocked")}
	m := newTestManager(store, engine)

	req := adaptiveRequest()
	req.Candidates = []models.CandidateLink{{Name: "Tập 1", AdaptiveURL: "https://cdn.example/ep1.m3u8"}}

	if _, err := m.Open(context.Background(), req); !errors.Is(err, ErrStreamFailed) {
		t.Fatalf("expected ErrStreamFailed, got %v", err)
	}
	if _, ok := m.Current(); ok {
		t.Error("failed open must not leave an active session")
	}
}

func TestOpenUnsupportedEngineUsesEmbed(t *testing.T) {
	store := &fakeProgress{}
	m := newTestManager(store, &fakeEngine{unsupported: true})

	info, err := m.Open(context.Background(), adaptiveRequest())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if info.SourceKind != models.SourceKindEmbed {
		t.Errorf("kind = %s, want embed when engine unsupported", info.SourceKind)
	}
}

func TestPauseSavesCheckpoint(t *testing.T) {
	store := &fakeProgress{}
	m := newTestManager(store, &fakeEngine{})
	ctx := context.Background()

	if _, err := m.Open(ctx, adaptiveRequest()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := m.ReportPosition(ctx, models.PositionReport{Position: 754, Duration: 1440}); err != nil {
		t.Fatalf("ReportPosition: %v", err)
	}
	if err := m.Pause(ctx); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	saves := store.saved()
	if len(saves) != 1 || saves[0].Progress != 754 || saves[0].Duration != 1440 {
		t.Errorf("pause checkpoint = %v", saves)
	}

	info, _ := m.Current()
	if info.State != StatePaused {
		t.Errorf("state = %s, want paused", info.State)
	}

	if err := m.Resume(ctx); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	info, _ = m.Current()
	if info.State != StatePlaying {
		t.Errorf("state = %s, want playing after resume", info.State)
	}
}

func TestPauseWithoutTelemetrySkipsSave(t *testing.T) {
	store := &fakeProgress{}
	m := newTestManager(store, &fakeEngine{})
	ctx := context.Background()

	if _, err := m.Open(ctx, adaptiveRequest()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := m.Pause(ctx); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if len(store.saved()) != 0 {
		t.Errorf("no telemetry yet, expected no save, got %v", store.saved())
	}
}

func TestEndedPinsProgressToDuration(t *testing.T) {
	store := &fakeProgress{}
	m := newTestManager(store, &fakeEngine{})
	ctx := context.Background()

	if _, err := m.Open(ctx, adaptiveRequest()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := m.ReportPosition(ctx, models.PositionReport{Position: 1420, Duration: 1440}); err != nil {
		t.Fatalf("ReportPosition: %v", err)
	}
	if err := m.Ended(ctx); err != nil {
		t.Fatalf("Ended: %v", err)
	}

	saves := store.saved()
	if len(saves) != 1 || saves[0].Progress != 1440 || saves[0].Duration != 1440 {
		t.Errorf("completion checkpoint = %v, want progress==duration", saves)
	}
}

func TestManualCheckpoint(t *testing.T) {
	store := &fakeProgress{}
	m := newTestManager(store, &fakeEngine{})
	ctx := context.Background()

	if _, err := m.ManualCheckpoint(ctx, "5:30"); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("expected ErrNoActiveSession, got %v", err)
	}

	req := adaptiveRequest()
	req.Candidates = []models.CandidateLink{{Name: "Tập 1", EmbedURL: "https://embed.example/ep1"}}
	if _, err := m.Open(ctx, req); err != nil {
		t.Fatalf("Open: %v", err)
	}

	rec, err := m.ManualCheckpoint(ctx, "5:30")
	if err != nil {
		t.Fatalf("ManualCheckpoint: %v", err)
	}
	if rec.Progress != 330 {
		t.Errorf("progress = %d, want 330", rec.Progress)
	}

	if _, err := m.ManualCheckpoint(ctx, "abc"); !errors.Is(err, ErrInvalidTimecode) {
		t.Errorf("expected ErrInvalidTimecode, got %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	store := &fakeProgress{}
	engine := &fakeEngine{}
	m := newTestManager(store, engine)
	ctx := context.Background()

	if _, err := m.Open(ctx, adaptiveRequest()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := m.ReportPosition(ctx, models.PositionReport{Position: 754, Duration: 1440}); err != nil {
		t.Fatalf("ReportPosition: %v", err)
	}

	if err := m.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := m.Close(ctx); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	saves := store.saved()
	if len(saves) != 1 {
		t.Errorf("expected exactly one final save, got %d", len(saves))
	}
	if engine.closedCount() != 1 {
		t.Errorf("handle closed %d times, want 1", engine.closedCount())
	}
	if _, ok := m.Current(); ok {
		t.Error("session still reported active after close")
	}
}

func TestOpenReplacesActiveSession(t *testing.T) {
	store := &fakeProgress{}
	engine := &fakeEngine{}
	m := newTestManager(store, engine)
	ctx := context.Background()

	if _, err := m.Open(ctx, adaptiveRequest()); err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if err := m.ReportPosition(ctx, models.PositionReport{Position: 300, Duration: 1440}); err != nil {
		t.Fatalf("ReportPosition: %v", err)
	}

	second := adaptiveRequest()
	second.Episode = models.EpisodeRef{Name: "Tập 2"}
	second.Candidates = []models.CandidateLink{{Name: "Tập 2", AdaptiveURL: "https://cdn.example/ep2.m3u8"}}

	info, err := m.Open(ctx, second)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if info.Episode.Name != "Tập 2" {
		t.Errorf("active episode = %s, want Tập 2", info.Episode.Name)
	}

	// Teardown of the first session must have checkpointed it.
	saves := store.saved()
	if len(saves) != 1 || saves[0].Episode != "Tập 1" || saves[0].Progress != 300 {
		t.Errorf("teardown checkpoint = %v", saves)
	}
	if engine.closedCount() != 1 {
		t.Errorf("previous handle closed %d times, want 1", engine.closedCount())
	}
}

func TestCheckpointTicker(t *testing.T) {
	store := &fakeProgress{}
	m := NewManager(store, Config{
		CheckpointInterval: 10 * time.Millisecond,
		ResumeThresholdSec: 5,
		Engine:             &fakeEngine{},
	})
	ctx := context.Background()

	if _, err := m.Open(ctx, adaptiveRequest()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := m.ReportPosition(ctx, models.PositionReport{Position: 120, Duration: 1440}); err != nil {
		t.Fatalf("ReportPosition: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(store.saved()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("ticker never saved a checkpoint")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := m.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// After close the ticker is gone; the save count must not grow.
	settled := len(store.saved())
	time.Sleep(50 * time.Millisecond)
	if got := len(store.saved()); got != settled {
		t.Errorf("saves grew from %d to %d after close", settled, got)
	}
}

type fakeResolver struct {
	candidates []models.CandidateLink
}

func (f *fakeResolver) CandidatesFor(context.Context, string, string) ([]models.CandidateLink, error) {
	return f.candidates, nil
}

func TestOpenResolvesCandidatesThroughCatalog(t *testing.T) {
	store := &fakeProgress{}
	m := NewManager(store, Config{
		CheckpointInterval: time.Hour,
		Engine:             &fakeEngine{},
		Resolver: &fakeResolver{candidates: []models.CandidateLink{
			{Name: "Tập 1", EmbedURL: "https://embed.example/ep1"},
		}},
	})

	req := adaptiveRequest()
	req.Candidates = nil

	info, err := m.Open(context.Background(), req)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if info.SourceURL != "https://embed.example/ep1" {
		t.Errorf("url = %q, want catalog-resolved embed", info.SourceURL)
	}
}
