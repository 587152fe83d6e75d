// Package progress persists per-user watch progress. Records are keyed by
// the composite of user, movie and episode, and every save is a full
// overwrite, so repeated checkpoints for the same episode never duplicate.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"phimstream/models"
	"phimstream/utils/timefmt"
)

var (
	ErrUserIDRequired      = errors.New("user id is required")
	ErrMovieSlugRequired   = errors.New("movie slug is required")
	ErrEpisodeNameRequired = errors.New("episode name is required")
)

const defaultCompletedPercent = 95

// Service implements the watch-progress gateway over a document Store.
type Service struct {
	store            Store
	completedPercent int
}

// NewService wraps store. completedPercent (0 for the default of 95) is the
// threshold at and above which an episode counts as finished.
func NewService(store Store, completedPercent int) *Service {
	if completedPercent <= 0 {
		completedPercent = defaultCompletedPercent
	}
	return &Service{store: store, completedPercent: completedPercent}
}

// RecordID joins the composite key into the document ID. The same join is the
// idempotency key for upserts.
func RecordID(userID, movieSlug, episodeName string) string {
	return fmt.Sprintf("%s_%s_%s", userID, movieSlug, episodeName)
}

// Save upserts a checkpoint. Concurrent saves for the same key are
// last-write-wins; there is no read-modify-write because each save carries
// every field.
func (s *Service) Save(ctx context.Context, userID string, movie models.MovieRef, episode models.EpisodeRef, progressSec, durationSec int) (models.WatchProgressRecord, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return models.WatchProgressRecord{}, ErrUserIDRequired
	}
	slug := strings.TrimSpace(movie.Slug)
	if slug == "" {
		return models.WatchProgressRecord{}, ErrMovieSlugRequired
	}
	episodeName := strings.TrimSpace(episode.Name)
	if episodeName == "" {
		return models.WatchProgressRecord{}, ErrEpisodeNameRequired
	}

	if progressSec < 0 {
		progressSec = 0
	}
	if durationSec < 0 {
		durationSec = 0
	}

	percent := 0
	if durationSec > 0 {
		percent = progressSec * 100 / durationSec
	}

	now := time.Now().UTC()
	rec := models.WatchProgressRecord{
		ID:              RecordID(userID, slug, episodeName),
		UserID:          userID,
		MovieSlug:       slug,
		MovieTitle:      movie.Title,
		PosterURL:       movie.PosterURL,
		EpisodeName:     episodeName,
		ServerName:      episode.ServerName,
		Progress:        progressSec,
		Duration:        durationSec,
		ProgressPercent: percent,
		Timestamp:       now.UnixMilli(),
		LastUpdated:     now.Format(time.RFC3339),
	}

	if err := s.store.Upsert(ctx, rec); err != nil {
		return models.WatchProgressRecord{}, fmt.Errorf("save watch progress: %w", err)
	}
	return rec, nil
}

// Get returns the stored checkpoint, or nil when absent. Missing key parts
// yield nil rather than an error so lookups never interrupt playback setup.
func (s *Service) Get(ctx context.Context, userID, movieSlug, episodeName string) (*models.WatchProgressRecord, error) {
	userID = strings.TrimSpace(userID)
	movieSlug = strings.TrimSpace(movieSlug)
	episodeName = strings.TrimSpace(episodeName)
	if userID == "" || movieSlug == "" || episodeName == "" {
		return nil, nil
	}

	rec, err := s.store.Get(ctx, RecordID(userID, movieSlug, episodeName))
	if err != nil {
		return nil, fmt.Errorf("get watch progress: %w", err)
	}
	return rec, nil
}

// List returns the user's checkpoints most-recent first, truncated to limit.
// The store is queried by user equality only; recency ordering happens here
// so no backend needs a composite index. A missing timestamp sorts as zero.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]models.WatchProgressRecord, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	items, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list watch progress: %w", err)
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Timestamp == items[j].Timestamp {
			return items[i].ID < items[j].ID
		}
		return items[i].Timestamp > items[j].Timestamp
	})

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Remove deletes one checkpoint. Removing a record that does not exist is
// not an error.
func (s *Service) Remove(ctx context.Context, userID, movieSlug, episodeName string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrUserIDRequired
	}
	movieSlug = strings.TrimSpace(movieSlug)
	if movieSlug == "" {
		return ErrMovieSlugRequired
	}
	episodeName = strings.TrimSpace(episodeName)
	if episodeName == "" {
		return ErrEpisodeNameRequired
	}

	if err := s.store.Delete(ctx, RecordID(userID, movieSlug, episodeName)); err != nil {
		return fmt.Errorf("remove watch progress: %w", err)
	}
	return nil
}

// ClearAll deletes every checkpoint for the user, fanning the deletes out in
// parallel. Any individual failure fails the whole call, but deletes already
// issued are not rolled back; the backend has no multi-record transaction.
// Returns the number of deletes issued.
func (s *Service) ClearAll(ctx context.Context, userID string) (int, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, ErrUserIDRequired
	}

	items, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list watch progress: %w", err)
	}

	p := pool.New().WithErrors().WithContext(ctx)
	for _, rec := range items {
		id := rec.ID
		p.Go(func(ctx context.Context) error {
			return s.store.Delete(ctx, id)
		})
	}
	if err := p.Wait(); err != nil {
		return len(items), fmt.Errorf("clear watch progress: %w", err)
	}

	log.Printf("[progress] cleared %d record(s) for user %s", len(items), userID)
	return len(items), nil
}

// ListContinueWatching derives the resumable list: the user's most recent
// checkpoints with finished episodes filtered out. Read-only; order follows
// List.
func (s *Service) ListContinueWatching(ctx context.Context, userID string, limit int) ([]models.ResumableItem, error) {
	records, err := s.List(ctx, userID, 0)
	if err != nil {
		return nil, err
	}

	items := make([]models.ResumableItem, 0, len(records))
	for _, rec := range records {
		if rec.ProgressPercent >= s.completedPercent {
			continue
		}
		items = append(items, models.ResumableItem{
			WatchProgressRecord: rec,
			ProgressLabel:       timefmt.ProgressLabel(rec.Progress, rec.Duration),
		})
		if limit > 0 && len(items) == limit {
			break
		}
	}
	return items, nil
}
