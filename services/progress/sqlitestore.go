package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"phimstream/internal/database"
	"phimstream/models"
)

// SQLiteStore persists watch-progress documents in SQLite. Used when the
// storage backend is configured as "sqlite".
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at path and applies migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, rec models.WatchProgressRecord) error {
	const q = `
		INSERT INTO watch_progress
			(id, user_id, movie_slug, movie_title, poster_url, episode_name,
			 server_name, progress, duration, progress_percent, updated_at_ms, updated_at_iso)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id          = excluded.user_id,
			movie_slug       = excluded.movie_slug,
			movie_title      = excluded.movie_title,
			poster_url       = excluded.poster_url,
			episode_name     = excluded.episode_name,
			server_name      = excluded.server_name,
			progress         = excluded.progress,
			duration         = excluded.duration,
			progress_percent = excluded.progress_percent,
			updated_at_ms    = excluded.updated_at_ms,
			updated_at_iso   = excluded.updated_at_iso`

	_, err := s.db.ExecContext(ctx, q,
		rec.ID, rec.UserID, rec.MovieSlug, rec.MovieTitle, rec.PosterURL, rec.EpisodeName,
		rec.ServerName, rec.Progress, rec.Duration, rec.ProgressPercent, rec.Timestamp, rec.LastUpdated)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.WatchProgressRecord, error) {
	const q = `
		SELECT id, user_id, movie_slug, movie_title, poster_url, episode_name,
		       server_name, progress, duration, progress_percent, updated_at_ms, updated_at_iso
		FROM watch_progress WHERE id = ?`

	var rec models.WatchProgressRecord
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&rec.ID, &rec.UserID, &rec.MovieSlug, &rec.MovieTitle, &rec.PosterURL, &rec.EpisodeName,
		&rec.ServerName, &rec.Progress, &rec.Duration, &rec.ProgressPercent, &rec.Timestamp, &rec.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	return &rec, nil
}

func (s *SQLiteStore) ListByUser(ctx context.Context, userID string) ([]models.WatchProgressRecord, error) {
	const q = `
		SELECT id, user_id, movie_slug, movie_title, poster_url, episode_name,
		       server_name, progress, duration, progress_percent, updated_at_ms, updated_at_iso
		FROM watch_progress WHERE user_id = ?`

	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	items := make([]models.WatchProgressRecord, 0)
	for rows.Next() {
		var rec models.WatchProgressRecord
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.MovieSlug, &rec.MovieTitle, &rec.PosterURL, &rec.EpisodeName,
			&rec.ServerName, &rec.Progress, &rec.Duration, &rec.ProgressPercent, &rec.Timestamp, &rec.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return items, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM watch_progress WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
