package models

// WatchProgressRecord is one persisted playback checkpoint for a single
// user/movie/episode. Field names mirror the documents the web client already
// stores: progress and duration are whole seconds, Timestamp is epoch
// milliseconds and LastUpdated the same instant in RFC3339.
type WatchProgressRecord struct {
	ID              string `json:"id"`
	UserID          string `json:"userId"`
	MovieSlug       string `json:"movieSlug"`
	MovieTitle      string `json:"movieTitle,omitempty"`
	PosterURL       string `json:"posterUrl,omitempty"`
	EpisodeName     string `json:"episodeName"`
	ServerName      string `json:"serverName,omitempty"`
	Progress        int    `json:"progress"`
	Duration        int    `json:"duration"`
	ProgressPercent int    `json:"progressPercent"`
	Timestamp       int64  `json:"timestamp"`
	LastUpdated     string `json:"lastUpdated"`
}

// MovieRef identifies the movie a checkpoint belongs to.
type MovieRef struct {
	Slug      string `json:"slug"`
	Title     string `json:"title,omitempty"`
	PosterURL string `json:"posterUrl,omitempty"`
}

// EpisodeRef identifies the episode within a movie.
type EpisodeRef struct {
	Name       string `json:"name"`
	ServerName string `json:"serverName,omitempty"`
}

// ResumableItem is one continue-watching entry derived from stored progress.
type ResumableItem struct {
	WatchProgressRecord
	// ProgressLabel is the human-readable summary shown next to the poster,
	// e.g. "42% • Còn 27:15".
	ProgressLabel string `json:"progressLabel"`
}
