package models

// SourceKind distinguishes the two playable source families.
type SourceKind string

const (
	// SourceKindAdaptive is a manifest-described stream played through the
	// adaptive-stream engine.
	SourceKindAdaptive SourceKind = "adaptive-stream"
	// SourceKindEmbed is a third-party player loaded in an isolated frame.
	// It offers no playback telemetry and no programmatic seeking.
	SourceKindEmbed SourceKind = "embedded-frame"
)

// OpenSessionRequest asks the playback manager to start a session. Candidates
// may be supplied directly; when empty, the movie slug and episode name are
// resolved through the catalog.
type OpenSessionRequest struct {
	UserID     string          `json:"userId,omitempty"`
	Movie      MovieRef        `json:"movie"`
	Episode    EpisodeRef      `json:"episode"`
	Candidates []CandidateLink `json:"candidates,omitempty"`
}

// PositionReport carries player telemetry into the active session. Values are
// seconds as observed by the client-side player.
type PositionReport struct {
	Position float64 `json:"position"`
	Duration float64 `json:"duration"`
}

// ManualCheckpointRequest records a user-supplied position for sources with
// no telemetry. Time accepts "SS", "MM:SS" or "HH:MM:SS".
type ManualCheckpointRequest struct {
	Time string `json:"time"`
}

// SessionInfo is the externally visible snapshot of a playback session.
type SessionInfo struct {
	ID          string     `json:"id"`
	State       string     `json:"state"`
	UserID      string     `json:"userId,omitempty"`
	Movie       MovieRef   `json:"movie"`
	Episode     EpisodeRef `json:"episode"`
	SourceURL   string     `json:"sourceUrl"`
	SourceKind  SourceKind `json:"sourceKind"`
	FallbackURL string     `json:"fallbackUrl,omitempty"`
	// ResumeFrom is the seek offset in seconds applied to adaptive sources
	// when prior progress exceeded the resume threshold.
	ResumeFrom int `json:"resumeFrom,omitempty"`
	// ResumeNote is the informational reminder used instead of a seek for
	// embedded-frame sources, which cannot be positioned programmatically.
	ResumeNote string `json:"resumeNote,omitempty"`
}
