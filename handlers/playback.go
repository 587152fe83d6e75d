package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"phimstream/models"
	"phimstream/services/catalog"
	"phimstream/services/playback"
	"phimstream/services/progress"
	"phimstream/services/streams"
)

type playbackManager interface {
	Open(ctx context.Context, req models.OpenSessionRequest) (models.SessionInfo, error)
	ReportPosition(ctx context.Context, rep models.PositionReport) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Ended(ctx context.Context) error
	ManualCheckpoint(ctx context.Context, timeText string) (models.WatchProgressRecord, error)
	Close(ctx context.Context) error
	Current() (models.SessionInfo, bool)
}

var _ playbackManager = (*playback.Manager)(nil)

type PlaybackHandler struct {
	Manager playbackManager
	Users   userService
}

func NewPlaybackHandler(manager playbackManager, users userService) *PlaybackHandler {
	return &PlaybackHandler{Manager: manager, Users: users}
}

func (h *PlaybackHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req models.OpenSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	if req.UserID != "" && h.Users != nil && !h.Users.Exists(req.UserID) {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}

	info, err := h.Manager.Open(r.Context(), req)
	if err != nil {
		http.Error(w, err.Error(), playbackErrorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}

func (h *PlaybackHandler) Current(w http.ResponseWriter, r *http.Request) {
	info, ok := h.Manager.Current()
	if !ok {
		http.Error(w, "no active playback session", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}

func (h *PlaybackHandler) ReportPosition(w http.ResponseWriter, r *http.Request) {
	var rep models.PositionReport
	if err := json.NewDecoder(r.Body).Decode(&rep); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	if err := h.Manager.ReportPosition(r.Context(), rep); err != nil {
		http.Error(w, err.Error(), playbackErrorStatus(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PlaybackHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Manager.Pause)
}

func (h *PlaybackHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Manager.Resume)
}

func (h *PlaybackHandler) Ended(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Manager.Ended)
}

func (h *PlaybackHandler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context) error) {
	if err := fn(r.Context()); err != nil {
		http.Error(w, err.Error(), playbackErrorStatus(err))
		return
	}

	info, ok := h.Manager.Current()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}

func (h *PlaybackHandler) ManualCheckpoint(w http.ResponseWriter, r *http.Request) {
	var req models.ManualCheckpointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	rec, err := h.Manager.ManualCheckpoint(r.Context(), req.Time)
	if err != nil {
		http.Error(w, err.Error(), playbackErrorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

func (h *PlaybackHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.Manager.Close(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func playbackErrorStatus(err error) int {
	switch {
	case errors.Is(err, streams.ErrNoPlayableSource):
		return http.StatusUnprocessableEntity
	case errors.Is(err, playback.ErrStreamFailed):
		return http.StatusBadGateway
	case errors.Is(err, playback.ErrNoActiveSession),
		errors.Is(err, playback.ErrInvalidTimecode):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrMovieNotFound):
		return http.StatusNotFound
	case errors.Is(err, progress.ErrUserIDRequired),
		errors.Is(err, progress.ErrMovieSlugRequired),
		errors.Is(err, progress.ErrEpisodeNameRequired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
