package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"phimstream/models"
	"phimstream/services/progress"
)

type progressService interface {
	Save(ctx context.Context, userID string, movie models.MovieRef, episode models.EpisodeRef, progressSec, durationSec int) (models.WatchProgressRecord, error)
	Get(ctx context.Context, userID, movieSlug, episodeName string) (*models.WatchProgressRecord, error)
	List(ctx context.Context, userID string, limit int) ([]models.WatchProgressRecord, error)
	Remove(ctx context.Context, userID, movieSlug, episodeName string) error
	ClearAll(ctx context.Context, userID string) (int, error)
	ListContinueWatching(ctx context.Context, userID string, limit int) ([]models.ResumableItem, error)
}

var _ progressService = (*progress.Service)(nil)

type HistoryHandler struct {
	Service progressService
	Users   userService
	// HistoryLimit and ContinueWatchingLimit are the defaults applied when a
	// request carries no limit parameter.
	HistoryLimit          int
	ContinueWatchingLimit int
}

func NewHistoryHandler(service progressService, users userService, historyLimit, continueWatchingLimit int) *HistoryHandler {
	if historyLimit <= 0 {
		historyLimit = 50
	}
	if continueWatchingLimit <= 0 {
		continueWatchingLimit = 10
	}
	return &HistoryHandler{
		Service:               service,
		Users:                 users,
		HistoryLimit:          historyLimit,
		ContinueWatchingLimit: continueWatchingLimit,
	}
}

func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	limit := h.HistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	items, err := h.Service.List(r.Context(), userID, limit)
	if err != nil {
		http.Error(w, err.Error(), progressErrorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	movieSlug := strings.TrimSpace(vars["movieSlug"])
	episodeName := strings.TrimSpace(vars["episodeName"])
	if movieSlug == "" || episodeName == "" {
		http.Error(w, "movie slug and episode name are required", http.StatusBadRequest)
		return
	}

	rec, err := h.Service.Get(r.Context(), userID, movieSlug, episodeName)
	if err != nil {
		http.Error(w, err.Error(), progressErrorStatus(err))
		return
	}
	if rec == nil {
		http.Error(w, "no watch progress recorded", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

type saveProgressPayload struct {
	Movie    models.MovieRef   `json:"movie"`
	Episode  models.EpisodeRef `json:"episode"`
	Progress int               `json:"progress"`
	Duration int               `json:"duration"`
}

func (h *HistoryHandler) Save(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var payload saveProgressPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	rec, err := h.Service.Save(r.Context(), userID, payload.Movie, payload.Episode, payload.Progress, payload.Duration)
	if err != nil {
		http.Error(w, err.Error(), progressErrorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

func (h *HistoryHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	movieSlug := strings.TrimSpace(vars["movieSlug"])
	episodeName := strings.TrimSpace(vars["episodeName"])
	if movieSlug == "" || episodeName == "" {
		http.Error(w, "movie slug and episode name are required", http.StatusBadRequest)
		return
	}

	if err := h.Service.Remove(r.Context(), userID, movieSlug, episodeName); err != nil {
		http.Error(w, err.Error(), progressErrorStatus(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *HistoryHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	cleared, err := h.Service.ClearAll(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), progressErrorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"cleared": cleared})
}

func (h *HistoryHandler) ListContinueWatching(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	limit := h.ContinueWatchingLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	items, err := h.Service.ListContinueWatching(r.Context(), userID, limit)
	if err != nil {
		http.Error(w, err.Error(), progressErrorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

func (h *HistoryHandler) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	vars := mux.Vars(r)
	userID := strings.TrimSpace(vars["userID"])
	if userID == "" {
		http.Error(w, "user id is required", http.StatusBadRequest)
		return "", false
	}

	if h.Users != nil && !h.Users.Exists(userID) {
		http.Error(w, "user not found", http.StatusNotFound)
		return "", false
	}

	return userID, true
}

func progressErrorStatus(err error) int {
	switch {
	case errors.Is(err, progress.ErrUserIDRequired),
		errors.Is(err, progress.ErrMovieSlugRequired),
		errors.Is(err, progress.ErrEpisodeNameRequired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
