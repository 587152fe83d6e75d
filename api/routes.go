// Package api mounts the HTTP surface onto a gorilla router.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"phimstream/handlers"
)

// corsMiddleware handles CORS for API routes
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// pinMiddleware gates the API behind the instance access PIN. The PIN is
// read per request so a settings save takes effect without a restart; an
// empty PIN disables the gate.
func pinMiddleware(getPIN func() string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pin := getPIN()
			if pin != "" && r.Header.Get("X-Access-Pin") != pin {
				http.Error(w, "invalid access pin", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Register mounts all API endpoints onto the provided router.
func Register(
	r *mux.Router,
	getPIN func() string,
	usersHandler *handlers.UsersHandler,
	historyHandler *handlers.HistoryHandler,
	playbackHandler *handlers.PlaybackHandler,
	catalogHandler *handlers.CatalogHandler,
) {
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(corsMiddleware)
	api.Use(pinMiddleware(getPIN))

	// Profiles
	api.HandleFunc("/users", usersHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/users", usersHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/users/{userID}", usersHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}", usersHandler.Delete).Methods(http.MethodDelete)

	// Watch history
	api.HandleFunc("/users/{userID}/history", historyHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/history", historyHandler.Save).Methods(http.MethodPost)
	api.HandleFunc("/users/{userID}/history", historyHandler.ClearAll).Methods(http.MethodDelete)
	api.HandleFunc("/users/{userID}/history/{movieSlug}/{episodeName}", historyHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/history/{movieSlug}/{episodeName}", historyHandler.Remove).Methods(http.MethodDelete)
	api.HandleFunc("/users/{userID}/continue-watching", historyHandler.ListContinueWatching).Methods(http.MethodGet)

	// Playback session
	api.HandleFunc("/playback/open", playbackHandler.Open).Methods(http.MethodPost)
	api.HandleFunc("/playback/session", playbackHandler.Current).Methods(http.MethodGet)
	api.HandleFunc("/playback/position", playbackHandler.ReportPosition).Methods(http.MethodPost)
	api.HandleFunc("/playback/pause", playbackHandler.Pause).Methods(http.MethodPost)
	api.HandleFunc("/playback/resume", playbackHandler.Resume).Methods(http.MethodPost)
	api.HandleFunc("/playback/ended", playbackHandler.Ended).Methods(http.MethodPost)
	api.HandleFunc("/playback/checkpoint", playbackHandler.ManualCheckpoint).Methods(http.MethodPost)
	api.HandleFunc("/playback/close", playbackHandler.Close).Methods(http.MethodPost)

	// Catalog passthrough
	api.HandleFunc("/catalog/latest", catalogHandler.Latest).Methods(http.MethodGet)
	api.HandleFunc("/catalog/category/{category}", catalogHandler.ByCategory).Methods(http.MethodGet)
	api.HandleFunc("/catalog/genre/{genre}", catalogHandler.ByGenre).Methods(http.MethodGet)
	api.HandleFunc("/catalog/country/{country}", catalogHandler.ByCountry).Methods(http.MethodGet)
	api.HandleFunc("/catalog/year/{year}", catalogHandler.ByYear).Methods(http.MethodGet)
	api.HandleFunc("/catalog/search", catalogHandler.Search).Methods(http.MethodGet)
	api.HandleFunc("/catalog/movies/{movieSlug}", catalogHandler.Detail).Methods(http.MethodGet)
	api.HandleFunc("/catalog/movies/{movieSlug}/episodes/{episodeName}/candidates", catalogHandler.Candidates).Methods(http.MethodGet)
}
