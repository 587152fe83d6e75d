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
	"phimstream/services/catalog"
)

type catalogService interface {
	Latest(ctx context.Context, page int) (*models.MovieListPage, error)
	ByCategory(ctx context.Context, category string, page int) (*models.MovieListPage, error)
	ByGenre(ctx context.Context, genre string, page int) (*models.MovieListPage, error)
	ByCountry(ctx context.Context, country string, page int) (*models.MovieListPage, error)
	ByYear(ctx context.Context, year string, page int) (*models.MovieListPage, error)
	Search(ctx context.Context, keyword string, page int) (*models.MovieListPage, error)
	Detail(ctx context.Context, slug string) (*models.MovieDetail, error)
	CandidatesFor(ctx context.Context, movieSlug, episodeName string) ([]models.CandidateLink, error)
}

var _ catalogService = (*catalog.Client)(nil)

type CatalogHandler struct {
	Service catalogService
}

func NewCatalogHandler(service catalogService) *CatalogHandler {
	return &CatalogHandler{Service: service}
}

func (h *CatalogHandler) Latest(w http.ResponseWriter, r *http.Request) {
	page, err := h.Service.Latest(r.Context(), queryPage(r))
	if err != nil {
		http.Error(w, err.Error(), catalogErrorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(page)
}

func (h *CatalogHandler) ByCategory(w http.ResponseWriter, r *http.Request) {
	h.listing(w, r, "category", h.Service.ByCategory)
}

func (h *CatalogHandler) ByGenre(w http.ResponseWriter, r *http.Request) {
	h.listing(w, r, "genre", h.Service.ByGenre)
}

func (h *CatalogHandler) ByCountry(w http.ResponseWriter, r *http.Request) {
	h.listing(w, r, "country", h.Service.ByCountry)
}

func (h *CatalogHandler) ByYear(w http.ResponseWriter, r *http.Request) {
	h.listing(w, r, "year", h.Service.ByYear)
}

func (h *CatalogHandler) listing(w http.ResponseWriter, r *http.Request, varName string, fetch func(context.Context, string, int) (*models.MovieListPage, error)) {
	vars := mux.Vars(r)
	slug := strings.TrimSpace(vars[varName])
	if slug == "" {
		http.Error(w, varName+" is required", http.StatusBadRequest)
		return
	}

	page, err := fetch(r.Context(), slug, queryPage(r))
	if err != nil {
		http.Error(w, err.Error(), catalogErrorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(page)
}

func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	page, err := h.Service.Search(r.Context(), r.URL.Query().Get("keyword"), queryPage(r))
	if err != nil {
		http.Error(w, err.Error(), catalogErrorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(page)
}

func (h *CatalogHandler) Detail(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	slug := strings.TrimSpace(vars["movieSlug"])
	if slug == "" {
		http.Error(w, "movie slug is required", http.StatusBadRequest)
		return
	}

	detail, err := h.Service.Detail(r.Context(), slug)
	if err != nil {
		http.Error(w, err.Error(), catalogErrorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.MovieDetailResponse{Movie: detail})
}

func (h *CatalogHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	slug := strings.TrimSpace(vars["movieSlug"])
	episodeName := strings.TrimSpace(vars["episodeName"])
	if slug == "" || episodeName == "" {
		http.Error(w, "movie slug and episode name are required", http.StatusBadRequest)
		return
	}

	candidates, err := h.Service.CandidatesFor(r.Context(), slug, episodeName)
	if err != nil {
		http.Error(w, err.Error(), catalogErrorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(candidates)
}

func queryPage(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func catalogErrorStatus(err error) int {
	if errors.Is(err, catalog.ErrMovieNotFound) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}
