// Package catalog consumes the remote movie catalog API: listings, search,
// detail and the playable links used as playback candidates.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"phimstream/models"
)

// ErrMovieNotFound is returned for a slug the catalog does not know.
var ErrMovieNotFound = errors.New("movie not found")

// errRetryable marks transient upstream failures worth another attempt.
type errRetryable struct {
	err error
}

func (e *errRetryable) Error() string { return e.err.Error() }
func (e *errRetryable) Unwrap() error { return e.err }

// Client talks to the catalog API. All responses are snake_case JSON passed
// through mostly untouched; the client only adds retries and candidate
// extraction.
type Client struct {
	baseURL  string
	httpc    *http.Client
	attempts uint
}

func NewClient(baseURL string, timeout time.Duration, attempts int) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if attempts <= 0 {
		attempts = 3
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		httpc:    &http.Client{Timeout: timeout},
		attempts: uint(attempts),
	}
}

// doGET fetches endpoint into v, retrying transient failures (network
// errors, 429, 5xx) with backoff. 4xx responses fail immediately.
func (c *Client) doGET(ctx context.Context, endpoint string, v any) error {
	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return err
			}

			resp, err := c.httpc.Do(req)
			if err != nil {
				return &errRetryable{err: err}
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return &errRetryable{err: fmt.Errorf("catalog request failed: %s", resp.Status)}
			}
			if resp.StatusCode == http.StatusNotFound {
				return ErrMovieNotFound
			}
			if resp.StatusCode >= 400 {
				return fmt.Errorf("catalog request failed: %s", resp.Status)
			}

			return json.NewDecoder(resp.Body).Decode(v)
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(300*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var transient *errRetryable
			return errors.As(err, &transient)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("[catalog] retrying request (attempt %d/%d): %v", n+1, c.attempts, err)
		}),
	)
}

// Latest returns the newest-updated listing page.
func (c *Client) Latest(ctx context.Context, page int) (*models.MovieListPage, error) {
	if page < 1 {
		page = 1
	}
	endpoint := fmt.Sprintf("%s/films/phim-moi-cap-nhat?page=%d", c.baseURL, page)

	var out models.MovieListPage
	if err := c.doGET(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// listPage fetches one page of a slug-keyed listing under prefix.
func (c *Client) listPage(ctx context.Context, prefix, slug string, page int) (*models.MovieListPage, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, fmt.Errorf("%s slug is required", prefix)
	}
	if page < 1 {
		page = 1
	}
	endpoint := fmt.Sprintf("%s/films/%s/%s?page=%d", c.baseURL, prefix, url.PathEscape(slug), page)

	var out models.MovieListPage
	if err := c.doGET(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ByCategory returns one page of a named listing, e.g. "phim-le" or
// "phim-bo".
func (c *Client) ByCategory(ctx context.Context, category string, page int) (*models.MovieListPage, error) {
	return c.listPage(ctx, "danh-sach", category, page)
}

// ByGenre returns one page of a genre listing, e.g. "hanh-dong".
func (c *Client) ByGenre(ctx context.Context, genre string, page int) (*models.MovieListPage, error) {
	return c.listPage(ctx, "the-loai", genre, page)
}

// ByCountry returns one page of a country listing, e.g. "nhat-ban".
func (c *Client) ByCountry(ctx context.Context, country string, page int) (*models.MovieListPage, error) {
	return c.listPage(ctx, "quoc-gia", country, page)
}

// ByYear returns one page of a release-year listing.
func (c *Client) ByYear(ctx context.Context, year string, page int) (*models.MovieListPage, error) {
	return c.listPage(ctx, "nam-phat-hanh", year, page)
}

// Search queries the catalog by keyword.
func (c *Client) Search(ctx context.Context, keyword string, page int) (*models.MovieListPage, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return &models.MovieListPage{Items: []models.MovieSummary{}}, nil
	}
	if page < 1 {
		page = 1
	}
	endpoint := fmt.Sprintf("%s/films/search?keyword=%s&page=%d", c.baseURL, url.QueryEscape(keyword), page)

	var out models.MovieListPage
	if err := c.doGET(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Detail fetches the full movie payload including episode servers.
func (c *Client) Detail(ctx context.Context, slug string) (*models.MovieDetail, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, errors.New("movie slug is required")
	}
	endpoint := fmt.Sprintf("%s/film/%s", c.baseURL, url.PathEscape(slug))

	var out models.MovieDetailResponse
	if err := c.doGET(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	if out.Movie == nil {
		return nil, ErrMovieNotFound
	}
	return out.Movie, nil
}

// CandidatesFor extracts the playable links every server offers for one
// episode of a movie. The playback manager consumes these when an open
// request names the episode but carries no links.
func (c *Client) CandidatesFor(ctx context.Context, movieSlug, episodeName string) ([]models.CandidateLink, error) {
	detail, err := c.Detail(ctx, movieSlug)
	if err != nil {
		return nil, err
	}

	episodeName = strings.TrimSpace(episodeName)
	candidates := make([]models.CandidateLink, 0)
	for _, server := range detail.Episodes {
		for _, item := range server.Items {
			if !strings.EqualFold(strings.TrimSpace(item.Name), episodeName) {
				continue
			}
			candidates = append(candidates, models.CandidateLink{
				Name:        item.Name,
				AdaptiveURL: item.M3U8,
				EmbedURL:    item.Embed,
			})
		}
	}
	return candidates, nil
}
