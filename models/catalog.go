package models

// Catalog API payloads. The upstream catalog returns snake_case JSON; these
// structs keep its field names on the wire and are passed through to clients
// mostly untouched.

// MovieSummary is one entry of a catalog listing page.
type MovieSummary struct {
	Slug           string `json:"slug"`
	Name           string `json:"name"`
	OriginName     string `json:"origin_name,omitempty"`
	ThumbURL       string `json:"thumb_url,omitempty"`
	PosterURL      string `json:"poster_url,omitempty"`
	Year           int    `json:"year,omitempty"`
	Quality        string `json:"quality,omitempty"`
	Language       string `json:"language,omitempty"`
	CurrentEpisode string `json:"current_episode,omitempty"`
	TotalEpisodes  string `json:"total_episodes,omitempty"`
}

// Paginate describes catalog list paging.
type Paginate struct {
	CurrentPage  int `json:"current_page"`
	TotalPage    int `json:"total_page"`
	TotalItems   int `json:"total_items"`
	ItemsPerPage int `json:"items_per_page"`
}

// MovieListPage is a catalog listing response.
type MovieListPage struct {
	Items    []MovieSummary `json:"items"`
	Paginate Paginate       `json:"paginate"`
}

// EpisodeItem is a single playable entry within a server group. M3U8 carries
// the adaptive-stream manifest URL, Embed the third-party frame URL; either
// may be empty.
type EpisodeItem struct {
	Name  string `json:"name"`
	Slug  string `json:"slug,omitempty"`
	M3U8  string `json:"m3u8,omitempty"`
	Embed string `json:"embed,omitempty"`
}

// EpisodeServer groups the episode entries one hosting server offers.
type EpisodeServer struct {
	ServerName string        `json:"server_name"`
	Items      []EpisodeItem `json:"items"`
}

// MovieDetail is the catalog detail payload for one movie.
type MovieDetail struct {
	Slug        string          `json:"slug"`
	Name        string          `json:"name"`
	OriginName  string          `json:"origin_name,omitempty"`
	ThumbURL    string          `json:"thumb_url,omitempty"`
	PosterURL   string          `json:"poster_url,omitempty"`
	Year        int             `json:"year,omitempty"`
	Quality     string          `json:"quality,omitempty"`
	Language    string          `json:"language,omitempty"`
	Content     string          `json:"content,omitempty"`
	Time        string          `json:"time,omitempty"`
	Episodes    []EpisodeServer `json:"episodes,omitempty"`
}

// MovieDetailResponse wraps the detail payload the way the catalog serves it.
type MovieDetailResponse struct {
	Movie *MovieDetail `json:"movie"`
}

// CandidateLink is one playable-source candidate for an episode, assembled
// from an EpisodeItem.
type CandidateLink struct {
	Name        string `json:"name"`
	AdaptiveURL string `json:"m3u8,omitempty"`
	EmbedURL    string `json:"embed,omitempty"`
}
