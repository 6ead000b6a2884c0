package overseerr

// MediaStatus is the availability state of a media item as reported
// by the Overseerr API.
type MediaStatus int

// Media status values used by the API.
const (
	StatusUnknown            MediaStatus = 1
	StatusPending            MediaStatus = 2
	StatusProcessing         MediaStatus = 3
	StatusPartiallyAvailable MediaStatus = 4
	StatusAvailable          MediaStatus = 5
)

// String returns the lowercase status name.
func (s MediaStatus) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusPartiallyAvailable:
		return "partially available"
	case StatusAvailable:
		return "available"
	default:
		return "unknown"
	}
}

// Media types returned by search.
const (
	MediaTypeMovie = "movie"
	MediaTypeTV    = "tv"
)

// Media is the media record embedded in search results and requests.
type Media struct {
	ID        int         `json:"id"`
	TmdbID    int         `json:"tmdbId"`
	MediaType string      `json:"mediaType"`
	Status    MediaStatus `json:"status"`
}

// SearchResult is one hit from the search endpoint. Index is the
// 1-based display position assigned when the result is shown to a
// user; it is not part of the wire format.
type SearchResult struct {
	ID           int    `json:"id"`
	MediaType    string `json:"mediaType"`
	Title        string `json:"title"`
	Name         string `json:"name"`
	Overview     string `json:"overview"`
	PosterPath   string `json:"posterPath"`
	ReleaseDate  string `json:"releaseDate"`
	FirstAirDate string `json:"firstAirDate"`
	MediaInfo    *Media `json:"mediaInfo"`

	Index int `json:"-"`
}

// DisplayTitle returns the movie title or TV show name.
func (r *SearchResult) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}

// Year returns the four-digit year of the release or first air date.
func (r *SearchResult) Year() string {
	date := r.ReleaseDate
	if date == "" {
		date = r.FirstAirDate
	}
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}

// Status returns the media availability, or StatusUnknown when the
// media has never been requested.
func (r *SearchResult) Status() MediaStatus {
	if r.MediaInfo == nil {
		return StatusUnknown
	}
	return r.MediaInfo.Status
}

// SearchPage is one page of search results.
type SearchPage struct {
	Page         int            `json:"page"`
	TotalPages   int            `json:"totalPages"`
	TotalResults int            `json:"totalResults"`
	Results      []SearchResult `json:"results"`
}

// User identifies the requesting user on a request record.
type User struct {
	ID          int    `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// Request is one entry from the request listing. Index and Info are
// populated by the browsing flow, not by the API.
type Request struct {
	ID          int    `json:"id"`
	Status      int    `json:"status"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
	Media       Media  `json:"media"`
	RequestedBy User   `json:"requestedBy"`

	Index int           `json:"-"`
	Info  *MediaDetails `json:"-"`
}

// RequestPage is one page of the request listing.
type RequestPage struct {
	PageInfo struct {
		Pages    int `json:"pages"`
		PageSize int `json:"pageSize"`
		Results  int `json:"results"`
		Page     int `json:"page"`
	} `json:"pageInfo"`
	Results []Request `json:"results"`
}

// MediaDetails is the detail record for a movie or TV show, fetched
// to enrich request entries with a human-readable title and poster.
type MediaDetails struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	Name         string `json:"name"`
	Overview     string `json:"overview"`
	PosterPath   string `json:"posterPath"`
	ReleaseDate  string `json:"releaseDate"`
	FirstAirDate string `json:"firstAirDate"`
}

// DisplayTitle returns the movie title or TV show name.
func (d *MediaDetails) DisplayTitle() string {
	if d.Title != "" {
		return d.Title
	}
	return d.Name
}

// Profile is a quality profile exposed by a radarr/sonarr server.
type Profile struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// RootFolder is a storage root exposed by a radarr/sonarr server.
type RootFolder struct {
	ID   int    `json:"id"`
	Path string `json:"path"`
}

// ServerInfo describes one radarr/sonarr server: its quality profiles
// and root folders, used when building a request.
type ServerInfo struct {
	Server struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"server"`
	Profiles    []Profile    `json:"profiles"`
	RootFolders []RootFolder `json:"rootFolders"`
}

// CreateRequestParams are the fields for a new media request.
// ServerID, ProfileID and RootFolder are optional; zero values are
// omitted from the submitted body except ServerID, which Overseerr
// accepts as 0 for the default server.
type CreateRequestParams struct {
	MediaType  string `json:"mediaType"`
	MediaID    int    `json:"mediaId"`
	ServerID   int    `json:"serverId"`
	ProfileID  int    `json:"profileId,omitempty"`
	RootFolder string `json:"rootFolder,omitempty"`
}

// Request status update actions.
const (
	RequestActionApprove = "approve"
	RequestActionDecline = "decline"
	RequestActionRetry   = "retry"
)
