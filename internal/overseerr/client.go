// Package overseerr is a client for the Overseerr media-request API.
// A Client holds the server address and API key shared by everyone in
// a room; a Session adds the per-user delegated login on top.
package overseerr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"
)

const (
	apiPrefix      = "/api/v1"
	defaultTimeout = 30 * time.Second
)

// Client is the shared handle to one Overseerr server.
type Client struct {
	baseURL *url.URL
	apiKey  string
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the X-Api-Key header sent on every call.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the Overseerr server at rawURL.
func New(rawURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid overseerr URL %q: %w", rawURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("overseerr URL %q must be absolute", rawURL)
	}

	c := &Client{
		baseURL: parsed,
		timeout: defaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// AbsoluteURL builds a link on the Overseerr server outside the API
// prefix, e.g. the web UI page for a movie.
func (c *Client) AbsoluteURL(path string) string {
	u := *c.baseURL
	u.Path = path
	u.RawQuery = ""
	return u.String()
}

func (c *Client) apiURL(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = apiPrefix + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// NewSession creates a fresh per-user session. Each session carries
// its own cookie jar so one user's delegated login never leaks into
// another user's calls.
func (c *Client) NewSession() *Session {
	jar, err := cookiejar.New(nil)
	if err != nil {
		// cookiejar.New never fails with nil options; log just in case.
		c.logger.Error("failed to create cookie jar", slog.Any("error", err))
	}

	return &Session{
		client: c,
		httpClient: &http.Client{
			Timeout: c.timeout,
			Jar:     jar,
		},
	}
}

// Session is one user's view of the API: the room's API key plus any
// login cookies acquired during this session.
type Session struct {
	client     *Client
	httpClient *http.Client
}

// Client returns the shared client this session was created from.
func (s *Session) Client() *Client {
	return s.client
}

func (s *Session) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.client.apiURL(path, query), reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.client.apiKey != "" {
		req.Header.Set("X-Api-Key", s.client.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("overseerr %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkResponse(resp); err != nil {
		return err
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", path, err)
		}
	}
	return nil
}

func (s *Session) get(ctx context.Context, path string, query url.Values, out any) error {
	return s.do(ctx, http.MethodGet, path, query, nil, out)
}

func (s *Session) post(ctx context.Context, path string, body, out any) error {
	return s.do(ctx, http.MethodPost, path, nil, body, out)
}

func (s *Session) del(ctx context.Context, path string) error {
	return s.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// LoginPlex authenticates this session with a Plex auth token. The
// resulting login cookie is kept in the session's jar.
func (s *Session) LoginPlex(ctx context.Context, authToken string) error {
	body := map[string]string{"authToken": authToken}
	return s.post(ctx, "/auth/plex", body, nil)
}

// LoginLocal authenticates this session with a local Overseerr account.
func (s *Session) LoginLocal(ctx context.Context, username, password string) error {
	body := map[string]string{
		"username": username,
		"password": password,
	}
	return s.post(ctx, "/auth/local", body, nil)
}

// Logout ends the session's delegated login.
func (s *Session) Logout(ctx context.Context) error {
	return s.post(ctx, "/auth/logout", nil, nil)
}

// Search queries the catalog. Pages are 1-based.
func (s *Session) Search(ctx context.Context, term string, page int) (*SearchPage, error) {
	query := url.Values{}
	query.Set("query", term)
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}

	var result SearchPage
	if err := s.get(ctx, "/search", query, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListRequests fetches one page of the request listing. The filter is
// one of the kind names accepted by the API ("all", "pending", ...);
// sort and requestedBy are optional.
func (s *Session) ListRequests(ctx context.Context, take, skip int, filter, sort string, requestedBy int) (*RequestPage, error) {
	query := url.Values{}
	query.Set("take", strconv.Itoa(take))
	query.Set("skip", strconv.Itoa(skip))
	if filter != "" {
		query.Set("filter", filter)
	}
	if sort != "" {
		query.Set("sort", sort)
	}
	if requestedBy > 0 {
		query.Set("requestedBy", strconv.Itoa(requestedBy))
	}

	var result RequestPage
	if err := s.get(ctx, "/request", query, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetRequest fetches the full record for one request.
func (s *Session) GetRequest(ctx context.Context, requestID int) (*Request, error) {
	var result Request
	if err := s.get(ctx, fmt.Sprintf("/request/%d", requestID), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateRequestStatus applies an approve/decline/retry action.
func (s *Session) UpdateRequestStatus(ctx context.Context, requestID int, action string) error {
	return s.post(ctx, fmt.Sprintf("/request/%d/%s", requestID, action), nil, nil)
}

// DeleteRequest removes a request.
func (s *Session) DeleteRequest(ctx context.Context, requestID int) error {
	return s.del(ctx, fmt.Sprintf("/request/%d", requestID))
}

// CreateRequest submits a new media request.
func (s *Session) CreateRequest(ctx context.Context, params CreateRequestParams) (*Request, error) {
	var result Request
	if err := s.post(ctx, "/request", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Movie fetches details for a movie by TMDB id.
func (s *Session) Movie(ctx context.Context, movieID int) (*MediaDetails, error) {
	var result MediaDetails
	if err := s.get(ctx, fmt.Sprintf("/movie/%d", movieID), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// TV fetches details for a TV show by TMDB id.
func (s *Session) TV(ctx context.Context, tvID int) (*MediaDetails, error) {
	var result MediaDetails
	if err := s.get(ctx, fmt.Sprintf("/tv/%d", tvID), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// MediaInfo fetches the details matching a media record's type.
// Unknown media types return an empty record.
func (s *Session) MediaInfo(ctx context.Context, media *Media) (*MediaDetails, error) {
	switch media.MediaType {
	case MediaTypeMovie:
		return s.Movie(ctx, media.TmdbID)
	case MediaTypeTV:
		return s.TV(ctx, media.TmdbID)
	default:
		return &MediaDetails{}, nil
	}
}

// RadarrServer fetches profile and root folder info for a radarr server.
func (s *Session) RadarrServer(ctx context.Context, serverID int) (*ServerInfo, error) {
	var result ServerInfo
	if err := s.get(ctx, fmt.Sprintf("/service/radarr/%d", serverID), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SonarrServer fetches profile and root folder info for a sonarr server.
func (s *Session) SonarrServer(ctx context.Context, serverID int) (*ServerInfo, error) {
	var result ServerInfo
	if err := s.get(ctx, fmt.Sprintf("/service/sonarr/%d", serverID), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
