// Package plex implements the PIN-based Plex login exchange: a login
// page that claims a PIN against plex.tv and a callback that trades
// the PIN for an auth token, stored per chat user.
package plex

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"runtime"
	"time"

	"github.com/gorilla/mux"
)

const (
	// PathLogin and PathAuth are the HTTP paths the service handles.
	PathLogin = "/plex/login"
	PathAuth  = "/plex/auth"

	defaultPinBaseURL = "https://plex.tv/api/v2/pins"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

// TokenStore persists per-user auth tokens. An absent token is
// reported as "" with a nil error.
type TokenStore interface {
	Token(ctx context.Context, userID string) (string, error)
	SetToken(ctx context.Context, userID, token string) error
	DeleteToken(ctx context.Context, userID string) error
}

// Service handles the login exchange for one bot installation.
type Service struct {
	product    string
	baseURL    string
	store      TokenStore
	pinBaseURL string
	httpClient *http.Client
	logger     *slog.Logger
	templates  *template.Template
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithPinBaseURL overrides the plex.tv PIN endpoint, for tests.
func WithPinBaseURL(u string) ServiceOption {
	return func(s *Service) {
		s.pinBaseURL = u
	}
}

// WithHTTPClient overrides the HTTP client used for PIN claims.
func WithHTTPClient(hc *http.Client) ServiceOption {
	return func(s *Service) {
		s.httpClient = hc
	}
}

// NewService creates the login service. product names the bot toward
// Plex; baseURL is where this bot is reachable from a browser.
func NewService(product, baseURL string, store TokenStore, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("token store is required")
	}

	templates, err := template.ParseFS(templateFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse plex templates: %w", err)
	}

	s := &Service{
		product:    product,
		baseURL:    baseURL,
		store:      store,
		pinBaseURL: defaultPinBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
		templates:  templates,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Routes registers the login and auth handlers.
func (s *Service) Routes(r *mux.Router) {
	r.HandleFunc(PathLogin, s.handleLogin).Methods(http.MethodGet)
	r.HandleFunc(PathAuth, s.handleAuth).Methods(http.MethodGet)
}

// LoginURL returns the login link to hand to a user.
func (s *Service) LoginURL(userID string) string {
	query := url.Values{}
	query.Set("u", userID)
	return s.baseURL + PathLogin + "?" + query.Encode()
}

// Store exposes the token store for logout handling.
func (s *Service) Store() TokenStore {
	return s.store
}

// headers builds the X-Plex-* identification headers. The user id is
// folded in so each user's PIN claims are distinguishable.
func (s *Service) headers(userID string) map[string]string {
	return map[string]string{
		"Accept":             "application/json",
		"X-Plex-Device-Name": s.product,
		"X-Plex-Version":     userID,
		"X-Plex-Model":       userID,
		"X-Plex-Product":     s.product,
		"X-Plex-Device":      runtime.GOOS,
		"X-Plex-Language":    "en",
	}
}

type loginPageData struct {
	HeadersJSON template.JS
	ForwardURL  string
}

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("u")
	if userID == "" {
		http.Error(w, "missing user", http.StatusBadRequest)
		return
	}

	query := url.Values{}
	query.Set("u", userID)
	forwardURL := s.baseURL + PathAuth + "?" + query.Encode()

	headersJSON, err := json.Marshal(s.headers(userID))
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = s.templates.ExecuteTemplate(w, "login.html.tmpl", loginPageData{
		HeadersJSON: template.JS(headersJSON),
		ForwardURL:  forwardURL,
	})
	if err != nil {
		s.logger.Error("failed to render login page", slog.Any("error", err))
	}
}

func (s *Service) handleAuth(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	userID := query.Get("u")
	pinID := query.Get("p")
	clientID := query.Get("c")
	if userID == "" || pinID == "" || clientID == "" {
		http.Error(w, "missing parameters", http.StatusBadRequest)
		return
	}

	pin, err := s.getPin(r.Context(), pinID, clientID, userID)
	if err != nil {
		var statusErr *pinStatusError
		if errors.As(err, &statusErr) && statusErr.status == http.StatusNotFound {
			http.Error(w, "Request no longer valid", http.StatusNotFound)
			return
		}
		s.logger.Error("failed to claim plex pin", slog.Any("error", err))
		http.Error(w, "plex.tv request failed", http.StatusBadGateway)
		return
	}

	if pin.AuthToken == "" {
		http.Error(w, "not authorized", http.StatusUnauthorized)
		return
	}

	if err := s.store.SetToken(r.Context(), userID, pin.AuthToken); err != nil {
		s.logger.Error("failed to store auth token", slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "auth.html.tmpl", nil); err != nil {
		s.logger.Error("failed to render auth page", slog.Any("error", err))
	}
}

// pin is the plex.tv PIN record.
type pin struct {
	ID        int64  `json:"id"`
	Code      string `json:"code"`
	AuthToken string `json:"authToken"`
}

type pinStatusError struct {
	status int
}

func (e *pinStatusError) Error() string {
	return fmt.Sprintf("plex.tv returned status %d", e.status)
}

// getPin fetches the PIN record, carrying the same identification
// headers the login page used to claim it.
func (s *Service) getPin(ctx context.Context, pinID, clientID, userID string) (*pin, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.pinBaseURL+"/"+url.PathEscape(pinID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build pin request: %w", err)
	}
	for k, v := range s.headers(userID) {
		req.Header.Set(k, v)
	}
	req.Header.Set("X-Plex-Client-Identifier", clientID)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pin request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &pinStatusError{status: resp.StatusCode}
	}

	var p pin
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode pin response: %w", err)
	}
	return &p, nil
}
