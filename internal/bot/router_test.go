package bot_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhalder/overbot/internal/bot"
	"github.com/mhalder/overbot/internal/chat"
	"github.com/mhalder/overbot/internal/flow"
	"github.com/mhalder/overbot/internal/overseerr"
	"github.com/mhalder/overbot/internal/plex"
	"github.com/mhalder/overbot/internal/render"
	"github.com/mhalder/overbot/internal/tokenstore"
)

// fakeMessenger records outgoing traffic; Subscribe yields nothing.
type fakeMessenger struct {
	mu     sync.Mutex
	sends  []sent
	images []sent
}

type sent struct {
	target string
	text   string
}

func (m *fakeMessenger) Send(_ context.Context, target, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = append(m.sends, sent{target: target, text: text})
	return nil
}

func (m *fakeMessenger) SendImage(_ context.Context, target, name, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images = append(m.images, sent{target: target, text: name + "|" + url})
	return nil
}

func (m *fakeMessenger) SendTyping(context.Context, string) error { return nil }

func (m *fakeMessenger) Subscribe(context.Context) (<-chan chat.Message, error) {
	ch := make(chan chat.Message)
	close(ch)
	return ch, nil
}

func (m *fakeMessenger) all() []sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sent(nil), m.sends...)
}

func (m *fakeMessenger) sentTo(target, substr string) bool {
	for _, s := range m.all() {
		if s.target == target && strings.Contains(s.text, substr) {
			return true
		}
	}
	return false
}

type routerFixture struct {
	router    *bot.Router
	messenger *fakeMessenger
	registry  *flow.Registry
	store     *tokenstore.Store
}

// newFixture wires a router against a stub Overseerr server.
func newFixture(t *testing.T, overseerrHandler http.Handler) *routerFixture {
	t.Helper()

	if overseerrHandler == nil {
		overseerrHandler = http.NotFoundHandler()
	}
	backendSrv := httptest.NewServer(overseerrHandler)
	t.Cleanup(backendSrv.Close)

	backend, err := overseerr.New(backendSrv.URL)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := flow.NewRegistry(flow.WithRegistryLogger(logger))
	registry.AddRoom("main", backend)

	store, err := tokenstore.Open(context.Background(), filepath.Join(t.TempDir(), "tokens.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	plexSvc, err := plex.NewService("overbot", "https://bot.example.com", store,
		plex.WithLogger(logger))
	require.NoError(t, err)

	renderer, err := render.New()
	require.NoError(t, err)

	messenger := &fakeMessenger{}
	router, err := bot.NewRouter(registry, messenger, renderer, plexSvc, "overbot",
		bot.WithRouterLogger(logger))
	require.NoError(t, err)

	return &routerFixture{
		router:    router,
		messenger: messenger,
		registry:  registry,
		store:     store,
	}
}

func (f *routerFixture) dispatch(text string) {
	f.router.Dispatch(context.Background(), chat.Message{
		Room: "main",
		User: "alice",
		Text: text,
	})
}

func (f *routerFixture) cancelFlows(t *testing.T) {
	t.Helper()
	fc, ok := f.registry.GetContext("main", "alice")
	require.True(t, ok)
	fc.Cancel()
	require.Eventually(t, func() bool { return !fc.InFlow() },
		2*time.Second, 5*time.Millisecond)
}

func TestDispatch_Help(t *testing.T) {
	f := newFixture(t, nil)
	f.dispatch("/h")
	assert.True(t, f.messenger.sentTo("main", "Hi, I'm overbot."))

	f.dispatch("/help")
	f.dispatch("/HELP")
	assert.Len(t, f.messenger.all(), 3, "every spelling must answer")
}

func TestDispatch_LoginRepliesDirectly(t *testing.T) {
	f := newFixture(t, nil)
	f.dispatch("/login")

	assert.True(t, f.messenger.sentTo("alice", "/plex/login?u=alice"),
		"login link must go to the user, not the room")
	assert.False(t, f.messenger.sentTo("main", "/plex/login"))
}

func TestDispatch_Logout(t *testing.T) {
	f := newFixture(t, nil)

	f.dispatch("/logout")
	assert.True(t, f.messenger.sentTo("alice", "You haven't logged in yet"))

	require.NoError(t, f.store.SetToken(context.Background(), "alice", "secret"))
	f.dispatch("/logout")
	assert.True(t, f.messenger.sentTo("alice", "You have been logged out"))

	token, err := f.store.Token(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestDispatch_AbortWithoutFlowIsSilent(t *testing.T) {
	f := newFixture(t, nil)
	f.dispatch("/abort")
	assert.Empty(t, f.messenger.all())
}

func TestDispatch_UnconfiguredRoomIsIgnored(t *testing.T) {
	f := newFixture(t, nil)
	f.router.Dispatch(context.Background(), chat.Message{
		Room: "unknown", User: "alice", Text: "/help",
	})
	assert.Empty(t, f.messenger.all())
}

func TestDispatch_CatchAllWithoutFlowIsDropped(t *testing.T) {
	f := newFixture(t, nil)
	f.dispatch("hello bot")
	f.dispatch("2")
	assert.Empty(t, f.messenger.all())
}

func TestDispatch_RequestsAmbiguousKindDoesNotStartFlow(t *testing.T) {
	f := newFixture(t, nil)
	f.dispatch("/r a")

	assert.True(t, f.messenger.sentTo("main", "does not uniquely identify"))
	fc, ok := f.registry.GetContext("main", "alice")
	require.True(t, ok)
	assert.False(t, fc.InFlow(), "an ambiguous filter must abort before the flow starts")
}

func TestDispatch_RequestsBadCount(t *testing.T) {
	f := newFixture(t, nil)
	f.dispatch("/r all ten")

	assert.True(t, f.messenger.sentTo("main", "Sorry, the count must be a number"))
	fc, _ := f.registry.GetContext("main", "alice")
	assert.False(t, fc.InFlow())
}

func searchStub(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"page": 1, "totalPages": 1, "totalResults": 1,
			"results": [
				{"id": 348, "mediaType": "movie", "title": "Alien", "releaseDate": "1979-05-25"}
			]
		}`))
	})
	return mux
}

func TestDispatch_SearchStartsFlow(t *testing.T) {
	f := newFixture(t, searchStub(t))
	f.dispatch("/s alien")

	require.Eventually(t, func() bool {
		return f.messenger.sentTo("main", "Alien (1979) [movie]")
	}, 2*time.Second, 5*time.Millisecond, "search flow never replied")
	assert.True(t, f.messenger.sentTo("main", "«cover» or «request»"))

	fc, _ := f.registry.GetContext("main", "alice")
	assert.True(t, fc.InFlow(), "flow must keep waiting for the next turn")
	f.cancelFlows(t)
}

func TestDispatch_AbortStopsRunningFlow(t *testing.T) {
	f := newFixture(t, searchStub(t))
	f.dispatch("/s alien")

	fc, _ := f.registry.GetContext("main", "alice")
	require.Eventually(t, func() bool {
		return f.messenger.sentTo("main", "Alien (1979) [movie]")
	}, 2*time.Second, 5*time.Millisecond)

	f.dispatch("/abort")
	assert.True(t, f.messenger.sentTo("main", "OK, aborting"))
	require.Eventually(t, func() bool { return !fc.InFlow() },
		2*time.Second, 5*time.Millisecond, "abort must cancel the flow")
}

func TestDispatch_CatchAllReachesRunningFlow(t *testing.T) {
	f := newFixture(t, searchStub(t))
	f.dispatch("/s alien")

	require.Eventually(t, func() bool {
		return f.messenger.sentTo("main", "«cover» or «request»")
	}, 2*time.Second, 5*time.Millisecond)

	// The single result was auto-selected; a plain "cover" turn is
	// routed into the waiting flow.
	f.dispatch("cover")
	require.Eventually(t, func() bool {
		return f.messenger.sentTo("main", "No cover image available")
	}, 2*time.Second, 5*time.Millisecond, "reply never reached the flow")
	f.cancelFlows(t)
}

func TestNewRouter_RequiresCollaborators(t *testing.T) {
	f := newFixture(t, nil)
	renderer, err := render.New()
	require.NoError(t, err)

	plexSvc, err := plex.NewService("overbot", "https://bot.example.com", f.store)
	require.NoError(t, err)

	_, err = bot.NewRouter(nil, f.messenger, renderer, plexSvc, "overbot")
	assert.Error(t, err)
	_, err = bot.NewRouter(f.registry, nil, renderer, plexSvc, "overbot")
	assert.Error(t, err)
	_, err = bot.NewRouter(f.registry, f.messenger, nil, plexSvc, "overbot")
	assert.Error(t, err)
	_, err = bot.NewRouter(f.registry, f.messenger, renderer, nil, "overbot")
	assert.Error(t, err)
}
