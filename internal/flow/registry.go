package flow

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mhalder/overbot/internal/metrics"
	"github.com/mhalder/overbot/internal/overseerr"
)

// MaxContextAge is how long a user context survives without activity
// before the lazy sweep evicts it.
const MaxContextAge = 180 * time.Second

// RoomSession binds one configured room name to its backend client
// and the per-user contexts created within it. Several room names may
// alias the same backend client.
type RoomSession struct {
	name     string
	backend  *overseerr.Client
	contexts map[string]*Context
}

// Name returns the room name.
func (r *RoomSession) Name() string { return r.name }

// Backend returns the room's shared Overseerr client.
func (r *RoomSession) Backend() *overseerr.Client { return r.backend }

// Registry resolves chat rooms and users to flow contexts. The set of
// rooms is fixed at startup; user contexts are created lazily and
// evicted after MaxContextAge of inactivity.
type Registry struct {
	mu     sync.Mutex
	rooms  map[string]*RoomSession
	maxAge time.Duration
	clock  func() time.Time
	logger *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets a custom logger.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithRegistryClock overrides the time source, for tests.
func WithRegistryClock(clock func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.clock = clock
	}
}

// WithMaxAge overrides the eviction age, for tests.
func WithMaxAge(d time.Duration) RegistryOption {
	return func(r *Registry) {
		r.maxAge = d
	}
}

// NewRegistry creates an empty registry. Rooms are added once, during
// startup, with AddRoom.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		rooms:  make(map[string]*RoomSession),
		maxAge: MaxContextAge,
		clock:  time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddRoom registers a room name with its backend client. Registering
// several names with the same client makes them aliases of one
// server.
func (r *Registry) AddRoom(name string, backend *overseerr.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[name] = &RoomSession{
		name:     name,
		backend:  backend,
		contexts: make(map[string]*Context),
	}
}

// Room returns the session for a configured room name.
func (r *Registry) Room(name string) (*RoomSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[name]
	return room, ok
}

// GetContext resolves the flow context for a user within a room,
// creating it on first access. The second return is false when the
// room is not configured.
//
// Before the lookup, all contexts in the room whose age exceeds the
// limit are cancelled and removed. The sweep is lazy and amortized:
// it runs on lookups triggered by any user's activity in the room,
// which is enough to guarantee no context survives indefinitely.
func (r *Registry) GetContext(roomName, user string) (*Context, bool) {
	r.mu.Lock()
	room, ok := r.rooms[roomName]
	if !ok {
		r.mu.Unlock()
		return nil, false
	}

	var evicted []*Context
	now := r.clock()
	for id, fc := range room.contexts {
		if now.Sub(fc.lastActivityTime()) > r.maxAge {
			delete(room.contexts, id)
			evicted = append(evicted, fc)
		}
	}

	fc, exists := room.contexts[user]
	if !exists {
		fc = NewContext(roomName, user,
			WithLogger(r.logger),
			WithClock(r.clock))
		room.contexts[user] = fc
	}
	r.mu.Unlock()

	for _, stale := range evicted {
		stale.Cancel()
		metrics.ContextsEvicted.Inc()
		r.logger.Debug("evicted stale context",
			slog.String("room", roomName),
			slog.String("user", stale.User()))
	}

	return fc, true
}

// lastActivityTime reads the activity timestamp under the context's
// own lock; the registry lock does not cover it.
func (c *Context) lastActivityTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}
