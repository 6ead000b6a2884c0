// Package bot wires the chat surface to the conversational flow
// engine: incoming messages are routed to commands or into running
// flows, with per-user backend sessions built on demand.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/mhalder/overbot/internal/chat"
	"github.com/mhalder/overbot/internal/flow"
	"github.com/mhalder/overbot/internal/plex"
	"github.com/mhalder/overbot/internal/render"
)

// Command patterns, matched case-insensitively against the full
// message text. Everything else is catch-all input for a running
// flow.
var (
	reHelp     = regexp.MustCompile(`(?i)^/h(?:elp)?$`)
	reLogin    = regexp.MustCompile(`(?i)^/login$`)
	reLogout   = regexp.MustCompile(`(?i)^/logout$`)
	reSearch   = regexp.MustCompile(`(?i)^/s(?:earch)?(?:\s+(.*))?$`)
	reRequests = regexp.MustCompile(`(?i)^/r(?:eq(?:uests)?)?(?:\s+(\S+))?(?:\s+(.*))?$`)
	reAbort    = regexp.MustCompile(`(?i)^/abort$`)
)

// Router receives chat messages and routes them: commands start or
// cancel flows, everything else is delivered into the sender's
// running flow.
type Router struct {
	registry  *flow.Registry
	messenger chat.Messenger
	renderer  flow.Renderer
	plex      *plex.Service
	botName   string
	logger    *slog.Logger
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithRouterLogger sets a custom logger.
func WithRouterLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// NewRouter creates a router over the given collaborators.
func NewRouter(registry *flow.Registry, messenger chat.Messenger, renderer flow.Renderer, plexSvc *plex.Service, botName string, opts ...RouterOption) (*Router, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if messenger == nil {
		return nil, fmt.Errorf("messenger is required")
	}
	if renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if plexSvc == nil {
		return nil, fmt.Errorf("plex service is required")
	}

	r := &Router{
		registry:  registry,
		messenger: messenger,
		renderer:  renderer,
		plex:      plexSvc,
		botName:   botName,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run subscribes to the messenger and dispatches messages until the
// subscription ends.
func (r *Router) Run(ctx context.Context) error {
	messages, err := r.messenger.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to messages: %w", err)
	}

	r.logger.Info("chat router started")
	for msg := range messages {
		r.Dispatch(ctx, msg)
	}
	r.logger.Info("chat router stopped")
	return nil
}

// Dispatch routes one message. The context is the router's long-lived
// run context: flows started here outlive the dispatch call and stop
// when it is cancelled.
func (r *Router) Dispatch(ctx context.Context, msg chat.Message) {
	fc, ok := r.registry.GetContext(msg.Room, msg.User)
	if !ok {
		r.logger.Debug("message from unconfigured room",
			slog.String("room", msg.Room),
			slog.String("user", msg.User))
		return
	}

	respond := r.responder(msg.Room)
	report := flow.RespondErrors(respond, r.logger)

	var err error
	text := strings.TrimSpace(msg.Text)
	switch {
	case reHelp.MatchString(text):
		err = r.onHelp(ctx, respond)
	case reLogin.MatchString(text):
		err = r.onLogin(ctx, msg)
	case reLogout.MatchString(text):
		err = r.onLogout(ctx, msg)
	case reAbort.MatchString(text):
		err = r.onAbort(ctx, fc, respond)
	default:
		if m := reSearch.FindStringSubmatch(text); m != nil {
			r.startSearch(ctx, fc, msg, respond, report, strings.TrimSpace(m[1]))
			return
		}
		if m := reRequests.FindStringSubmatch(text); m != nil {
			err = r.startRequests(ctx, fc, msg, respond, report, m[1], m[2])
			break
		}
		// Catch-all: hand the message to the running flow, if any.
		fc.Deliver(msg)
		return
	}

	if err != nil {
		report(ctx, err)
	}
}

func (r *Router) onHelp(ctx context.Context, respond flow.Responder) error {
	_ = respond.Typing(ctx)
	text, err := r.renderer.Render("help", render.HelpView{BotName: r.botName})
	if err != nil {
		return err
	}
	return respond.Reply(ctx, text)
}

// onLogin replies in a direct message so the login link stays out of
// shared rooms.
func (r *Router) onLogin(ctx context.Context, msg chat.Message) error {
	direct := r.responder(msg.User)
	text, err := r.renderer.Render("login", render.LoginView{
		AuthURL: r.plex.LoginURL(msg.User),
	})
	if err != nil {
		return err
	}
	return direct.Reply(ctx, text)
}

func (r *Router) onLogout(ctx context.Context, msg chat.Message) error {
	direct := r.responder(msg.User)
	token, err := r.plex.Store().Token(ctx, msg.User)
	if err != nil {
		return err
	}
	if token == "" {
		return direct.Reply(ctx, "You haven't logged in yet")
	}
	if err := r.plex.Store().DeleteToken(ctx, msg.User); err != nil {
		return err
	}
	return direct.Reply(ctx, "You have been logged out")
}

func (r *Router) onAbort(ctx context.Context, fc *flow.Context, respond flow.Responder) error {
	if !fc.InFlow() {
		return nil
	}
	if err := respond.Reply(ctx, "OK, aborting"); err != nil {
		return err
	}
	fc.Cancel()
	return nil
}

func (r *Router) startSearch(ctx context.Context, fc *flow.Context, msg chat.Message, respond flow.Responder, report flow.ErrorFunc, term string) {
	env := r.flowEnv(ctx, msg, respond)
	fc.StartFlow(ctx, flow.SearchFlow(env, term), report)
}

func (r *Router) startRequests(ctx context.Context, fc *flow.Context, msg chat.Message, respond flow.Responder, report flow.ErrorFunc, rawKind, rawTake string) error {
	kind, err := flow.ResolveKind(rawKind)
	if err != nil {
		var filterErr *flow.KindFilterError
		if errors.As(err, &filterErr) {
			return respond.Reply(ctx, filterErr.UserMessage())
		}
		return err
	}

	take := flow.DefaultListTake
	if trimmed := strings.TrimSpace(rawTake); trimmed != "" {
		n, err := strconv.Atoi(trimmed)
		if err != nil {
			return respond.Reply(ctx, "Sorry, the count must be a number")
		}
		take = n
		if take < 1 {
			take = 1
		}
	}

	env := r.flowEnv(ctx, msg, respond)
	fc.StartFlow(ctx, flow.RequestsFlow(env, kind, take), report)
	return nil
}

// flowEnv builds the per-invocation flow environment: a fresh backend
// session with the user's stored Plex token applied optimistically.
// A stale or rejected token degrades to unauthenticated calls rather
// than failing the command.
func (r *Router) flowEnv(ctx context.Context, msg chat.Message, respond flow.Responder) flow.Env {
	room, _ := r.registry.Room(msg.Room)
	session := room.Backend().NewSession()

	token, err := r.plex.Store().Token(ctx, msg.User)
	if err != nil {
		r.logger.Warn("failed to read stored token",
			slog.String("user", msg.User),
			slog.Any("error", err))
	} else if token != "" {
		if err := session.LoginPlex(ctx, token); err != nil {
			r.logger.Debug("stored plex token rejected, continuing unauthenticated",
				slog.String("user", msg.User),
				slog.Any("error", err))
		}
	}

	return flow.Env{
		Session: session,
		Render:  r.renderer,
		Respond: respond,
		Logger:  r.logger,
	}
}

func (r *Router) responder(target string) flow.Responder {
	return &targetResponder{messenger: r.messenger, target: target}
}
