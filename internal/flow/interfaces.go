package flow

import (
	"context"
	"log/slog"

	"github.com/mhalder/overbot/internal/overseerr"
)

// Session is the slice of the Overseerr API the flow procedures
// consume. *overseerr.Session implements it.
type Session interface {
	Search(ctx context.Context, term string, page int) (*overseerr.SearchPage, error)
	ListRequests(ctx context.Context, take, skip int, filter, sort string, requestedBy int) (*overseerr.RequestPage, error)
	GetRequest(ctx context.Context, requestID int) (*overseerr.Request, error)
	UpdateRequestStatus(ctx context.Context, requestID int, action string) error
	DeleteRequest(ctx context.Context, requestID int) error
	CreateRequest(ctx context.Context, params overseerr.CreateRequestParams) (*overseerr.Request, error)
	MediaInfo(ctx context.Context, media *overseerr.Media) (*overseerr.MediaDetails, error)
	RadarrServer(ctx context.Context, serverID int) (*overseerr.ServerInfo, error)
	SonarrServer(ctx context.Context, serverID int) (*overseerr.ServerInfo, error)
	Client() *overseerr.Client
}

// Renderer renders a named view into message text.
type Renderer interface {
	Render(view string, data any) (string, error)
}

// Responder sends replies back to the conversation a flow belongs to.
type Responder interface {
	Reply(ctx context.Context, text string) error
	ReplyImage(ctx context.Context, name, url string) error
	Typing(ctx context.Context) error
}

// Env bundles the collaborators a flow procedure needs: the user's
// backend session, the template renderer, and the reply surface.
type Env struct {
	Session Session
	Render  Renderer
	Respond Responder
	Logger  *slog.Logger
}
