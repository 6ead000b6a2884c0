package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/mhalder/overbot/internal/chat"
	"github.com/mhalder/overbot/internal/metrics"
	"github.com/mhalder/overbot/internal/overseerr"
	"github.com/mhalder/overbot/internal/render"
)

// DefaultListTake is the page size for the request listing.
const DefaultListTake = 10

// RequestsFlow returns the procedure for one /requests conversation:
// paged browsing of the request list filtered by kind, numbered
// selection, and the per-request actions. The kind must already be
// resolved (see ResolveKind) and take must be at least 1.
func RequestsFlow(env Env, kind string, take int) Procedure {
	return func(ctx context.Context, fc *Context) error {
		return runRequests(ctx, fc, env, kind, take)
	}
}

func runRequests(ctx context.Context, fc *Context, env Env, kind string, take int) error {
	metrics.FlowsStarted.WithLabelValues("requests").Inc()

	var (
		loadMore = true
		all      []*overseerr.Request
		total    int
		selected *overseerr.Request
	)

	for {
		if loadMore {
			_ = env.Respond.Typing(ctx)
			skip := len(all)
			page, err := env.Session.ListRequests(ctx, take, skip, kind, "", 0)
			if err != nil {
				return err
			}
			total = page.PageInfo.Results

			pageResults := make([]*overseerr.Request, 0, len(page.Results))
			for i := range page.Results {
				r := &page.Results[i]
				r.Index = len(all) + len(pageResults) + 1
				info, err := env.Session.MediaInfo(ctx, &r.Media)
				if err != nil {
					return err
				}
				r.Info = info
				pageResults = append(pageResults, r)
			}
			all = append(all, pageResults...)
			loadMore = false

			if len(all) != 1 {
				text, err := env.Render.Render("requests_results", render.RequestsResultsView{
					Kind:    kind,
					Results: pageResults,
					Skip:    skip,
					Total:   total,
				})
				if err != nil {
					return err
				}
				if err := env.Respond.Reply(ctx, text); err != nil {
					return err
				}
			}
		}

		if len(all) == 0 {
			return nil
		}

		var cmd Command
		if selected == nil && len(all) == 1 {
			cmd = Command{Kind: KindSelect, Index: 1}
		} else {
			stage := Stage{
				Selected: selected != nil,
				Pending:  selected != nil && selected.Media.Status == overseerr.StatusPending,
				Browse:   true,
			}
			parsed, err := ReceiveAndParse(ctx, fc, func(msg chat.Message) (Command, bool) {
				if c, ok := ParseTurn(msg.Text, stage); ok {
					return c, true
				}
				if r, ok := SelectIndex(all, msg.Text); ok {
					return Command{Kind: KindSelect, Index: r.Index}, true
				}
				return Command{}, false
			}, Command{Kind: KindAway})
			if err != nil {
				return err
			}
			cmd = parsed
		}

		switch cmd.Kind {
		case KindSelect:
			selected = all[cmd.Index-1]

			// Refresh in case the request changed since listing.
			update, err := env.Session.GetRequest(ctx, selected.ID)
			if err != nil {
				return err
			}
			selected.Status = update.Status
			selected.Media = update.Media
			selected.CreatedAt = update.CreatedAt
			selected.UpdatedAt = update.UpdatedAt
			selected.RequestedBy = update.RequestedBy

			link := env.Session.Client().AbsoluteURL(
				fmt.Sprintf("/%s/%d", selected.Media.MediaType, selected.Media.TmdbID))
			text, err := env.Render.Render("requests_details", render.RequestsDetailsView{
				Result:  selected,
				SiteURL: link,
			})
			if err != nil {
				return err
			}
			if err := env.Respond.Reply(ctx, text); err != nil {
				return err
			}
			if err := env.Respond.Reply(ctx, actionsPrompt(selected)); err != nil {
				return err
			}

		case KindCover:
			poster := ""
			if selected.Info != nil {
				poster = selected.Info.PosterPath
			}
			if err := replyCover(ctx, env, poster); err != nil {
				return err
			}

		case KindApprove, KindDecline, KindRetry:
			_ = env.Respond.Typing(ctx)
			action, confirmation := statusAction(cmd.Kind)
			if err := env.Session.UpdateRequestStatus(ctx, selected.ID, action); err != nil {
				return err
			}
			if err := env.Respond.Reply(ctx, confirmation); err != nil {
				return err
			}

		case KindDelete:
			_ = env.Respond.Typing(ctx)
			if err := env.Session.DeleteRequest(ctx, selected.ID); err != nil {
				return err
			}
			return env.Respond.Reply(ctx, "OK, request deleted")

		case KindMore:
			loadMore = true

		case KindAway:
			return nil
		}
	}
}

// actionsPrompt lists the actions valid for the selected request;
// approve and decline are only offered while the media is pending.
func actionsPrompt(r *overseerr.Request) string {
	actions := []string{"see the «cover»"}
	if r.Media.Status == overseerr.StatusPending {
		actions = append(actions, "«approve»", "«decline»")
	}
	actions = append(actions, "«retry»")
	return fmt.Sprintf("Would you like to %s or «delete» this request?", strings.Join(actions, ", "))
}

func statusAction(kind Kind) (action, confirmation string) {
	switch kind {
	case KindApprove:
		return overseerr.RequestActionApprove, "OK, request has been approved"
	case KindDecline:
		return overseerr.RequestActionDecline, "OK, request has been declined"
	default:
		return overseerr.RequestActionRetry, "OK, retry has been issued"
	}
}
