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

const posterBaseURL = "https://image.tmdb.org/t/p/w600_and_h900_bestv2"

// SearchFlow returns the procedure for one /search conversation:
// paged catalog search, numbered selection, and the cover/request
// actions on the selected result.
func SearchFlow(env Env, term string) Procedure {
	return func(ctx context.Context, fc *Context) error {
		return runSearch(ctx, fc, env, term)
	}
}

func runSearch(ctx context.Context, fc *Context, env Env, term string) error {
	metrics.FlowsStarted.WithLabelValues("search").Inc()

	term = strings.TrimSpace(term)
	if term == "" {
		prompt := "What is the name of the movie or TV show you want to search for?"
		if err := env.Respond.Reply(ctx, prompt); err != nil {
			return err
		}
		msg, err := fc.Receive(ctx)
		if err != nil {
			return err
		}
		term = strings.TrimSpace(msg.Text)
	}

	var (
		page     int
		loadMore = true
		all      []*overseerr.SearchResult
		total    int
		selected *overseerr.SearchResult
	)

	for {
		if loadMore {
			_ = env.Respond.Typing(ctx)
			page++
			sp, err := env.Session.Search(ctx, term, page)
			if err != nil {
				return err
			}

			// Only movies and TV shows are selectable; people and
			// collections are dropped. Indices continue across pages
			// and are never renumbered.
			pageResults := make([]*overseerr.SearchResult, 0, len(sp.Results))
			for i := range sp.Results {
				r := &sp.Results[i]
				if r.MediaType != overseerr.MediaTypeMovie && r.MediaType != overseerr.MediaTypeTV {
					continue
				}
				r.Index = len(all) + len(pageResults) + 1
				pageResults = append(pageResults, r)
			}
			total = sp.TotalResults
			skip := len(all)
			all = append(all, pageResults...)
			loadMore = false

			if len(all) != 1 {
				text, err := env.Render.Render("search_results", render.SearchResultsView{
					Term:    term,
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
			// A single hit is selected without prompting.
			cmd = Command{Kind: KindSelect, Index: 1}
		} else {
			stage := Stage{Selected: selected != nil}
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
			link := env.Session.Client().AbsoluteURL(fmt.Sprintf("/%s/%d", selected.MediaType, selected.ID))
			text, err := env.Render.Render("search_details", render.SearchDetailsView{
				Result:  selected,
				SiteURL: link,
			})
			if err != nil {
				return err
			}
			if err := env.Respond.Reply(ctx, text); err != nil {
				return err
			}
			prompt := "Would you like to see the «cover» or «request» the media?"
			if err := env.Respond.Reply(ctx, prompt); err != nil {
				return err
			}

		case KindCover:
			if err := replyCover(ctx, env, selected.PosterPath); err != nil {
				return err
			}

		case KindRequest:
			// Hand off into the request sub-flow. StartFlow cancels
			// this flow, so the parent context must be detached from
			// our own cancellation.
			fc.StartFlow(context.WithoutCancel(ctx),
				RequestFlow(env, selected, cmd.Params),
				RespondErrors(env.Respond, env.Logger))
			return nil

		case KindMore:
			loadMore = true

		case KindAway:
			return nil
		}
	}
}

// replyCover sends the TMDB poster for the selection, or a plain
// message when the media has no poster.
func replyCover(ctx context.Context, env Env, posterPath string) error {
	if posterPath == "" {
		return env.Respond.Reply(ctx, "No cover image available")
	}
	name := posterPath[strings.LastIndex(posterPath, "/")+1:]
	return env.Respond.ReplyImage(ctx, name, posterBaseURL+posterPath)
}
