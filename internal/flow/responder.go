package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mhalder/overbot/internal/metrics"
	"github.com/mhalder/overbot/internal/overseerr"
)

// User-facing error messages.
const (
	msgLoginRequired = "Looks like I'm not authorized to do that on your " +
		"behalf at the moment. Please use /login first " +
		"(in a private chat with me)."
	msgGenericFailure = "Something went wrong, sorry"
)

// Replier is the minimal reply surface the error responder needs.
type Replier interface {
	Reply(ctx context.Context, text string) error
}

// RespondErrors builds the top-level error responder installed around
// every flow invocation. Backend errors become user-facing replies: a
// 401 turns into a re-authentication prompt, anything else into a
// generic message carrying the reason. Cancellation is not an error
// and passes through silently. Everything else is logged in full and
// reported as a generic failure.
func RespondErrors(rep Replier, logger *slog.Logger) ErrorFunc {
	return func(ctx context.Context, err error) {
		if err == nil || errors.Is(err, context.Canceled) {
			return
		}

		var apiErr *overseerr.Error
		if errors.As(err, &apiErr) {
			metrics.BackendErrors.Inc()
			logger.Error("overseerr error",
				slog.Int("status", apiErr.Status),
				slog.String("reason", apiErr.Reason),
				slog.String("message", apiErr.Message))

			text := fmt.Sprintf("Sorry, there was an error: %s", apiErr.Reason)
			if apiErr.Unauthorized() {
				text = msgLoginRequired
			}
			if replyErr := rep.Reply(ctx, text); replyErr != nil {
				logger.Error("failed to send error reply", slog.Any("error", replyErr))
			}
			return
		}

		logger.Error("flow failed", slog.Any("error", err))
		if replyErr := rep.Reply(ctx, msgGenericFailure); replyErr != nil {
			logger.Error("failed to send error reply", slog.Any("error", replyErr))
		}
	}
}
