package bot

import (
	"context"

	"github.com/mhalder/overbot/internal/chat"
)

// targetResponder adapts a Messenger to the flow reply surface for
// one fixed target (a room, or a user id for direct messages).
type targetResponder struct {
	messenger chat.Messenger
	target    string
}

func (r *targetResponder) Reply(ctx context.Context, text string) error {
	return r.messenger.Send(ctx, r.target, text)
}

func (r *targetResponder) ReplyImage(ctx context.Context, name, url string) error {
	return r.messenger.SendImage(ctx, r.target, name, url)
}

func (r *targetResponder) Typing(ctx context.Context) error {
	return r.messenger.SendTyping(ctx, r.target)
}
