// Package chat abstracts the chat platform and routes incoming
// messages to the conversational flow engine.
package chat

import (
	"context"
	"time"
)

// Message is one incoming chat message.
type Message struct {
	ID        string
	Room      string
	User      string
	Text      string
	Timestamp time.Time
}

// Renderer renders a named view into message text.
type Renderer interface {
	Render(view string, data any) (string, error)
}

// Messenger abstracts the chat platform connection.
type Messenger interface {
	// Send delivers a text message to a room or, for direct messages,
	// to a user identifier.
	Send(ctx context.Context, target string, text string) error

	// SendImage delivers an image by URL.
	SendImage(ctx context.Context, target string, name, url string) error

	// SendTyping signals that the bot is preparing a reply.
	SendTyping(ctx context.Context, target string) error

	// Subscribe returns a channel of incoming messages. The channel is
	// closed when ctx is cancelled or the connection ends.
	Subscribe(ctx context.Context) (<-chan Message, error)
}
