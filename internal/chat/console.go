package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ConsoleMessenger is a development messenger: lines read from input
// become messages from a fixed user in a fixed room, and outgoing
// messages are printed. Useful for exercising the bot without a chat
// platform connection.
type ConsoleMessenger struct {
	room string
	user string
	in   io.Reader
	mu   sync.Mutex
	out  io.Writer
}

// NewConsoleMessenger creates a console messenger bound to one room
// and user identity.
func NewConsoleMessenger(room, user string, in io.Reader, out io.Writer) *ConsoleMessenger {
	return &ConsoleMessenger{
		room: room,
		user: user,
		in:   in,
		out:  out,
	}
}

// Send prints the message.
func (c *ConsoleMessenger) Send(_ context.Context, target, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "[%s] %s\n", target, text)
	return err
}

// SendImage prints the image name and URL.
func (c *ConsoleMessenger) SendImage(_ context.Context, target, name, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "[%s] image %s: %s\n", target, name, url)
	return err
}

// SendTyping is a no-op on the console.
func (c *ConsoleMessenger) SendTyping(context.Context, string) error {
	return nil
}

// Subscribe reads input lines until EOF or cancellation.
func (c *ConsoleMessenger) Subscribe(ctx context.Context) (<-chan Message, error) {
	messages := make(chan Message)

	go func() {
		defer close(messages)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			msg := Message{
				ID:        uuid.NewString(),
				Room:      c.room,
				User:      c.user,
				Text:      scanner.Text(),
				Timestamp: time.Now(),
			}
			select {
			case messages <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	return messages, nil
}
