package flow

import (
	"container/list"
	"context"
	"sync"

	"github.com/mhalder/overbot/internal/chat"
)

// inbox is the per-flow message queue. Producers never block: put
// appends and returns immediately. There is exactly one consumer, the
// flow goroutine, which blocks in get until a message arrives or its
// context is cancelled.
type inbox struct {
	mu       sync.Mutex
	messages *list.List
	ready    chan struct{}
}

func newInbox() *inbox {
	return &inbox{
		messages: list.New(),
		ready:    make(chan struct{}, 1),
	}
}

// put enqueues a message without blocking the caller.
func (in *inbox) put(msg chat.Message) {
	in.mu.Lock()
	in.messages.PushBack(msg)
	in.mu.Unlock()

	select {
	case in.ready <- struct{}{}:
	default:
	}
}

// get removes and returns the oldest message, blocking until one is
// available. FIFO order is preserved: messages come out in the exact
// order put delivered them.
func (in *inbox) get(ctx context.Context) (chat.Message, error) {
	for {
		if err := ctx.Err(); err != nil {
			return chat.Message{}, err
		}

		in.mu.Lock()
		if front := in.messages.Front(); front != nil {
			in.messages.Remove(front)
			in.mu.Unlock()
			return front.Value.(chat.Message), nil
		}
		in.mu.Unlock()

		select {
		case <-in.ready:
		case <-ctx.Done():
			return chat.Message{}, ctx.Err()
		}
	}
}
