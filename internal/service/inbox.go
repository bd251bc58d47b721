package service

import (
	"context"
	"sync"

	"github.com/target/kb-assistant-web/internal/ports"
)

const defaultInboxSize = 16

var _ ports.Notifier = (*Inbox)(nil)

// Inbox queues notices for one client until its next page render. When full,
// the oldest notice is dropped.
type Inbox struct {
	mu      sync.Mutex
	size    int
	notices []ports.Notice
}

// NewInbox creates an Inbox holding at most size notices.
func NewInbox(size int) *Inbox {
	if size <= 0 {
		size = defaultInboxSize
	}
	return &Inbox{size: size}
}

// Notify implements ports.Notifier.
func (b *Inbox) Notify(_ context.Context, n ports.Notice) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notices = append(b.notices, n)
	if over := len(b.notices) - b.size; over > 0 {
		b.notices = append(b.notices[:0:0], b.notices[over:]...)
	}
}

// Drain returns the queued notices and empties the inbox.
func (b *Inbox) Drain() []ports.Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.notices
	b.notices = nil
	return out
}
