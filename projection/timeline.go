// Package projection builds local read models from snapshots and push events.
// Handles ordering, deduplication, and lookups for the UI.
// Does not emit events or interact with the transport beyond injected fetches.
package projection

import (
	"chatlink/contract"
	"chatlink/domain"
	"context"
	"sort"
	"sync"
)

// Timelines holds one ordered, deduplicated message log per chat.
//
// Ordering invariant: messages are kept sorted by CreatedAt ascending, ties
// broken by arrival order, and an inserted message is never moved afterwards.
// Append is idempotent on message id, so the push echo of a locally sent
// message and a concurrent snapshot load cannot produce duplicates.
type Timelines struct {
	api      contract.API
	pageSize int

	mu     sync.Mutex
	byChat map[string]*timeline
}

type timeline struct {
	messages []domain.Message
	seen     map[string]struct{}
}

func NewTimelines(api contract.API, pageSize int) *Timelines {
	return &Timelines{
		api:      api,
		pageSize: pageSize,
		byChat:   make(map[string]*timeline),
	}
}

// Load replaces a chat's timeline with the latest snapshot from the backend.
// The snapshot is sorted defensively; the backend already returns oldest
// first. On fetch failure the prior timeline is retained unchanged.
func (t *Timelines) Load(ctx context.Context, chatID string) error {
	messages, err := t.api.Messages(ctx, chatID, 0, t.pageSize)
	if err != nil {
		return err
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	tl := &timeline{
		messages: messages,
		seen:     make(map[string]struct{}, len(messages)),
	}
	for _, m := range messages {
		tl.seen[m.ID] = struct{}{}
	}
	t.mu.Lock()
	t.byChat[chatID] = tl
	t.mu.Unlock()
	return nil
}

// Append inserts one message at its chronological position. A message id
// already present is a no-op. Appending to a chat that was never loaded
// lazily creates its timeline as a singleton.
func (t *Timelines) Append(chatID string, msg domain.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tl, ok := t.byChat[chatID]
	if !ok {
		tl = &timeline{seen: make(map[string]struct{})}
		t.byChat[chatID] = tl
	}
	if _, dup := tl.seen[msg.ID]; dup {
		return
	}
	tl.seen[msg.ID] = struct{}{}

	// Common case: the new message is the latest. Otherwise walk back to the
	// first entry not after it, keeping equal timestamps in arrival order.
	idx := len(tl.messages)
	for idx > 0 && tl.messages[idx-1].CreatedAt.After(msg.CreatedAt) {
		idx--
	}
	tl.messages = append(tl.messages, domain.Message{})
	copy(tl.messages[idx+1:], tl.messages[idx:])
	tl.messages[idx] = msg
}

// Messages returns a snapshot copy of one chat's timeline, oldest first.
func (t *Timelines) Messages(chatID string) []domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	tl, ok := t.byChat[chatID]
	if !ok {
		return nil
	}
	out := make([]domain.Message, len(tl.messages))
	copy(out, tl.messages)
	return out
}

// Loaded reports whether a chat's timeline exists locally.
func (t *Timelines) Loaded(chatID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.byChat[chatID]
	return ok
}

// Reset drops every timeline. Called on logout.
func (t *Timelines) Reset() {
	t.mu.Lock()
	t.byChat = make(map[string]*timeline)
	t.mu.Unlock()
}
