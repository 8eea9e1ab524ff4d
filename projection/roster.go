package projection

import (
	"chatlink/contract"
	"chatlink/domain"
	"context"
	"sync"

	"github.com/samber/lo"
)

// Roster is the ordered collection of chats visible to the current user.
// The order is exactly what the backend returned on the last successful
// refresh; the client never resorts or patches it locally.
type Roster struct {
	api contract.API

	mu    sync.RWMutex
	chats []domain.Chat
}

func NewRoster(api contract.API) *Roster {
	return &Roster{api: api}
}

// Refresh replaces the roster with the backend's chat list. Idempotent:
// unchanged server state yields an identical sequence. On failure the prior
// roster is retained unchanged.
func (r *Roster) Refresh(ctx context.Context) error {
	chats, err := r.api.Chats(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.chats = chats
	r.mu.Unlock()
	return nil
}

// List returns a snapshot copy in server order.
func (r *Roster) List() []domain.Chat {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Chat, len(r.chats))
	copy(out, r.chats)
	return out
}

// Get looks a chat up by id.
func (r *Roster) Get(chatID string) (domain.Chat, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Find(r.chats, func(c domain.Chat) bool { return c.ID == chatID })
}

// Contains reports whether a chat id is currently in the roster.
func (r *Roster) Contains(chatID string) bool {
	_, ok := r.Get(chatID)
	return ok
}

// Reset empties the roster. Called on logout.
func (r *Roster) Reset() {
	r.mu.Lock()
	r.chats = nil
	r.mu.Unlock()
}
