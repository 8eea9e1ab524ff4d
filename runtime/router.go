// Package runtime drives the synchronization loop between the push channel
// and the local read models. It contains no domain rules of its own.
package runtime

import (
	"chatlink/domain"
	"chatlink/projection"
	"context"
	"log/slog"
	"sync"
)

// Router is the single consumer of a push connection's frame queue.
// Draining frames one at a time preserves arrival order, so timeline and
// roster mutations are naturally serialized: no two dispatches ever run
// concurrently.
//
// Dispatch rules for a new_message frame:
//   - chat is the active one: append to its timeline (idempotent);
//   - any other chat: refresh the roster so the updated chat surfaces,
//     leaving that chat's timeline untouched until it is opened.
//
// Unknown frame types are ignored for forward compatibility.
type Router struct {
	log       *slog.Logger
	roster    *projection.Roster
	timelines *projection.Timelines

	mu     sync.RWMutex
	active string
}

func NewRouter(log *slog.Logger, roster *projection.Roster, timelines *projection.Timelines) *Router {
	return &Router{log: log, roster: roster, timelines: timelines}
}

// SetActiveChat records which chat the UI is currently viewing.
func (r *Router) SetActiveChat(chatID string) {
	r.mu.Lock()
	r.active = chatID
	r.mu.Unlock()
}

// ClearActiveChat marks that no chat view is open.
func (r *Router) ClearActiveChat() { r.SetActiveChat("") }

func (r *Router) ActiveChat() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Run drains frames in strict arrival order until the queue closes or the
// context is canceled. It never returns an error: every failure inside the
// loop is logged and absorbed.
func (r *Router) Run(ctx context.Context, frames <-chan domain.Frame) {
	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				r.log.Debug("Push frame queue closed, router stopping")
				return
			}
			r.Route(ctx, frame)
		case <-ctx.Done():
			r.log.Debug("Context done, router stopping")
			return
		}
	}
}

// Route dispatches one decoded frame.
func (r *Router) Route(ctx context.Context, frame domain.Frame) {
	switch frame.Type {
	case domain.FrameNewMessage:
		if frame.ChatID != "" && frame.ChatID == r.ActiveChat() {
			r.timelines.Append(frame.ChatID, frame.Message)
			return
		}
		if err := r.roster.Refresh(ctx); err != nil {
			r.log.Warn("Roster refresh after background message failed",
				"chat_id", frame.ChatID, "error", err)
		}
	default:
		r.log.Debug("Ignoring unknown push frame type", "type", frame.Type)
	}
}
