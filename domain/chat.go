package domain

import "time"

// Chat is a one-to-one or group conversation. The participant list always
// includes the current user; for private chats the backend fills Name with
// the other participant's username.
type Chat struct {
	ID            string     `json:"id"`
	Name          string     `json:"name,omitempty"`
	IsGroup       bool       `json:"is_group"`
	Participants  []string   `json:"participants"`
	CreatedBy     string     `json:"created_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
}

// CreateChatRequest is the payload of the chat creation endpoint.
// The backend adds the caller to Participants and deduplicates
// two-party private chats, so the local roster is never patched by hand;
// a refresh follows every create.
type CreateChatRequest struct {
	Name         string   `json:"name,omitempty"`
	IsGroup      bool     `json:"is_group"`
	Participants []string `json:"participants"`
}
