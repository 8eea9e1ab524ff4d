// Package domain contains core concepts of the chat client.
// Entities mirror the wire shapes of the backend API and are never
// synthesized locally; the backend is the single source of truth.
package domain

// User represents an account known to the backend. Immutable once fetched.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}
