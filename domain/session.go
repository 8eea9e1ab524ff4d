// This file defines the authenticated session and its state machine.
// Transitions are owned by the session service; nothing else mutates them.
package domain

// SessionState tracks the authentication lifecycle of the client.
//
// Anonymous is the initial state. Authenticating covers startup validation
// of a stored token. Expired is reached when a previously valid credential
// is rejected by the backend.
type SessionState string

const (
	SessionAnonymous      SessionState = "anonymous"
	SessionAuthenticating SessionState = "authenticating"
	SessionAuthenticated  SessionState = "authenticated"
	SessionExpired        SessionState = "expired"
)

// Session is the client's view of who is logged in.
type Session struct {
	User  User
	Token string
	State SessionState
}

// Authenticated reports whether the session carries a validated credential.
func (s Session) Authenticated() bool {
	return s.State == SessionAuthenticated
}

// AuthResult is the payload returned by the login and register endpoints.
type AuthResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}
