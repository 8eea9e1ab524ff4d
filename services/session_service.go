// Package services orchestrates the client subsystems: session lifecycle
// and outbound mutations. Transport, persistence, and read models are
// injected; nothing here talks to the network directly.
package services

import (
	"chatlink/auth"
	"chatlink/contract"
	"chatlink/domain"
	"chatlink/projection"
	"chatlink/push"
	"chatlink/runtime"
	"context"
	"log/slog"
	"sync"
	"time"
)

type ISessionService interface {
	Resume(ctx context.Context) (domain.Session, error)
	Login(ctx context.Context, username, password string) (domain.Session, error)
	Register(ctx context.Context, username, email, password string) (domain.Session, error)
	Logout() error
	Invalidate()
	Reconnect(ctx context.Context) error
	Session() domain.Session
	ConnectionState() push.ConnState
}

// SessionService gates the whole subsystem on authentication state.
//
// It is the only component that opens or closes push connections: entering
// the authenticated state opens exactly one connection for the user, and
// leaving it (logout, re-login, token invalidation) closes the previous one
// synchronously before anything else happens. Connections are single-use,
// so at most one is ever live per session.
type SessionService struct {
	log        *slog.Logger
	api        contract.API
	creds      contract.CredentialStore
	roster     *projection.Roster
	timelines  *projection.Timelines
	router     *runtime.Router
	baseURL    string
	bufferSize int

	mu         sync.Mutex
	session    domain.Session
	conn       *push.Connection
	cancel     context.CancelFunc
	routerDone chan struct{}
}

func NewSessionService(log *slog.Logger, api contract.API, creds contract.CredentialStore,
	roster *projection.Roster, timelines *projection.Timelines, router *runtime.Router,
	baseURL string, bufferSize int) *SessionService {
	return &SessionService{
		log:        log,
		api:        api,
		creds:      creds,
		roster:     roster,
		timelines:  timelines,
		router:     router,
		baseURL:    baseURL,
		bufferSize: bufferSize,
		session:    domain.Session{State: domain.SessionAnonymous},
	}
}

// Resume validates any stored credential on startup. A missing, expired, or
// rejected token leaves the client anonymous with the credential cleared;
// none of those cases is an error to the caller.
func (s *SessionService) Resume(ctx context.Context) (domain.Session, error) {
	token, err := s.creds.Load()
	if err != nil {
		return s.Session(), err
	}
	if token == "" {
		return s.Session(), nil
	}

	s.setState(domain.SessionAuthenticating)

	// Fast path: a token past its exp claim cannot pass server validation,
	// so skip the round trip and clear it straight away.
	if auth.Expired(token, time.Now()) {
		s.log.Info("Stored credential expired, clearing")
		s.clearCredential()
		s.setState(domain.SessionAnonymous)
		return s.Session(), nil
	}

	s.api.SetToken(token)
	user, err := s.api.Me(ctx)
	if err != nil {
		s.log.Warn("Stored credential rejected, clearing", "error", err)
		s.api.ClearToken()
		s.clearCredential()
		s.setState(domain.SessionAnonymous)
		return s.Session(), nil
	}

	s.establish(ctx, user, token)
	return s.Session(), nil
}

// Login authenticates with the backend and, on success, stores the new
// credential and opens the push channel. Failures are returned for inline
// display on the form; the session state is left unchanged by them.
func (s *SessionService) Login(ctx context.Context, username, password string) (domain.Session, error) {
	if err := auth.ValidateLogin(auth.LoginRequest{Username: username, Password: password}); err != nil {
		return s.Session(), err
	}
	res, err := s.api.Login(ctx, username, password)
	if err != nil {
		return s.Session(), err
	}
	s.persistCredential(res.AccessToken)
	s.establish(ctx, res.User, res.AccessToken)
	return s.Session(), nil
}

// Register creates an account and enters the authenticated state directly.
func (s *SessionService) Register(ctx context.Context, username, email, password string) (domain.Session, error) {
	req := auth.RegisterRequest{Username: username, Email: email, Password: password}
	if err := auth.ValidateRegister(req); err != nil {
		return s.Session(), err
	}
	res, err := s.api.Register(ctx, username, email, password)
	if err != nil {
		return s.Session(), err
	}
	s.persistCredential(res.AccessToken)
	s.establish(ctx, res.User, res.AccessToken)
	return s.Session(), nil
}

// Logout closes the push channel, clears the stored credential, and drops
// every cached read model.
func (s *SessionService) Logout() error {
	s.disconnect()
	s.api.ClearToken()
	err := s.creds.Clear()
	s.roster.Reset()
	s.timelines.Reset()
	s.mu.Lock()
	s.session = domain.Session{State: domain.SessionAnonymous}
	s.mu.Unlock()
	return err
}

// Invalidate marks the current credential as rejected mid-session. The
// push channel is closed and the credential cleared, but cached views are
// kept so the UI can keep showing stale data.
func (s *SessionService) Invalidate() {
	s.disconnect()
	s.api.ClearToken()
	s.clearCredential()
	s.setState(domain.SessionExpired)
}

// Reconnect replaces a dead push connection with a fresh one for the same
// session. There is no automatic reconnect anywhere else; this is the
// explicit affordance the UI may expose.
func (s *SessionService) Reconnect(ctx context.Context) error {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()
	if !sess.Authenticated() {
		return nil
	}
	s.disconnect()
	s.connect(ctx, sess.User)
	return nil
}

func (s *SessionService) Session() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// ConnectionState exposes the push channel state for the UI.
func (s *SessionService) ConnectionState() push.ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return push.StateIdle
	}
	return s.conn.State()
}

// establish enters the authenticated state and opens the push channel.
// Any previous connection is fully closed first.
func (s *SessionService) establish(ctx context.Context, user domain.User, token string) {
	s.disconnect()
	s.api.SetToken(token)
	s.mu.Lock()
	s.session = domain.Session{User: user, Token: token, State: domain.SessionAuthenticated}
	s.mu.Unlock()
	s.log.Info("Session established", "user_id", user.ID, "username", user.Username)
	s.connect(ctx, user)
}

// connect opens a fresh single-use connection and starts its router loop.
// A dial failure leaves the session authenticated with the channel down;
// there is no retry (the roster and timelines still work over REST).
func (s *SessionService) connect(ctx context.Context, user domain.User) {
	conn := push.NewConnection(user.ID, s.bufferSize, s.log)
	if err := conn.Dial(ctx, s.baseURL); err != nil {
		s.log.Warn("Push channel unavailable, continuing without live updates",
			"user_id", user.ID, "error", err)
		return
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.router.Run(loopCtx, conn.Frames())
	}()

	s.mu.Lock()
	s.conn = conn
	s.cancel = cancel
	s.routerDone = done
	s.mu.Unlock()
}

// disconnect tears down the live connection and waits for its router loop,
// so no dispatch runs after it returns.
func (s *SessionService) disconnect() {
	s.mu.Lock()
	conn, cancel, done := s.conn, s.cancel, s.routerDone
	s.conn, s.cancel, s.routerDone = nil, nil, nil
	s.mu.Unlock()
	if conn == nil {
		return
	}
	conn.Close()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *SessionService) setState(state domain.SessionState) {
	s.mu.Lock()
	s.session.State = state
	s.mu.Unlock()
}

func (s *SessionService) persistCredential(token string) {
	if err := s.creds.Save(token); err != nil {
		// The session still works for this run; only restart resumption is lost.
		s.log.Warn("Failed to persist credential", "error", err)
	}
}

func (s *SessionService) clearCredential() {
	if err := s.creds.Clear(); err != nil {
		s.log.Warn("Failed to clear stored credential", "error", err)
	}
}
