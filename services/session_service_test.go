package services

import (
	"chatlink/domain"
	apperrors "chatlink/errors"
	"chatlink/mocks"
	"chatlink/projection"
	"chatlink/push"
	"chatlink/runtime"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// deadBaseURL points at a port that refuses connections, so the push dial
// fails fast and the session is exercised without a live channel.
const deadBaseURL = "http://127.0.0.1:1"

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func newSessionUnderTest(t *testing.T, baseURL string) (*SessionService, *mocks.MockAPI, *mocks.MockCredentialStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	mockAPI := mocks.NewMockAPI(ctrl)
	mockCreds := mocks.NewMockCredentialStore(ctrl)
	roster := projection.NewRoster(mockAPI)
	timelines := projection.NewTimelines(mockAPI, 50)
	router := runtime.NewRouter(slog.Default(), roster, timelines)
	svc := NewSessionService(slog.Default(), mockAPI, mockCreds, roster, timelines, router, baseURL, 8)
	return svc, mockAPI, mockCreds
}

func TestSessionService_Resume_Without_Stored_Credential(t *testing.T) {
	req := require.New(t)
	svc, _, mockCreds := newSessionUnderTest(t, deadBaseURL)

	mockCreds.EXPECT().Load().Return("", nil)

	sess, err := svc.Resume(context.Background())
	req.NoError(err)
	req.Equal(domain.SessionAnonymous, sess.State)
}

func TestSessionService_Resume_Clears_Locally_Expired_Credential(t *testing.T) {
	req := require.New(t)
	svc, _, mockCreds := newSessionUnderTest(t, deadBaseURL)

	mockCreds.EXPECT().Load().Return(signedToken(t, time.Now().Add(-time.Hour)), nil)
	// The backend is never consulted for a token already past its exp claim.
	mockCreds.EXPECT().Clear().Return(nil)

	sess, err := svc.Resume(context.Background())
	req.NoError(err)
	req.Equal(domain.SessionAnonymous, sess.State)
}

func TestSessionService_Resume_Clears_Rejected_Credential(t *testing.T) {
	req := require.New(t)
	svc, mockAPI, mockCreds := newSessionUnderTest(t, deadBaseURL)
	token := signedToken(t, time.Now().Add(time.Hour))

	mockCreds.EXPECT().Load().Return(token, nil)
	mockAPI.EXPECT().SetToken(token)
	mockAPI.EXPECT().Me(gomock.Any()).Return(domain.User{}, apperrors.ErrInvalidCredentials)
	mockAPI.EXPECT().ClearToken()
	mockCreds.EXPECT().Clear().Return(nil)

	sess, err := svc.Resume(context.Background())
	req.NoError(err)
	req.Equal(domain.SessionAnonymous, sess.State)
}

func TestSessionService_Resume_Restores_Session(t *testing.T) {
	req := require.New(t)
	svc, mockAPI, mockCreds := newSessionUnderTest(t, deadBaseURL)
	token := signedToken(t, time.Now().Add(time.Hour))
	user := domain.User{ID: "u1", Username: "alice"}

	mockCreds.EXPECT().Load().Return(token, nil)
	mockAPI.EXPECT().SetToken(token).Times(2)
	mockAPI.EXPECT().Me(gomock.Any()).Return(user, nil)

	sess, err := svc.Resume(context.Background())
	req.NoError(err)
	req.Equal(domain.SessionAuthenticated, sess.State)
	req.Equal(user, sess.User)
	// The push dial failed against the dead port; the session survives it.
	req.Equal(push.StateIdle, svc.ConnectionState())
}

func TestSessionService_Login_Stores_Credential_And_Authenticates(t *testing.T) {
	req := require.New(t)
	svc, mockAPI, mockCreds := newSessionUnderTest(t, deadBaseURL)
	result := domain.AuthResult{
		AccessToken: "tok-1",
		User:        domain.User{ID: "u1", Username: "alice"},
	}

	mockAPI.EXPECT().Login(gomock.Any(), "alice", "secret").Return(result, nil)
	mockCreds.EXPECT().Save("tok-1").Return(nil)
	mockAPI.EXPECT().SetToken("tok-1")

	sess, err := svc.Login(context.Background(), "alice", "secret")
	req.NoError(err)
	req.True(sess.Authenticated())
	req.Equal("alice", sess.User.Username)
}

func TestSessionService_Login_Rejects_Blank_Form_Before_Any_Call(t *testing.T) {
	req := require.New(t)
	svc, _, _ := newSessionUnderTest(t, deadBaseURL)

	_, err := svc.Login(context.Background(), "", "secret")
	req.ErrorIs(err, apperrors.ErrInvalidCredentials)
	req.Equal(domain.SessionAnonymous, svc.Session().State)
}

func TestSessionService_Register_Validates_Email_Locally(t *testing.T) {
	req := require.New(t)
	svc, _, _ := newSessionUnderTest(t, deadBaseURL)

	_, err := svc.Register(context.Background(), "alice", "not-an-email", "Secret-123")
	req.ErrorIs(err, apperrors.ErrInvalidRegistration)
}

func TestSessionService_Logout_Clears_Credential_And_Caches(t *testing.T) {
	req := require.New(t)
	svc, mockAPI, mockCreds := newSessionUnderTest(t, deadBaseURL)
	result := domain.AuthResult{AccessToken: "tok-1", User: domain.User{ID: "u1", Username: "alice"}}

	mockAPI.EXPECT().Login(gomock.Any(), "alice", "secret").Return(result, nil)
	mockCreds.EXPECT().Save("tok-1").Return(nil)
	mockAPI.EXPECT().SetToken("tok-1")
	_, err := svc.Login(context.Background(), "alice", "secret")
	req.NoError(err)

	mockAPI.EXPECT().ClearToken()
	mockCreds.EXPECT().Clear().Return(nil)
	req.NoError(svc.Logout())
	req.Equal(domain.SessionAnonymous, svc.Session().State)
	req.Equal(push.StateIdle, svc.ConnectionState())
}

func TestSessionService_Invalidate_Expires_Session_But_Keeps_Caches(t *testing.T) {
	req := require.New(t)
	svc, mockAPI, mockCreds := newSessionUnderTest(t, deadBaseURL)
	result := domain.AuthResult{AccessToken: "tok-1", User: domain.User{ID: "u1", Username: "alice"}}

	mockAPI.EXPECT().Login(gomock.Any(), "alice", "secret").Return(result, nil)
	mockCreds.EXPECT().Save("tok-1").Return(nil)
	mockAPI.EXPECT().SetToken("tok-1")
	_, err := svc.Login(context.Background(), "alice", "secret")
	req.NoError(err)

	mockAPI.EXPECT().ClearToken()
	mockCreds.EXPECT().Clear().Return(nil)
	svc.Invalidate()
	req.Equal(domain.SessionExpired, svc.Session().State)
	// The user identity stays visible for the expired-session view.
	req.Equal("alice", svc.Session().User.Username)
}

func TestSessionService_ReLogin_Keeps_At_Most_One_Connection(t *testing.T) {
	req := require.New(t)

	var active, total atomic.Int32
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		active.Add(1)
		total.Add(1)
		defer active.Add(-1)
		defer ws.Close()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	svc, mockAPI, mockCreds := newSessionUnderTest(t, server.URL)
	login := func(user domain.User, token string) {
		result := domain.AuthResult{AccessToken: token, User: user}
		mockAPI.EXPECT().Login(gomock.Any(), user.Username, "secret").Return(result, nil)
		mockCreds.EXPECT().Save(token).Return(nil)
		mockAPI.EXPECT().SetToken(token)
		_, err := svc.Login(context.Background(), user.Username, "secret")
		req.NoError(err)
	}

	login(domain.User{ID: "u1", Username: "alice"}, "tok-1")
	req.Eventually(func() bool { return active.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	// Switching users closes the previous channel before opening a new one.
	login(domain.User{ID: "u2", Username: "bob"}, "tok-2")
	req.Eventually(func() bool { return total.Load() == 2 && active.Load() == 1 },
		2*time.Second, 10*time.Millisecond)
	req.Equal(push.StateOpen, svc.ConnectionState())

	mockAPI.EXPECT().ClearToken()
	mockCreds.EXPECT().Clear().Return(nil)
	req.NoError(svc.Logout())
	req.Eventually(func() bool { return active.Load() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSessionService_Reconnect_Replaces_A_Dead_Channel(t *testing.T) {
	req := require.New(t)

	upgrader := websocket.Upgrader{}
	var refuse atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if refuse.Load() {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	svc, mockAPI, mockCreds := newSessionUnderTest(t, server.URL)
	refuse.Store(true)
	result := domain.AuthResult{AccessToken: "tok-1", User: domain.User{ID: "u1", Username: "alice"}}
	mockAPI.EXPECT().Login(gomock.Any(), "alice", "secret").Return(result, nil)
	mockCreds.EXPECT().Save("tok-1").Return(nil)
	mockAPI.EXPECT().SetToken("tok-1")
	_, err := svc.Login(context.Background(), "alice", "secret")
	req.NoError(err)
	req.Equal(push.StateIdle, svc.ConnectionState())

	// Manual reconnect once the backend is reachable again; nothing happens
	// automatically in between.
	refuse.Store(false)
	req.NoError(svc.Reconnect(context.Background()))
	req.Equal(push.StateOpen, svc.ConnectionState())

	mockAPI.EXPECT().ClearToken()
	mockCreds.EXPECT().Clear().Return(nil)
	req.NoError(svc.Logout())
}
