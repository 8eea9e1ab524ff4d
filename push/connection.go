// Package push owns the WebSocket channel that delivers backend events.
// One Connection serves one authenticated user; decoded frames are handed
// to a single consumer in strict arrival order.
package push

import (
	"chatlink/domain"
	apperrors "chatlink/errors"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const closeGracePeriod = time.Second

// ConnState tracks the lifecycle of one push connection.
type ConnState string

const (
	StateIdle        ConnState = "idle"
	StateConnecting  ConnState = "connecting"
	StateOpen        ConnState = "open"
	StateClosedClean ConnState = "closed"
	StateClosedError ConnState = "closed_error"
)

// Connection is a single-use push channel session. Dial moves it from Idle
// to Open; once closed it stays closed and a fresh Connection must be built
// to reconnect. There is no automatic retry on error: the channel logs and
// remains down until the owner decides otherwise.
//
// Close is idempotent and blocks until the read loop has exited, so no
// frame is delivered after Close returns.
type Connection struct {
	id     string
	userID string
	log    *slog.Logger
	dialer *websocket.Dialer
	frames chan domain.Frame

	mu          sync.Mutex
	state       ConnState
	ws          *websocket.Conn
	loopStarted bool
	dropped     int

	closing   chan struct{}
	readDone  chan struct{}
	closeOnce sync.Once
}

func NewConnection(userID string, bufferSize int, log *slog.Logger) *Connection {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Connection{
		id:       uuid.NewString(),
		userID:   userID,
		log:      log,
		dialer:   websocket.DefaultDialer,
		frames:   make(chan domain.Frame, bufferSize),
		state:    StateIdle,
		closing:  make(chan struct{}),
		readDone: make(chan struct{}),
	}
}

func (c *Connection) ID() string     { return c.id }
func (c *Connection) UserID() string { return c.userID }

// Frames is the single-consumer queue of decoded inbound frames. The
// channel is closed once the read loop exits, whatever the reason.
func (c *Connection) Frames() <-chan domain.Frame { return c.frames }

func (c *Connection) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Dropped counts malformed inbound payloads discarded so far.
func (c *Connection) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Dial opens the channel against the backend base URL and starts the read
// loop. It may be called at most once per Connection.
func (c *Connection) Dial(ctx context.Context, baseURL string) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return apperrors.ErrConnectionUsed
	}
	c.state = StateConnecting
	c.mu.Unlock()

	target, err := DeriveURL(baseURL, c.userID)
	if err != nil {
		c.failDial(err)
		return err
	}
	ws, _, err := c.dialer.DialContext(ctx, target, nil)
	if err != nil {
		c.failDial(err)
		return err
	}

	c.mu.Lock()
	if c.state != StateConnecting {
		// Close raced the dial; discard the socket without starting the loop.
		c.mu.Unlock()
		_ = ws.Close()
		return apperrors.ErrConnectionClosed
	}
	c.ws = ws
	c.state = StateOpen
	c.loopStarted = true
	c.mu.Unlock()

	c.log.Info("Push channel open", "connection_id", c.id, "user_id", c.userID)
	go c.readLoop()
	return nil
}

func (c *Connection) failDial(err error) {
	c.mu.Lock()
	if c.state == StateConnecting {
		c.state = StateClosedError
	}
	c.mu.Unlock()
	c.log.Error("Push channel dial failed", "connection_id", c.id, "error", err)
}

// readLoop receives, decodes, and enqueues inbound frames one at a time.
// Malformed payloads are dropped without terminating the connection.
func (c *Connection) readLoop() {
	defer func() {
		close(c.frames)
		close(c.readDone)
	}()
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if c.state == StateOpen {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.state = StateClosedClean
				} else {
					c.state = StateClosedError
				}
			}
			state := c.state
			c.mu.Unlock()
			if state == StateClosedError {
				c.log.Error("Push channel terminated", "connection_id", c.id, "error", err)
			}
			return
		}

		var frame domain.Frame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Type == "" {
			c.mu.Lock()
			c.dropped++
			c.mu.Unlock()
			c.log.Warn("Dropping malformed push frame", "connection_id", c.id)
			continue
		}

		select {
		case c.frames <- frame:
		case <-c.closing:
			return
		}
	}
}

// Close tears the session down deterministically. After it returns the
// frame channel is closed and the read loop has stopped.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		prev := c.state
		if prev == StateIdle || prev == StateConnecting || prev == StateOpen {
			c.state = StateClosedClean
		}
		ws := c.ws
		started := c.loopStarted
		c.mu.Unlock()

		close(c.closing)
		if prev == StateOpen && ws != nil {
			deadline := time.Now().Add(closeGracePeriod)
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			_ = ws.Close()
		}
		if !started {
			close(c.frames)
			close(c.readDone)
		}
	})
	<-c.readDone
}
