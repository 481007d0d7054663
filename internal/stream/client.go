// Package stream implements the optional push channel: a WebSocket
// client with capped exponential reconnection, status subscription,
// and typed message dispatch. It runs beside the polling path and
// never blocks it.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrNotConnected is returned by Send when no socket is open.
var ErrNotConnected = errors.New("stream: not connected")

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Errored
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Errored:
		return "error"
	default:
		return "unknown"
	}
}

// Message is one parsed inbound frame. Data carries the domain payload
// for "update" frames; SessionID is set on "connected" frames.
type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Domain    string          `json:"domain,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type Handler func(msg Message)

type StatusHandler func(state State)

// wsConn is the slice of *websocket.Conn the client uses; injectable
// in tests.
type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

const (
	baseReconnectDelay = time.Second
	maxReconnectDelay  = 16 * time.Second
	frameLogCapacity   = 100
)

// Client owns exactly one underlying connection at a time.
type Client struct {
	url string

	mu              sync.Mutex
	state           State
	conn            wsConn
	running         bool
	shouldReconnect bool
	failures        int
	sessionID       string
	broadcast       []Handler
	byType          map[string][]Handler
	status          []StatusHandler
	frameLog        [][]byte

	dial  func(ctx context.Context, url string) (wsConn, error)
	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(url string) *Client {
	return &Client{
		url:    url,
		byType: make(map[string][]Handler),
		dial: func(ctx context.Context, url string) (wsConn, error) {
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
			if err != nil {
				return nil, err
			}
			return conn, nil
		},
		sleep: func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		},
	}
}

// Subscribe registers a handler for one frame type.
func (c *Client) Subscribe(frameType string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byType[frameType] = append(c.byType[frameType], h)
}

// SubscribeAll registers a handler for every frame.
func (c *Client) SubscribeAll(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.broadcast = append(c.broadcast, h)
}

// OnStatus registers a handler observing state transitions.
func (c *Client) OnStatus(h StatusHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = append(c.status, h)
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the identifier from the last "connected" frame.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Connect starts the connection loop. It is idempotent: calling it
// while a loop is already Connecting/Connected is a no-op, so there is
// never more than one underlying socket.
func (c *Client) Connect(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.shouldReconnect = true
	c.failures = 0
	c.mu.Unlock()

	go c.run(ctx)
}

// Disconnect permanently stops reconnecting and closes the socket.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.shouldReconnect = false
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// Send writes a JSON frame. A write failure moves the client to the
// error state and closes the socket so the loop reconnects.
func (c *Client) Send(v any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.setState(Errored)
		conn.Close()
		return err
	}
	return nil
}

func (c *Client) run(ctx context.Context) {
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		c.setState(Disconnected)
	}()

	for {
		if ctx.Err() != nil || !c.reconnectWanted() {
			return
		}
		c.setState(Connecting)

		conn, err := c.dial(ctx, c.url)
		if err != nil {
			c.setState(Errored)
			c.mu.Lock()
			c.failures++
			delay := reconnectDelay(c.failures)
			c.mu.Unlock()
			log.Printf("stream connect failed (attempt %d): %v", c.failureCount(), err)
			if c.sleep(ctx, delay) != nil {
				return
			}
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.failures = 0
		c.mu.Unlock()
		c.setState(Connected)

		// Cancelling ctx must unblock the read loop; closing the conn
		// is the only way to interrupt a pending ReadMessage.
		watchDone := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				conn.Close()
			case <-watchDone:
			}
		}()

		readErr := c.readLoop(conn)
		close(watchDone)

		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		conn.Close()

		if ctx.Err() != nil || !c.reconnectWanted() {
			return
		}
		if isCleanClose(readErr) {
			c.setState(Disconnected)
		} else {
			c.setState(Errored)
		}
		if c.sleep(ctx, reconnectDelay(0)) != nil {
			return
		}
	}
}

func (c *Client) readLoop(conn wsConn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.handleFrame(data)
	}
}

// isCleanClose reports whether the peer ended the session with a
// normal close handshake, as opposed to a transport failure.
func isCleanClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

// handleFrame logs the raw frame, parses it, and dispatches to the
// broadcast list then the type-specific list, in subscription order.
// Malformed frames are logged and dropped; they never affect the
// connection.
func (c *Client) handleFrame(data []byte) {
	c.mu.Lock()
	c.frameLog = append(c.frameLog, data)
	if len(c.frameLog) > frameLogCapacity {
		c.frameLog = c.frameLog[len(c.frameLog)-frameLogCapacity:]
	}
	c.mu.Unlock()

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
		log.Printf("stream: dropping malformed frame: %.120s", data)
		return
	}

	if msg.Type == "connected" && msg.SessionID != "" {
		c.mu.Lock()
		c.sessionID = msg.SessionID
		c.mu.Unlock()
	}

	c.mu.Lock()
	handlers := make([]Handler, 0, len(c.broadcast)+len(c.byType[msg.Type]))
	handlers = append(handlers, c.broadcast...)
	handlers = append(handlers, c.byType[msg.Type]...)
	c.mu.Unlock()

	for _, h := range handlers {
		h(msg)
	}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	subs := make([]StatusHandler, len(c.status))
	copy(subs, c.status)
	c.mu.Unlock()

	for _, h := range subs {
		h(s)
	}
}

func (c *Client) reconnectWanted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shouldReconnect
}

func (c *Client) failureCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures
}

// Frames returns a copy of the recent raw frame log.
func (c *Client) Frames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.frameLog))
	copy(out, c.frameLog)
	return out
}

// reconnectDelay doubles per consecutive failure from 1s, capped at
// 16s; failures == 4 already hits the cap.
func reconnectDelay(failures int) time.Duration {
	if failures <= 0 {
		return baseReconnectDelay
	}
	delay := baseReconnectDelay << failures
	if delay > maxReconnectDelay {
		delay = maxReconnectDelay
	}
	return delay
}
