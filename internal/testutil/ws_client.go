package testutil

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	gorillaWS "github.com/gorilla/websocket"
	"github.com/marco/chatlink/internal/websocket"
)

// WSClient is a test WebSocket client that collects pushed events
type WSClient struct {
	t      *testing.T
	conn   *gorillaWS.Conn
	events chan *websocket.Event
	errors chan error
	done   chan struct{}
	mu     sync.Mutex
}

// NewWSClient connects to the push endpoint with the given token
func NewWSClient(t *testing.T, ts *TestServer, token string) *WSClient {
	t.Helper()

	dialer := gorillaWS.DefaultDialer
	dialer.HandshakeTimeout = 5 * time.Second

	conn, _, err := dialer.Dial(ts.WebSocketURL(token), nil)
	if err != nil {
		t.Fatalf("failed to connect to websocket: %v", err)
	}

	client := &WSClient{
		t:      t,
		conn:   conn,
		events: make(chan *websocket.Event, 100),
		errors: make(chan error, 10),
		done:   make(chan struct{}),
	}

	go client.readPump()

	t.Cleanup(func() {
		client.Close()
	})

	return client
}

func (c *WSClient) readPump() {
	defer close(c.events)
	for {
		select {
		case <-c.done:
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				select {
				case <-c.done:
					return
				case c.errors <- err:
				}
				return
			}

			var ev websocket.Event
			if err := json.Unmarshal(data, &ev); err != nil {
				c.errors <- err
				continue
			}

			select {
			case c.events <- &ev:
			case <-c.done:
				return
			}
		}
	}
}

// Close closes the WebSocket connection gracefully
func (c *WSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return
	default:
		close(c.done)
		c.conn.WriteMessage(gorillaWS.CloseMessage, gorillaWS.FormatCloseMessage(gorillaWS.CloseNormalClosure, ""))
		c.conn.Close()
	}
}

// ExpectEvent waits for an event of the specified type, skipping others
func (c *WSClient) ExpectEvent(eventType websocket.EventType, timeout time.Duration) *websocket.Event {
	c.t.Helper()

	deadline := time.After(timeout)
	for {
		select {
		case ev := <-c.events:
			if ev == nil {
				c.t.Fatalf("connection closed while waiting for %s", eventType)
			}
			if ev.Type == eventType {
				return ev
			}
		case err := <-c.errors:
			c.t.Fatalf("error while waiting for %s: %v", eventType, err)
		case <-deadline:
			c.t.Fatalf("timeout waiting for event type %s", eventType)
		}
	}
}

// ExpectNoEvent verifies no event arrives within the timeout
func (c *WSClient) ExpectNoEvent(timeout time.Duration) {
	c.t.Helper()

	select {
	case ev := <-c.events:
		if ev != nil {
			c.t.Fatalf("unexpected event received: %s", ev.Type)
		}
	case <-time.After(timeout):
	}
}

// ExpectClosed waits for the server to close the connection
func (c *WSClient) ExpectClosed(timeout time.Duration) {
	c.t.Helper()

	deadline := time.After(timeout)
	for {
		select {
		case ev := <-c.events:
			if ev == nil {
				return
			}
		case <-c.errors:
			return
		case <-deadline:
			c.t.Fatal("timeout waiting for connection close")
		}
	}
}

// DrainEvents drains buffered events, waiting for the stream to settle
func (c *WSClient) DrainEvents() {
	deadline := time.After(100 * time.Millisecond)
	for {
		select {
		case ev := <-c.events:
			if ev == nil {
				return
			}
			deadline = time.After(50 * time.Millisecond)
		case <-deadline:
			return
		case <-c.done:
			return
		}
	}
}

// DecodePayload unmarshals an event payload into out
func DecodePayload(t *testing.T, ev *websocket.Event, out interface{}) {
	t.Helper()

	if err := json.Unmarshal(ev.Payload, out); err != nil {
		t.Fatalf("failed to decode %s payload: %v", ev.Type, err)
	}
}
