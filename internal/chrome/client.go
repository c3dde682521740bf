// Package chrome is a small Chrome DevTools Protocol client: one WebSocket
// connection to the browser, flattened sessions per page target, and just
// enough of the Runtime, Page and Target domains to drive script against a
// page.
package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client is a Chrome DevTools Protocol client.
type Client struct {
	conn            *websocket.Conn
	wsURL           string
	log             *zap.Logger
	mu              sync.Mutex
	messageID       atomic.Int64
	pending         map[int64]chan callResult
	pendingMu       sync.Mutex
	eventHandlers   map[string][]chan json.RawMessage // key: "sessionID:method"
	eventHandlersMu sync.Mutex
	sessions        map[string]string // targetID -> sessionID
	runtimeEnabled  map[string]bool   // sessionID -> Runtime.enable sent
	sessionsMu      sync.Mutex
	closed          atomic.Bool
	closeOnce       sync.Once
	closeCh         chan struct{}
}

type callResult struct {
	Result json.RawMessage
	Error  *ProtocolError
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for connection-level diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// Connect discovers the browser WebSocket endpoint at host:port and connects to it.
func Connect(ctx context.Context, host string, port int, opts ...Option) (*Client, error) {
	jsonURL := fmt.Sprintf("http://%s:%d/json/version", host, port)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jsonURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connecting to Chrome: %w", err)
	}
	defer resp.Body.Close()

	var versionResp struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&versionResp); err != nil {
		return nil, fmt.Errorf("decoding version response: %w", err)
	}

	if versionResp.WebSocketDebuggerURL == "" {
		return nil, fmt.Errorf("no WebSocket URL in response")
	}

	return ConnectURL(ctx, versionResp.WebSocketDebuggerURL, opts...)
}

// ConnectURL connects directly to a browser WebSocket debugger URL.
func ConnectURL(ctx context.Context, wsURL string, opts ...Option) (*Client, error) {
	dialer := websocket.Dialer{}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to WebSocket: %w", err)
	}

	client := &Client{
		conn:           conn,
		wsURL:          wsURL,
		log:            zap.NewNop(),
		pending:        make(map[int64]chan callResult),
		eventHandlers:  make(map[string][]chan json.RawMessage),
		sessions:       make(map[string]string),
		runtimeEnabled: make(map[string]bool),
		closeCh:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(client)
	}
	client.log = client.log.Named("chrome")

	go client.readMessages()

	return client, nil
}

// WebSocketURL returns the WebSocket URL used for this connection.
func (c *Client) WebSocketURL() string {
	return c.wsURL
}

// Close detaches cached sessions and closes the connection.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.sessionsMu.Lock()
		sessions := make([]string, 0, len(c.sessions))
		for _, v := range c.sessions {
			sessions = append(sessions, v)
		}
		c.sessions = make(map[string]string)
		c.runtimeEnabled = make(map[string]bool)
		c.sessionsMu.Unlock()

		// Best effort; the browser drops sessions with the socket anyway.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		for _, sessionID := range sessions {
			c.Call(ctx, "Target.detachFromTarget", map[string]interface{}{
				"sessionId": sessionID,
			})
		}

		c.closed.Store(true)
		close(c.closeCh)
		err = c.conn.Close()

		c.pendingMu.Lock()
		for _, ch := range c.pending {
			close(ch)
		}
		c.pending = make(map[int64]chan callResult)
		c.pendingMu.Unlock()
	})
	return err
}

func (c *Client) attachToTarget(ctx context.Context, targetID string) (string, error) {
	c.sessionsMu.Lock()
	if sessionID, ok := c.sessions[targetID]; ok {
		c.sessionsMu.Unlock()
		return sessionID, nil
	}
	c.sessionsMu.Unlock()

	attachResult, err := c.Call(ctx, "Target.attachToTarget", map[string]interface{}{
		"targetId": targetID,
		"flatten":  true,
	})
	if err != nil {
		return "", fmt.Errorf("attaching to target: %w", err)
	}

	var attachResp struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(attachResult, &attachResp); err != nil {
		return "", fmt.Errorf("parsing attach response: %w", err)
	}

	c.sessionsMu.Lock()
	c.sessions[targetID] = attachResp.SessionID
	c.sessionsMu.Unlock()

	c.log.Debug("attached to target", zap.String("target", targetID), zap.String("session", attachResp.SessionID))
	return attachResp.SessionID, nil
}

// forgetTarget drops the cached session for a target that is going away.
func (c *Client) forgetTarget(targetID string) {
	c.sessionsMu.Lock()
	if sessionID, ok := c.sessions[targetID]; ok {
		delete(c.runtimeEnabled, sessionID)
	}
	delete(c.sessions, targetID)
	c.sessionsMu.Unlock()
}

type cdpRequest struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"sessionId,omitempty"`
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params,omitempty"`
}

type cdpResponse struct {
	ID        int64           `json:"id"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *ProtocolError  `json:"error,omitempty"`
	Method    string          `json:"method,omitempty"`    // events
	Params    json.RawMessage `json:"params,omitempty"`    // events
	SessionID string          `json:"sessionId,omitempty"` // session events
}

// Call sends a browser-level protocol command and waits for the response.
func (c *Client) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	return c.roundTrip(ctx, "", method, params)
}

// CallSession sends a protocol command to a specific session and waits for the response.
func (c *Client) CallSession(ctx context.Context, sessionID string, method string, params interface{}) (json.RawMessage, error) {
	return c.roundTrip(ctx, sessionID, method, params)
}

func (c *Client) roundTrip(ctx context.Context, sessionID, method string, params interface{}) (json.RawMessage, error) {
	if c.closed.Load() {
		return nil, ErrConnectionClosed
	}

	id := c.messageID.Add(1)

	req := cdpRequest{
		ID:        id,
		SessionID: sessionID,
		Method:    method,
	}

	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshaling params: %w", err)
		}
		req.Params = data
	}

	respChan := make(chan callResult, 1)
	c.pendingMu.Lock()
	c.pending[id] = respChan
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	c.mu.Lock()
	err := c.conn.WriteJSON(req)
	c.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("sending message: %w", err)
	}

	select {
	case result, ok := <-respChan:
		if !ok {
			return nil, ErrConnectionClosed
		}
		if result.Error != nil {
			return nil, result.Error
		}
		return result.Result, nil
	case <-c.closeCh:
		return nil, ErrConnectionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) readMessages() {
	defer func() {
		// Nothing can answer a detach once the reader is gone.
		c.closed.Store(true)
		c.Close()
	}()

	for {
		var resp cdpResponse
		if err := c.conn.ReadJSON(&resp); err != nil {
			if !c.closed.Load() {
				c.log.Debug("read loop stopped", zap.Error(err))
			}
			return
		}

		if resp.ID > 0 {
			c.pendingMu.Lock()
			if ch, ok := c.pending[resp.ID]; ok {
				ch <- callResult{
					Result: resp.Result,
					Error:  resp.Error,
				}
			}
			c.pendingMu.Unlock()
		}

		if resp.Method != "" {
			key := resp.SessionID + ":" + resp.Method
			c.eventHandlersMu.Lock()
			for _, h := range c.eventHandlers[key] {
				select {
				case h <- resp.Params:
				default:
					// Drop if channel is full
				}
			}
			c.eventHandlersMu.Unlock()
		}
	}
}

// subscribeEvent registers a handler for protocol events.
func (c *Client) subscribeEvent(sessionID, method string) chan json.RawMessage {
	ch := make(chan json.RawMessage, 100)
	key := sessionID + ":" + method

	c.eventHandlersMu.Lock()
	c.eventHandlers[key] = append(c.eventHandlers[key], ch)
	c.eventHandlersMu.Unlock()

	return ch
}

// unsubscribeEvent removes an event handler.
func (c *Client) unsubscribeEvent(sessionID, method string, ch chan json.RawMessage) {
	key := sessionID + ":" + method

	c.eventHandlersMu.Lock()
	defer c.eventHandlersMu.Unlock()

	handlers := c.eventHandlers[key]
	for i, h := range handlers {
		if h == ch {
			c.eventHandlers[key] = append(handlers[:i], handlers[i+1:]...)
			close(ch)
			return
		}
	}
}
