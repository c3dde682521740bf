package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/tomyan/mediactl/internal/bridge"
	"github.com/tomyan/mediactl/internal/chrome"
)

// Call is one protocol command received by a DevTools.
type Call struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"sessionId,omitempty"`
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params,omitempty"`
}

// Event is a protocol event pushed to the client after a reply.
type Event struct {
	SessionID string
	Method    string
	Params    interface{}
}

// Reply answers a Call. A nil Result is sent as {}. With NoReply set the
// command is left unanswered.
type Reply struct {
	Result  interface{}
	Error   *chrome.ProtocolError
	Events  []Event
	NoReply bool
}

// Handler answers one protocol method.
type Handler func(Call) Reply

// DevTools is an in-process stand-in for a browser's remote debugging
// endpoint. It serves /json/version and a single WebSocket that answers
// commands through per-method handlers. Methods without a handler get an
// empty result. Pages are served from Hosts, so Runtime.evaluate runs real
// script.
type DevTools struct {
	Host string
	Port int

	srv      *httptest.Server
	mu       sync.Mutex
	handlers map[string]Handler
	pages    map[string]*Host
	order    []string
	calls    []Call
}

// NewDevTools starts a DevTools server that is shut down when t ends.
func NewDevTools(t *testing.T) *DevTools {
	t.Helper()

	d := &DevTools{
		handlers: make(map[string]Handler),
		pages:    make(map[string]*Host),
	}
	d.handlers["Target.attachToTarget"] = d.attach
	d.handlers["Target.getTargets"] = d.targets
	d.handlers["Runtime.evaluate"] = d.evaluate

	mux := http.NewServeMux()
	mux.HandleFunc("/json/version", d.version)
	mux.HandleFunc("/devtools/browser/fake", d.serveWS)
	d.srv = httptest.NewServer(mux)
	t.Cleanup(d.srv.Close)

	host, port, err := net.SplitHostPort(strings.TrimPrefix(d.srv.URL, "http://"))
	if err != nil {
		t.Fatalf("parsing server address: %v", err)
	}
	d.Host = host
	d.Port, _ = strconv.Atoi(port)
	return d
}

// URL returns the browser WebSocket debugger URL.
func (d *DevTools) URL() string {
	return "ws://" + net.JoinHostPort(d.Host, strconv.Itoa(d.Port)) + "/devtools/browser/fake"
}

// AddPage serves page as the target targetID.
func (d *DevTools) AddPage(targetID string, page *Host) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pages[targetID] = page
	d.order = append(d.order, targetID)
}

// Handle replaces the handler for method.
func (d *DevTools) Handle(method string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[method] = h
}

// Calls returns the commands received so far.
func (d *DevTools) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// Count returns how many times method was received.
func (d *DevTools) Count(method string) int {
	n := 0
	for _, c := range d.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (d *DevTools) version(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"Browser":              "FakeChrome/1.0",
		"Protocol-Version":     "1.3",
		"webSocketDebuggerUrl": d.URL(),
	})
}

func (d *DevTools) serveWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	write := func(v interface{}) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(v)
	}

	for {
		var call Call
		if err := conn.ReadJSON(&call); err != nil {
			return
		}

		d.mu.Lock()
		d.calls = append(d.calls, call)
		h := d.handlers[call.Method]
		d.mu.Unlock()

		reply := Reply{}
		if h != nil {
			reply = h(call)
		}
		if reply.NoReply {
			continue
		}

		msg := map[string]interface{}{"id": call.ID}
		if call.SessionID != "" {
			msg["sessionId"] = call.SessionID
		}
		switch {
		case reply.Error != nil:
			msg["error"] = reply.Error
		case reply.Result != nil:
			msg["result"] = reply.Result
		default:
			msg["result"] = struct{}{}
		}
		if err := write(msg); err != nil {
			return
		}
		for _, ev := range reply.Events {
			if err := write(map[string]interface{}{
				"sessionId": ev.SessionID,
				"method":    ev.Method,
				"params":    ev.Params,
			}); err != nil {
				return
			}
		}
	}
}

func (d *DevTools) attach(call Call) Reply {
	var p struct {
		TargetID string `json:"targetId"`
	}
	json.Unmarshal(call.Params, &p)

	d.mu.Lock()
	_, ok := d.pages[p.TargetID]
	d.mu.Unlock()
	if !ok {
		return Reply{Error: &chrome.ProtocolError{Code: -32602, Message: "No target with given id found"}}
	}
	return Reply{Result: map[string]string{"sessionId": "session-" + p.TargetID}}
}

func (d *DevTools) targets(Call) Reply {
	d.mu.Lock()
	defer d.mu.Unlock()

	infos := []map[string]string{{
		"targetId": "worker-0",
		"type":     "service_worker",
		"url":      "https://example.com/sw.js",
	}}
	for _, id := range d.order {
		infos = append(infos, map[string]string{
			"targetId": id,
			"type":     "page",
			"title":    id,
			"url":      "about:blank",
		})
	}
	return Reply{Result: map[string]interface{}{"targetInfos": infos}}
}

func (d *DevTools) evaluate(call Call) Reply {
	var p struct {
		Expression    string `json:"expression"`
		ReturnByValue bool   `json:"returnByValue"`
	}
	json.Unmarshal(call.Params, &p)

	page := d.sessionPage(call.SessionID)
	if page == nil {
		return Reply{Error: &chrome.ProtocolError{Code: -32001, Message: "Session with given id not found."}}
	}

	ctx := context.Background()
	if !p.ReturnByValue {
		if err := page.Execute(ctx, p.Expression); err != nil {
			return exception(err)
		}
		return Reply{Result: map[string]interface{}{"result": map[string]string{"type": "undefined"}}}
	}

	v, err := page.Evaluate(ctx, p.Expression)
	var typeErr *bridge.TypeError
	if errors.As(err, &typeErr) {
		return Reply{Result: map[string]interface{}{"result": map[string]string{
			"type":        typeErr.Got,
			"description": typeErr.Got,
		}}}
	}
	if err != nil {
		return exception(err)
	}
	return Reply{Result: map[string]interface{}{"result": remoteObject(v)}}
}

func (d *DevTools) sessionPage(sessionID string) *Host {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pages[strings.TrimPrefix(sessionID, "session-")]
}

func exception(err error) Reply {
	msg := err.Error()
	var scriptErr *bridge.ScriptError
	if errors.As(err, &scriptErr) {
		msg = scriptErr.Message
	}
	return Reply{Result: map[string]interface{}{
		"result": map[string]string{"type": "object", "subtype": "error", "description": msg},
		"exceptionDetails": map[string]interface{}{
			"text":       "Uncaught",
			"lineNumber": 0,
			"exception":  map[string]string{"type": "object", "subtype": "error", "description": msg},
		},
	}}
}

func remoteObject(v bridge.Scalar) map[string]interface{} {
	switch v.Kind() {
	case bridge.String:
		return map[string]interface{}{"type": "string", "value": v.Interface()}
	case bridge.Boolean:
		return map[string]interface{}{"type": "boolean", "value": v.Interface()}
	case bridge.Number:
		n, _ := v.Number()
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return map[string]interface{}{"type": "number", "unserializableValue": v.String(), "description": v.String()}
		}
		return map[string]interface{}{"type": "number", "value": n, "description": v.String()}
	default:
		return map[string]interface{}{"type": "object", "subtype": "null", "value": nil}
	}
}
