package chrome_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tomyan/mediactl/internal/chrome"
	"github.com/tomyan/mediactl/internal/testutil"
)

const page = `<html><body><video id="v" src="clip.mp4" width="930" height="60"></video></body></html>`

func connect(t *testing.T, d *testutil.DevTools) *chrome.Client {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := chrome.Connect(ctx, d.Host, d.Port, chrome.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestConnect_DiscoversWebSocketURL(t *testing.T) {
	d := testutil.NewDevTools(t)
	client := connect(t, d)

	assert.Equal(t, d.URL(), client.WebSocketURL())
}

func TestConnect_FailsWithBadPort(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := chrome.Connect(ctx, "localhost", 1)
	assert.Error(t, err)
}

func TestConnect_FailsWithBadHost(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := chrome.Connect(ctx, "nonexistent.invalid", 9222)
	assert.Error(t, err)
}

func TestClient_EvalReusesSession(t *testing.T) {
	d := testutil.NewDevTools(t)
	d.AddPage("page-1", testutil.MustHost(page))
	client := connect(t, d)
	ctx := context.Background()

	obj, err := client.Eval(ctx, "page-1", "document.getElementById('v').clientWidth;")
	require.NoError(t, err)
	assert.Equal(t, "number", obj.Type)
	assert.JSONEq(t, "930", string(obj.Value))

	obj, err = client.Eval(ctx, "page-1", "document.getElementById('v').currentSrc;")
	require.NoError(t, err)
	assert.JSONEq(t, `"clip.mp4"`, string(obj.Value))

	assert.Equal(t, 1, d.Count("Target.attachToTarget"))
	assert.Equal(t, 1, d.Count("Runtime.enable"))
	assert.Equal(t, 2, d.Count("Runtime.evaluate"))

	for _, c := range d.Calls() {
		if c.Method == "Runtime.evaluate" {
			assert.Equal(t, "session-page-1", c.SessionID)
		}
	}
}

func TestClient_ExecuteDoesNotReturnByValue(t *testing.T) {
	d := testutil.NewDevTools(t)
	d.AddPage("page-1", testutil.MustHost(page))
	client := connect(t, d)

	require.NoError(t, client.Execute(context.Background(), "page-1", "window.x = 1;"))

	var params struct {
		Expression    string `json:"expression"`
		ReturnByValue bool   `json:"returnByValue"`
	}
	for _, c := range d.Calls() {
		if c.Method == "Runtime.evaluate" {
			require.NoError(t, json.Unmarshal(c.Params, &params))
		}
	}
	assert.Equal(t, "window.x = 1;", params.Expression)
	assert.False(t, params.ReturnByValue)
}

func TestClient_Exception(t *testing.T) {
	d := testutil.NewDevTools(t)
	d.AddPage("page-1", testutil.MustHost(page))
	client := connect(t, d)

	_, err := client.Eval(context.Background(), "page-1", "document.getElementById('nope').play();")

	var exc *chrome.ExceptionError
	require.ErrorAs(t, err, &exc)
	assert.Equal(t, "Uncaught", exc.Text)
	assert.Contains(t, exc.Description, "TypeError")
	assert.Contains(t, err.Error(), "JS exception")
}

func TestClient_ProtocolError(t *testing.T) {
	d := testutil.NewDevTools(t)
	client := connect(t, d)

	_, err := client.Eval(context.Background(), "missing", "1;")

	assert.ErrorIs(t, err, chrome.ErrProtocolError)
	var perr *chrome.ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, -32602, perr.Code)
}

func TestClient_CallHonoursContext(t *testing.T) {
	d := testutil.NewDevTools(t)
	d.Handle("Browser.getVersion", func(testutil.Call) testutil.Reply {
		return testutil.Reply{NoReply: true}
	})
	client := connect(t, d)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Call(ctx, "Browser.getVersion", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_Close(t *testing.T) {
	d := testutil.NewDevTools(t)
	d.AddPage("page-1", testutil.MustHost(page))
	client := connect(t, d)
	ctx := context.Background()

	_, err := client.Eval(ctx, "page-1", "1;")
	require.NoError(t, err)

	require.NoError(t, client.Close())
	assert.Equal(t, 1, d.Count("Target.detachFromTarget"))

	_, err = client.Call(ctx, "Browser.getVersion", nil)
	assert.ErrorIs(t, err, chrome.ErrConnectionClosed)
	assert.NoError(t, client.Close())
}

func TestClient_ResolvePage(t *testing.T) {
	d := testutil.NewDevTools(t)
	client := connect(t, d)
	ctx := context.Background()

	_, err := client.ResolvePage(ctx, "")
	assert.ErrorIs(t, err, chrome.ErrNoPages)

	d.AddPage("page-a", testutil.MustHost(page))
	d.AddPage("page-b", testutil.MustHost(page))

	pages, err := client.Pages(ctx)
	require.NoError(t, err)
	assert.Len(t, pages, 2)

	tests := []struct {
		selector string
		want     string
	}{
		{"", "page-a"},
		{"0", "page-a"},
		{"1", "page-b"},
		{"page-b", "page-b"},
	}
	for _, tt := range tests {
		got, err := client.ResolvePage(ctx, tt.selector)
		require.NoError(t, err, tt.selector)
		assert.Equal(t, tt.want, got.ID)
	}

	_, err = client.ResolvePage(ctx, "5")
	assert.Error(t, err)
	_, err = client.ResolvePage(ctx, "worker-0")
	assert.Error(t, err)
}

func TestClient_NavigateAndWait(t *testing.T) {
	d := testutil.NewDevTools(t)
	d.AddPage("page-1", testutil.MustHost(page))
	d.Handle("Page.navigate", func(c testutil.Call) testutil.Reply {
		return testutil.Reply{
			Result: map[string]string{"frameId": "frame-1", "loaderId": "loader-1"},
			Events: []testutil.Event{{
				SessionID: c.SessionID,
				Method:    "Page.loadEventFired",
				Params:    map[string]float64{"timestamp": 1},
			}},
		}
	})
	client := connect(t, d)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := client.NavigateAndWait(ctx, "page-1", "https://example.com/")
	require.NoError(t, err)
	assert.Equal(t, "frame-1", res.FrameID)
	assert.Equal(t, "loader-1", res.LoaderID)
	assert.Equal(t, 1, d.Count("Page.enable"))
}

func TestClient_NavigateError(t *testing.T) {
	d := testutil.NewDevTools(t)
	d.AddPage("page-1", testutil.MustHost(page))
	d.Handle("Page.navigate", func(testutil.Call) testutil.Reply {
		return testutil.Reply{Result: map[string]string{"frameId": "f", "errorText": "net::ERR_NAME_NOT_RESOLVED"}}
	})
	client := connect(t, d)

	res, err := client.NavigateAndWait(context.Background(), "page-1", "https://nonexistent.invalid/")
	require.NoError(t, err)
	assert.Equal(t, "net::ERR_NAME_NOT_RESOLVED", res.ErrorText)
}

func TestClient_NewAndCloseTab(t *testing.T) {
	d := testutil.NewDevTools(t)
	d.Handle("Target.createTarget", func(c testutil.Call) testutil.Reply {
		return testutil.Reply{Result: map[string]string{"targetId": "new-1"}}
	})
	client := connect(t, d)
	ctx := context.Background()

	id, err := client.NewTab(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "new-1", id)

	var params map[string]string
	for _, c := range d.Calls() {
		if c.Method == "Target.createTarget" {
			require.NoError(t, json.Unmarshal(c.Params, &params))
		}
	}
	assert.Equal(t, "about:blank", params["url"])

	require.NoError(t, client.CloseTab(ctx, id))
	assert.Equal(t, 1, d.Count("Target.closeTarget"))
}

func TestClient_ConnectURL(t *testing.T) {
	d := testutil.NewDevTools(t)

	client, err := chrome.ConnectURL(context.Background(), d.URL())
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Pages(context.Background())
	assert.NoError(t, err)

	_, err = chrome.ConnectURL(context.Background(), "ws://127.0.0.1:1/devtools/browser/x")
	assert.True(t, err != nil && !errors.Is(err, chrome.ErrConnectionClosed))
}
