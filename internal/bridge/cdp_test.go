package bridge_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomyan/mediactl/internal/bridge"
	"github.com/tomyan/mediactl/internal/chrome"
	"github.com/tomyan/mediactl/internal/testutil"
)

const page = `<html><body>
<video id="v" src="clip.mp4" width="930" height="60" muted></video>
</body></html>`

func cdpBridge(t *testing.T) (*bridge.CDP, *testutil.DevTools) {
	t.Helper()

	d := testutil.NewDevTools(t)
	d.AddPage("page-1", testutil.MustHost(page))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := chrome.Connect(ctx, d.Host, d.Port)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return bridge.NewCDP(client, "page-1"), d
}

func TestCDP_EvaluateScalars(t *testing.T) {
	b, _ := cdpBridge(t)
	ctx := context.Background()

	assert.Equal(t, "page-1", b.TargetID())

	tests := []struct {
		script string
		want   bridge.Scalar
	}{
		{"document.getElementById('v').clientWidth;", bridge.NumberValue(930)},
		{"document.getElementById('v').currentSrc;", bridge.StringValue("clip.mp4")},
		{"document.getElementById('v').muted;", bridge.BoolValue(true)},
		{"document.getElementById('missing');", bridge.NullValue()},
		{"window.neverSet;", bridge.NullValue()},
	}
	for _, tt := range tests {
		got, err := b.Evaluate(ctx, tt.script)
		require.NoError(t, err, tt.script)
		assert.Equal(t, tt.want, got, tt.script)
	}

	got, err := b.Evaluate(ctx, "document.getElementById('v').duration;")
	require.NoError(t, err)
	n, err := got.Number()
	require.NoError(t, err)
	assert.True(t, math.IsNaN(n))
}

func TestCDP_ExecuteThenEvaluate(t *testing.T) {
	b, _ := cdpBridge(t)
	ctx := context.Background()

	require.NoError(t, b.Execute(ctx, "window['media-v'] = document.getElementById('v')"))
	require.NoError(t, b.Execute(ctx, "window['media-v'].currentTime = 120;"))

	got, err := b.Evaluate(ctx, "window['media-v'].currentTime;")
	require.NoError(t, err)
	assert.Equal(t, bridge.NumberValue(120), got)
}

func TestCDP_ScriptError(t *testing.T) {
	b, _ := cdpBridge(t)

	err := b.Execute(context.Background(), "window['media-none'].play();")

	var scriptErr *bridge.ScriptError
	require.ErrorAs(t, err, &scriptErr)
	assert.Equal(t, "window['media-none'].play();", scriptErr.Script)
	assert.Contains(t, scriptErr.Message, "TypeError")
	assert.ErrorIs(t, err, bridge.ErrScript)

	var exc *chrome.ExceptionError
	assert.ErrorAs(t, err, &exc)
}

func TestCDP_NonScalar(t *testing.T) {
	b, _ := cdpBridge(t)

	_, err := b.Evaluate(context.Background(), "document.getElementById('v');")

	var typeErr *bridge.TypeError
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, "object", typeErr.Got)
}

func TestCDP_TransportErrorPassesThrough(t *testing.T) {
	b, d := cdpBridge(t)
	d.Handle("Runtime.evaluate", func(testutil.Call) testutil.Reply {
		return testutil.Reply{NoReply: true}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := b.Execute(ctx, "1;")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.False(t, errors.Is(err, bridge.ErrScript))
}
