package bridge_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomyan/mediactl/internal/bridge"
	"github.com/tomyan/mediactl/internal/testutil"
)

const driverPage = `<video id="v" width="320" height="180"></video>`

func startChrome(t *testing.T, port int) *testutil.ChromeInstance {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	instance, err := testutil.StartChrome(port)
	if errors.Is(err, testutil.ErrChromeNotFound) {
		t.Skip("Chrome not installed")
	}
	require.NoError(t, err)
	t.Cleanup(func() { instance.Stop() })
	return instance
}

// exercise runs the same script sequence against any driver.
func exercise(t *testing.T, b bridge.Bridge) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, b.Execute(ctx, "window['media-v'] = document.getElementById('v')"))

	w, err := b.Evaluate(ctx, "window['media-v'].clientWidth;")
	require.NoError(t, err)
	assert.Equal(t, bridge.NumberValue(320), w)

	require.NoError(t, b.Execute(ctx, "window['media-v'].muted = true;"))
	muted, err := b.Evaluate(ctx, "window['media-v'].muted;")
	require.NoError(t, err)
	assert.Equal(t, bridge.BoolValue(true), muted)

	d, err := b.Evaluate(ctx, "window['media-v'].duration;")
	require.NoError(t, err)
	assert.Equal(t, "NaN", d.String())

	none, err := b.Evaluate(ctx, "window['media-v-play-count'];")
	require.NoError(t, err)
	assert.True(t, none.IsNull())

	err = b.Execute(ctx, "window['media-v'].volume = 2;")
	assert.ErrorIs(t, err, bridge.ErrScript)

	_, err = b.Evaluate(ctx, "window['media-v'];")
	var typeErr *bridge.TypeError
	assert.ErrorAs(t, err, &typeErr)
}

func TestCDP_RealChrome(t *testing.T) {
	instance := startChrome(t, 9321)
	client, targetID := instance.OpenPage(t, driverPage)

	exercise(t, bridge.NewCDP(client, targetID))
}

func TestRod_RealChrome(t *testing.T) {
	instance := startChrome(t, 9322)
	client, targetID := instance.OpenPage(t, driverPage)

	browser := rod.New().ControlURL(client.WebSocketURL())
	require.NoError(t, browser.Connect())
	t.Cleanup(func() { browser.Close() })

	p, err := browser.PageFromTarget(proto.TargetTargetID(targetID))
	require.NoError(t, err)

	exercise(t, bridge.NewRod(p))
}

func TestChromedp_RealChrome(t *testing.T) {
	instance := startChrome(t, 9323)
	client, targetID := instance.OpenPage(t, driverPage)

	alloc, cancelAlloc := chromedp.NewRemoteAllocator(context.Background(), client.WebSocketURL())
	t.Cleanup(cancelAlloc)
	tab, cancelTab := chromedp.NewContext(alloc, chromedp.WithTargetID(target.ID(targetID)))
	t.Cleanup(cancelTab)

	exercise(t, bridge.NewChromedp(tab))
}
