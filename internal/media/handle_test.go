package media

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tomyan/mediactl/internal/bridge"
)

func attached(t *testing.T, b bridge.Bridge) *Handle {
	t.Helper()
	h, err := Attach(b, Video, "my-id")
	require.NoError(t, err)
	return h
}

func TestHandle_Executes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		call func(*Handle, context.Context) error
		want string
	}{
		{"play", (*Handle).Play, "window['media-my-id'].play();"},
		{"pause", (*Handle).Pause, "window['media-my-id'].pause();"},
		{"mute", (*Handle).Mute, "window['media-my-id'].muted = true;"},
		{"unmute", (*Handle).Unmute, "window['media-my-id'].muted = false;"},
		{"seek int", func(h *Handle, ctx context.Context) error { return h.SeekTo(ctx, 120) }, "window['media-my-id'].currentTime = 120;"},
		{"seek float", func(h *Handle, ctx context.Context) error { return h.SeekTo(ctx, 120.3) }, "window['media-my-id'].currentTime = 120;"},
		{"seek float below half", func(h *Handle, ctx context.Context) error { return h.SeekTo(ctx, 59.9) }, "window['media-my-id'].currentTime = 59;"},
		{"seek string", func(h *Handle, ctx context.Context) error { return h.SeekTo(ctx, "120") }, "window['media-my-id'].currentTime = 120;"},
		{"seek decimal string", func(h *Handle, ctx context.Context) error { return h.SeekTo(ctx, " 7.75 ") }, "window['media-my-id'].currentTime = 7;"},
		{"seek duration", func(h *Handle, ctx context.Context) error { return h.SeekTo(ctx, 90*time.Second+500*time.Millisecond) }, "window['media-my-id'].currentTime = 90;"},
		{"seek int64", func(h *Handle, ctx context.Context) error { return h.SeekTo(ctx, int64(5)) }, "window['media-my-id'].currentTime = 5;"},
		{"seek float32", func(h *Handle, ctx context.Context) error { return h.SeekTo(ctx, float32(2.5)) }, "window['media-my-id'].currentTime = 2;"},
		{"seek zero", func(h *Handle, ctx context.Context) error { return h.SeekTo(ctx, 0) }, "window['media-my-id'].currentTime = 0;"},
		{"seek negative fraction truncates toward zero", func(h *Handle, ctx context.Context) error { return h.SeekTo(ctx, -1.7) }, "window['media-my-id'].currentTime = -1;"},
		{"seek negative string", func(h *Handle, ctx context.Context) error { return h.SeekTo(ctx, "-1.7") }, "window['media-my-id'].currentTime = -1;"},
		{"seek int8", func(h *Handle, ctx context.Context) error { return h.SeekTo(ctx, int8(8)) }, "window['media-my-id'].currentTime = 8;"},
		{"seek int16", func(h *Handle, ctx context.Context) error { return h.SeekTo(ctx, int16(16)) }, "window['media-my-id'].currentTime = 16;"},
		{"seek uint", func(h *Handle, ctx context.Context) error { return h.SeekTo(ctx, uint(3)) }, "window['media-my-id'].currentTime = 3;"},
		{"seek uint8", func(h *Handle, ctx context.Context) error { return h.SeekTo(ctx, uint8(200)) }, "window['media-my-id'].currentTime = 200;"},
		{"seek uint16", func(h *Handle, ctx context.Context) error { return h.SeekTo(ctx, uint16(600)) }, "window['media-my-id'].currentTime = 600;"},
		{"seek uint64", func(h *Handle, ctx context.Context) error { return h.SeekTo(ctx, uint64(5)) }, "window['media-my-id'].currentTime = 5;"},
		{"seek large float", func(h *Handle, ctx context.Context) error { return h.SeekTo(ctx, 1e18) }, "window['media-my-id'].currentTime = 1000000000000000000;"},
		{"volume half", func(h *Handle, ctx context.Context) error { return h.SetVolume(ctx, 0.5) }, "window['media-my-id'].volume = 0.5;"},
		{"volume full", func(h *Handle, ctx context.Context) error { return h.SetVolume(ctx, 1) }, "window['media-my-id'].volume = 1;"},
		{"volume out of range passes through", func(h *Handle, ctx context.Context) error { return h.SetVolume(ctx, 3) }, "window['media-my-id'].volume = 3;"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := &mockBridge{}
			m.On("Execute", tt.want).Return(nil).Once()

			require.NoError(t, tt.call(attached(t, m), context.Background()))
			m.AssertExpectations(t)
			m.AssertNotCalled(t, "Evaluate", mock.Anything)
		})
	}
}

func TestHandle_SeekToInvalid(t *testing.T) {
	t.Parallel()

	for _, v := range []interface{}{
		"soon", "", nil, []int{1}, math.NaN(), math.Inf(1),
		1e20, -1e20, "1e20", math.Exp2(63), uint64(math.MaxUint64),
	} {
		m := &mockBridge{}
		err := attached(t, m).SeekTo(context.Background(), v)
		assert.ErrorIs(t, err, ErrInvalidArgument, "value %#v", v)
		m.AssertNotCalled(t, "Execute", mock.Anything)
	}
}

func TestHandle_Reads(t *testing.T) {
	t.Parallel()

	m := &mockBridge{}
	m.On("Evaluate", "window['media-my-id'].currentTime;").Return(bridge.NumberValue(100), nil)
	m.On("Evaluate", "window['media-my-id'].duration;").Return(bridge.NumberValue(600), nil)
	m.On("Evaluate", "window['media-my-id'].currentSrc;").Return(bridge.StringValue("http://example.com/movie.mp4"), nil)
	m.On("Evaluate", "window['media-my-id'].muted;").Return(bridge.BoolValue(true), nil)
	m.On("Evaluate", "window['media-my-id'].volume;").Return(bridge.NumberValue(0.25), nil)

	ctx := context.Background()
	h := attached(t, m)

	pos, err := h.CurrentTime(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100.0, pos)

	d, err := h.Duration(ctx)
	require.NoError(t, err)
	assert.Equal(t, 600.0, d)

	src, err := h.CurrentSrc(ctx)
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/movie.mp4", src)

	muted, err := h.Muted(ctx)
	require.NoError(t, err)
	assert.True(t, muted)

	vol, err := h.Volume(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.25, vol)

	m.AssertExpectations(t)
	m.AssertNotCalled(t, "Execute", mock.Anything)
}

func TestHandle_DurationNotANumber(t *testing.T) {
	t.Parallel()

	m := &mockBridge{}
	m.On("Evaluate", "window['media-my-id'].duration;").Return(bridge.NumberValue(math.NaN()), nil)

	d, err := attached(t, m).Duration(context.Background())
	require.NoError(t, err)
	assert.True(t, math.IsNaN(d))
}

func TestHandle_Size(t *testing.T) {
	t.Parallel()

	r := newRecorder()
	r.values["window['media-my-id'].clientWidth;"] = bridge.NumberValue(930)
	r.values["window['media-my-id'].clientHeight;"] = bridge.NumberValue(60)

	size, err := attached(t, r).Size(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Size{Width: 930, Height: 60}, size)
	assert.Equal(t, []string{
		"evaluate window['media-my-id'].clientWidth;",
		"evaluate window['media-my-id'].clientHeight;",
	}, r.Calls())
}

func TestHandle_SizeStopsAfterWidthError(t *testing.T) {
	t.Parallel()

	hostErr := errors.New("boom")
	r := newRecorder()
	r.errs["window['media-my-id'].clientWidth;"] = hostErr

	_, err := attached(t, r).Size(context.Background())
	assert.Same(t, hostErr, err)
	assert.Len(t, r.Calls(), 1)
}

func TestHandle_WrongVariant(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := &mockBridge{}
	m.On("Evaluate", "window['media-my-id'].currentTime;").Return(bridge.StringValue("100"), nil)
	m.On("Evaluate", "window['media-my-id'].currentSrc;").Return(bridge.NullValue(), nil)
	m.On("Evaluate", "window['media-my-id'].muted;").Return(bridge.NumberValue(1), nil)
	h := attached(t, m)

	var typeErr *bridge.TypeError

	_, err := h.CurrentTime(ctx)
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, "number", typeErr.Want)
	assert.Equal(t, "string", typeErr.Got)

	_, err = h.CurrentSrc(ctx)
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, "string", typeErr.Want)
	assert.Equal(t, "null", typeErr.Got)

	_, err = h.Muted(ctx)
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, "boolean", typeErr.Want)
}

func TestHandle_BridgeErrorsReturnedUnchanged(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hostErr := &bridge.ScriptError{Script: "x", Message: "TypeError: Cannot read properties of null"}
	m := &mockBridge{}
	m.On("Execute", mock.Anything).Return(hostErr)
	m.On("Evaluate", mock.Anything).Return(bridge.Scalar{}, hostErr)
	h := attached(t, m)

	assert.Same(t, hostErr, h.Play(ctx))
	assert.Same(t, hostErr, h.SeekTo(ctx, 1))
	assert.Same(t, hostErr, h.SetVolume(ctx, 0.1))

	_, err := h.CurrentTime(ctx)
	assert.Same(t, hostErr, err)
	_, err = h.CurrentSrc(ctx)
	assert.Same(t, hostErr, err)
	_, err = h.Muted(ctx)
	assert.Same(t, hostErr, err)
	assert.ErrorIs(t, err, bridge.ErrScript)
}

func TestHandle_CanceledContextReachesBridge(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h, err := Attach(newCtxBridge(), Audio, "a")
	require.NoError(t, err)

	assert.ErrorIs(t, h.Play(ctx), context.Canceled)
}

// ctxBridge fails every call whose context is done.
type ctxBridge struct{}

func newCtxBridge() ctxBridge { return ctxBridge{} }

func (ctxBridge) Execute(ctx context.Context, script string) error { return ctx.Err() }

func (ctxBridge) Evaluate(ctx context.Context, script string) (bridge.Scalar, error) {
	return bridge.NullValue(), ctx.Err()
}
