package media

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"github.com/tomyan/mediactl/internal/bridge"
)

// Handle controls one bound media element. Every method is a single round
// trip through the bridge, except Size which makes two and IsPlaying which
// samples over time. A Handle is not safe for concurrent use.
type Handle struct {
	b     bridge.Bridge
	kind  Kind
	id    string
	ref   string
	clock clock.Clock
	log   *zap.Logger
}

// Size is the rendered size of the element in CSS pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func newHandle(b bridge.Bridge, kind Kind, id string, o options) *Handle {
	return &Handle{
		b:     b,
		kind:  kind,
		id:    id,
		ref:   elementSlot(id),
		clock: o.clock,
		log:   o.log.Named("media").With(zap.String("id", id), zap.Stringer("kind", kind)),
	}
}

// ID returns the handle identifier.
func (h *Handle) ID() string { return h.id }

// Kind returns the media kind the handle was resolved for.
func (h *Handle) Kind() Kind { return h.kind }

// Ref returns the script expression naming the bound element.
func (h *Handle) Ref() string { return h.ref }

// Bridge returns the bridge the handle talks through.
func (h *Handle) Bridge() bridge.Bridge { return h.b }

func (h *Handle) Play(ctx context.Context) error {
	return h.b.Execute(ctx, h.ref+".play();")
}

func (h *Handle) Pause(ctx context.Context) error {
	return h.b.Execute(ctx, h.ref+".pause();")
}

// SeekTo sets the playback position, truncated toward zero to whole
// seconds. seconds may be any integer or float type, a time.Duration, or a
// string holding a decimal number.
func (h *Handle) SeekTo(ctx context.Context, seconds interface{}) error {
	pos, err := wholeSeconds(seconds)
	if err != nil {
		return err
	}
	return h.b.Execute(ctx, h.ref+".currentTime = "+strconv.FormatInt(pos, 10)+";")
}

func (h *Handle) CurrentTime(ctx context.Context) (float64, error) {
	return h.number(ctx, "currentTime")
}

// Duration returns the media duration in seconds. It is NaN before metadata
// loads and +Inf for unbounded streams.
func (h *Handle) Duration(ctx context.Context) (float64, error) {
	return h.number(ctx, "duration")
}

func (h *Handle) CurrentSrc(ctx context.Context) (string, error) {
	v, err := h.b.Evaluate(ctx, h.ref+".currentSrc;")
	if err != nil {
		return "", err
	}
	return v.Text()
}

func (h *Handle) Mute(ctx context.Context) error {
	return h.b.Execute(ctx, h.ref+".muted = true;")
}

func (h *Handle) Unmute(ctx context.Context) error {
	return h.b.Execute(ctx, h.ref+".muted = false;")
}

func (h *Handle) Muted(ctx context.Context) (bool, error) {
	v, err := h.b.Evaluate(ctx, h.ref+".muted;")
	if err != nil {
		return false, err
	}
	return v.Bool()
}

// SetVolume sets the volume. The value is passed to the page as is; the
// page rejects anything outside [0, 1].
func (h *Handle) SetVolume(ctx context.Context, v float64) error {
	return h.b.Execute(ctx, h.ref+".volume = "+bridge.Literal(v)+";")
}

func (h *Handle) Volume(ctx context.Context) (float64, error) {
	return h.number(ctx, "volume")
}

// Size reads the width then the height in two separate calls; a resize in
// between is observed half way.
func (h *Handle) Size(ctx context.Context) (Size, error) {
	w, err := h.number(ctx, "clientWidth")
	if err != nil {
		return Size{}, err
	}
	ht, err := h.number(ctx, "clientHeight")
	if err != nil {
		return Size{}, err
	}
	return Size{Width: int(w), Height: int(ht)}, nil
}

func (h *Handle) number(ctx context.Context, property string) (float64, error) {
	v, err := h.b.Evaluate(ctx, h.ref+"."+property+";")
	if err != nil {
		return 0, err
	}
	return v.Number()
}

func wholeSeconds(v interface{}) (int64, error) {
	var f float64
	switch s := v.(type) {
	case int:
		return int64(s), nil
	case int8:
		return int64(s), nil
	case int16:
		return int64(s), nil
	case int32:
		return int64(s), nil
	case int64:
		return s, nil
	case uint:
		return unsignedSeconds(uint64(s))
	case uint8:
		return int64(s), nil
	case uint16:
		return int64(s), nil
	case uint32:
		return int64(s), nil
	case uint64:
		return unsignedSeconds(s)
	case time.Duration:
		return int64(s / time.Second), nil
	case float32:
		f = float64(s)
	case float64:
		f = s
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: seek position %q is not a number", ErrInvalidArgument, s)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("%w: seek position of type %T", ErrInvalidArgument, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: seek position %v", ErrInvalidArgument, f)
	}
	// float64(math.MaxInt64) is 2^63, the first value that does not fit.
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%w: seek position %v out of range", ErrInvalidArgument, f)
	}
	return int64(math.Trunc(f)), nil
}

func unsignedSeconds(u uint64) (int64, error) {
	if u > math.MaxInt64 {
		return 0, fmt.Errorf("%w: seek position %d out of range", ErrInvalidArgument, u)
	}
	return int64(u), nil
}
