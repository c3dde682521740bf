package media

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"github.com/tomyan/mediactl/internal/bridge"
)

// Locator addresses a node by a structural path.
type Locator interface {
	Path() string
}

// XPath is a Locator holding an XPath expression.
type XPath string

func (p XPath) Path() string { return string(p) }

type options struct {
	id      string
	hasID   bool
	locator Locator
	ids     IDSource
	clock   clock.Clock
	log     *zap.Logger
}

// Option configures Resolve and Attach.
type Option func(*options)

// WithID resolves the element whose id attribute is id and uses id as the
// handle identifier. An empty id is rejected by Resolve.
func WithID(id string) Option {
	return func(o *options) {
		o.id = id
		o.hasID = true
	}
}

// WithLocator resolves the first node, in document order, matched by the
// locator's XPath. Ignored when WithID is also given.
func WithLocator(l Locator) Option {
	return func(o *options) {
		o.locator = l
	}
}

// WithIDSource replaces the default RandomIDs generator.
func WithIDSource(ids IDSource) Option {
	return func(o *options) {
		if ids != nil {
			o.ids = ids
		}
	}
}

// WithClock sets the clock IsPlaying waits on.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogger sets the handle's logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		ids:   RandomIDs{},
		clock: clock.RealClock{},
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Resolve binds a media element of the page to a page global and returns a
// Handle for it. With WithID the element is looked up by id; with
// WithLocator by XPath; otherwise the first element of kind in the document
// is used.
//
// Resolve never checks that anything matched. A missing element binds null
// and later operations fail, or read null, in the page.
func Resolve(ctx context.Context, b bridge.Bridge, kind Kind, opts ...Option) (*Handle, error) {
	o := buildOptions(opts)
	if o.hasID && o.id == "" {
		return nil, fmt.Errorf("%w: a valid identifier is required", ErrInvalidArgument)
	}

	var id, lookup, strategy string
	switch {
	case o.hasID:
		id = o.id
		lookup = "document.getElementById(" + quote(id) + ")"
		strategy = "id"
	case o.locator != nil:
		id = o.ids.NextID()
		lookup = "document.evaluate(" + quote(o.locator.Path()) +
			", document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue"
		strategy = "locator"
	default:
		id = o.ids.NextID()
		lookup = "document.getElementsByTagName(" + quote(string(kind)) + ")[0]"
		strategy = "tag"
	}

	h := newHandle(b, kind, id, o)
	if err := b.Execute(ctx, h.ref+" = "+lookup); err != nil {
		return nil, err
	}
	h.log.Debug("bound element", zap.String("strategy", strategy))
	return h, nil
}

// NewAudio resolves an <audio> element.
func NewAudio(ctx context.Context, b bridge.Bridge, opts ...Option) (*Handle, error) {
	return Resolve(ctx, b, Audio, opts...)
}

// NewVideo resolves a <video> element.
func NewVideo(ctx context.Context, b bridge.Bridge, opts ...Option) (*Handle, error) {
	return Resolve(ctx, b, Video, opts...)
}

// Attach returns a Handle for an identifier bound by an earlier Resolve,
// possibly in another process, without touching the page.
func Attach(b bridge.Bridge, kind Kind, id string, opts ...Option) (*Handle, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: a valid identifier is required", ErrInvalidArgument)
	}
	return newHandle(b, kind, id, buildOptions(opts)), nil
}
