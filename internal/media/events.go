package media

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// AddEventListener installs a page-side counter for event on the element:
// the counter global is reset to 0 and a fresh callback incrementing it is
// attached. Calling it again for the same event resets the count and
// replaces the callback global, but a callback attached earlier stays
// attached until RemoveEventListener detaches it.
func (h *Handle) AddEventListener(ctx context.Context, event string) error {
	count := counterSlot(h.id, event)
	callback := callbackSlot(h.id, event)

	scripts := []string{
		count + " = 0;",
		callback + " = function() { " + count + " += 1; };",
		h.ref + ".addEventListener(" + quote(event) + ", " + callback + ");",
	}
	for _, s := range scripts {
		if err := h.b.Execute(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// EventCount returns how many times event fired since AddEventListener.
// It returns ErrNotCounting if no counter is installed.
func (h *Handle) EventCount(ctx context.Context, event string) (int, error) {
	v, err := h.b.Evaluate(ctx, counterSlot(h.id, event)+";")
	if err != nil {
		return 0, err
	}
	if v.IsNull() {
		return 0, ErrNotCounting
	}
	n, err := v.Number()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// RemoveEventListener detaches the counting callback and clears both
// globals. It is safe to call when nothing was installed: the page ignores
// removing a null listener.
func (h *Handle) RemoveEventListener(ctx context.Context, event string) error {
	count := counterSlot(h.id, event)
	callback := callbackSlot(h.id, event)

	scripts := []string{
		h.ref + ".removeEventListener(" + quote(event) + ", " + callback + ");",
		callback + " = null;",
		count + " = null;",
	}
	for _, s := range scripts {
		if err := h.b.Execute(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

const (
	// SampleEvent is the event IsPlaying counts.
	SampleEvent = "timeupdate"
	// SampleWindow is how long IsPlaying counts for.
	SampleWindow = 3 * time.Second
	// CleanupTimeout bounds the listener removal IsPlaying runs after
	// sampling, which is not tied to the caller's deadline.
	CleanupTimeout = 5 * time.Second
	// PlayingThreshold is the count IsPlaying must exceed. Browsers fire
	// timeupdate every 15 to 250ms while playing, so a playing element
	// clears it comfortably within SampleWindow.
	PlayingThreshold = 3
)

// IsPlaying reports whether the element appears to be playing: it counts
// timeupdate events for SampleWindow and compares the count against
// PlayingThreshold. This is a heuristic. A throttled background tab or a
// stalled stream can read as not playing.
//
// The caller is blocked on the handle's clock for the whole window and the
// wait is not cancellable. The counter is removed whether or not reading it
// succeeded, and even when ctx ended during the wait: removal runs under
// its own CleanupTimeout.
func (h *Handle) IsPlaying(ctx context.Context) (bool, error) {
	if err := h.AddEventListener(ctx, SampleEvent); err != nil {
		return false, err
	}

	h.clock.Sleep(SampleWindow)

	count, countErr := h.EventCount(ctx, SampleEvent)

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), CleanupTimeout)
	defer cancel()
	removeErr := h.RemoveEventListener(cleanupCtx, SampleEvent)

	if countErr != nil && !errors.Is(countErr, ErrNotCounting) {
		return false, countErr
	}
	if removeErr != nil {
		return false, removeErr
	}

	playing := countErr == nil && count > PlayingThreshold
	h.log.Debug("sampled playback", zap.Int("events", count), zap.Bool("playing", playing))
	return playing, nil
}
