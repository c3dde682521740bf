// Package media finds an <audio> or <video> element in a page reached
// through a bridge.Bridge and controls it.
//
// Resolution binds the element once to a page global, window['media-<id>'],
// and every later operation addresses the element only through that global.
// Nothing is cached in process: a Handle is just the identifier plus the
// bridge, and all state lives in the page.
//
// Identifiers generated for locator and implicit resolution are random
// five digit strings and are not checked for collisions. Two handles that
// draw the same identifier in one page overwrite each other's binding and
// event counters; use WithIDSource(&SequentialIDs{}) where that matters.
package media

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for input rejected before any script runs.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotCounting is returned by EventCount when no counter is installed
	// for the event.
	ErrNotCounting = errors.New("no event counter installed")
)

// Kind selects the tag implicit resolution looks for.
type Kind string

const (
	Audio Kind = "audio"
	Video Kind = "video"
)

// ParseKind maps "audio" or "video" to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Audio, Video:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("%w: media kind %q (want audio or video)", ErrInvalidArgument, s)
	}
}

func (k Kind) String() string { return string(k) }
