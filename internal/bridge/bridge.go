// Package bridge defines the boundary to a scriptable browser page and the
// adapters that implement it over the DevTools client, go-rod and chromedp.
//
// A Bridge offers exactly two primitives. Execute runs a script for its side
// effects and reads nothing back. Evaluate runs an expression and returns a
// Scalar. Everything the media package does is expressed through these two
// calls, so any page driver that can run script can host it.
package bridge

import (
	"context"
	"errors"
	"fmt"
)

// Bridge runs script against a single page.
type Bridge interface {
	// Execute runs script and discards its result.
	Execute(ctx context.Context, script string) error
	// Evaluate runs script and returns its value.
	Evaluate(ctx context.Context, script string) (Scalar, error)
}

// ErrScript matches every *ScriptError.
var ErrScript = errors.New("script error")

// ScriptError reports an exception thrown by the page while running script.
type ScriptError struct {
	Script  string
	Message string
	Err     error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("script %q: %s", e.Script, e.Message)
}

func (e *ScriptError) Is(target error) bool {
	return target == ErrScript
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

// TypeError reports a value of the wrong shape: either a non-scalar result
// from Evaluate, or a Scalar narrowed to a kind it does not hold.
type TypeError struct {
	Want string
	Got  string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("unexpected %s value, want %s", e.Got, e.Want)
}
