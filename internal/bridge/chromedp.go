package bridge

import (
	"context"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// Chromedp runs script in the tab owned by a chromedp context.
type Chromedp struct {
	tab context.Context
}

// NewChromedp binds a Bridge to the tab of a context created with
// chromedp.NewContext. The tab context's lifetime is the caller's to manage;
// per-call contexts only bound how long a single call may block.
func NewChromedp(tab context.Context) *Chromedp {
	return &Chromedp{tab: tab}
}

func (b *Chromedp) Execute(ctx context.Context, script string) error {
	_, err := b.evaluate(ctx, script, false)
	return err
}

func (b *Chromedp) Evaluate(ctx context.Context, script string) (Scalar, error) {
	obj, err := b.evaluate(ctx, script, true)
	if err != nil {
		return Scalar{}, err
	}
	return FromRemote(
		string(obj.Type),
		string(obj.Subtype),
		[]byte(obj.Value),
		string(obj.UnserializableValue),
	)
}

func (b *Chromedp) evaluate(ctx context.Context, script string, byValue bool) (*runtime.RemoteObject, error) {
	var obj *runtime.RemoteObject
	action := chromedp.ActionFunc(func(ctx context.Context) error {
		res, exc, err := runtime.Evaluate(script).WithReturnByValue(byValue).Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			msg := exc.Text
			if exc.Exception != nil && exc.Exception.Description != "" {
				msg = exc.Exception.Description
			}
			return &ScriptError{Script: script, Message: msg}
		}
		obj = res
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(b.tab, action) }()

	select {
	case err := <-done:
		if err != nil {
			return nil, err
		}
		return obj, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
