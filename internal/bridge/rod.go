package bridge

import (
	"context"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Rod runs script in a go-rod page. It issues Runtime.evaluate directly
// rather than going through Page.Eval, which wraps its argument in a
// function and would reject statement scripts such as "x = 1;".
type Rod struct {
	page *rod.Page
}

// NewRod binds a Bridge to page.
func NewRod(page *rod.Page) *Rod {
	return &Rod{page: page}
}

func (b *Rod) Execute(ctx context.Context, script string) error {
	_, err := b.evaluate(ctx, script, false)
	return err
}

func (b *Rod) Evaluate(ctx context.Context, script string) (Scalar, error) {
	obj, err := b.evaluate(ctx, script, true)
	if err != nil {
		return Scalar{}, err
	}
	return FromRemote(
		string(obj.Type),
		string(obj.Subtype),
		[]byte(obj.Value.JSON("", "")),
		string(obj.UnserializableValue),
	)
}

func (b *Rod) evaluate(ctx context.Context, script string, byValue bool) (*proto.RuntimeRemoteObject, error) {
	res, err := proto.RuntimeEvaluate{
		Expression:    script,
		ReturnByValue: byValue,
	}.Call(b.page.Context(ctx))
	if err != nil {
		return nil, err
	}
	if exc := res.ExceptionDetails; exc != nil {
		msg := exc.Text
		if exc.Exception != nil && exc.Exception.Description != "" {
			msg = exc.Exception.Description
		}
		return nil, &ScriptError{Script: script, Message: msg}
	}
	return res.Result, nil
}
