package bridge

import (
	"context"
	"errors"

	"github.com/tomyan/mediactl/internal/chrome"
)

// CDP runs script in one page through the package's own DevTools client.
type CDP struct {
	client   *chrome.Client
	targetID string
}

// NewCDP binds a Bridge to the page targetID on client.
func NewCDP(client *chrome.Client, targetID string) *CDP {
	return &CDP{client: client, targetID: targetID}
}

// TargetID returns the page this bridge drives.
func (b *CDP) TargetID() string {
	return b.targetID
}

func (b *CDP) Execute(ctx context.Context, script string) error {
	return cdpError(script, b.client.Execute(ctx, b.targetID, script))
}

func (b *CDP) Evaluate(ctx context.Context, script string) (Scalar, error) {
	obj, err := b.client.Eval(ctx, b.targetID, script)
	if err != nil {
		return Scalar{}, cdpError(script, err)
	}
	return FromRemote(obj.Type, obj.Subtype, obj.Value, obj.UnserializableValue)
}

func cdpError(script string, err error) error {
	var exc *chrome.ExceptionError
	if errors.As(err, &exc) {
		msg := exc.Description
		if msg == "" {
			msg = exc.Text
		}
		return &ScriptError{Script: script, Message: msg, Err: err}
	}
	return err
}
