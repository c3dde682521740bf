package chrome

import (
	"context"
	"encoding/json"
	"fmt"
)

// Evaluate runs expression in the target's main world. With byValue the
// result is serialised into RemoteObject.Value; otherwise only the type and
// description come back, which is all fire-and-forget callers need.
func (c *Client) Evaluate(ctx context.Context, targetID string, expression string, byValue bool) (*RemoteObject, error) {
	sessionID, err := c.attachToTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if err := c.enableRuntime(ctx, sessionID); err != nil {
		return nil, err
	}

	result, err := c.CallSession(ctx, sessionID, "Runtime.evaluate", map[string]interface{}{
		"expression":    expression,
		"returnByValue": byValue,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluating expression: %w", err)
	}

	var resp struct {
		Result           RemoteObject      `json:"result"`
		ExceptionDetails *exceptionDetails `json:"exceptionDetails"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return nil, fmt.Errorf("parsing eval response: %w", err)
	}

	if resp.ExceptionDetails != nil {
		return nil, resp.ExceptionDetails.err()
	}

	return &resp.Result, nil
}

// Eval evaluates expression and returns its value serialised by value.
func (c *Client) Eval(ctx context.Context, targetID string, expression string) (*RemoteObject, error) {
	return c.Evaluate(ctx, targetID, expression, true)
}

// Execute runs script and discards its result. Script exceptions are still
// reported as *ExceptionError.
func (c *Client) Execute(ctx context.Context, targetID string, script string) error {
	_, err := c.Evaluate(ctx, targetID, script, false)
	return err
}

func (c *Client) enableRuntime(ctx context.Context, sessionID string) error {
	c.sessionsMu.Lock()
	enabled := c.runtimeEnabled[sessionID]
	c.sessionsMu.Unlock()
	if enabled {
		return nil
	}

	if _, err := c.CallSession(ctx, sessionID, "Runtime.enable", nil); err != nil {
		return fmt.Errorf("enabling Runtime domain: %w", err)
	}

	c.sessionsMu.Lock()
	c.runtimeEnabled[sessionID] = true
	c.sessionsMu.Unlock()
	return nil
}
