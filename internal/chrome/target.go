package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Targets returns all browser targets (pages, workers, etc.).
func (c *Client) Targets(ctx context.Context) ([]TargetInfo, error) {
	result, err := c.Call(ctx, "Target.getTargets", nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		TargetInfos []struct {
			TargetID string `json:"targetId"`
			Type     string `json:"type"`
			Title    string `json:"title"`
			URL      string `json:"url"`
		} `json:"targetInfos"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling targets: %w", err)
	}

	targets := make([]TargetInfo, 0, len(resp.TargetInfos))
	for _, t := range resp.TargetInfos {
		targets = append(targets, TargetInfo{
			ID:    t.TargetID,
			Type:  t.Type,
			Title: t.Title,
			URL:   t.URL,
		})
	}

	return targets, nil
}

// Pages returns only page targets (tabs).
func (c *Client) Pages(ctx context.Context) ([]TargetInfo, error) {
	targets, err := c.Targets(ctx)
	if err != nil {
		return nil, err
	}

	pages := make([]TargetInfo, 0)
	for _, t := range targets {
		if t.Type == "page" {
			pages = append(pages, t)
		}
	}
	return pages, nil
}

// ResolvePage picks a page by selector: empty means the first page, a
// number is an index into Pages, anything else is a target ID.
func (c *Client) ResolvePage(ctx context.Context, selector string) (*TargetInfo, error) {
	pages, err := c.Pages(ctx)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, ErrNoPages
	}

	if selector == "" {
		return &pages[0], nil
	}

	if idx, err := strconv.Atoi(selector); err == nil {
		if idx < 0 || idx >= len(pages) {
			return nil, fmt.Errorf("invalid target index: %d (have %d pages)", idx, len(pages))
		}
		return &pages[idx], nil
	}

	for i := range pages {
		if pages[i].ID == selector {
			return &pages[i], nil
		}
	}

	return nil, fmt.Errorf("invalid target: %s (not found)", selector)
}

// NewTab creates a new browser tab and returns its target ID.
func (c *Client) NewTab(ctx context.Context, url string) (string, error) {
	if url == "" {
		url = "about:blank"
	}

	result, err := c.Call(ctx, "Target.createTarget", map[string]interface{}{
		"url": url,
	})
	if err != nil {
		return "", fmt.Errorf("creating target: %w", err)
	}

	var resp struct {
		TargetID string `json:"targetId"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}

	return resp.TargetID, nil
}

// CloseTab closes a browser tab by its target ID.
func (c *Client) CloseTab(ctx context.Context, targetID string) error {
	c.forgetTarget(targetID)

	_, err := c.Call(ctx, "Target.closeTarget", map[string]interface{}{
		"targetId": targetID,
	})
	if err != nil {
		return fmt.Errorf("closing target: %w", err)
	}
	return nil
}

// NavigateAndWait navigates to a URL and waits for the page load event.
func (c *Client) NavigateAndWait(ctx context.Context, targetID string, url string) (*NavigateResult, error) {
	sessionID, err := c.attachToTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if _, err := c.CallSession(ctx, sessionID, "Page.enable", nil); err != nil {
		return nil, fmt.Errorf("enabling Page domain: %w", err)
	}

	// Subscribe before navigating so a fast load is not missed.
	loadCh := c.subscribeEvent(sessionID, "Page.loadEventFired")
	defer c.unsubscribeEvent(sessionID, "Page.loadEventFired", loadCh)

	navResult, err := c.CallSession(ctx, sessionID, "Page.navigate", map[string]string{
		"url": url,
	})
	if err != nil {
		return nil, fmt.Errorf("navigating: %w", err)
	}

	var navResp struct {
		FrameID   string `json:"frameId"`
		LoaderID  string `json:"loaderId"`
		ErrorText string `json:"errorText"`
	}
	if err := json.Unmarshal(navResult, &navResp); err != nil {
		return nil, fmt.Errorf("parsing navigate response: %w", err)
	}

	if navResp.ErrorText != "" {
		return &NavigateResult{
			FrameID:   navResp.FrameID,
			ErrorText: navResp.ErrorText,
			URL:       url,
		}, nil
	}

	select {
	case <-loadCh:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(30 * time.Second):
		return nil, fmt.Errorf("timeout waiting for page load")
	}

	return &NavigateResult{
		FrameID:  navResp.FrameID,
		LoaderID: navResp.LoaderID,
		URL:      url,
	}, nil
}
