package main

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/tomyan/mediactl/internal/bridge"
	"github.com/tomyan/mediactl/internal/chrome"
)

// openBridge connects to the browser, picks the target page and wraps it in
// the configured driver. The DevTools client is always used for discovery;
// rod and chromedp then attach to the same page over their own connection.
func openBridge(ctx context.Context, cfg *Config, log *zap.Logger) (bridge.Bridge, func(), error) {
	client, err := chrome.Connect(ctx, cfg.Host, cfg.Port, chrome.WithLogger(log))
	if err != nil {
		return nil, nil, &connError{err}
	}
	closeClient := func() { client.Close() }

	page, err := client.ResolvePage(ctx, cfg.Target)
	if err != nil {
		client.Close()
		return nil, nil, err
	}

	switch cfg.Driver {
	case "", "cdp":
		return bridge.NewCDP(client, page.ID), closeClient, nil

	case "rod":
		browser := rod.New().ControlURL(client.WebSocketURL()).Context(ctx)
		if err := browser.Connect(); err != nil {
			client.Close()
			return nil, nil, &connError{fmt.Errorf("connecting rod: %w", err)}
		}
		p, err := browser.PageFromTarget(proto.TargetTargetID(page.ID))
		if err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("attaching rod to %s: %w", page.ID, err)
		}
		// Browser.Close would shut the whole browser down, so the rod
		// connection is left to the process exit.
		return bridge.NewRod(p), closeClient, nil

	case "chromedp":
		// Cancelling a chromedp context attached with WithTargetID closes
		// that tab, so both contexts live until the process exits.
		alloc, _ := chromedp.NewRemoteAllocator(context.Background(), client.WebSocketURL())
		tab, _ := chromedp.NewContext(alloc, chromedp.WithTargetID(target.ID(page.ID)))
		return bridge.NewChromedp(tab), closeClient, nil

	default:
		client.Close()
		return nil, nil, fmt.Errorf("unknown driver: %s (want cdp, rod or chromedp)", cfg.Driver)
	}
}
