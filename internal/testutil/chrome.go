// Package testutil provides test fixtures: a headless Chrome for
// integration tests and Host, an in-process page for unit tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"testing"
	"time"

	"github.com/tomyan/mediactl/internal/chrome"
)

// ErrChromeNotFound is returned by StartChrome when no browser binary is installed.
var ErrChromeNotFound = errors.New("Chrome not found")

// ChromeInstance represents a running Chrome instance for testing.
type ChromeInstance struct {
	cmd     *exec.Cmd
	Port    int
	dataDir string
}

// StartChrome starts a headless Chrome instance on the specified port.
// Returns a ChromeInstance that must be stopped with Stop().
func StartChrome(port int) (*ChromeInstance, error) {
	chromePath := FindChrome()
	if chromePath == "" {
		return nil, ErrChromeNotFound
	}

	dataDir, err := os.MkdirTemp("", "mediactl-test-chrome-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	args := []string{
		"--headless",
		"--disable-gpu",
		"--no-sandbox",
		"--disable-dev-shm-usage",
		"--disable-extensions",
		"--disable-background-networking",
		"--disable-sync",
		"--mute-audio",
		"--no-first-run",
		"--autoplay-policy=no-user-gesture-required",
		fmt.Sprintf("--remote-debugging-port=%d", port),
		fmt.Sprintf("--user-data-dir=%s", dataDir),
		"about:blank",
	}

	cmd := exec.Command(chromePath, args...)
	if err := cmd.Start(); err != nil {
		os.RemoveAll(dataDir)
		return nil, fmt.Errorf("failed to start Chrome: %w", err)
	}

	instance := &ChromeInstance{
		cmd:     cmd,
		Port:    port,
		dataDir: dataDir,
	}

	if err := waitForPort(port, 10*time.Second); err != nil {
		instance.Stop()
		return nil, fmt.Errorf("Chrome failed to start: %w", err)
	}

	return instance, nil
}

// Stop terminates the Chrome instance and cleans up.
func (c *ChromeInstance) Stop() error {
	if c.cmd != nil && c.cmd.Process != nil {
		c.cmd.Process.Kill()
		c.cmd.Wait()
	}
	if c.dataDir != "" {
		os.RemoveAll(c.dataDir)
	}
	return nil
}

// OpenPage connects to the instance, opens a tab showing page and returns
// the client and tab. Both are cleaned up when the test ends.
func (c *ChromeInstance) OpenPage(t *testing.T, page string) (*chrome.Client, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := chrome.Connect(ctx, "localhost", c.Port)
	if err != nil {
		t.Fatalf("connecting to Chrome: %v", err)
	}

	targetID, err := client.NewTab(ctx, "")
	if err != nil {
		client.Close()
		t.Fatalf("opening tab: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client.CloseTab(ctx, targetID)
		client.Close()
	})

	if _, err := client.NavigateAndWait(ctx, targetID, "data:text/html,"+url.PathEscape(page)); err != nil {
		t.Fatalf("loading page: %v", err)
	}
	return client, targetID
}

// FindChrome locates the Chrome binary on the system.
func FindChrome() string {
	if path, err := exec.LookPath("google-chrome"); err == nil {
		return path
	}
	if path, err := exec.LookPath("chromium"); err == nil {
		return path
	}

	var paths []string
	switch runtime.GOOS {
	case "darwin":
		paths = []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	case "linux":
		paths = []string{
			"/usr/bin/google-chrome",
			"/usr/bin/google-chrome-stable",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
			"/snap/bin/chromium",
		}
	case "windows":
		paths = []string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		}
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

func waitForPort(port int, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	addr := fmt.Sprintf("localhost:%d", port)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for port %d", port)
		case <-ticker.C:
			conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
			if err == nil {
				conn.Close()
				return nil
			}
		}
	}
}
