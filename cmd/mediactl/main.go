package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"github.com/tomyan/mediactl/internal/bridge"
	"github.com/tomyan/mediactl/internal/media"
)

// Exit codes
const (
	ExitSuccess    = 0
	ExitError      = 1
	ExitConnFailed = 2
	ExitTimeout    = 3
)

// Config holds the CLI configuration.
type Config struct {
	Port    int
	Host    string
	Timeout time.Duration
	Output  string // json, ndjson, text
	Target  string // target index or ID
	Driver  string // cdp, rod, chromedp
	Kind    string // audio, video
	ID      string
	XPath   string
	Handle  string
	Listen  string // serve address
	Verbose bool
	Trace   bool

	Stdout io.Writer
	Stderr io.Writer

	// Open overrides how the page bridge is opened. If nil, openBridge
	// connects to Chrome with the configured driver.
	Open func(ctx context.Context, cfg *Config, log *zap.Logger) (bridge.Bridge, func(), error)
	// Clock overrides the clock playback sampling waits on.
	Clock clock.Clock

	log    *zap.Logger
	tracer trace.TracerProvider
}

// DefaultConfig returns the default configuration with built-in defaults.
// The rc file and environment variables are applied later in the config chain.
func DefaultConfig() *Config {
	return &Config{
		Port:    9222,
		Host:    "localhost",
		Timeout: 10 * time.Second,
		Output:  "json",
		Driver:  "cdp",
		Kind:    "video",
		Listen:  "127.0.0.1:8765",
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

func main() {
	cfg := DefaultConfig()
	os.Exit(run(os.Args[1:], cfg))
}

// flagValues stores values parsed from CLI flags before they get overwritten.
type flagValues struct {
	port    int
	host    string
	timeout time.Duration
	output  string
	target  string
	driver  string
	kind    string
	id      string
	xpath   string
	handle  string
	listen  string
	verbose bool
	trace   bool
}

func run(args []string, cfg *Config) int {
	var fv flagValues
	fs := flag.NewFlagSet("mediactl", flag.ContinueOnError)
	fs.SetOutput(cfg.Stderr)
	fs.IntVar(&fv.port, "port", cfg.Port, "Chrome debug port (env: MEDIACTL_PORT)")
	fs.StringVar(&fv.host, "host", cfg.Host, "Chrome debug host (env: MEDIACTL_HOST)")
	fs.DurationVar(&fv.timeout, "timeout", cfg.Timeout, "Command timeout")
	fs.StringVar(&fv.output, "output", cfg.Output, "Output format: json, ndjson, text")
	fs.StringVar(&fv.target, "target", cfg.Target, "Target page (index or ID)")
	fs.StringVar(&fv.driver, "driver", cfg.Driver, "Page driver: cdp, rod, chromedp (env: MEDIACTL_DRIVER)")
	fs.StringVar(&fv.kind, "kind", cfg.Kind, "Media kind when no id is given: audio, video")
	fs.StringVar(&fv.id, "id", cfg.ID, "Bind the element with this id attribute")
	fs.StringVar(&fv.xpath, "xpath", cfg.XPath, "Bind the first element matching this XPath")
	fs.StringVar(&fv.handle, "handle", cfg.Handle, "Reuse a binding made by an earlier command")
	fs.StringVar(&fv.listen, "listen", cfg.Listen, "Address for the serve command")
	fs.BoolVar(&fv.verbose, "verbose", cfg.Verbose, "Log every page call to stderr")
	fs.BoolVar(&fv.trace, "trace", cfg.Trace, "Print trace spans to stderr")

	fs.Usage = func() { printUsage(cfg, fs) }

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return ExitSuccess
		}
		return ExitError
	}

	explicitFlags := map[string]bool{}
	fs.Visit(func(f *flag.Flag) {
		explicitFlags[f.Name] = true
	})

	// Config precedence: built-in defaults < .mediactlrc < env vars < CLI flags
	if err := loadConfigFile(cfg); err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}
	applyEnvVars(cfg, explicitFlags)
	reapplyExplicitFlags(cfg, &fv, explicitFlags)

	remaining := fs.Args()
	if len(remaining) < 1 {
		printUsage(cfg, fs)
		return ExitError
	}

	info, ok := commands[remaining[0]]
	if !ok {
		fmt.Fprintf(cfg.Stderr, "unknown command: %s\n", remaining[0])
		return ExitError
	}

	shutdown, err := setupObservability(cfg)
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}
	defer shutdown()

	return info.Run(cfg, remaining[1:])
}

// applyEnvVars applies environment variables to cfg, but only for fields
// not already set by explicit CLI flags.
func applyEnvVars(cfg *Config, explicit map[string]bool) {
	if !explicit["port"] {
		if v := os.Getenv("MEDIACTL_PORT"); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				cfg.Port = i
			}
		}
	}
	if !explicit["host"] {
		if v := os.Getenv("MEDIACTL_HOST"); v != "" {
			cfg.Host = v
		}
	}
	if !explicit["driver"] {
		if v := os.Getenv("MEDIACTL_DRIVER"); v != "" {
			cfg.Driver = v
		}
	}
}

// reapplyExplicitFlags re-applies flag values that were explicitly set
// on the command line, since .mediactlrc loading may have overwritten them.
func reapplyExplicitFlags(cfg *Config, fv *flagValues, explicit map[string]bool) {
	if explicit["port"] {
		cfg.Port = fv.port
	}
	if explicit["host"] {
		cfg.Host = fv.host
	}
	if explicit["timeout"] {
		cfg.Timeout = fv.timeout
	}
	if explicit["output"] {
		cfg.Output = fv.output
	}
	if explicit["target"] {
		cfg.Target = fv.target
	}
	if explicit["driver"] {
		cfg.Driver = fv.driver
	}
	if explicit["kind"] {
		cfg.Kind = fv.kind
	}
	if explicit["id"] {
		cfg.ID = fv.id
	}
	if explicit["xpath"] {
		cfg.XPath = fv.xpath
	}
	if explicit["handle"] {
		cfg.Handle = fv.handle
	}
	if explicit["listen"] {
		cfg.Listen = fv.listen
	}
	if explicit["verbose"] {
		cfg.Verbose = fv.verbose
	}
	if explicit["trace"] {
		cfg.Trace = fv.trace
	}
}

// connError marks a failure to reach the browser.
type connError struct {
	err error
}

func (e *connError) Error() string { return e.err.Error() }
func (e *connError) Unwrap() error { return e.err }

// withBridge opens the page bridge, instruments it and runs fn.
func withBridge(cfg *Config, fn func(ctx context.Context, b bridge.Bridge) (interface{}, error)) int {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	open := cfg.Open
	if open == nil {
		open = openBridge
	}
	b, closeBridge, err := open(ctx, cfg, cfg.log)
	if err != nil {
		var ce *connError
		if errors.As(err, &ce) {
			fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
			return ExitConnFailed
		}
		return reportError(ctx, cfg, err)
	}
	defer closeBridge()

	result, err := fn(ctx, instrument(cfg, b, nil))
	if err != nil {
		return reportError(ctx, cfg, err)
	}
	return outputResult(cfg, result)
}

// withMedia binds the configured element and runs fn with its handle.
func withMedia(cfg *Config, fn func(ctx context.Context, h *media.Handle) (interface{}, error)) int {
	return withBridge(cfg, func(ctx context.Context, b bridge.Bridge) (interface{}, error) {
		h, err := bindHandle(ctx, cfg, b, handleParams{
			kind:   cfg.Kind,
			id:     cfg.ID,
			xpath:  cfg.XPath,
			handle: cfg.Handle,
		})
		if err != nil {
			return nil, err
		}
		return fn(ctx, h)
	})
}

func reportError(ctx context.Context, cfg *Config, err error) int {
	if ctx.Err() == context.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded) {
		fmt.Fprintln(cfg.Stderr, "error: timeout")
		return ExitTimeout
	}
	fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
	return ExitError
}

type handleParams struct {
	kind   string
	id     string
	xpath  string
	handle string
}

// bindHandle turns element selection parameters into a Handle. A handle
// identifier reuses an existing binding; otherwise the element is resolved
// by id, by XPath, or as the first element of the kind.
func bindHandle(ctx context.Context, cfg *Config, b bridge.Bridge, p handleParams) (*media.Handle, error) {
	kind, err := media.ParseKind(p.kind)
	if err != nil {
		return nil, err
	}

	opts := []media.Option{media.WithLogger(cfg.log)}
	if cfg.Clock != nil {
		opts = append(opts, media.WithClock(cfg.Clock))
	}

	if p.handle != "" {
		return media.Attach(b, kind, p.handle, opts...)
	}
	if p.id != "" {
		opts = append(opts, media.WithID(p.id))
	}
	if p.xpath != "" {
		opts = append(opts, media.WithLocator(media.XPath(p.xpath)))
	}
	return media.Resolve(ctx, b, kind, opts...)
}
