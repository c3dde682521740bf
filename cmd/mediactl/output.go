package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/tomyan/mediactl/internal/bridge"
)

// TextValuer is implemented by result types that have an obvious plain-text representation.
type TextValuer interface {
	TextValue() string
}

// ActionResult reports a command that changed the element. The handle is
// echoed so later commands can reuse the binding with --handle.
type ActionResult struct {
	Handle string `json:"handle"`
	Action string `json:"action"`
}

// NumberResult carries a numeric property. Value is a Scalar so NaN and
// Infinity survive JSON encoding.
type NumberResult struct {
	Handle   string        `json:"handle"`
	Property string        `json:"property"`
	Value    bridge.Scalar `json:"value"`
}

type SrcResult struct {
	Handle string `json:"handle"`
	Src    string `json:"src"`
}

type MutedResult struct {
	Handle string `json:"handle"`
	Muted  bool   `json:"muted"`
}

type SizeResult struct {
	Handle string `json:"handle"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type PlayingResult struct {
	Handle  string `json:"handle"`
	Playing bool   `json:"playing"`
}

type CountResult struct {
	Handle string `json:"handle"`
	Event  string `json:"event"`
	Count  int    `json:"count"`
}

func (r ActionResult) TextValue() string  { return r.Handle }
func (r NumberResult) TextValue() string  { return r.Value.String() }
func (r SrcResult) TextValue() string     { return r.Src }
func (r MutedResult) TextValue() string   { return strconv.FormatBool(r.Muted) }
func (r SizeResult) TextValue() string    { return fmt.Sprintf("%dx%d", r.Width, r.Height) }
func (r PlayingResult) TextValue() string { return strconv.FormatBool(r.Playing) }
func (r CountResult) TextValue() string   { return strconv.Itoa(r.Count) }

func outputResult(cfg *Config, v interface{}) int {
	switch cfg.Output {
	case "json":
		enc := json.NewEncoder(cfg.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
			return ExitError
		}
	case "ndjson":
		enc := json.NewEncoder(cfg.Stdout)
		if err := enc.Encode(v); err != nil {
			fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
			return ExitError
		}
	case "text":
		if tv, ok := v.(TextValuer); ok {
			fmt.Fprintln(cfg.Stdout, tv.TextValue())
		} else {
			enc := json.NewEncoder(cfg.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(v); err != nil {
				fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
				return ExitError
			}
		}
	default:
		fmt.Fprintf(cfg.Stderr, "error: unknown output format: %s\n", cfg.Output)
		return ExitError
	}
	return ExitSuccess
}
