package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tomyan/mediactl/internal/bridge"
	"github.com/tomyan/mediactl/internal/media"
)

// mediaOp is one operation on a bound element. The CLI registers a command
// per op and serve exposes each as /media/{name}.
type mediaOp struct {
	Name     string
	Desc     string
	Category string
	Arg      string // name of the argument, empty if the op takes none
	Optional bool   // Arg may be omitted
	Read     bool   // no side effects; served on GET
	Run      func(ctx context.Context, h *media.Handle, arg string) (interface{}, error)
}

var mediaOps = []mediaOp{
	{Name: "play", Desc: "Start playback", Category: "Control playback", Run: func(ctx context.Context, h *media.Handle, _ string) (interface{}, error) {
		return act(h, "play", h.Play(ctx))
	}},
	{Name: "pause", Desc: "Pause playback", Category: "Control playback", Run: func(ctx context.Context, h *media.Handle, _ string) (interface{}, error) {
		return act(h, "pause", h.Pause(ctx))
	}},
	{Name: "seek", Desc: "Jump to a position in whole seconds", Category: "Control playback", Arg: "seconds", Run: func(ctx context.Context, h *media.Handle, arg string) (interface{}, error) {
		return act(h, "seek", h.SeekTo(ctx, arg))
	}},
	{Name: "mute", Desc: "Mute the element", Category: "Control playback", Run: func(ctx context.Context, h *media.Handle, _ string) (interface{}, error) {
		return act(h, "mute", h.Mute(ctx))
	}},
	{Name: "unmute", Desc: "Unmute the element", Category: "Control playback", Run: func(ctx context.Context, h *media.Handle, _ string) (interface{}, error) {
		return act(h, "unmute", h.Unmute(ctx))
	}},
	{Name: "volume", Desc: "Read the volume, or set it from 0 to 1", Category: "Control playback", Arg: "value", Optional: true, Read: true, Run: cmdVolume},

	{Name: "time", Desc: "Current playback position in seconds", Category: "Read state", Read: true, Run: func(ctx context.Context, h *media.Handle, _ string) (interface{}, error) {
		return number(h, "currentTime")(h.CurrentTime(ctx))
	}},
	{Name: "duration", Desc: "Media duration in seconds", Category: "Read state", Read: true, Run: func(ctx context.Context, h *media.Handle, _ string) (interface{}, error) {
		return number(h, "duration")(h.Duration(ctx))
	}},
	{Name: "src", Desc: "URL of the playing resource", Category: "Read state", Read: true, Run: func(ctx context.Context, h *media.Handle, _ string) (interface{}, error) {
		src, err := h.CurrentSrc(ctx)
		if err != nil {
			return nil, err
		}
		return SrcResult{Handle: h.ID(), Src: src}, nil
	}},
	{Name: "muted", Desc: "Whether the element is muted", Category: "Read state", Read: true, Run: func(ctx context.Context, h *media.Handle, _ string) (interface{}, error) {
		muted, err := h.Muted(ctx)
		if err != nil {
			return nil, err
		}
		return MutedResult{Handle: h.ID(), Muted: muted}, nil
	}},
	{Name: "size", Desc: "Rendered width and height", Category: "Read state", Read: true, Run: func(ctx context.Context, h *media.Handle, _ string) (interface{}, error) {
		size, err := h.Size(ctx)
		if err != nil {
			return nil, err
		}
		return SizeResult{Handle: h.ID(), Width: size.Width, Height: size.Height}, nil
	}},
	{Name: "playing", Desc: "Sample timeupdate events to tell if it is playing", Category: "Read state", Read: true, Run: func(ctx context.Context, h *media.Handle, _ string) (interface{}, error) {
		playing, err := h.IsPlaying(ctx)
		if err != nil {
			return nil, err
		}
		return PlayingResult{Handle: h.ID(), Playing: playing}, nil
	}},

	{Name: "listen", Desc: "Start counting an event", Category: "Count events", Arg: "event", Run: func(ctx context.Context, h *media.Handle, event string) (interface{}, error) {
		return act(h, "listen", h.AddEventListener(ctx, event))
	}},
	{Name: "count", Desc: "Read an event counter", Category: "Count events", Arg: "event", Read: true, Run: func(ctx context.Context, h *media.Handle, event string) (interface{}, error) {
		n, err := h.EventCount(ctx, event)
		if err != nil {
			return nil, err
		}
		return CountResult{Handle: h.ID(), Event: event, Count: n}, nil
	}},
	{Name: "unlisten", Desc: "Stop counting an event", Category: "Count events", Arg: "event", Run: func(ctx context.Context, h *media.Handle, event string) (interface{}, error) {
		return act(h, "unlisten", h.RemoveEventListener(ctx, event))
	}},
}

func cmdVolume(ctx context.Context, h *media.Handle, arg string) (interface{}, error) {
	if arg == "" {
		return number(h, "volume")(h.Volume(ctx))
	}
	v, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: volume %q is not a number", media.ErrInvalidArgument, arg)
	}
	return act(h, "volume", h.SetVolume(ctx, v))
}

func act(h *media.Handle, action string, err error) (interface{}, error) {
	if err != nil {
		return nil, err
	}
	return ActionResult{Handle: h.ID(), Action: action}, nil
}

func number(h *media.Handle, property string) func(float64, error) (interface{}, error) {
	return func(v float64, err error) (interface{}, error) {
		if err != nil {
			return nil, err
		}
		return NumberResult{Handle: h.ID(), Property: property, Value: bridge.NumberValue(v)}, nil
	}
}

func cmdMedia(cfg *Config, op mediaOp, args []string) int {
	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}
	if op.Arg != "" && !op.Optional && arg == "" {
		return cmdMissingArg(cfg, "usage: mediactl "+op.Name+" <"+op.Arg+">")
	}
	return withMedia(cfg, func(ctx context.Context, h *media.Handle) (interface{}, error) {
		return op.Run(ctx, h, arg)
	})
}
