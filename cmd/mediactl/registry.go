package main

import (
	"flag"
	"fmt"
	"sort"
	"strings"
)

// CommandInfo describes a CLI command.
type CommandInfo struct {
	Name     string
	Desc     string
	Category string
	Usage    string
	Run      func(cfg *Config, args []string) int
}

// commands is the registry of all available commands.
var commands = map[string]CommandInfo{
	"serve": {Name: "serve", Desc: "Serve media operations over HTTP", Category: "Advanced", Usage: "mediactl [--listen addr] serve", Run: cmdServe},
}

func init() {
	for _, op := range mediaOps {
		op := op
		usage := "mediactl [--id id | --xpath path | --handle h] " + op.Name
		switch {
		case op.Arg != "" && op.Optional:
			usage += " [" + op.Arg + "]"
		case op.Arg != "":
			usage += " <" + op.Arg + ">"
		}
		commands[op.Name] = CommandInfo{
			Name:     op.Name,
			Desc:     op.Desc,
			Category: op.Category,
			Usage:    usage,
			Run:      func(cfg *Config, args []string) int { return cmdMedia(cfg, op, args) },
		}
	}
	commands["help"] = CommandInfo{Name: "help", Desc: "Show help for a command", Category: "Advanced", Usage: "mediactl help [command]", Run: cmdHelp}
}

// cmdMissingArg prints a usage message and returns ExitError.
func cmdMissingArg(cfg *Config, usage string) int {
	fmt.Fprintln(cfg.Stderr, usage)
	return ExitError
}

// categoryOrder defines the display order for command categories.
var categoryOrder = []string{
	"Control playback",
	"Read state",
	"Count events",
	"Advanced",
}

type commandGroup struct {
	Category string
	Commands []CommandInfo
}

// commandsByCategory returns commands grouped by category, with sorted names within each category.
func commandsByCategory() []commandGroup {
	grouped := make(map[string][]CommandInfo)
	for _, cmd := range commands {
		grouped[cmd.Category] = append(grouped[cmd.Category], cmd)
	}

	var result []commandGroup
	for _, cat := range categoryOrder {
		cmds := grouped[cat]
		if len(cmds) == 0 {
			continue
		}
		sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
		result = append(result, commandGroup{Category: cat, Commands: cmds})
	}
	return result
}

// printUsage prints the usage message with commands grouped by category.
func printUsage(cfg *Config, fs *flag.FlagSet) {
	fmt.Fprintln(cfg.Stderr, "usage: mediactl [flags] <command>")
	fmt.Fprintln(cfg.Stderr)

	for _, group := range commandsByCategory() {
		fmt.Fprintf(cfg.Stderr, "  %s:\n", group.Category)
		names := make([]string, len(group.Commands))
		for i, cmd := range group.Commands {
			names[i] = cmd.Name
		}
		fmt.Fprintf(cfg.Stderr, "    %s\n", strings.Join(names, ", "))
		fmt.Fprintln(cfg.Stderr)
	}

	fmt.Fprintln(cfg.Stderr, "flags:")
	fs.PrintDefaults()
}

func cmdHelp(cfg *Config, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(cfg.Stdout, "mediactl - control audio and video elements in Chrome")
		fmt.Fprintln(cfg.Stdout)

		for _, group := range commandsByCategory() {
			fmt.Fprintf(cfg.Stdout, "%s:\n", group.Category)
			for _, cmd := range group.Commands {
				fmt.Fprintf(cfg.Stdout, "  %-10s %s\n", cmd.Name, cmd.Desc)
			}
			fmt.Fprintln(cfg.Stdout)
		}

		fmt.Fprintln(cfg.Stdout, "Run 'mediactl help <command>' for detailed help on a command.")
		return ExitSuccess
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(cfg.Stderr, "unknown command: %s\n", args[0])
		return ExitError
	}
	fmt.Fprintf(cfg.Stdout, "usage: %s\n\n%s\n", cmd.Usage, cmd.Desc)
	return ExitSuccess
}
