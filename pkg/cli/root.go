package cli

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Version is reported to trace backends; release builds set it with -ldflags
var Version = "dev"

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet
}

// NewRootCommand creates the root command
func NewRootCommand() *Command {
	root := &Command{
		Name:        "xivlint",
		Description: "xivlint - lint rules for xivanalysis analyser modules",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("xivlint", flag.ExitOnError),
	}

	// Add subcommands
	root.Subcommands["lint"] = newLintCommand()
	root.Subcommands["watch"] = newWatchCommand()
	root.Subcommands["init"] = newInitCommand()

	return root
}

// Execute runs the command with the process arguments
func (c *Command) Execute() error {
	return c.ExecuteArgs(os.Args[1:])
}

// ExecuteArgs runs the subcommand named by args[0]
func (c *Command) ExecuteArgs(args []string) error {
	if len(args) == 0 {
		return c.usage()
	}

	// Check for help flag
	switch strings.ToLower(args[0]) {
	case "-h", "--help", "help":
		return c.usage()
	}

	// Check for subcommand
	if subcmd, ok := c.Subcommands[args[0]]; ok {
		return subcmd.Run(args[1:])
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

// usage prints the command usage
func (c *Command) usage() error {
	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("Usage: %s <command> [args]\n\n", c.Name)
	fmt.Printf("Commands:\n")
	for _, name := range names {
		fmt.Printf("  %-15s %s\n", name, c.Subcommands[name].Description)
	}
	return nil
}
