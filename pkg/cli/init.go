package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xivanalysis/xivlint/pkg/linter"
)

// newInitCommand creates a new init command
func newInitCommand() *Command {
	flags := flag.NewFlagSet("init", flag.ExitOnError)

	var (
		dir   = flags.String("dir", ".", "Directory to write the config file to")
		force = flags.Bool("force", false, "Overwrite an existing config file")
	)

	return &Command{
		Name:        "init",
		Description: "Write the default lint config file",
		Flags:       flags,
		Run: func(args []string) error {
			if err := flags.Parse(args); err != nil {
				return err
			}
			return runInit(*dir, *force, os.Stdout)
		},
	}
}

func runInit(dir string, force bool, out io.Writer) error {
	if !force {
		for _, name := range linter.ConfigFileNames {
			existing := filepath.Join(dir, name)
			if _, err := os.Stat(existing); err == nil {
				return fmt.Errorf("config file already exists: %s (use -force to overwrite)", existing)
			}
		}
	}

	path := filepath.Join(dir, linter.ConfigFileNames[0])
	if err := linter.SaveConfig(linter.DefaultConfig(), path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(out, "Created %s\n", path)
	return nil
}
