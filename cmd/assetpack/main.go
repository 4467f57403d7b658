// assetpack builds, inspects, verifies, and distributes asset packages.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
)

func main() {
	if err := root().execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func root() *command {
	return &command{
		name:    "assetpack",
		summary: "Build and distribute asset packages",
		commands: []*command{
			buildCommand(),
			inspectCommand(),
			verifyCommand(),
			pushCommand(),
			pullCommand(),
		},
	}
}

// command is one node in the CLI tree: either a group dispatching to
// subcommands or a leaf with flags and a run function.
type command struct {
	name     string
	summary  string
	usage    string
	examples []string

	// flags returns a configured flag set. Called lazily on first use.
	// Nil means the command accepts no flags.
	flags func() *pflag.FlagSet

	commands []*command
	run      func(args []string) error

	parent *command
}

func (c *command) execute(args []string) error {
	if len(args) > 0 && isHelpArg(args[0]) {
		c.printHelp(os.Stderr)
		return nil
	}

	if len(c.commands) > 0 {
		if len(args) == 0 {
			c.printHelp(os.Stderr)
			return fmt.Errorf("subcommand required")
		}
		name := args[0]
		if strings.HasPrefix(name, "-") {
			c.printHelp(os.Stderr)
			return fmt.Errorf("subcommand required (got flag %q)", name)
		}
		for _, sub := range c.commands {
			if sub.name == name {
				sub.parent = c
				return sub.execute(args[1:])
			}
		}
		return fmt.Errorf("unknown command %q\n\nRun '%s --help' for usage.", name, c.fullName())
	}

	if c.flags != nil {
		fs := c.flags()
		fs.SetOutput(io.Discard)
		if err := fs.Parse(args); err != nil {
			return fmt.Errorf("%s\n\nRun '%s --help' for usage.", err, c.fullName())
		}
		args = fs.Args()
	}

	return c.run(args)
}

func (c *command) printHelp(w io.Writer) {
	fmt.Fprintf(w, "%s\n\n", c.summary)

	if c.usage != "" {
		fmt.Fprintf(w, "Usage:\n  %s\n", c.usage)
	} else if len(c.commands) > 0 {
		fmt.Fprintf(w, "Usage:\n  %s <command> [flags]\n", c.fullName())
	} else {
		fmt.Fprintf(w, "Usage:\n  %s [flags]\n", c.fullName())
	}

	if len(c.commands) > 0 {
		fmt.Fprintf(w, "\nCommands:\n")
		tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
		for _, sub := range c.commands {
			fmt.Fprintf(tw, "  %s\t%s\n", sub.name, sub.summary)
		}
		tw.Flush()
	}

	if c.flags != nil {
		fs := c.flags()
		var b strings.Builder
		fs.SetOutput(&b)
		fs.PrintDefaults()
		if b.Len() > 0 {
			fmt.Fprintf(w, "\nFlags:\n%s", b.String())
		}
	}

	if len(c.examples) > 0 {
		fmt.Fprintf(w, "\nExamples:\n")
		for _, example := range c.examples {
			fmt.Fprintf(w, "  %s\n", example)
		}
	}

	if len(c.commands) > 0 {
		fmt.Fprintf(w, "\nRun '%s <command> --help' for more information on a command.\n", c.fullName())
	}
}

func (c *command) fullName() string {
	if c.parent == nil {
		return c.name
	}
	return c.parent.fullName() + " " + c.name
}

func isHelpArg(arg string) bool {
	return arg == "-h" || arg == "--help" || arg == "help"
}

// newLogger builds the logger handed to library calls. Quiet runs discard
// library logging; the commands print their own result lines.
func newLogger(verbose bool) *slog.Logger {
	if !verbose {
		return nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
