package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
)

// Command is one authctl subcommand
type Command struct {
	Name        string
	Description string
	Usage       string
	Examples    []string
	Run         func(ctx context.Context, a *app, cmd *Command, args []string) error
}

// NewFlagSet creates a flag set that prints this command's usage
func (c *Command) NewFlagSet(w io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(c.Name, flag.ContinueOnError)
	fs.SetOutput(w)
	fs.Usage = func() { c.PrintUsage(w) }
	return fs
}

// PrintUsage prints usage and examples
func (c *Command) PrintUsage(w io.Writer) {
	fmt.Fprintf(w, "%s\n\n", c.Description)
	fmt.Fprintf(w, "USAGE:\n    %s\n\n", c.Usage)
	if len(c.Examples) > 0 {
		fmt.Fprintf(w, "EXAMPLES:\n")
		for _, example := range c.Examples {
			fmt.Fprintf(w, "    %s\n", example)
		}
	}
}

// CommandRegistry dispatches to registered commands
type CommandRegistry struct {
	commands map[string]*Command
	order    []string
}

func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{commands: make(map[string]*Command)}
}

// Register adds a command. Help lists commands in registration order.
func (r *CommandRegistry) Register(cmd *Command) {
	if _, ok := r.commands[cmd.Name]; !ok {
		r.order = append(r.order, cmd.Name)
	}
	r.commands[cmd.Name] = cmd
}

// Lookup returns the command registered under name
func (r *CommandRegistry) Lookup(name string) (*Command, bool) {
	cmd, ok := r.commands[name]
	return cmd, ok
}

// PrintHelp prints overall CLI help
func (r *CommandRegistry) PrintHelp(w io.Writer) {
	fmt.Fprintln(w, "authctl - session client for the account service")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "    authctl <command> [arguments]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "COMMANDS:")
	for _, name := range r.order {
		cmd := r.commands[name]
		fmt.Fprintf(w, "    %-12s %s\n", cmd.Name, cmd.Description)
	}
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Configuration is read from the environment and an optional .env file.")
	fmt.Fprintln(w, "Run 'authctl <command> --help' for more information on a command.")
}

// TableWriter prints aligned columns
type TableWriter struct {
	headers []string
	rows    [][]string
	widths  []int
}

func NewTableWriter(headers ...string) *TableWriter {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	return &TableWriter{headers: headers, widths: widths}
}

func (t *TableWriter) AddRow(row ...string) {
	t.rows = append(t.rows, row)
	for i, cell := range row {
		if i < len(t.widths) && len(cell) > t.widths[i] {
			t.widths[i] = len(cell)
		}
	}
}

func (t *TableWriter) Print(w io.Writer) {
	t.printRow(w, t.headers)
	seps := make([]string, len(t.widths))
	for i, width := range t.widths {
		seps[i] = strings.Repeat("-", width)
	}
	t.printRow(w, seps)
	for _, row := range t.rows {
		t.printRow(w, row)
	}
}

func (t *TableWriter) printRow(w io.Writer, row []string) {
	cells := make([]string, 0, len(t.widths))
	for i, width := range t.widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		cells = append(cells, fmt.Sprintf("%-*s", width, cell))
	}
	fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, "  "), " "))
}
