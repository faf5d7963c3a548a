package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/codeGROOVE-dev/tzclock/pkg/clockwidget"
	"github.com/codeGROOVE-dev/tzclock/pkg/screen"
)

// searchLimit caps the names printed by the search command.
const searchLimit = 15

var errUsage = errors.New("usage")

type command struct {
	name string
	arg  string
}

// controller is the slice of the clock widget driven by typed commands.
type controller interface {
	State() clockwidget.State
	Suggest(text string, limit int) []string
	SetAutoDetect(ctx context.Context, on bool)
	SetLocal(ctx context.Context, text string)
	CommitTarget(ctx context.Context, text string)
	SetOffset(ctx context.Context, raw string) error
	Nudge(ctx context.Context, steps int)
	Reset(ctx context.Context)
	Render(ctx context.Context)
}

// session executes commands read from the terminal.
type session struct {
	widget controller
	// remote searches the time service when the local catalog has no match.
	remote func(ctx context.Context, query string) ([]string, error)
	out    io.Writer
	logger *slog.Logger
}

func parseCommand(line string) (command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{}, nil
	}
	name := strings.ToLower(fields[0])
	arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))

	switch name {
	case "+", "-", "reset", "quit", "exit", "help", "?", "refresh":
		if arg != "" {
			return command{}, fmt.Errorf("%w: %s takes no argument", errUsage, name)
		}
	case "auto":
		switch strings.ToLower(arg) {
		case "on", "off":
			arg = strings.ToLower(arg)
		default:
			return command{}, fmt.Errorf("%w: auto on|off", errUsage)
		}
	case "local", "offset", "search":
		if arg == "" {
			return command{}, fmt.Errorf("%w: %s <value>", errUsage, name)
		}
	case "target":
	default:
		return command{}, fmt.Errorf("%w: unknown command %q", errUsage, fields[0])
	}

	switch name {
	case "exit":
		name = "quit"
	case "?":
		name = "help"
	}
	return command{name: name, arg: arg}, nil
}

// execute runs cmd and reports whether the session should end.
func (s *session) execute(ctx context.Context, cmd command) bool {
	w := s.widget
	switch cmd.name {
	case "":
	case "quit":
		return true
	case "help":
		fmt.Fprintln(s.out, screen.Help)
	case "refresh":
		w.Render(ctx)
	case "+":
		w.Nudge(ctx, 1)
	case "-":
		w.Nudge(ctx, -1)
	case "reset":
		w.Reset(ctx)
	case "auto":
		w.SetAutoDetect(ctx, cmd.arg == "on")
	case "local":
		if w.State().AutoDetect {
			fmt.Fprintln(s.out, "auto-detect is on; run 'auto off' first")
			return false
		}
		w.SetLocal(ctx, cmd.arg)
	case "target":
		w.CommitTarget(ctx, cmd.arg)
	case "offset":
		if err := w.SetOffset(ctx, cmd.arg); err != nil {
			fmt.Fprintf(s.out, "offset must be a number of hours: %v\n", err)
		}
	case "search":
		s.search(ctx, cmd.arg)
	}
	return false
}

func (s *session) search(ctx context.Context, query string) {
	names := s.widget.Suggest(query, searchLimit)
	if len(names) == 0 && s.remote != nil {
		found, err := s.remote(ctx, query)
		if err != nil {
			s.logger.Warn("timezone search failed", "query", query, "error", err)
		}
		if len(found) > searchLimit {
			found = found[:searchLimit]
		}
		names = found
	}
	if len(names) == 0 {
		fmt.Fprintf(s.out, "no timezones match %q\n", query)
		return
	}
	for _, name := range names {
		fmt.Fprintln(s.out, name)
	}
}

// serve reads commands from in until EOF, quit or ctx is done. It reports
// whether the user asked to quit.
func (s *session) serve(ctx context.Context, in io.Reader) (bool, error) {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				scanErr <- nil
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return false, nil
		case line, ok := <-lines:
			if !ok {
				if err := <-scanErr; err != nil {
					return false, fmt.Errorf("reading commands: %w", err)
				}
				return false, nil
			}
			cmd, err := parseCommand(line)
			if err != nil {
				fmt.Fprintln(s.out, err)
				continue
			}
			if s.execute(ctx, cmd) {
				return true, nil
			}
		}
	}
}
