package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mstep-lang/mstep/ast"
	"github.com/mstep-lang/mstep/inspect"
	"github.com/mstep-lang/mstep/resolve"
	"github.com/mstep-lang/mstep/step"
	"github.com/mstep-lang/mstep/store"
	"github.com/mstep-lang/mstep/trace"
)

func newReplCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl <fixture.json>",
		Short: "Load a fixture and step through it interactively",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			prog, err := loadFixture(args[0])
			if err != nil {
				exitf("%v\n", err)
			}
			log, err := trace.NewLogger()
			if err != nil {
				exitf("logger: %v\n", err)
			}
			defer log.Sync()
			runRepl(prog, log)
		},
	}
	return cmd
}

// runRepl is a one-step-at-a-time console over a program and store,
// built on chzyer/readline the way its own cmd/readline examples
// drive a line-at-a-time shell: NewEx for history and prompt, then a
// plain Readline loop until io.EOF.
func runRepl(prog ast.Program, log *zap.Logger) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "mstep> ",
		HistoryFile:     "/tmp/mstep-repl-history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		exitf("readline: %v\n", err)
	}
	defer rl.Close()

	s := store.New()
	var events []trace.Event

	fmt.Fprintln(rl.Stdout(), "mstep repl: step, run, inspect <path>, events, quit")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			return
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "quit", "exit":
			return

		case "step":
			if len(prog) == 0 {
				fmt.Fprintln(rl.Stdout(), "program is empty")
				continue
			}
			next, stepEvents, err := step.Step(prog, s)
			if err != nil {
				fmt.Fprintf(rl.Stdout(), "step failed: %v\n", err)
				continue
			}
			prog = next
			events = append(events, stepEvents...)
			for _, ev := range stepEvents {
				fmt.Fprintln(rl.Stdout(), describeReplEvent(ev))
			}

		case "run":
			for len(prog) > 0 {
				next, stepEvents, err := step.Step(prog, s)
				if err != nil {
					fmt.Fprintf(rl.Stdout(), "step failed: %v\n", err)
					break
				}
				prog = next
				events = append(events, stepEvents...)
			}
			fmt.Fprintf(rl.Stdout(), "ran to completion: %d total events\n", len(events))

		case "events":
			for i, ev := range events {
				fmt.Fprintf(rl.Stdout(), "%d: %s\n", i, describeReplEvent(ev))
			}

		case "inspect":
			if len(fields) < 2 {
				fmt.Fprintln(rl.Stdout(), "usage: inspect <path>")
				continue
			}
			inspectPath(rl, fields[1], s)

		default:
			fmt.Fprintf(rl.Stdout(), "unknown command %q\n", fields[0])
		}
	}
}

func inspectPath(rl *readline.Instance, path string, s *store.Store) {
	parts := strings.Split(path, ".")
	var l ast.LExpr = ast.Unqualified{Name: ast.Name(parts[0])}
	for _, suffix := range parts[1:] {
		l = ast.Qualified{Prefix: l, Suffix: ast.Name(suffix)}
	}

	res, err := resolve.Resolve(l, s)
	if err != nil {
		fmt.Fprintf(rl.Stdout(), "resolve: %v\n", err)
		return
	}
	if !res.Present {
		fmt.Fprintln(rl.Stdout(), "declared, not present")
		return
	}
	v, err := inspect.Inspect(res.Share.Addr, s)
	if err != nil {
		fmt.Fprintf(rl.Stdout(), "inspect: %v\n", err)
		return
	}
	fmt.Fprintf(rl.Stdout(), "%v (addr %s)\n", v, res.Share.Addr.String())
}

func describeReplEvent(ev trace.Event) string {
	switch e := ev.(type) {
	case trace.ClauseEvent:
		return e.Tag.String()
	case trace.SynchronizationEvent:
		return fmt.Sprintf("sync(%s) = %v", e.LExpr.String(), e.Value)
	default:
		return "?"
	}
}
