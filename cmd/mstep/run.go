package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mstep-lang/mstep/ast"
	"github.com/mstep-lang/mstep/driver"
	"github.com/mstep-lang/mstep/internal/fixture"
	"github.com/mstep-lang/mstep/internal/httpview"
	"github.com/mstep-lang/mstep/store"
	"github.com/mstep-lang/mstep/trace"
)

func newRunCmd() *cobra.Command {
	var maxSteps int
	var stopAtSync bool
	var html string

	cmd := &cobra.Command{
		Use:   "run <fixture.json>",
		Short: "Run a fixture program to completion (or to its next synchronization)",
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

			s := store.New()
			opts := driver.Options{MaxSteps: maxSteps}

			runFn := driver.RunToEnd
			if stopAtSync {
				runFn = driver.RunToSync
			}

			result, err := runFn(context.Background(), prog, s, log, opts)
			if err != nil {
				exitf("run: %v\n", err)
			}

			fmt.Fprintf(os.Stdout, "%d events, %d clauses remaining\n", len(result.Events), len(result.Program))

			if html != "" {
				serveHTML(html, result, log)
			}
		},
	}

	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "reduction budget before the run is aborted (0 selects the default)")
	cmd.Flags().BoolVar(&stopAtSync, "stop-at-sync", false, "stop at the next unconsumed Synchronization clause instead of running to completion")
	cmd.Flags().StringVar(&html, "html", "", "after running, serve the result for browsing on this address (e.g. 127.0.0.1:8080)")

	return cmd
}

func loadFixture(path string) (ast.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	prog, err := fixture.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return prog, nil
}

func serveHTML(addr string, result driver.Result, log *zap.Logger) {
	view := httpview.New(result, log)
	srv := httpview.NewHTTPServer(addr, view)
	log.Info("serving run for browsing", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil {
		exitf("httpview: %v\n", err)
	}
}
