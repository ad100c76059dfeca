// Package driver implements System M's two drivers (spec.md §4.7):
// runToEnd, which iterates the stepper until the program is empty, and
// runToSync, which stops as soon as the next clause is a
// Synchronization (without consuming it, so callers can inspect or
// resume).
//
// Options/setDefaults follows edirooss-zmux-server's
// internal/service.SummaryOptions: a plain options struct, zeroed by
// the caller and filled in by an unexported setDefaults method that
// each run calls before use. Each run is tagged with a
// google/uuid-generated correlation id attached to every zap log line,
// the same way zmux-server's request logging middleware tags each
// request's log lines with identifying fields.
package driver

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mstep-lang/mstep/ast"
	"github.com/mstep-lang/mstep/errs"
	"github.com/mstep-lang/mstep/step"
	"github.com/mstep-lang/mstep/store"
	"github.com/mstep-lang/mstep/trace"
)

// Options configures a run.
type Options struct {
	// MaxSteps bounds the number of stepper reductions a run will
	// perform, guarding against non-terminating programs. Zero selects
	// the default.
	MaxSteps int
}

const defaultMaxSteps = 1_000_000

func (o *Options) setDefaults() {
	if o.MaxSteps <= 0 {
		o.MaxSteps = defaultMaxSteps
	}
}

// Result is what a run produced: the accumulated event log, the store
// in its final state, and whatever program remains (empty after a
// successful RunToEnd; starting with an unconsumed Synchronization
// after a successful RunToSync).
type Result struct {
	Events  []trace.Event
	Store   *store.Store
	Program ast.Program
}

// RunToEnd iterates the stepper until prog is empty.
func RunToEnd(ctx context.Context, prog ast.Program, s *store.Store, log *zap.Logger, opts Options) (Result, error) {
	return run(ctx, prog, s, log, opts, false)
}

// RunToSync iterates the stepper until prog is empty or its next
// clause is a Synchronization, which is left unconsumed.
func RunToSync(ctx context.Context, prog ast.Program, s *store.Store, log *zap.Logger, opts Options) (Result, error) {
	return run(ctx, prog, s, log, opts, true)
}

func run(ctx context.Context, prog ast.Program, s *store.Store, log *zap.Logger, opts Options, stopAtSync bool) (Result, error) {
	opts.setDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	runID := uuid.New()
	log = log.Named("run").With(zap.String("run_id", runID.String()))

	var events []trace.Event
	for i := 0; i < opts.MaxSteps; i++ {
		if err := ctx.Err(); err != nil {
			return Result{Events: events, Store: s, Program: prog}, err
		}
		if len(prog) == 0 {
			return Result{Events: events, Store: s, Program: prog}, nil
		}
		if stopAtSync {
			if _, ok := prog[0].(ast.Synchronization); ok {
				return Result{Events: events, Store: s, Program: prog}, nil
			}
		}

		next, stepEvents, err := step.Step(prog, s)
		if err != nil {
			log.Error("step failed", zap.Int("step", i), zap.Error(err))
			return Result{Events: events, Store: s, Program: prog}, err
		}
		for _, ev := range stepEvents {
			log.Debug("step", zap.Int("step", i), zap.String("event", describeEvent(ev)))
		}
		events = append(events, stepEvents...)
		prog = next
	}
	return Result{Events: events, Store: s, Program: prog}, &errs.Generic{Msg: "driver: exceeded max steps"}
}

func describeEvent(ev trace.Event) string {
	switch e := ev.(type) {
	case trace.ClauseEvent:
		return e.Tag.String()
	case trace.SynchronizationEvent:
		return "Synchronization(" + e.LExpr.String() + ")"
	default:
		return "unknown event"
	}
}
