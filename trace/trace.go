// Package trace holds System M's event stream types (spec.md §6): the
// append-only log of ClauseEvent and SynchronizationEvent values the
// driver accumulates as the stepper runs, plus the logger construction
// every long-running component threads through.
//
// NewLogger's zap.NewDevelopmentConfig, with timestamps and caller
// frames stripped, mirrors edirooss-zmux-server's cmd/zmux-server/main.go:
// the same colorized, timestamp-free development encoder, since a
// driver run is a short-lived local process, not a deployed service
// emitting logs for aggregation.
package trace

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mstep-lang/mstep/ast"
	"github.com/mstep-lang/mstep/store"
	"github.com/mstep-lang/mstep/value"
)

// Tag names the kind of reduction a ClauseEvent records (spec.md §6).
type Tag int

const (
	Declaration Tag = iota
	Allocation
	ApplicationTag
	AssignByReference
	SmallLiteralAssignment
	LargeLiteralAssignment
	AbstractionLiteralAssignment
	ReturnTag
)

func (t Tag) String() string {
	switch t {
	case Declaration:
		return "Declaration"
	case Allocation:
		return "Allocation"
	case ApplicationTag:
		return "Application"
	case AssignByReference:
		return "Assignment by Reference"
	case SmallLiteralAssignment:
		return "Small Literal Assignment"
	case LargeLiteralAssignment:
		return "Large Literal Assignment"
	case AbstractionLiteralAssignment:
		return "Abstraction Literal Assignment"
	case ReturnTag:
		return "Return"
	default:
		return "Unknown"
	}
}

// Event is the marker interface over the two event shapes the stepper
// emits.
type Event interface {
	event()
}

// ClauseEvent records one stepper reduction: the clause it consumed,
// a snapshot of the store immediately after the reduction, and the
// kind of reduction it was.
type ClauseEvent struct {
	Clause   ast.Clause
	Snapshot store.Snapshot
	Tag      Tag
}

func (ClauseEvent) event() {}

// SynchronizationEvent records the shallow value an lexpr held at the
// moment a Synchronization clause observed it.
type SynchronizationEvent struct {
	LExpr ast.LExpr
	Value value.Shallow
}

func (SynchronizationEvent) event() {}

// NewLogger returns a development-profile zap logger: colorized level,
// no timestamp, no caller, no stacktrace — a driver run is a short
// local process, and its events already carry their own store
// snapshots, so zap output here is for human-readable step tracing,
// not for an aggregated log pipeline.
func NewLogger() (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.TimeKey = ""
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true
	log, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return log.Named("mstep"), nil
}
