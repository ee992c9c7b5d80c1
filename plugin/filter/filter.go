// Package filter evaluates CEL expressions against events, e.g.
//
//	severity in ["HIGH", "CRITICAL"] && description.contains("vpn")
//
// Available variables: event_type, description, severity, watchlist_id, created_ts.
package filter

import (
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"

	"github.com/hrygo/signalwatch/store"
)

// ErrInvalidFilter is wrapped by every compilation failure.
var ErrInvalidFilter = errors.New("invalid filter")

var (
	envOnce sync.Once
	env     *cel.Env
	envErr  error
)

func eventEnv() (*cel.Env, error) {
	envOnce.Do(func() {
		env, envErr = cel.NewEnv(
			cel.Variable("event_type", cel.StringType),
			cel.Variable("description", cel.StringType),
			cel.Variable("severity", cel.StringType),
			cel.Variable("watchlist_id", cel.StringType),
			cel.Variable("created_ts", cel.IntType),
		)
	})
	return env, envErr
}

// Program is a compiled event filter. It is safe for concurrent use.
type Program struct {
	expr string
	prg  cel.Program
}

// Compile parses and type-checks expr. It must evaluate to a bool.
func Compile(expr string) (*Program, error) {
	e, err := eventEnv()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create CEL environment")
	}

	ast, issues := e.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, errors.Wrapf(ErrInvalidFilter, "%s", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, errors.Wrapf(ErrInvalidFilter, "expression must be a bool, got %s", ast.OutputType())
	}

	prg, err := e.Program(ast)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidFilter, "%s", err)
	}
	return &Program{expr: expr, prg: prg}, nil
}

// String returns the source expression.
func (p *Program) String() string {
	return p.expr
}

// Match reports whether event satisfies the filter.
func (p *Program) Match(event *store.Event) (bool, error) {
	out, _, err := p.prg.Eval(map[string]any{
		"event_type":   event.Type,
		"description":  event.Description,
		"severity":     string(event.Severity),
		"watchlist_id": event.WatchlistID,
		"created_ts":   event.CreatedTs,
	})
	if err != nil {
		return false, errors.Wrapf(err, "failed to evaluate filter on event %s", event.ID)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, errors.Errorf("filter returned %T, want bool", out.Value())
	}
	return matched, nil
}

// Apply returns the events that satisfy the filter, preserving order.
func (p *Program) Apply(events []*store.Event) ([]*store.Event, error) {
	list := make([]*store.Event, 0, len(events))
	for _, event := range events {
		ok, err := p.Match(event)
		if err != nil {
			return nil, err
		}
		if ok {
			list = append(list, event)
		}
	}
	return list, nil
}
