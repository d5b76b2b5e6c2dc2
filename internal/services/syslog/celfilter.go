package syslogsvc

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/rzbill/flashlog/internal/eventlog"
)

// celFilter wraps a compiled CEL program evaluated per record. When disabled,
// Eval always returns true.
type celFilter struct {
	prog    cel.Program
	enabled bool
}

func newCELFilter(expr string) (celFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return celFilter{}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("text", cel.StringType),
		cel.Variable("seq", cel.IntType),
		cel.Variable("segment", cel.IntType),
		// Milliseconds since boot parsed from the line stamp, -1 if absent.
		cel.Variable("uptime_ms", cel.IntType),
		cel.Variable("size", cel.IntType),
	)
	if err != nil {
		return celFilter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return celFilter{}, fmt.Errorf("%w: %w", ErrInvalidFilter, iss.Err())
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return celFilter{}, fmt.Errorf("%w: %w", ErrInvalidFilter, iss2.Err())
	}
	if !checked.OutputType().IsExactType(cel.BoolType) {
		return celFilter{}, fmt.Errorf("%w: expression must be boolean, got %s", ErrInvalidFilter, checked.OutputType())
	}
	prog, err := env.Program(checked)
	if err != nil {
		return celFilter{}, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}
	return celFilter{prog: prog, enabled: true}, nil
}

// Eval reports whether e passes the filter. Evaluation errors reject the record.
func (f celFilter) Eval(e eventlog.Entry) bool {
	if !f.enabled {
		return true
	}
	uptime := int64(-1)
	if ms, ok := eventlog.ParseUptime(e.Text); ok {
		uptime = int64(ms)
	}
	out, _, err := f.prog.Eval(map[string]any{
		"text":      string(e.Text),
		"seq":       int64(e.Seq),
		"segment":   int64(e.Segment),
		"uptime_ms": uptime,
		"size":      int64(len(e.Text)),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
