package selector

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/mrzor/bbgraph/internal/threadtrace"
)

// Env is the evaluation environment of a selection expression.
type Env struct {
	PID       int   `expr:"pid"`
	OSTid     int64 `expr:"os_tid"`
	PinTid    int64 `expr:"pin_tid"`
	Events    int   `expr:"events"`
	Segments  int   `expr:"segments"`
	Sentinels int   `expr:"sentinels"`
	Links     int   `expr:"links"`
}

// NewEnv describes one thread of process pid.
func NewEnv(pid int, th *threadtrace.Thread) Env {
	return Env{
		PID:       pid,
		OSTid:     th.Key.OSTid,
		PinTid:    th.Key.PinTid,
		Events:    len(th.Events),
		Segments:  len(th.Segments),
		Sentinels: th.Sentinels(),
		Links:     len(th.Links),
	}
}

// Selector holds a compiled selection expression.
type Selector struct {
	source  string
	program *vm.Program
}

// New compiles expression. It must evaluate to a boolean.
func New(expression string) (*Selector, error) {
	if expression == "" {
		return &Selector{}, nil
	}

	program, err := expr.Compile(expression, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("failed to compile thread selector %q: %w", expression, err)
	}

	return &Selector{source: expression, program: program}, nil
}

// String returns the source expression.
func (s *Selector) String() string {
	return s.source
}

// Match evaluates the expression for one thread.
func (s *Selector) Match(pid int, th *threadtrace.Thread) (bool, error) {
	if s.program == nil {
		return true, nil
	}

	out, err := expr.Run(s.program, NewEnv(pid, th))
	if err != nil {
		return false, fmt.Errorf("evaluating thread selector for %s: %w", th.Key, err)
	}
	return out.(bool), nil
}

// Select keeps the matching threads in their original order.
func (s *Selector) Select(pid int, threads []*threadtrace.Thread) ([]*threadtrace.Thread, error) {
	if s.program == nil {
		return threads, nil
	}

	var kept []*threadtrace.Thread
	for _, th := range threads {
		ok, err := s.Match(pid, th)
		if err != nil {
			return nil, err
		}
		if ok {
			kept = append(kept, th)
		}
	}
	return kept, nil
}
