package config

import (
	"fmt"
	"strings"
)

// ValidationError lists every problem Validate found, so one run reports them all.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("invalid config")
	switch len(e.Problems) {
	case 0:
	case 1:
		b.WriteString(": ")
		b.WriteString(e.Problems[0])
	default:
		fmt.Fprintf(&b, " (%d problems)", len(e.Problems))
		for _, p := range e.Problems {
			b.WriteString("\n  - ")
			b.WriteString(p)
		}
	}
	return b.String()
}

// Add records a problem.
func (e *ValidationError) Add(problem string) {
	e.Problems = append(e.Problems, problem)
}

// Addf records a formatted problem.
func (e *ValidationError) Addf(format string, args ...any) {
	e.Add(fmt.Sprintf(format, args...))
}

// AddErr records err; nil is ignored.
func (e *ValidationError) AddErr(err error) {
	if err != nil {
		e.Add(err.Error())
	}
}

// Err returns e, or nil when nothing was recorded.
func (e *ValidationError) Err() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}
