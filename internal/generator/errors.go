package generator

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownVariable indicates a name that is neither a declared
	// variable nor a function.
	ErrUnknownVariable = errors.New("generator: unknown variable")

	// ErrTypeMismatch indicates a value requested or defined with the wrong shape.
	ErrTypeMismatch = errors.New("generator: type mismatch")

	// ErrMissingDt indicates a generator without a scalar "dt" variable.
	ErrMissingDt = errors.New("generator: dt must be declared as a scalar variable")

	// ErrCircularReference indicates functions that reference each other in a cycle.
	ErrCircularReference = errors.New("generator: circular reference")

	// ErrDuplicateName indicates a name declared more than once.
	ErrDuplicateName = errors.New("generator: duplicate name")
)

// StepError wraps a failure while computing one variable's next value.
type StepError struct {
	Step     int
	Variable string
	Wrapped  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d: variable %q: %v", e.Step, e.Variable, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
