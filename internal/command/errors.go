package command

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnboundVariable indicates a reference to a name the resolver does not know.
	ErrUnboundVariable = errors.New("command: unbound variable")

	// ErrTypeMismatch indicates a resolved value whose shape differs from the
	// type the reference was built with.
	ErrTypeMismatch = errors.New("command: type mismatch")

	// ErrNotVector is returned when asking a scalar for its dimension.
	ErrNotVector = errors.New("command: scalar has no dimension")
)

// TypeError reports an operator applied to operands it does not accept.
// It is only returned by the node constructors.
type TypeError struct {
	Op       string
	Operands []Type
	Reason   string
}

func (e *TypeError) Error() string {
	var b strings.Builder
	b.WriteString("command: type error")
	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}
	if len(e.Operands) > 0 {
		types := make([]string, len(e.Operands))
		for i, t := range e.Operands {
			types[i] = t.String()
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(types, ", "))
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

func typeErrorf(op string, operands []Type, format string, args ...any) *TypeError {
	return &TypeError{Op: op, Operands: operands, Reason: fmt.Sprintf(format, args...)}
}
