// Package contract reports broken preconditions in the geometry kernel.
//
// A violation means the caller, or the geometry it built, is defective:
// an index out of range, a second dead region, an ambiguous boundary.
// Violations panic with a *Violation. They are never part of ordinary
// control flow; outer boundaries such as the DSL engine and the CLI may
// turn them back into errors with Recover.
package contract

import "fmt"

// Violation is the panic value raised when a precondition fails.
type Violation struct {
	Op      string // operation that detected the violation, e.g. "geometry.Surface"
	Message string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s: %s", v.Op, v.Message)
}

// Require panics with a *Violation when cond is false.
func Require(cond bool, op, format string, args ...any) {
	if !cond {
		Fail(op, format, args...)
	}
}

// Fail panics with a *Violation unconditionally.
func Fail(op, format string, args ...any) {
	panic(&Violation{Op: op, Message: fmt.Sprintf(format, args...)})
}

// Recover stores a recovered *Violation in *errp. Any other panic value
// is re-raised. It must be invoked directly by defer:
//
//	defer contract.Recover(&err)
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if v, ok := r.(*Violation); ok {
		*errp = v
		return
	}
	panic(r)
}
