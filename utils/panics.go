package utils

import (
	"fmt"
	"runtime/debug"
)

// PanicError is a recovered panic. Stack is captured at the recovery point.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("got panic: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// RecoverWithError must be deferred directly. A panic in the deferring
// function is stored in *err as a *PanicError; a nil err pointer only stops
// the panic.
func RecoverWithError(err *error) {
	rv := recover()
	if rv == nil || err == nil {
		return
	}
	*err = &PanicError{Value: rv, Stack: debug.Stack()}
}
