package throttle

import (
	"errors"
	"fmt"
	"runtime/debug"
)

var (
	ErrContractViolation = errors.New("contract violation")
	ErrTaskDisappeared   = errors.New("disappeared from the queue")
)

// ContractError describes an invalid argument, it matches ErrContractViolation.
type ContractError struct {
	Field  string
	Reason string
	Value  any
	Type   string
}

func newContractError(field, reason string, value any) *ContractError {
	typeName := "nil"
	if value != nil {
		typeName = fmt.Sprintf("%T", value)
	}

	return &ContractError{
		Field:  field,
		Reason: reason,
		Value:  value,
		Type:   typeName,
	}
}

func (e *ContractError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("%s must be %s; not nil", e.Field, e.Reason)
	}
	if s, ok := e.Value.(string); ok {
		return fmt.Sprintf("%s must be %s; not %q (%s)", e.Field, e.Reason, s, e.Type)
	}
	return fmt.Sprintf("%s must be %s; not %v (%s)", e.Field, e.Reason, e.Value, e.Type)
}

func (e *ContractError) Unwrap() error {
	return ErrContractViolation
}

// PanicError is returned when work or a store operation panics with a non-error value.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func taskDisappearedError(taskID string) error {
	return fmt.Errorf("task id %q %w", taskID, ErrTaskDisappeared)
}

func newPanicError(msg any) error {
	if err, ok := msg.(error); ok {
		return err
	}
	return &PanicError{
		Value: msg,
		Stack: debug.Stack(),
	}
}
