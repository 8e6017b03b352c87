package event

import "errors"

const Error = "error"

var (
	ErrEmptyEventName = errors.New("the event name must be a string with length greater than 0")
	ErrNilHandler     = errors.New("the handler must be a function")
)
