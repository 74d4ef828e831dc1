package shared

import (
	"errors"
	"fmt"
)

type ErrorSource int

const (
	ErrorSourceTool ErrorSource = iota
	ErrorSourceAgent
	ErrorSourceModel
	ErrorSourceSystem
	ErrorSourceUser
	ErrorSourceUnknown
)

type ConjureError struct {
	Source  ErrorSource
	Message string
	Err     error
}

func Errorf(source ErrorSource, format string, a ...any) *ConjureError {
	return &ConjureError{
		Source:  source,
		Message: fmt.Sprintf(format, a...),
	}
}

func Wrap(source ErrorSource, err error, format string, a ...any) *ConjureError {
	return &ConjureError{
		Source:  source,
		Message: fmt.Sprintf(format, a...),
		Err:     err,
	}
}

func (e *ConjureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}
	return e.Message
}

func (e *ConjureError) Unwrap() error {
	return e.Err
}

func (e *ConjureError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func (e *ConjureError) As(target interface{}) bool {
	return errors.As(e.Err, target)
}
