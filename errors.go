package jobstatus

import "fmt"

// MissingFieldError reports a required wire field that is absent from
// a status document.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

// UnknownJobTypeError reports a jobType name the registry cannot
// resolve.
type UnknownJobTypeError struct {
	Name string
}

func (e *UnknownJobTypeError) Error() string {
	return fmt.Sprintf("unknown job type %q", e.Name)
}

// UnknownEnumValueError reports a state or result tag outside the
// closed set.
type UnknownEnumValueError struct {
	Field string
	Value string
}

func (e *UnknownEnumValueError) Error() string {
	return fmt.Sprintf("unknown %s value %q", e.Field, e.Value)
}
