package extractor

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an extraction failure.
type ErrorKind string

const (
	KindNotFound   ErrorKind = "not_found"
	KindParse      ErrorKind = "parse_error"
	KindValidation ErrorKind = "validation_error"
)

// Sentinels for errors.Is matching on *ExtractionError.
var (
	ErrNotFound   = errors.New("source not found")
	ErrParse      = errors.New("no module declaration")
	ErrValidation = errors.New("invalid module data")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindParse:
		return ErrParse
	case KindValidation:
		return ErrValidation
	}
	return nil
}

// ExtractionError reports why a source unit produced no ModuleInfo.
type ExtractionError struct {
	Kind   ErrorKind
	Source string
	Msg    string
	Err    error
}

func (e *ExtractionError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.sentinel().Error()
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Source == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Source, e.Kind, msg)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind.
func (e *ExtractionError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// KindOf returns the ErrorKind of err, or "" if err is not an extraction
// error.
func KindOf(err error) ErrorKind {
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return ""
}
