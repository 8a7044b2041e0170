package smartcreate

import "errors"

type Kind string

const (
	KindValidation Kind = "ValidationFailure"
	KindStore      Kind = "StoreFailure"
	KindUpstream   Kind = "UpstreamFailure"
)

var (
	ErrValidation = errors.New("validation failure")
	ErrStore      = errors.New("store failure")
	ErrUpstream   = errors.New("upstream failure")
)

// Error is the single request-level failure returned by ProcessText and Apply.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	switch e.Kind {
	case KindValidation:
		return target == ErrValidation
	case KindStore:
		return target == ErrStore
	case KindUpstream:
		return target == ErrUpstream
	}
	return false
}

func validationf(msg string) *Error { return &Error{Kind: KindValidation, Message: msg} }

func upstream(msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: msg, Err: err}
}
