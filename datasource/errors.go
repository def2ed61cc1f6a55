package datasource

import (
	"errors"
	"fmt"
)

// Kind classifies why a forecast fetch failed.
type Kind string

const (
	KindNetwork   Kind = "network"   // request not sent or body not read
	KindNotFound  Kind = "not_found" // provider does not know the place
	KindUpstream  Kind = "upstream"  // provider answered with another error status
	KindMalformed Kind = "malformed" // body did not have the expected shape
)

var (
	ErrNetwork   = errors.New("network failure")
	ErrNotFound  = errors.New("place not found")
	ErrUpstream  = errors.New("provider error")
	ErrMalformed = errors.New("malformed response")
)

// FetchError is returned by every ForecastSource in this module.
type FetchError struct {
	Kind   Kind
	Source string
	Status int // HTTP status, 0 when no response was received
	Err    error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Source, e.sentinel())
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.sentinel()}
	}
	return []error{e.sentinel(), e.Err}
}

func (e *FetchError) sentinel() error {
	switch e.Kind {
	case KindNotFound:
		return ErrNotFound
	case KindUpstream:
		return ErrUpstream
	case KindMalformed:
		return ErrMalformed
	default:
		return ErrNetwork
	}
}

// NewError builds a FetchError for source.
func NewError(source string, kind Kind, status int, err error) *FetchError {
	return &FetchError{Kind: kind, Source: source, Status: status, Err: err}
}

// KindOf returns the Kind of err, or KindNetwork for errors that did not
// come from a ForecastSource.
func KindOf(err error) Kind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindNetwork
}
