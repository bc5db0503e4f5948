package translate

import (
	"context"
	"errors"
	"net"

	"github.com/minios-linux/livetrans/i18n"
)

// Error classes. Every error returned by Client.Call matches exactly one of
// these, provider.ErrEndpointPolicy, or *StatusError via errors.Is/As.
var (
	ErrValidation    = errors.New("provider configuration incomplete")
	ErrTimeout       = errors.New("provider request timed out")
	ErrNetwork       = errors.New("provider connection failed")
	ErrEmptyResponse = errors.New("provider returned no usable content")
)

// Error carries a localized, human-readable message together with the
// class it belongs to.
type Error struct {
	Class    error
	Provider string
	Msg      string
	Err      error
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Class}
	}
	return []error{e.Class, e.Err}
}

func newError(class error, label, msg string, cause error) *Error {
	return &Error{Class: class, Provider: label, Msg: msg, Err: cause}
}

// StatusError is a non-success HTTP answer from a provider.
type StatusError struct {
	Provider string
	Status   int
	Detail   string
	Msg      string
}

func (e *StatusError) Error() string { return e.Msg }

// providerStatusError maps an HTTP failure of a keyed provider to the
// messages the options UI shows.
func providerStatusError(label string, status int, body []byte) *StatusError {
	e := &StatusError{Provider: label, Status: status, Detail: errorDetail(body)}
	switch {
	case status == 401 || status == 403:
		e.Msg = i18n.T("%s authentication failed, check the API key or permissions", label)
	case status == 404:
		e.Msg = i18n.T("%s endpoint or model not found", label)
	case status == 429:
		e.Msg = i18n.T("%s rate limited, try again later", label)
	case e.Detail != "":
		e.Msg = i18n.T("%s API error (%d): %s", label, status, truncate(e.Detail, 300))
	default:
		e.Msg = i18n.T("%s API error (%d)", label, status)
	}
	return e
}

func freeStatusError(label string, status int) *StatusError {
	e := &StatusError{Provider: label, Status: status}
	if status == 429 {
		e.Msg = i18n.T("Free translate rate limited, try again later")
	} else {
		e.Msg = i18n.T("Free translate service error (%d)", status)
	}
	return e
}

// transportError classifies a failure of the round trip or body read.
func transportError(label string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(ErrTimeout, label, i18n.T("%s request timed out", label), err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return newError(ErrTimeout, label, i18n.T("%s request timed out", label), err)
	}
	return newError(ErrNetwork, label, i18n.T("%s connection failed", label), err)
}
