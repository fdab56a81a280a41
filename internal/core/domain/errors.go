package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrTemporary          = errors.New("temporary failure")
	ErrSniff              = errors.New("content sniff failed")
	ErrGatewayUnavailable = errors.New("classifier gateway unavailable")
	ErrGatewayMalformed   = errors.New("classifier response malformed")
	ErrPlacement          = errors.New("placement failed")
	ErrConversion         = errors.New("format conversion failed")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// UnavailableError reports that the classifier gateway could not be used.
// Reason is a short human readable note recorded in the fallback metadata.
type UnavailableError struct {
	Reason string
	Err    error
}

func NewUnavailableError(reason string, err error) *UnavailableError {
	return &UnavailableError{Reason: reason, Err: err}
}

func (e *UnavailableError) Error() string {
	if e == nil {
		return ErrGatewayUnavailable.Error()
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrGatewayUnavailable, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", ErrGatewayUnavailable, e.Reason, e.Err)
}

func (e *UnavailableError) Unwrap() []error {
	if e == nil {
		return nil
	}
	if e.Err == nil {
		return []error{ErrGatewayUnavailable}
	}
	return []error{ErrGatewayUnavailable, e.Err}
}

// UnavailableReason extracts the fallback reason from err, if any.
func UnavailableReason(err error) (string, bool) {
	var unavailable *UnavailableError
	if errors.As(err, &unavailable) {
		return unavailable.Reason, true
	}
	if errors.Is(err, ErrGatewayUnavailable) {
		return err.Error(), true
	}
	return "", false
}
