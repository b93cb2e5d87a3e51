package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation")         // 400
	ErrNotFound          = errors.New("not found")          // 404
	ErrConflict          = errors.New("conflict")           // 409
	ErrIllegalTransition = errors.New("illegal transition") // 409
)

// UserError carries a message that is safe to show back to the operator.
type UserError struct {
	Kind error
	Msg  string
}

func (e *UserError) Error() string { return e.Kind.Error() + ": " + e.Msg }
func (e *UserError) Unwrap() error { return e.Kind }

func validationf(format string, args ...any) error {
	return &UserError{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

func notFound(msg string) error {
	return &UserError{Kind: ErrNotFound, Msg: msg}
}

// IllegalTransitionError names the stored and requested status.
type IllegalTransitionError struct {
	From string
	To   string
}

func (e *IllegalTransitionError) Error() string {
	from := e.From
	if from == "" {
		from = "(blank)"
	}
	return fmt.Sprintf("Illegal transition from %s to %s", from, e.To)
}

func (e *IllegalTransitionError) Is(target error) bool { return target == ErrIllegalTransition }

// Message returns the operator-facing text of err, or fallback for
// infrastructure failures.
func Message(err error, fallback string) string {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.Msg
	}
	var it *IllegalTransitionError
	if errors.As(err, &it) {
		return it.Error()
	}
	return fallback
}
