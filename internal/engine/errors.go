package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors let callers branch on specific business failures with
// errors.Is. Validation errors are user-correctable; guard errors reject a
// lifecycle transition and leave the document unchanged.
var (
	ErrUnknownProduct    = errors.New("product code not found")
	ErrLineNotFound      = errors.New("line item not found")
	ErrTaxRowNotFound    = errors.New("tax row not found")
	ErrNonPositiveTotal  = errors.New("line total must be positive")
	ErrNegativeTotal     = errors.New("line total cannot be negative")
	ErrDerivedAmount     = errors.New("amount is derived for on-net-total rows")
	ErrUnknownTaxKind    = errors.New("unknown tax row kind")
	ErrCustomerRequired  = errors.New("customer required")
	ErrNoLines           = errors.New("at least one line item required")
	ErrDateOrder         = errors.New("delivery date cannot precede order date")
	ErrDocumentCancelled = errors.New("document is cancelled; amend before editing")

	ErrNotConfirmed  = errors.New("transition not confirmed")
	ErrNotSaved      = errors.New("document has not been saved")
	ErrAlreadyPicked = errors.New("already picked, cannot cancel")
	ErrBadTransition = errors.New("transition not allowed from current status")
	ErrUnknownEvent  = errors.New("unknown lifecycle event")
)

// ValidationError wraps a sentinel with the offending field and detail text.
type ValidationError struct {
	Err     error
	Field   string
	Details string
}

func (e *ValidationError) Error() string {
	msg := e.Err.Error()
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

func validationErr(err error, field, format string, args ...any) error {
	return &ValidationError{Err: err, Field: field, Details: fmt.Sprintf(format, args...)}
}

// GuardViolation reports an illegal lifecycle transition. The document's
// status is unchanged when one is returned.
type GuardViolation struct {
	Event Event
	From  Status
	Err   error
}

func (e *GuardViolation) Error() string {
	return fmt.Sprintf("%s from %s: %s", e.Event, e.From, e.Err.Error())
}

func (e *GuardViolation) Unwrap() error { return e.Err }

// IsValidation reports whether err is user-correctable input.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsGuard reports whether err is a rejected lifecycle transition.
func IsGuard(err error) bool {
	var gv *GuardViolation
	return errors.As(err, &gv)
}
