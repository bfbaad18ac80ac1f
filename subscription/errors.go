/*
errors.go - Rejection taxonomy for the decision engine

PURPOSE:
  One sentinel error per violated check, plus a structured Rejection that
  carries the label of the first failing condition. Hosts consume the
  diagnostic string; callers inside this repository can use errors.Is to
  distinguish reasons.

ERROR CATEGORIES:
  1. Malformed input encoding (boundary, before any check runs)
  2. Missing required signature
  3. Non-positive amount
  4. Allowance exceeded
  5. Insufficient matching payment
  6. Negative parameter in an update

USAGE:
  if err := subscription.Evaluate(state, action, ctx); err != nil {
      if errors.Is(err, subscription.ErrAllowanceExceeded) { ... }
  }
*/
package subscription

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMalformedInput is returned when state, action, or context bytes
	// cannot be decoded. Decoding fails closed: no check runs.
	ErrMalformedInput = errors.New("malformed input encoding")

	// ErrMissingSignature is returned when the required identity's key hash
	// is absent from the transaction's signer set.
	ErrMissingSignature = errors.New("missing required signature")

	// ErrNonPositiveAmount is returned for Charge or TopUp amounts <= 0.
	ErrNonPositiveAmount = errors.New("amount must be positive")

	// ErrAllowanceExceeded is returned when a charge exceeds the remaining
	// allowance for the current period.
	ErrAllowanceExceeded = errors.New("allowance exceeded")

	// ErrInsufficientPayment is returned when the transaction does not pay
	// the merchant at least the charged amount in the base asset.
	ErrInsufficientPayment = errors.New("insufficient matching payment")

	// ErrNegativeParameter is returned when an Update carries a negative
	// limit, period, or reset time.
	ErrNegativeParameter = errors.New("negative parameter in update")
)

// =============================================================================
// REJECTION - First violated check, with its label
// =============================================================================

// Rejection is the verdict for a refused action. Check names the first
// violated condition; Detail is the diagnostic string the host surfaces.
// There is no richer signal: the enclosing transaction is simply invalid.
type Rejection struct {
	Check  string
	Detail string
	err    error
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return fmt.Sprintf("rejected: %s", r.Check)
	}
	return fmt.Sprintf("rejected: %s: %s", r.Check, r.Detail)
}

func (r *Rejection) Unwrap() error { return r.err }

// reject builds the terminal verdict for a failed check.
func reject(check string, sentinel error, detail string) error {
	return &Rejection{Check: check, Detail: detail, err: sentinel}
}

// IsRejection reports whether err is a decision-engine rejection (as opposed
// to an infrastructure failure somewhere else in the stack).
func IsRejection(err error) bool {
	var r *Rejection
	return errors.As(err, &r)
}
