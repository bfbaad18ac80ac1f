/*
decision.go - The pure decision function and its arithmetic helpers

PURPOSE:
  Evaluate is the entire security-relevant surface of this repository: a
  stateless, deterministic function (State, Action, TxContext) -> verdict.
  Accept is a nil error; reject is a *Rejection naming the first violated
  check. No side effects, no partial acceptance.

DECISION TABLE:
  Action                          Signer       Additional checks
  Charge(amt)                     merchant     amt > 0; amt <= remaining allowance;
                                               valuePaidTo(merchant) >= amt
  Cancel                          subscriber   none
  TopUp(amt)                      subscriber   amt > 0
  Update(limit, period, resetAt)  subscriber   limit >= 0; period >= 0; resetAt >= 0

KNOWN GAPS (deliberate, do not "fix"):
  - TopUp does not verify the declared amount against any incoming transfer.
  - Charge does not verify that a correctly decremented successor record is
    produced.
  - Update does not verify that any successor record reflects the declared
    parameters.
  The contract is strictly "is this action authorized and arithmetically
  plausible", not "is the resulting ledger state consistent". The off-chain
  workflow must guarantee the rest (see workflow package).

SEE ALSO:
  - errors.go: the rejection taxonomy
  - codec.go: the fail-closed boundary for untrusted bytes
*/
package subscription

import (
	"fmt"

	"github.com/warp/pullpay/ledger"
)

// =============================================================================
// HELPERS - allowance and payment arithmetic
// =============================================================================

// RemainingAllowance computes how much the merchant may still pull.
//
// If the transaction's validity window reaches ResetAt - includes any time
// at or after it - the allowance resets to the full limit regardless of
// SpentInPeriod: the reset is treated as occurring within this very
// transaction. Otherwise remaining = Limit - SpentInPeriod.
//
// No clamping to zero: an over-spent record yields a negative remainder,
// which then fails the charge amount check naturally.
func RemainingAllowance(ctx ledger.TxContext, s State) ledger.Amount {
	if ctx.Validity.Reaches(s.ResetAt) {
		return s.Limit
	}
	return s.Limit.Sub(s.SpentInPeriod)
}

// =============================================================================
// DECISION FUNCTION
// =============================================================================

// Evaluate renders the verdict for one proposed action against one immutable
// state snapshot and transaction context. nil means accept; a non-nil error
// is always a *Rejection carrying the first violated check.
func Evaluate(s State, a Action, ctx ledger.TxContext) error {
	switch act := a.(type) {
	case Charge:
		return evaluateCharge(s, act, ctx)

	case Cancel:
		if !ctx.SignedBy(s.Subscriber) {
			return reject("subscriber signature", ErrMissingSignature,
				"cancel requires the subscriber's signature")
		}
		return nil

	case TopUp:
		if !ctx.SignedBy(s.Subscriber) {
			return reject("subscriber signature", ErrMissingSignature,
				"top-up requires the subscriber's signature")
		}
		if !act.Amount.IsPositive() {
			return reject("top-up amount", ErrNonPositiveAmount,
				fmt.Sprintf("declared amount %s", act.Amount))
		}
		// Note: the declared amount is not matched against any incoming
		// transfer. The off-chain workflow owns that guarantee.
		return nil

	case Update:
		if !ctx.SignedBy(s.Subscriber) {
			return reject("subscriber signature", ErrMissingSignature,
				"update requires the subscriber's signature")
		}
		if act.NewLimit.IsNegative() {
			return reject("update limit", ErrNegativeParameter,
				fmt.Sprintf("new limit %s", act.NewLimit))
		}
		if act.NewPeriod < 0 {
			return reject("update period", ErrNegativeParameter,
				fmt.Sprintf("new period %d", act.NewPeriod))
		}
		if act.NewResetAt < 0 {
			return reject("update reset time", ErrNegativeParameter,
				fmt.Sprintf("new reset time %d", act.NewResetAt))
		}
		return nil

	default:
		// Unreachable through DecodeAction; defends direct callers.
		return reject("action tag", ErrMalformedInput,
			fmt.Sprintf("unknown action %T", a))
	}
}

func evaluateCharge(s State, act Charge, ctx ledger.TxContext) error {
	if !ctx.SignedBy(s.Merchant) {
		return reject("merchant signature", ErrMissingSignature,
			"charge requires the merchant's signature")
	}
	if !act.Amount.IsPositive() {
		return reject("charge amount", ErrNonPositiveAmount,
			fmt.Sprintf("charged amount %s", act.Amount))
	}
	remaining := RemainingAllowance(ctx, s)
	if act.Amount.GreaterThan(remaining) {
		return reject("charge allowance", ErrAllowanceExceeded,
			fmt.Sprintf("charged %s, remaining %s", act.Amount, remaining))
	}
	if ctx.ValuePaidTo(s.Merchant).LessThan(act.Amount) {
		return reject("charge payment", ErrInsufficientPayment,
			fmt.Sprintf("paid %s to merchant, charged %s",
				ctx.ValuePaidTo(s.Merchant), act.Amount))
	}
	return nil
}
