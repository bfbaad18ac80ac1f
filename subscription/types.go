// Package subscription implements the authorization decision engine for a
// recurring pull-payment arrangement. A subscriber deposits funds and
// authorizes a merchant to withdraw up to a periodic limit; Evaluate decides,
// given the current state, a requested action, and the enclosing
// transaction's facts, whether the action may proceed.
//
// The engine renders verdicts only. It never moves funds, never constructs
// outputs, and never verifies that a continuing state record was produced
// correctly - that belongs to the off-chain workflow (see the workflow
// package).
package subscription

import (
	"fmt"

	"github.com/warp/pullpay/ledger"
)

// =============================================================================
// STATE RECORD - Persistent subscription state
// =============================================================================

// State is the subscription state attached to the spendable ledger position.
// One record exists per subscription lifetime; each evaluation sees one
// immutable snapshot. The engine gatekeeps actions against it but never
// builds the successor record.
//
// Intended invariant between charges: 0 <= SpentInPeriod <= Limit and
// Limit >= 0. The engine does not fully enforce this on its own - an
// over-spent record simply yields a negative remaining allowance, which
// fails the charge amount check naturally.
type State struct {
	// Subscriber owns the deposited funds.
	Subscriber ledger.Identity `json:"subscriber"`

	// Merchant is authorized to pull funds.
	Merchant ledger.Identity `json:"merchant"`

	// Period is the nominal billing-cycle length. The engine itself does
	// not enforce it; it only matters to whoever advances ResetAt.
	Period ledger.Duration `json:"period"`

	// Limit is the maximum transferable amount per period.
	Limit ledger.Amount `json:"limit"`

	// SpentInPeriod is the amount already transferred in the current period.
	SpentInPeriod ledger.Amount `json:"spent_in_period"`

	// ResetAt is when the current period ends and the allowance replenishes.
	ResetAt ledger.Timestamp `json:"reset_at"`
}

// Validate checks structural well-formedness: both identities must parse.
// It deliberately does not reject a negative limit or over-spent record;
// those are handled arithmetically by the allowance check.
func (s State) Validate() error {
	if !s.Subscriber.Valid() {
		return fmt.Errorf("invalid subscriber identity %q", s.Subscriber)
	}
	if !s.Merchant.Valid() {
		return fmt.Errorf("invalid merchant identity %q", s.Merchant)
	}
	return nil
}
