package subscription_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/warp/pullpay/ledger"
	"github.com/warp/pullpay/subscription"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func testIdentity(b byte) ledger.Identity {
	return ledger.Identity(strings.Repeat(fmt.Sprintf("%02x", b), ledger.IdentityHashSize))
}

var (
	subscriber = testIdentity(0x5b)
	merchant   = testIdentity(0x3c)
)

const resetT ledger.Timestamp = 1_000_000

func amt(v int64) ledger.Amount { return ledger.NewAmount(v) }

// testState: limit 100, spent 40, reset at T.
func testState() subscription.State {
	return subscription.State{
		Subscriber:    subscriber,
		Merchant:      merchant,
		Period:        ledger.Duration(100_000),
		Limit:         amt(100),
		SpentInPeriod: amt(40),
		ResetAt:       resetT,
	}
}

// beforeReset is a validity window lying entirely before the reset time.
func beforeReset() ledger.Interval {
	return ledger.Interval{From: resetT - 2000, To: resetT - 1000}
}

// atReset is a validity window starting exactly at the reset time.
func atReset() ledger.Interval {
	return ledger.Interval{From: resetT, To: resetT + 1000}
}

func chargeCtx(window ledger.Interval, signer ledger.Identity, paid int64) ledger.TxContext {
	ctx := ledger.TxContext{
		Signers:  []ledger.Identity{signer},
		Validity: window,
	}
	if paid > 0 {
		ctx.Outputs = []ledger.Output{{To: merchant, Asset: ledger.AssetBase, Value: amt(paid)}}
	}
	return ctx
}

func signedBy(id ledger.Identity) ledger.TxContext {
	return ledger.TxContext{Signers: []ledger.Identity{id}, Validity: beforeReset()}
}

// =============================================================================
// ALLOWANCE HELPER
// =============================================================================

func TestRemainingAllowance_BeforeReset_LimitMinusSpent(t *testing.T) {
	// GIVEN: limit 100, spent 40, validity window entirely before the reset
	// WHEN: Computing the remaining allowance
	// THEN: remaining = 100 - 40 = 60

	got := subscription.RemainingAllowance(chargeCtx(beforeReset(), merchant, 0), testState())
	if !got.Equal(amt(60)) {
		t.Errorf("expected 60 remaining, got %s", got)
	}
}

func TestRemainingAllowance_WindowReachesReset_FullLimit(t *testing.T) {
	// GIVEN: limit 100, spent 40, validity window starting at the reset time
	// WHEN: Computing the remaining allowance
	// THEN: the allowance replenishes to the full limit, spent is ignored

	got := subscription.RemainingAllowance(chargeCtx(atReset(), merchant, 0), testState())
	if !got.Equal(amt(100)) {
		t.Errorf("expected full limit 100, got %s", got)
	}
}

func TestRemainingAllowance_OverSpent_NoClampToZero(t *testing.T) {
	// GIVEN: a record spent beyond its limit (invariant violated upstream)
	// WHEN: Computing the remaining allowance before the reset
	// THEN: the result goes negative rather than clamping, so any positive
	//       charge fails the amount check naturally

	s := testState()
	s.SpentInPeriod = amt(130)

	got := subscription.RemainingAllowance(chargeCtx(beforeReset(), merchant, 0), s)
	if !got.Equal(amt(-30)) {
		t.Errorf("expected -30 remaining, got %s", got)
	}

	err := subscription.Evaluate(s, subscription.Charge{Amount: amt(1)}, chargeCtx(beforeReset(), merchant, 1))
	if !errors.Is(err, subscription.ErrAllowanceExceeded) {
		t.Errorf("expected allowance rejection against over-spent record, got %v", err)
	}
}

// =============================================================================
// CHARGE
// =============================================================================

func TestCharge_WithinAllowance_Accepted(t *testing.T) {
	// GIVEN: limit 100, spent 40, window before reset
	// WHEN: Merchant charges 50 with a matching 50-unit transfer
	// THEN: Accept

	err := subscription.Evaluate(testState(), subscription.Charge{Amount: amt(50)},
		chargeCtx(beforeReset(), merchant, 50))
	if err != nil {
		t.Errorf("expected accept, got %v", err)
	}
}

func TestCharge_ExceedsRemaining_Rejected(t *testing.T) {
	// GIVEN: Same state, remaining allowance is 60
	// WHEN: Merchant charges 61
	// THEN: Reject with allowance exceeded

	err := subscription.Evaluate(testState(), subscription.Charge{Amount: amt(61)},
		chargeCtx(beforeReset(), merchant, 61))
	if !errors.Is(err, subscription.ErrAllowanceExceeded) {
		t.Errorf("expected ErrAllowanceExceeded, got %v", err)
	}
}

func TestCharge_NoMatchingTransfer_Rejected(t *testing.T) {
	// GIVEN: Merchant signs and the amount is within allowance
	// WHEN: The transaction pays the merchant nothing
	// THEN: Reject with insufficient matching payment

	err := subscription.Evaluate(testState(), subscription.Charge{Amount: amt(50)},
		chargeCtx(beforeReset(), merchant, 0))
	if !errors.Is(err, subscription.ErrInsufficientPayment) {
		t.Errorf("expected ErrInsufficientPayment, got %v", err)
	}
}

func TestCharge_PartialTransfer_Rejected(t *testing.T) {
	err := subscription.Evaluate(testState(), subscription.Charge{Amount: amt(50)},
		chargeCtx(beforeReset(), merchant, 49))
	if !errors.Is(err, subscription.ErrInsufficientPayment) {
		t.Errorf("expected ErrInsufficientPayment, got %v", err)
	}
}

func TestCharge_Overpayment_Accepted(t *testing.T) {
	// Paying more than charged satisfies valuePaidTo >= amount.
	err := subscription.Evaluate(testState(), subscription.Charge{Amount: amt(50)},
		chargeCtx(beforeReset(), merchant, 60))
	if err != nil {
		t.Errorf("expected accept, got %v", err)
	}
}

func TestCharge_SubscriberSignatureOnly_Rejected(t *testing.T) {
	// GIVEN: A valid charge in every other respect
	// WHEN: Only the subscriber signed
	// THEN: Reject with missing signature - no branch accepts a substitute signer

	err := subscription.Evaluate(testState(), subscription.Charge{Amount: amt(50)},
		chargeCtx(beforeReset(), subscriber, 50))
	if !errors.Is(err, subscription.ErrMissingSignature) {
		t.Errorf("expected ErrMissingSignature, got %v", err)
	}
}

func TestCharge_NonPositiveAmount_Rejected(t *testing.T) {
	for _, v := range []int64{0, -5} {
		err := subscription.Evaluate(testState(), subscription.Charge{Amount: amt(v)},
			chargeCtx(beforeReset(), merchant, 50))
		if !errors.Is(err, subscription.ErrNonPositiveAmount) {
			t.Errorf("amount %d: expected ErrNonPositiveAmount, got %v", v, err)
		}
	}
}

func TestCharge_AfterReset_FullLimitAvailable(t *testing.T) {
	// GIVEN: limit 100, spent 40, validity window starting at the reset time
	// WHEN: Merchant charges the full 100 with a matching transfer
	// THEN: Accept - the allowance resets within this very transaction

	err := subscription.Evaluate(testState(), subscription.Charge{Amount: amt(100)},
		chargeCtx(atReset(), merchant, 100))
	if err != nil {
		t.Errorf("expected accept after reset, got %v", err)
	}
}

func TestCharge_WindowTouchingReset_FullLimitAvailable(t *testing.T) {
	// The window only needs to include one instant at or after the reset.
	window := ledger.Interval{From: resetT - 1000, To: resetT}
	err := subscription.Evaluate(testState(), subscription.Charge{Amount: amt(100)},
		chargeCtx(window, merchant, 100))
	if err != nil {
		t.Errorf("expected accept when window touches reset, got %v", err)
	}
}

// =============================================================================
// CANCEL
// =============================================================================

func TestCancel_SubscriberSigned_Accepted(t *testing.T) {
	if err := subscription.Evaluate(testState(), subscription.Cancel{}, signedBy(subscriber)); err != nil {
		t.Errorf("expected accept, got %v", err)
	}
}

func TestCancel_MerchantSignatureOnly_Rejected(t *testing.T) {
	err := subscription.Evaluate(testState(), subscription.Cancel{}, signedBy(merchant))
	if !errors.Is(err, subscription.ErrMissingSignature) {
		t.Errorf("expected ErrMissingSignature, got %v", err)
	}
}

// =============================================================================
// TOP-UP
// =============================================================================

func TestTopUp_SubscriberSignedPositiveAmount_Accepted(t *testing.T) {
	err := subscription.Evaluate(testState(), subscription.TopUp{Amount: amt(25)}, signedBy(subscriber))
	if err != nil {
		t.Errorf("expected accept, got %v", err)
	}
}

func TestTopUp_ZeroAmount_Rejected(t *testing.T) {
	err := subscription.Evaluate(testState(), subscription.TopUp{Amount: amt(0)}, signedBy(subscriber))
	if !errors.Is(err, subscription.ErrNonPositiveAmount) {
		t.Errorf("expected ErrNonPositiveAmount, got %v", err)
	}
}

func TestTopUp_MerchantSignatureOnly_Rejected(t *testing.T) {
	err := subscription.Evaluate(testState(), subscription.TopUp{Amount: amt(25)}, signedBy(merchant))
	if !errors.Is(err, subscription.ErrMissingSignature) {
		t.Errorf("expected ErrMissingSignature, got %v", err)
	}
}

// DOCUMENTED LIMITATION: the engine does not verify that the declared top-up
// amount matches any actual incoming transfer. A top-up claiming 1000 with no
// transfer at all is still accepted; the off-chain workflow owns honesty of
// the declaration. Carried through deliberately - do not tighten without
// revisiting the engine's contract.
func TestTopUp_DeclaredAmountNotMatchedToTransfer_Gap(t *testing.T) {
	ctx := signedBy(subscriber) // no outputs at all
	err := subscription.Evaluate(testState(), subscription.TopUp{Amount: amt(1000)}, ctx)
	if err != nil {
		t.Errorf("documented gap: unbacked top-up declaration should be accepted, got %v", err)
	}
}

// =============================================================================
// UPDATE
// =============================================================================

func TestUpdate_ValidParameters_Accepted(t *testing.T) {
	act := subscription.Update{NewLimit: amt(200), NewPeriod: 50_000, NewResetAt: resetT + 50_000}
	if err := subscription.Evaluate(testState(), act, signedBy(subscriber)); err != nil {
		t.Errorf("expected accept, got %v", err)
	}
}

func TestUpdate_ZeroParameters_Accepted(t *testing.T) {
	// All three checks are >= 0, so zeros pass.
	act := subscription.Update{NewLimit: amt(0), NewPeriod: 0, NewResetAt: 0}
	if err := subscription.Evaluate(testState(), act, signedBy(subscriber)); err != nil {
		t.Errorf("expected accept for zero parameters, got %v", err)
	}
}

func TestUpdate_SingleNegativeField_Rejected(t *testing.T) {
	// Each negative field alone must reject even when the others are valid.
	cases := map[string]subscription.Update{
		"negative limit":  {NewLimit: amt(-1), NewPeriod: 50_000, NewResetAt: resetT},
		"negative period": {NewLimit: amt(100), NewPeriod: -1, NewResetAt: resetT},
		"negative reset":  {NewLimit: amt(100), NewPeriod: 50_000, NewResetAt: -1},
	}
	for name, act := range cases {
		err := subscription.Evaluate(testState(), act, signedBy(subscriber))
		if !errors.Is(err, subscription.ErrNegativeParameter) {
			t.Errorf("%s: expected ErrNegativeParameter, got %v", name, err)
		}
	}
}

func TestUpdate_MerchantSignatureOnly_Rejected(t *testing.T) {
	act := subscription.Update{NewLimit: amt(200), NewPeriod: 50_000, NewResetAt: resetT}
	err := subscription.Evaluate(testState(), act, signedBy(merchant))
	if !errors.Is(err, subscription.ErrMissingSignature) {
		t.Errorf("expected ErrMissingSignature, got %v", err)
	}
}

// =============================================================================
// VERDICT SHAPE
// =============================================================================

func TestEvaluate_RejectionCarriesFirstViolatedCheck(t *testing.T) {
	// GIVEN: A charge violating both the signature and the payment check
	// WHEN: Evaluating
	// THEN: The rejection names the first violated condition (signature)

	err := subscription.Evaluate(testState(), subscription.Charge{Amount: amt(50)},
		chargeCtx(beforeReset(), subscriber, 0))

	var rej *subscription.Rejection
	if !errors.As(err, &rej) {
		t.Fatalf("expected *Rejection, got %T", err)
	}
	if rej.Check != "merchant signature" {
		t.Errorf("expected first violated check to be reported, got %q", rej.Check)
	}
	if !subscription.IsRejection(err) {
		t.Error("IsRejection should report true")
	}
}

func TestEvaluate_NoSignersAtAll_Rejected(t *testing.T) {
	ctx := ledger.TxContext{Validity: beforeReset()}
	for name, act := range map[string]subscription.Action{
		"charge": subscription.Charge{Amount: amt(1)},
		"cancel": subscription.Cancel{},
		"top_up": subscription.TopUp{Amount: amt(1)},
		"update": subscription.Update{NewLimit: amt(1), NewPeriod: 1, NewResetAt: 1},
	} {
		if err := subscription.Evaluate(testState(), act, ctx); !errors.Is(err, subscription.ErrMissingSignature) {
			t.Errorf("%s: expected ErrMissingSignature with empty signer set, got %v", name, err)
		}
	}
}
