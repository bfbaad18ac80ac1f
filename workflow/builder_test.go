package workflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/pullpay/ledger"
	"github.com/warp/pullpay/subscription"
	"github.com/warp/pullpay/workflow"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const (
	openedAt ledger.Timestamp = 1_000_000
	period   ledger.Duration  = 100_000
)

func newTestBuilder(t *testing.T, now ledger.Timestamp) (*workflow.Builder, ledger.Identity, ledger.Identity) {
	keys := workflow.NewKeyring()
	subscriber, err := keys.Generate()
	require.NoError(t, err)
	merchant, err := keys.Generate()
	require.NoError(t, err)

	b := &workflow.Builder{
		Keys:   keys,
		Now:    func() ledger.Timestamp { return now },
		Window: 1000,
	}
	return b, subscriber, merchant
}

func openState(subscriber, merchant ledger.Identity) subscription.State {
	return workflow.OpenSubscription(subscriber, merchant, period, ledger.NewAmount(100), openedAt)
}

// =============================================================================
// KEYRING
// =============================================================================

func TestKeyring_GenerateAndSign(t *testing.T) {
	keys := workflow.NewKeyring()
	id, err := keys.Generate()
	require.NoError(t, err)

	assert.True(t, id.Valid(), "generated identity should be well-formed")
	assert.True(t, keys.Holds(id))

	sig, err := keys.Sign(id, []byte("tx body"))
	require.NoError(t, err)
	assert.Len(t, sig, 64, "ed25519 signature length")

	_, err = keys.Sign("unknown-identity", []byte("tx body"))
	assert.Error(t, err, "signing with an unheld key should fail")
}

// =============================================================================
// OPEN + CHARGE
// =============================================================================

func TestOpenSubscription_FirstPeriod(t *testing.T) {
	// GIVEN: A subscription opened at T with period P
	// THEN: Nothing spent, reset scheduled at T+P

	_, subscriber, merchant := newTestBuilder(t, openedAt)
	s := openState(subscriber, merchant)

	assert.True(t, s.SpentInPeriod.IsZero())
	assert.Equal(t, openedAt.Add(period), s.ResetAt)
}

func TestBuilder_Charge_WithinPeriod(t *testing.T) {
	// GIVEN: A fresh subscription, charging mid-period
	// WHEN: Building a 60-unit charge
	// THEN: The proposal is accepted, pays the merchant, and the successor
	//       accumulates the spend without touching the reset time

	b, subscriber, merchant := newTestBuilder(t, openedAt+10_000)
	s := openState(subscriber, merchant)

	p, err := b.Charge(s, ledger.NewAmount(60))
	require.NoError(t, err)

	assert.True(t, p.Context.SignedBy(merchant))
	assert.True(t, p.Context.ValuePaidTo(merchant).Equal(ledger.NewAmount(60)))

	require.NotNil(t, p.Successor)
	assert.True(t, p.Successor.SpentInPeriod.Equal(ledger.NewAmount(60)))
	assert.Equal(t, s.ResetAt, p.Successor.ResetAt, "reset time unchanged mid-period")

	// And the proposal itself re-verifies.
	assert.NoError(t, subscription.Evaluate(s, p.Action, p.Context))
}

func TestBuilder_Charge_ExceedingAllowance_Refused(t *testing.T) {
	b, subscriber, merchant := newTestBuilder(t, openedAt+10_000)
	s := openState(subscriber, merchant)

	_, err := b.Charge(s, ledger.NewAmount(60))
	require.NoError(t, err)

	// The builder does not persist state; charge against an updated record.
	s.SpentInPeriod = ledger.NewAmount(60)
	_, err = b.Charge(s, ledger.NewAmount(50))
	assert.Error(t, err, "second charge exceeds the remaining 40")
	assert.True(t, subscription.IsRejection(err))
}

func TestBuilder_Charge_AcrossReset_RollsPeriodOver(t *testing.T) {
	// GIVEN: A record spent to 90/100, with the validity window reaching the
	//        reset time
	// WHEN: Charging the full limit
	// THEN: Accepted; the successor restarts spending at the charged amount
	//       and advances the reset past the window

	b, subscriber, merchant := newTestBuilder(t, openedAt.Add(period)) // at the reset
	s := openState(subscriber, merchant)
	s.SpentInPeriod = ledger.NewAmount(90)

	p, err := b.Charge(s, ledger.NewAmount(100))
	require.NoError(t, err)

	require.NotNil(t, p.Successor)
	assert.True(t, p.Successor.SpentInPeriod.Equal(ledger.NewAmount(100)))
	assert.True(t, p.Successor.ResetAt > p.Context.Validity.To,
		"reset must advance past the validity window")
	// Advance happens in whole periods from the previous reset.
	assert.Equal(t, ledger.Timestamp(0), (p.Successor.ResetAt-s.ResetAt)%ledger.Timestamp(period))
}

// =============================================================================
// CANCEL / TOP-UP / UPDATE
// =============================================================================

func TestBuilder_Cancel(t *testing.T) {
	b, subscriber, merchant := newTestBuilder(t, openedAt+10_000)
	s := openState(subscriber, merchant)

	p, err := b.Cancel(s)
	require.NoError(t, err)

	assert.True(t, p.Context.SignedBy(subscriber))
	assert.Nil(t, p.Successor, "cancel closes the record instead of continuing it")
}

func TestBuilder_TopUp_RecordsMatchingDeposit(t *testing.T) {
	// The engine does not check the declared amount against a transfer; the
	// builder compensates by always emitting the matching deposit output.

	b, subscriber, merchant := newTestBuilder(t, openedAt+10_000)
	s := openState(subscriber, merchant)

	p, err := b.TopUp(s, ledger.NewAmount(500))
	require.NoError(t, err)

	assert.True(t, p.Context.ValuePaidTo(subscriber).Equal(ledger.NewAmount(500)),
		"declared top-up must be backed by a matching deposit output")
	require.NotNil(t, p.Successor)
	assert.Equal(t, s, *p.Successor, "top-up leaves the state record unchanged")
}

func TestBuilder_Update_ReplacesPeriodParameters(t *testing.T) {
	b, subscriber, merchant := newTestBuilder(t, openedAt+10_000)
	s := openState(subscriber, merchant)
	s.SpentInPeriod = ledger.NewAmount(30)

	newReset := openedAt + 500_000
	p, err := b.Update(s, ledger.NewAmount(250), 200_000, newReset)
	require.NoError(t, err)

	require.NotNil(t, p.Successor)
	assert.True(t, p.Successor.Limit.Equal(ledger.NewAmount(250)))
	assert.Equal(t, ledger.Duration(200_000), p.Successor.Period)
	assert.Equal(t, newReset, p.Successor.ResetAt)
	assert.True(t, p.Successor.SpentInPeriod.Equal(ledger.NewAmount(30)),
		"spend in the running period survives a parameter update")
}

func TestBuilder_Update_NegativeParameter_Refused(t *testing.T) {
	b, subscriber, merchant := newTestBuilder(t, openedAt+10_000)
	s := openState(subscriber, merchant)

	_, err := b.Update(s, ledger.NewAmount(-1), 200_000, openedAt)
	assert.Error(t, err)
	assert.True(t, subscription.IsRejection(err))
}

// =============================================================================
// SUCCESSOR EDGE CASES
// =============================================================================

func TestSuccessor_ZeroPeriod_ResetStillAdvances(t *testing.T) {
	// A degenerate zero period must not loop forever; the reset lands just
	// past the window.
	s := subscription.State{
		Subscriber:    testID(0x01),
		Merchant:      testID(0x02),
		Period:        0,
		Limit:         ledger.NewAmount(100),
		SpentInPeriod: ledger.NewAmount(40),
		ResetAt:       1000,
	}
	ctx := ledger.TxContext{Validity: ledger.Interval{From: 1000, To: 2000}}

	next, err := workflow.Successor(s, subscription.Charge{Amount: ledger.NewAmount(10)}, ctx)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.True(t, next.ResetAt > ctx.Validity.To)
}

func testID(b byte) ledger.Identity {
	hex := []byte("0123456789abcdef")
	out := make([]byte, 2*ledger.IdentityHashSize)
	for i := range out {
		out[i] = hex[int(b)%16]
	}
	return ledger.Identity(out)
}
