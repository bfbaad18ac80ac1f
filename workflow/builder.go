package workflow

import (
	"fmt"

	"github.com/warp/pullpay/ledger"
	"github.com/warp/pullpay/subscription"
)

// =============================================================================
// PROPOSAL - One fully assembled action transaction
// =============================================================================

// Proposal bundles an action with the transaction context built for it and
// the successor state a correct transaction must produce. Successor is nil
// for Cancel: closure removes the record instead of continuing it.
type Proposal struct {
	Action    subscription.Action
	Context   ledger.TxContext
	Successor *subscription.State
}

// =============================================================================
// BUILDER
// =============================================================================

// Builder assembles action proposals. Every build is pre-validated through
// subscription.Evaluate so the workflow only ever emits accepted actions.
type Builder struct {
	Keys *Keyring

	// Now supplies the lower bound of each validity window.
	Now func() ledger.Timestamp

	// Window is the width of each validity window.
	Window ledger.Duration
}

// OpenSubscription constructs the initial state record at subscription
// creation. The first period runs from now until now+period.
func OpenSubscription(subscriber, merchant ledger.Identity, period ledger.Duration, limit ledger.Amount, now ledger.Timestamp) subscription.State {
	return subscription.State{
		Subscriber:    subscriber,
		Merchant:      merchant,
		Period:        period,
		Limit:         limit,
		SpentInPeriod: ledger.ZeroAmount(),
		ResetAt:       now.Add(period),
	}
}

// Charge builds a merchant withdrawal: the merchant signs, and the
// transaction pays the charged amount to the merchant in the base asset.
func (b *Builder) Charge(s subscription.State, amount ledger.Amount) (Proposal, error) {
	ctx := b.context(s.Merchant)
	ctx.Outputs = []ledger.Output{{To: s.Merchant, Asset: ledger.AssetBase, Value: amount}}
	return b.finish(s, subscription.Charge{Amount: amount}, ctx)
}

// Cancel builds the subscriber's termination.
func (b *Builder) Cancel(s subscription.State) (Proposal, error) {
	return b.finish(s, subscription.Cancel{}, b.context(s.Subscriber))
}

// TopUp builds the subscriber's deposit declaration. The engine does not
// match the declared amount against an incoming transfer, so the builder is
// the place that must keep the declaration honest: it records the matching
// deposit output to the subscriber's position.
func (b *Builder) TopUp(s subscription.State, amount ledger.Amount) (Proposal, error) {
	ctx := b.context(s.Subscriber)
	ctx.Outputs = []ledger.Output{{To: s.Subscriber, Asset: ledger.AssetBase, Value: amount}}
	return b.finish(s, subscription.TopUp{Amount: amount}, ctx)
}

// Update builds the subscriber's replacement of period parameters.
func (b *Builder) Update(s subscription.State, newLimit ledger.Amount, newPeriod ledger.Duration, newResetAt ledger.Timestamp) (Proposal, error) {
	act := subscription.Update{NewLimit: newLimit, NewPeriod: newPeriod, NewResetAt: newResetAt}
	return b.finish(s, act, b.context(s.Subscriber))
}

func (b *Builder) context(signer ledger.Identity) ledger.TxContext {
	now := b.Now()
	return ledger.TxContext{
		Signers:  []ledger.Identity{signer},
		Validity: ledger.Interval{From: now, To: now.Add(b.Window)},
	}
}

func (b *Builder) finish(s subscription.State, a subscription.Action, ctx ledger.TxContext) (Proposal, error) {
	// A declared signer we cannot actually sign for would produce a
	// transaction the host throws out.
	for _, signer := range ctx.Signers {
		if b.Keys != nil && !b.Keys.Holds(signer) {
			return Proposal{}, fmt.Errorf("keyring holds no key for signer %s", signer)
		}
	}
	if err := subscription.Evaluate(s, a, ctx); err != nil {
		return Proposal{}, fmt.Errorf("proposal failed evaluation: %w", err)
	}
	next, err := Successor(s, a, ctx)
	if err != nil {
		return Proposal{}, err
	}
	return Proposal{Action: a, Context: ctx, Successor: next}, nil
}

// =============================================================================
// SUCCESSOR - The continuing state record
// =============================================================================

// Successor computes the state record a correct transaction must attach to
// the continuing ledger position for an accepted action. The decision engine
// never inspects this; its correctness is entirely this package's burden.
//
// Charge: when the validity window reaches ResetAt the period rolls over -
// spending restarts at the charged amount and ResetAt advances by whole
// periods past the window. Otherwise the charge accumulates into
// SpentInPeriod. TopUp leaves the record unchanged (the held balance lives
// on the ledger position, not in the record). Update replaces the period
// parameters and keeps SpentInPeriod until the next reset. Cancel has no
// successor.
func Successor(s subscription.State, a subscription.Action, ctx ledger.TxContext) (*subscription.State, error) {
	switch act := a.(type) {
	case subscription.Charge:
		next := s
		if ctx.Validity.Reaches(s.ResetAt) {
			next.SpentInPeriod = act.Amount
			next.ResetAt = advanceReset(s.ResetAt, s.Period, ctx.Validity.To)
		} else {
			next.SpentInPeriod = s.SpentInPeriod.Add(act.Amount)
		}
		return &next, nil

	case subscription.Cancel:
		return nil, nil

	case subscription.TopUp:
		next := s
		return &next, nil

	case subscription.Update:
		next := s
		next.Limit = act.NewLimit
		next.Period = act.NewPeriod
		next.ResetAt = act.NewResetAt
		return &next, nil

	default:
		return nil, fmt.Errorf("unknown action %T", a)
	}
}

// advanceReset moves resetAt forward by whole periods until it is past the
// window's upper bound. A non-positive period degenerates to one step past
// the window.
func advanceReset(resetAt ledger.Timestamp, period ledger.Duration, windowEnd ledger.Timestamp) ledger.Timestamp {
	if period <= 0 {
		return windowEnd + 1
	}
	next := resetAt
	for next <= windowEnd {
		next = next.Add(period)
	}
	return next
}
