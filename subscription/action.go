/*
action.go - The tagged action variants an evaluation can be asked about

PURPOSE:
  Action is a sealed sum type with one case per operation. The decision
  engine dispatches on the concrete variant with an exhaustive type switch;
  there are no string tags or flags in the checks themselves.

VARIANTS:
  Charge(amount)                      merchant pulls funds
  Cancel                              subscriber terminates the arrangement
  TopUp(amount)                       subscriber declares a deposit
  Update(limit, period, resetAt)      subscriber replaces period parameters

WIRE FORMAT:
  {"tag": "charge", "amount": "50"}
  {"tag": "cancel"}
  {"tag": "top_up", "amount": "25"}
  {"tag": "update", "new_limit": "100", "new_period": 2592000000, "new_reset_at": 1756500000000}

  Unknown tags and missing payload fields fail closed (see codec.go).
*/
package subscription

import (
	"github.com/warp/pullpay/ledger"
)

// Tag discriminates action variants on the wire and in audit records.
type Tag string

const (
	TagCharge Tag = "charge"
	TagCancel Tag = "cancel"
	TagTopUp  Tag = "top_up"
	TagUpdate Tag = "update"
)

// Action is the operation a caller wants authorized. The interface is
// sealed: only the four variants in this file implement it.
type Action interface {
	Tag() Tag
	isAction()
}

// Charge is the merchant's request to withdraw Amount.
type Charge struct {
	Amount ledger.Amount
}

// Cancel is the subscriber's termination of the arrangement. Realizing the
// closure (removing or zeroing the record) is the transaction builder's job,
// outside this engine's verdict.
type Cancel struct{}

// TopUp is the subscriber's declared intent to add Amount to the held
// balance.
type TopUp struct {
	Amount ledger.Amount
}

// Update replaces the subscription's period parameters.
type Update struct {
	NewLimit   ledger.Amount
	NewPeriod  ledger.Duration
	NewResetAt ledger.Timestamp
}

func (Charge) Tag() Tag { return TagCharge }
func (Cancel) Tag() Tag { return TagCancel }
func (TopUp) Tag() Tag  { return TagTopUp }
func (Update) Tag() Tag { return TagUpdate }

func (Charge) isAction() {}
func (Cancel) isAction() {}
func (TopUp) isAction()  {}
func (Update) isAction() {}
