package ledger

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Asset quantity on exact decimal arithmetic
// =============================================================================

// Asset identifies which asset an output transfers. The base asset is the
// designated settlement asset; allowance and payment checks only count it.
type Asset string

const AssetBase Asset = "base"

// Amount is a quantity of an asset. It wraps decimal.Decimal so that
// allowance arithmetic never suffers floating-point drift.
type Amount struct {
	Value decimal.Decimal
}

func NewAmount(value int64) Amount {
	return Amount{Value: decimal.NewFromInt(value)}
}

func NewAmountFromString(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, err
	}
	return Amount{Value: d}, nil
}

func ZeroAmount() Amount { return Amount{Value: decimal.Zero} }

func (a Amount) Add(b Amount) Amount       { return Amount{Value: a.Value.Add(b.Value)} }
func (a Amount) Sub(b Amount) Amount       { return Amount{Value: a.Value.Sub(b.Value)} }
func (a Amount) Neg() Amount               { return Amount{Value: a.Value.Neg()} }
func (a Amount) IsNegative() bool          { return a.Value.IsNegative() }
func (a Amount) IsZero() bool              { return a.Value.IsZero() }
func (a Amount) IsPositive() bool          { return a.Value.IsPositive() }
func (a Amount) Equal(b Amount) bool       { return a.Value.Equal(b.Value) }
func (a Amount) GreaterThan(b Amount) bool { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool    { return a.Value.LessThan(b.Value) }

func (a Amount) String() string { return a.Value.String() }

// MarshalJSON encodes the amount as a bare decimal (quoted per decimal's
// default encoding).
func (a Amount) MarshalJSON() ([]byte, error) { return a.Value.MarshalJSON() }

// UnmarshalJSON accepts both quoted and unquoted decimal representations.
func (a *Amount) UnmarshalJSON(data []byte) error { return a.Value.UnmarshalJSON(data) }
