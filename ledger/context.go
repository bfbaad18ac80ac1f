/*
context.go - Read-only facts about the enclosing transaction

PURPOSE:
  TxContext carries everything the decision engine may observe about the
  transaction asking for authorization: which identities signed it, what it
  pays to whom, and the validity window it executes within. The host
  assembles it; the engine only reads it.

TRUST MODEL:
  The signer set is attested by the host (signatures were already verified
  against the transaction body). This package therefore checks membership,
  not cryptography.

SEE ALSO:
  - codec.go: fail-closed decoding of untrusted context bytes
  - ../subscription/decision.go: the consumer of SignedBy/ValuePaidTo
*/
package ledger

// Output is a single transfer made by the enclosing transaction: Value of
// Asset paid to the plain-signature address of To.
type Output struct {
	To    Identity `json:"to"`
	Asset Asset    `json:"asset,omitempty"`
	Value Amount   `json:"value"`
}

// isBase reports whether the output transfers the designated base asset.
// An empty asset code defaults to the base asset.
func (o Output) isBase() bool {
	return o.Asset == AssetBase || o.Asset == ""
}

// TxContext is the immutable snapshot of the enclosing transaction.
type TxContext struct {
	Signers  []Identity `json:"signers"`
	Outputs  []Output   `json:"outputs"`
	Validity Interval   `json:"validity"`
}

// SignedBy reports whether the identity's key hash is in the transaction's
// signer set. Absence is a hard rejection for any check that requires it.
func (c TxContext) SignedBy(id Identity) bool {
	for _, s := range c.Signers {
		if s == id {
			return true
		}
	}
	return false
}

// ValuePaidTo sums the base-asset value transferred to the plain-signature
// address of id across all outputs. Non-base assets never count.
func (c TxContext) ValuePaidTo(id Identity) Amount {
	total := ZeroAmount()
	for _, o := range c.Outputs {
		if o.To == id && o.isBase() {
			total = total.Add(o.Value)
		}
	}
	return total
}
