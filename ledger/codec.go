package ledger

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// UNTRUSTED-INPUT DECODING - fail closed
// =============================================================================

// rawTxContext mirrors TxContext with pointers so that missing required
// fields are detectable instead of silently zero-valued.
type rawTxContext struct {
	Signers  []string    `json:"signers"`
	Outputs  []rawOutput `json:"outputs"`
	Validity *Interval   `json:"validity"`
}

type rawOutput struct {
	To    *string `json:"to"`
	Asset Asset   `json:"asset"`
	Value *Amount `json:"value"`
}

// DecodeTxContext deserializes untrusted bytes into a TxContext.
// Any malformed encoding - bad JSON, missing validity window, inverted
// window, unparseable identity, missing output value - is an error; the
// caller must treat that as a rejection before any check runs.
func DecodeTxContext(data []byte) (TxContext, error) {
	var raw rawTxContext
	if err := json.Unmarshal(data, &raw); err != nil {
		return TxContext{}, fmt.Errorf("context is not valid JSON: %w", err)
	}
	if raw.Validity == nil {
		return TxContext{}, fmt.Errorf("context is missing validity interval")
	}
	if err := raw.Validity.Validate(); err != nil {
		return TxContext{}, err
	}

	ctx := TxContext{Validity: *raw.Validity}

	for i, s := range raw.Signers {
		id, err := ParseIdentity(s)
		if err != nil {
			return TxContext{}, fmt.Errorf("signer %d: %w", i, err)
		}
		ctx.Signers = append(ctx.Signers, id)
	}

	for i, o := range raw.Outputs {
		if o.To == nil {
			return TxContext{}, fmt.Errorf("output %d: missing destination", i)
		}
		to, err := ParseIdentity(*o.To)
		if err != nil {
			return TxContext{}, fmt.Errorf("output %d: %w", i, err)
		}
		if o.Value == nil {
			return TxContext{}, fmt.Errorf("output %d: missing value", i)
		}
		asset := o.Asset
		if asset == "" {
			asset = AssetBase
		}
		ctx.Outputs = append(ctx.Outputs, Output{To: to, Asset: asset, Value: *o.Value})
	}

	return ctx, nil
}
