/*
codec.go - Fail-closed boundary for untrusted input bytes

PURPOSE:
  The host delivers (state, action, context) as serialized documents.
  Everything here treats those bytes as hostile: any malformed encoding is a
  rejection before a single check runs. Host interaction stays at this
  boundary; Evaluate itself only ever sees decoded values.

SEE ALSO:
  - ../ledger/codec.go: TxContext decoding
  - action.go: the wire format of action envelopes
*/
package subscription

import (
	"encoding/json"
	"fmt"

	"github.com/warp/pullpay/ledger"
)

// rawState requires every field to be present; an absent field is a
// malformed record, not a zero value.
type rawState struct {
	Subscriber    *string           `json:"subscriber"`
	Merchant      *string           `json:"merchant"`
	Period        *ledger.Duration  `json:"period"`
	Limit         *ledger.Amount    `json:"limit"`
	SpentInPeriod *ledger.Amount    `json:"spent_in_period"`
	ResetAt       *ledger.Timestamp `json:"reset_at"`
}

// DecodeState deserializes untrusted bytes into a State.
func DecodeState(data []byte) (State, error) {
	var raw rawState
	if err := json.Unmarshal(data, &raw); err != nil {
		return State{}, fmt.Errorf("state is not valid JSON: %w", err)
	}
	if raw.Subscriber == nil || raw.Merchant == nil || raw.Period == nil ||
		raw.Limit == nil || raw.SpentInPeriod == nil || raw.ResetAt == nil {
		return State{}, fmt.Errorf("state record is missing required fields")
	}
	s := State{
		Subscriber:    ledger.Identity(*raw.Subscriber),
		Merchant:      ledger.Identity(*raw.Merchant),
		Period:        *raw.Period,
		Limit:         *raw.Limit,
		SpentInPeriod: *raw.SpentInPeriod,
		ResetAt:       *raw.ResetAt,
	}
	if err := s.Validate(); err != nil {
		return State{}, err
	}
	return s, nil
}

// actionEnvelope is the tagged wire shape shared by all variants.
type actionEnvelope struct {
	Tag        Tag               `json:"tag"`
	Amount     *ledger.Amount    `json:"amount,omitempty"`
	NewLimit   *ledger.Amount    `json:"new_limit,omitempty"`
	NewPeriod  *ledger.Duration  `json:"new_period,omitempty"`
	NewResetAt *ledger.Timestamp `json:"new_reset_at,omitempty"`
}

// DecodeAction deserializes untrusted bytes into an Action. Unknown tags and
// missing payload fields are errors.
func DecodeAction(data []byte) (Action, error) {
	var env actionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("action is not valid JSON: %w", err)
	}
	switch env.Tag {
	case TagCharge:
		if env.Amount == nil {
			return nil, fmt.Errorf("charge action is missing amount")
		}
		return Charge{Amount: *env.Amount}, nil
	case TagCancel:
		return Cancel{}, nil
	case TagTopUp:
		if env.Amount == nil {
			return nil, fmt.Errorf("top-up action is missing amount")
		}
		return TopUp{Amount: *env.Amount}, nil
	case TagUpdate:
		if env.NewLimit == nil || env.NewPeriod == nil || env.NewResetAt == nil {
			return nil, fmt.Errorf("update action is missing parameters")
		}
		return Update{
			NewLimit:   *env.NewLimit,
			NewPeriod:  *env.NewPeriod,
			NewResetAt: *env.NewResetAt,
		}, nil
	default:
		return nil, fmt.Errorf("unknown action tag %q", env.Tag)
	}
}

// EncodeAction serializes an action into its tagged wire shape.
func EncodeAction(a Action) ([]byte, error) {
	env := actionEnvelope{Tag: a.Tag()}
	switch act := a.(type) {
	case Charge:
		env.Amount = &act.Amount
	case TopUp:
		env.Amount = &act.Amount
	case Update:
		env.NewLimit = &act.NewLimit
		env.NewPeriod = &act.NewPeriod
		env.NewResetAt = &act.NewResetAt
	case Cancel:
		// tag only
	default:
		return nil, fmt.Errorf("unknown action %T", a)
	}
	return json.Marshal(env)
}

// EvaluateRaw is the host-facing entry point: decode all three documents,
// failing closed on any malformed encoding, then evaluate. The returned
// error is a *Rejection either way - decode failures carry ErrMalformedInput.
func EvaluateRaw(stateRaw, actionRaw, ctxRaw []byte) error {
	s, err := DecodeState(stateRaw)
	if err != nil {
		return reject("state encoding", ErrMalformedInput, err.Error())
	}
	a, err := DecodeAction(actionRaw)
	if err != nil {
		return reject("action encoding", ErrMalformedInput, err.Error())
	}
	ctx, err := ledger.DecodeTxContext(ctxRaw)
	if err != nil {
		return reject("context encoding", ErrMalformedInput, err.Error())
	}
	return Evaluate(s, a, ctx)
}
