/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupling the internal model from
  the external contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers,
  except the raw evaluation triple which is passed through untouched so the
  decision engine's own fail-closed decoding stays authoritative.

SEE ALSO:
  - handlers.go: uses these types
*/
package api

import (
	"encoding/json"

	"github.com/warp/pullpay/ledger"
	"github.com/warp/pullpay/subscription"
)

// EvaluateRequest is the host-facing triple: three serialized documents,
// forwarded verbatim to the decision engine's boundary.
type EvaluateRequest struct {
	State   json.RawMessage `json:"state"`
	Action  json.RawMessage `json:"action"`
	Context json.RawMessage `json:"context"`
}

// VerdictDTO is the evaluation outcome.
type VerdictDTO struct {
	Verdict string `json:"verdict"` // "accept" or "reject"
	Reason  string `json:"reason,omitempty"`
}

// OpenSubscriptionRequest opens a new subscription.
type OpenSubscriptionRequest struct {
	Subscriber string        `json:"subscriber"`
	Merchant   string        `json:"merchant"`
	Period     int64         `json:"period"` // milliseconds
	Limit      ledger.Amount `json:"limit"`
}

// SubscriptionDTO represents a stored subscription.
type SubscriptionDTO struct {
	ID        string             `json:"id"`
	State     subscription.State `json:"state"`
	Status    string             `json:"status"`
	CreatedAt string             `json:"created_at"`
	UpdatedAt string             `json:"updated_at"`
}

// ActionRequest submits an action against a stored subscription. Action and
// Context are raw documents decoded by the engine's boundary.
type ActionRequest struct {
	Action  json.RawMessage `json:"action"`
	Context json.RawMessage `json:"context"`
}

// ActionResponseDTO is the outcome of an action against a stored
// subscription, including the successor state on acceptance.
type ActionResponseDTO struct {
	Verdict string              `json:"verdict"`
	Reason  string              `json:"reason,omitempty"`
	State   *subscription.State `json:"state,omitempty"`
	Status  string              `json:"status,omitempty"`
}

// EvaluationDTO is one audit row.
type EvaluationDTO struct {
	ID          string `json:"id"`
	ActionTag   string `json:"action_tag"`
	Verdict     string `json:"verdict"`
	Reason      string `json:"reason,omitempty"`
	EvaluatedAt string `json:"evaluated_at"`
}
