/*
handlers.go - HTTP API handlers for the pull-payment authorization service

PURPOSE:
  Exposes the decision engine over REST. Handles HTTP request/response and
  JSON serialization, delegates every verdict to subscription.Evaluate, and
  persists state transitions through the workflow's successor construction.

ENDPOINTS:
  Evaluation:
    POST   /api/evaluate                     Stateless verdict on a raw triple

  Subscriptions:
    POST   /api/subscriptions                Open a subscription
    GET    /api/subscriptions                List subscriptions
    GET    /api/subscriptions/{id}           Get one subscription
    POST   /api/subscriptions/{id}/actions   Evaluate + apply an action
    GET    /api/subscriptions/{id}/evaluations  Verdict audit log

ERROR HANDLING:
  - 400: malformed encodings (fail-closed decode of untrusted documents)
  - 404: unknown subscription
  - 422: action rejected by the decision engine (reason in body)
  - 500: storage failures

SEE ALSO:
  - dto.go: request/response shapes
  - server.go: router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/warp/pullpay/ledger"
	"github.com/warp/pullpay/store/sqlite"
	"github.com/warp/pullpay/subscription"
	"github.com/warp/pullpay/workflow"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store *sqlite.Store
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{Store: store}
}

// =============================================================================
// EVALUATION HANDLER - stateless verdicts
// =============================================================================

// Evaluate renders a verdict on a raw (state, action, context) triple without
// touching storage. This is the host-facing boundary: all three documents
// are untrusted bytes and any malformed encoding fails closed.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.State) == 0 || len(req.Action) == 0 || len(req.Context) == 0 {
		writeError(w, http.StatusBadRequest, "state, action, and context are required", nil)
		return
	}

	tag := actionTagForMetrics(req.Action)
	start := time.Now()
	err := subscription.EvaluateRaw(req.State, req.Action, req.Context)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		observeVerdict(tag, "reject", elapsed)
		status := http.StatusUnprocessableEntity
		if errors.Is(err, subscription.ErrMalformedInput) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, VerdictDTO{Verdict: "reject", Reason: err.Error()})
		return
	}

	observeVerdict(tag, "accept", elapsed)
	writeJSON(w, http.StatusOK, VerdictDTO{Verdict: "accept"})
}

// =============================================================================
// SUBSCRIPTION HANDLERS
// =============================================================================

// OpenSubscription creates a subscription record.
func (h *Handler) OpenSubscription(w http.ResponseWriter, r *http.Request) {
	var req OpenSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	subscriber, err := ledger.ParseIdentity(req.Subscriber)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid subscriber identity", err)
		return
	}
	merchant, err := ledger.ParseIdentity(req.Merchant)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid merchant identity", err)
		return
	}
	if req.Period < 0 {
		writeError(w, http.StatusBadRequest, "Period must be non-negative", nil)
		return
	}
	if req.Limit.IsNegative() {
		writeError(w, http.StatusBadRequest, "Limit must be non-negative", nil)
		return
	}

	state := workflow.OpenSubscription(subscriber, merchant,
		ledger.Duration(req.Period), req.Limit,
		ledger.TimestampFromTime(time.Now()))

	rec := sqlite.SubscriptionRecord{
		ID:     uuid.NewString(),
		State:  state,
		Status: sqlite.StatusActive,
	}
	if err := h.Store.CreateSubscription(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create subscription", err)
		return
	}

	stored, err := h.Store.GetSubscription(r.Context(), rec.ID)
	if err != nil || stored == nil {
		writeError(w, http.StatusInternalServerError, "Failed to read back subscription", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSubscriptionDTO(*stored))
}

// ListSubscriptions returns all subscriptions.
func (h *Handler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Store.ListSubscriptions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list subscriptions", err)
		return
	}
	dtos := make([]SubscriptionDTO, len(recs))
	for i, rec := range recs {
		dtos[i] = toSubscriptionDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetSubscription returns a single subscription.
func (h *Handler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionDTO(*rec))
}

// SubmitAction evaluates an action against the stored record and, on accept,
// replaces the state with the successor the workflow constructs. Every
// verdict - accepted or not - lands in the audit log.
func (h *Handler) SubmitAction(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if rec.Status != sqlite.StatusActive {
		writeError(w, http.StatusConflict, "Subscription is cancelled", nil)
		return
	}

	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	action, err := subscription.DecodeAction(req.Action)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid action", err)
		return
	}
	txCtx, err := ledger.DecodeTxContext(req.Context)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid context", err)
		return
	}

	start := time.Now()
	verdictErr := subscription.Evaluate(rec.State, action, txCtx)
	elapsed := time.Since(start).Seconds()

	audit := sqlite.EvaluationRecord{
		ID:             uuid.NewString(),
		SubscriptionID: rec.ID,
		ActionTag:      string(action.Tag()),
	}

	if verdictErr != nil {
		observeVerdict(string(action.Tag()), "reject", elapsed)
		audit.Verdict = "reject"
		audit.Reason = verdictErr.Error()
		if err := h.Store.AppendEvaluation(r.Context(), audit); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to record evaluation", err)
			return
		}
		writeJSON(w, http.StatusUnprocessableEntity, ActionResponseDTO{
			Verdict: "reject",
			Reason:  verdictErr.Error(),
		})
		return
	}

	observeVerdict(string(action.Tag()), "accept", elapsed)
	audit.Verdict = "accept"
	if err := h.Store.AppendEvaluation(r.Context(), audit); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record evaluation", err)
		return
	}

	// Apply the continuing record the way a correctly built transaction
	// would. Cancel has no successor: the record is closed instead.
	successor, err := workflow.Successor(rec.State, action, txCtx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build successor state", err)
		return
	}

	resp := ActionResponseDTO{Verdict: "accept", Status: sqlite.StatusActive}
	if successor == nil {
		if err := h.Store.CancelSubscription(r.Context(), rec.ID); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to cancel subscription", err)
			return
		}
		resp.Status = sqlite.StatusCancelled
	} else {
		if err := h.Store.UpdateState(r.Context(), rec.ID, *successor); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to update subscription", err)
			return
		}
		resp.State = successor
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListEvaluations returns the verdict audit log for a subscription.
func (h *Handler) ListEvaluations(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookup(w, r)
	if !ok {
		return
	}
	recs, err := h.Store.ListEvaluations(r.Context(), rec.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list evaluations", err)
		return
	}
	dtos := make([]EvaluationDTO, len(recs))
	for i, e := range recs {
		dtos[i] = EvaluationDTO{
			ID:          e.ID,
			ActionTag:   e.ActionTag,
			Verdict:     e.Verdict,
			Reason:      e.Reason,
			EvaluatedAt: e.EvaluatedAt.Format(time.RFC3339Nano),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*sqlite.SubscriptionRecord, bool) {
	id := chi.URLParam(r, "id")
	rec, err := h.Store.GetSubscription(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get subscription", err)
		return nil, false
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "Subscription not found", nil)
		return nil, false
	}
	return rec, true
}

// actionTagForMetrics extracts the tag label for metrics without trusting
// the document; decode failures are labelled unknown.
func actionTagForMetrics(raw json.RawMessage) string {
	a, err := subscription.DecodeAction(raw)
	if err != nil {
		return "unknown"
	}
	return string(a.Tag())
}

func toSubscriptionDTO(rec sqlite.SubscriptionRecord) SubscriptionDTO {
	return SubscriptionDTO{
		ID:        rec.ID,
		State:     rec.State,
		Status:    rec.Status,
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
		UpdatedAt: rec.UpdatedAt.Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := errorResponse{Error: msg}
	if err != nil {
		resp.Detail = err.Error()
	}
	writeJSON(w, status, resp)
}
