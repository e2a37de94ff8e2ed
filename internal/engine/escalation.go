package engine

import (
	"context"
	"sync"
	"time"

	"github.com/edictlabs/edict/pkg/models"
)

// EscalationAction is the decision an external party returns for a
// suspended invocation.
type EscalationAction string

const (
	// EscalationProceed commits the work buffered so far.
	EscalationProceed EscalationAction = "proceed"
	// EscalationRetry rolls back and re-runs the directive once.
	EscalationRetry EscalationAction = "retry"
	// EscalationAbandon rolls back and surfaces the escalation.
	EscalationAbandon EscalationAction = "abandon"
)

// EscalationResponse is the external decision for a suspended invocation.
type EscalationResponse struct {
	// Action is the chosen action.
	Action EscalationAction
	// Message is an optional note from the decider.
	Message string
	// Timestamp is when the decision was made.
	Timestamp time.Time
}

// EscalationHandler suspends an escalated invocation until external input
// arrives. Await blocks indefinitely; the engine defines no internal
// timeout; abandoning a suspended call is the caller's responsibility via
// ctx cancellation, which always triggers rollback.
type EscalationHandler interface {
	Await(ctx context.Context, esc *models.Escalation) (*EscalationResponse, error)
}

// ChannelEscalationHandler is an EscalationHandler fed by Respond calls,
// e.g. from a CLI prompt or service endpoint. One escalation may be in
// flight at a time.
type ChannelEscalationHandler struct {
	mu       sync.RWMutex
	active   *models.Escalation
	response chan *EscalationResponse
}

// NewChannelEscalationHandler creates a handler with a single-slot
// response channel.
func NewChannelEscalationHandler() *ChannelEscalationHandler {
	return &ChannelEscalationHandler{response: make(chan *EscalationResponse, 1)}
}

// Await blocks until Respond is called or ctx is cancelled.
func (h *ChannelEscalationHandler) Await(ctx context.Context, esc *models.Escalation) (*EscalationResponse, error) {
	h.mu.Lock()
	if h.active != nil {
		h.mu.Unlock()
		return nil, models.NewError(models.ErrProjectBusy, "escalation already awaiting a decision")
	}
	h.active = esc
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		h.active = nil
		h.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case resp := <-h.response:
		return resp, nil
	}
}

// Respond delivers the external decision to the waiting invocation.
func (h *ChannelEscalationHandler) Respond(resp *EscalationResponse) error {
	h.mu.RLock()
	waiting := h.active != nil
	h.mu.RUnlock()
	if !waiting {
		return models.NewError(models.ErrActionFailed, "no escalation awaiting a decision")
	}
	if resp.Timestamp.IsZero() {
		resp.Timestamp = time.Now()
	}

	select {
	case h.response <- resp:
		return nil
	default:
		return models.NewError(models.ErrActionFailed, "escalation response already delivered")
	}
}

// Current returns the escalation awaiting a decision, if any.
func (h *ChannelEscalationHandler) Current() *models.Escalation {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.active
}
