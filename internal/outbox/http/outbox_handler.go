// Package http provides the admin HTTP handlers for outbox envelope
// inspection and remediation.
package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/classhub/internal/httputil"
	"github.com/allisson/classhub/internal/outbox/domain"
	"github.com/allisson/classhub/internal/outbox/usecase"
)

// EnvelopeResponse represents an outbox envelope in admin API responses.
type EnvelopeResponse struct {
	ID           string          `json:"id"`
	EventType    string          `json:"event_type"`
	Payload      json.RawMessage `json:"payload"`
	Status       string          `json:"status"`
	AttemptCount int             `json:"attempt_count"`
	PublishedAt  *time.Time      `json:"published_at"`
	LastError    *string         `json:"last_error"`
	CreatedAt    time.Time       `json:"created_at"`
}

func toEnvelopeResponse(envelope *domain.Envelope) EnvelopeResponse {
	return EnvelopeResponse{
		ID:           envelope.ID.String(),
		EventType:    envelope.EventType,
		Payload:      envelope.Payload,
		Status:       string(envelope.Status),
		AttemptCount: envelope.AttemptCount,
		PublishedAt:  envelope.PublishedAt,
		LastError:    envelope.LastError,
		CreatedAt:    envelope.CreatedAt,
	}
}

// ListEnvelopesResponse wraps a page of envelopes.
type ListEnvelopesResponse struct {
	Envelopes []EnvelopeResponse `json:"envelopes"`
}

// OutboxHandler handles admin HTTP requests for outbox envelopes.
type OutboxHandler struct {
	outboxRepo usecase.EnvelopeRepository
	logger     *slog.Logger
}

// NewOutboxHandler creates a new OutboxHandler.
func NewOutboxHandler(outboxRepo usecase.EnvelopeRepository, logger *slog.Logger) *OutboxHandler {
	return &OutboxHandler{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// ListHandler lists the tenant's envelopes in a given status, newest first.
// GET /v1/admin/outbox?status=failed&limit=50
func (h *OutboxHandler) ListHandler(c *gin.Context) {
	status := domain.Status(c.DefaultQuery("status", string(domain.StatusFailed)))
	switch status {
	case domain.StatusPending, domain.StatusProcessing, domain.StatusPublished, domain.StatusFailed:
	default:
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid status %q", status), h.logger)
		return
	}

	limit, err := httputil.ParseLimit(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	envelopes, err := h.outboxRepo.ListByStatus(c.Request.Context(), status, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	response := ListEnvelopesResponse{Envelopes: make([]EnvelopeResponse, 0, len(envelopes))}
	for _, envelope := range envelopes {
		response.Envelopes = append(response.Envelopes, toEnvelopeResponse(envelope))
	}

	c.JSON(http.StatusOK, response)
}

// RequeueHandler puts a failed envelope back in line for dispatch with a
// fresh attempt budget.
// POST /v1/admin/outbox/:id/requeue - Returns 204 No Content.
func (h *OutboxHandler) RequeueHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := h.outboxRepo.Requeue(c.Request.Context(), id); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}
