package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"

	"github.com/aradsms/golang_services/internal/dispatch_service/domain"
)

// AuditHandler serves read-only views over messages and execution details.
type AuditHandler struct {
	details  domain.ExecutionDetailRepository
	messages domain.MessageRepository
	logger   *slog.Logger
}

func NewAuditHandler(details domain.ExecutionDetailRepository, messages domain.MessageRepository, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{
		details:  details,
		messages: messages,
		logger:   logger.With("handler", "audit"),
	}
}

// RegisterRoutes registers audit routes with the given router.
func (h *AuditHandler) RegisterRoutes(r chi.Router) {
	r.Get("/jobs/{jobID}/execution-details", h.handleListExecutionDetails)
	r.Get("/messages/{messageID}", h.handleGetMessage)
}

func (h *AuditHandler) handleListExecutionDetails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))
	jobID := chi.URLParam(r, "jobID")

	details, err := h.details.ListByJob(ctx, jobID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to list execution details", "error", err, "job_id", jobID)
		h.jsonError(w, logger, "Failed to load execution details", http.StatusInternalServerError)
		return
	}
	if len(details) == 0 {
		h.jsonError(w, logger, "No execution details for job", http.StatusNotFound)
		return
	}

	resp := JobExecutionResponse{
		JobID:           jobID,
		Details:         make([]ExecutionDetailResponse, 0, len(details)),
		MessageStatuses: messageStatuses(details),
	}
	for _, d := range details {
		resp.Details = append(resp.Details, toExecutionDetailResponse(d))
	}
	h.jsonResponse(w, logger, resp, http.StatusOK)
}

func (h *AuditHandler) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))
	messageID := chi.URLParam(r, "messageID")

	msg, err := h.messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.jsonError(w, logger, "Message not found", http.StatusNotFound)
			return
		}
		logger.ErrorContext(ctx, "Failed to load message", "error", err, "message_id", messageID)
		h.jsonError(w, logger, "Failed to load message", http.StatusInternalServerError)
		return
	}
	h.jsonResponse(w, logger, toMessageResponse(msg), http.StatusOK)
}

func (h *AuditHandler) jsonResponse(w http.ResponseWriter, logger *slog.Logger, body any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func (h *AuditHandler) jsonError(w http.ResponseWriter, logger *slog.Logger, message string, statusCode int) {
	logger.WarnContext(context.Background(), "API Error Response", "status_code", statusCode, "message", message)
	h.jsonResponse(w, logger, GenericErrorResponse{Error: message}, statusCode)
}
