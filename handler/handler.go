package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"tourism-chat/internal/identity"
	"tourism-chat/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

// ChatUseCase is the application boundary used by both transports.
type ChatUseCase interface {
	Chat(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
}

type Handler struct {
	uc     ChatUseCase
	logger *slog.Logger
}

type chatRequest struct {
	Message *string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHandler(uc ChatUseCase, logger *slog.Logger) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: usecase must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{uc: uc, logger: logger}, nil
}

// chat runs one request independent of transport and returns the status and
// JSON body to send.
func (h *Handler) chat(ctx context.Context, authorization string, body []byte, correlationID string) (int, any) {
	in := usecase.ChatInput{
		Credential: identity.CredentialFromHeader(authorization),
		Message:    parseMessage(body),
	}

	out, err := h.uc.Chat(ctx, in)
	if err != nil {
		status, msg := mapError(err)
		h.logger.Warn("chat request failed",
			"status", status,
			"error", err,
			"correlation_id", correlationID,
		)
		return status, errorResponse{Error: msg}
	}
	return http.StatusOK, chatResponse{Response: out.Response}
}

// parseMessage returns nil unless body is a JSON object with a string message.
func parseMessage(body []byte) *string {
	var req chatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil
	}
	return req.Message
}

func mapError(err error) (int, string) {
	var ue *usecase.Error
	if !errors.As(err, &ue) {
		return http.StatusInternalServerError, "internal error"
	}
	switch ue.Code {
	case usecase.ErrorUnauthorized:
		return http.StatusUnauthorized, "Unauthorized"
	case usecase.ErrorInvalidCredential:
		return http.StatusUnauthorized, "Invalid token"
	case usecase.ErrorMalformedRequest:
		return http.StatusBadRequest, "message is required"
	case usecase.ErrorStoreUnavailable:
		return http.StatusInternalServerError, "conversation store unavailable"
	case usecase.ErrorCompletion:
		return http.StatusBadGateway, "completion provider error"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func correlationID(provided string) string {
	if id := strings.TrimSpace(provided); id != "" {
		return id
	}
	return uuid.NewString()
}
