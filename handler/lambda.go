package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
	"Access-Control-Allow-Headers": "Authorization, Content-Type, X-Correlation-Id",
}

// HandleLambda serves the same routes as Routes behind API Gateway.
func (h *Handler) HandleLambda(ctx context.Context, event events.APIGatewayProxyRequest) (resp events.APIGatewayProxyResponse, err error) {
	corrID := correlationID(header(event.Headers, correlationHeader))

	defer func() {
		if p := recover(); p != nil {
			h.logger.Error("panic serving request", "path", event.Path, "panic", p, "correlation_id", corrID)
			resp = jsonResponse(http.StatusInternalServerError, errorResponse{Error: fmt.Sprint(p)}, corrID)
			err = nil
		}
	}()

	method := strings.ToUpper(event.HTTPMethod)
	path := strings.TrimSuffix(event.Path, "/")

	switch {
	case method == http.MethodOptions:
		return events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent, Headers: responseHeaders(corrID)}, nil
	case path == "/health" && method == http.MethodGet:
		return jsonResponse(http.StatusOK, map[string]string{"status": "ok"}, corrID), nil
	case path != "/chat":
		return jsonResponse(http.StatusNotFound, errorResponse{Error: "not found"}, corrID), nil
	case method != http.MethodPost:
		return jsonResponse(http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"}, corrID), nil
	}

	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, decErr := base64.StdEncoding.DecodeString(event.Body)
		if decErr != nil {
			decoded = nil
		}
		body = decoded
	}

	status, payload := h.chat(ctx, header(event.Headers, "Authorization"), body, corrID)
	return jsonResponse(status, payload, corrID), nil
}

// header looks name up case-insensitively; API Gateway preserves client casing.
func header(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func responseHeaders(corrID string) map[string]string {
	h := make(map[string]string, len(corsHeaders)+2)
	for k, v := range corsHeaders {
		h[k] = v
	}
	h["Content-Type"] = "application/json"
	h[correlationHeader] = corrID
	return h
}

func jsonResponse(status int, v any, corrID string) events.APIGatewayProxyResponse {
	raw, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		raw = []byte(`{"error":"internal error"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    responseHeaders(corrID),
		Body:       string(raw),
	}
}
