// Package handler is the Lambda entry point for the webhook: it validates
// the platform signature, decodes the body, and hands each text-message
// event to the dispatcher.
package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"line-chat-agent/internal/domain"
	"line-chat-agent/internal/integrations/line"
	"line-chat-agent/internal/usecase"
)

const (
	signatureHeader   = "x-line-signature"
	correlationHeader = "x-correlation-id"

	bodyOK           = "OK"
	bodyBadSignature = "Bad signature"
	bodyInternal     = "Internal Error"

	// Only a prefix of the payload goes to the log.
	bodyLogLimit = 1000
)

// Dispatcher processes one inbound message event to a terminal outcome.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev domain.MessageEvent) usecase.Outcome
}

type Handler struct {
	dispatcher    Dispatcher
	channelSecret string
	log           *slog.Logger
}

func NewHandler(dispatcher Dispatcher, channelSecret string, log *slog.Logger) (*Handler, error) {
	if dispatcher == nil {
		return nil, errors.New("handler: dispatcher must not be nil")
	}
	if strings.TrimSpace(channelSecret) == "" {
		return nil, errors.New("handler: channel secret must not be empty")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{dispatcher: dispatcher, channelSecret: channelSecret, log: log}, nil
}

// Handle is the Lambda handler. It always returns a response, never an
// error: signature failures map to 400, anything unexpected (including
// panics) to 500, everything else — intentional skips included — to 200.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (resp events.APIGatewayProxyResponse, _ error) {
	corrID := headerLookup(req.Headers, correlationHeader)
	if corrID == "" {
		corrID = uuid.NewString()
	}
	log := h.log.With("correlation_id", corrID)
	log.Info("invoke")

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic in webhook handler", "panic", r)
			resp = response(http.StatusInternalServerError, bodyInternal, corrID)
		}
	}()

	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			log.Error("base64 decode failed", "err", err)
			return response(http.StatusInternalServerError, bodyInternal, corrID), nil
		}
		body = decoded
	}
	log.Info("received body", "body", truncateForLog(body))

	signature := headerLookup(req.Headers, signatureHeader)
	if !line.ValidateSignature(h.channelSecret, body, signature) {
		log.Error("invalid webhook signature")
		return response(http.StatusBadRequest, bodyBadSignature, corrID), nil
	}

	msgEvents, err := line.ParseWebhook(body)
	if err != nil {
		log.Error("webhook parse failed", "err", err)
		return response(http.StatusInternalServerError, bodyInternal, corrID), nil
	}

	for _, ev := range msgEvents {
		outcome := h.dispatcher.Dispatch(ctx, ev)
		log.Info("event dispatched", "outcome", outcome)
	}

	return response(http.StatusOK, bodyOK, corrID), nil
}

// headerLookup finds a header value case-insensitively; API Gateway does not
// normalize header casing.
func headerLookup(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func response(status int, body, corrID string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":     "text/plain",
			"X-Correlation-Id": corrID,
		},
		Body: body,
	}
}

func truncateForLog(body []byte) string {
	if len(body) <= bodyLogLimit {
		return string(body)
	}
	return string(body[:bodyLogLimit])
}
