// Package ingest accepts webhook payloads over HTTP and NATS.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"alertbot/internal/domain"
	"alertbot/internal/metrics"
)

// Outcome tells the transport what happened to an accepted payload.
type Outcome string

const (
	// OutcomeOK means at least one alert went through the pipeline.
	OutcomeOK Outcome = "ok"
	// OutcomeNoAlerts means the payload carried no alerts at all.
	OutcomeNoAlerts Outcome = "no alerts"
	// OutcomeFiltered means every alert was a heartbeat and was dropped.
	OutcomeFiltered Outcome = "filtered"
)

// AlertSink receives decoded webhook payloads from ingest interfaces.
// Params: context and decoded payload.
// Returns: outcome plus processing error; delivery failures inside the
// sink are handled there and do not surface here.
type AlertSink interface {
	Process(ctx context.Context, payload domain.WebhookPayload) (Outcome, error)
}

// HTTPHandler decodes webhook JSON and forwards it to the sink.
// Params: sink receives validated payloads, max body limits request size.
// Returns: HTTP handler for the webhook endpoint.
type HTTPHandler struct {
	sink        AlertSink
	maxBodySize int64
}

// NewHTTPHandler creates the webhook HTTP handler.
// Params: sink and max request body size in bytes.
// Returns: configured handler.
func NewHTTPHandler(sink AlertSink, maxBodySize int64) *HTTPHandler {
	return &HTTPHandler{sink: sink, maxBodySize: maxBodySize}
}

// ServeHTTP handles one webhook request.
// Params: HTTP request/response writer pair.
// Returns: 500 with error text when the payload cannot be decoded,
// 200 with "ok" otherwise. Notification failures never change the
// status code; the sender has already accepted the payload.
func (h *HTTPHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		writer.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	request.Body = http.MaxBytesReader(writer, request.Body, h.maxBodySize)
	defer request.Body.Close()
	payload, err := domain.DecodeWebhookReader(json.NewDecoder(request.Body))
	if err != nil {
		metrics.WebhooksReceived.WithLabelValues("http", "rejected").Inc()
		writer.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(writer, "Error: %v", err)
		return
	}

	metrics.WebhooksReceived.WithLabelValues("http", "ok").Inc()
	outcome, err := h.sink.Process(request.Context(), payload)
	if err != nil {
		writer.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(writer, "Error: %v", err)
		return
	}
	writer.WriteHeader(http.StatusOK)
	io.WriteString(writer, string(outcome))
}
