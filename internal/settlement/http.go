package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/senyabanana/tender-engine/internal/models"
)

// HTTPBackend - клиент внешнего рельса расчётов.
type HTTPBackend struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewHTTPBackend создает HTTPBackend.
func NewHTTPBackend(baseURL string, timeout time.Duration) *HTTPBackend {
	return &HTTPBackend{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type railResponse struct {
	Reference     string `json:"reference"`
	Status        string `json:"status"`
	FailureReason string `json:"failureReason"`
	Error         string `json:"error"`
}

// Settle отправляет поручение POST /settlements.
func (b *HTTPBackend) Settle(ctx context.Context, instruction Instruction) (Result, error) {
	body, err := json.Marshal(instruction)
	if err != nil {
		return Result{}, fmt.Errorf("failed to encode instruction: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.BaseURL+"/settlements", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create settlement request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", instruction.TenderID)

	return b.do(req)
}

// Status запрашивает GET /settlements/{reference}.
func (b *HTTPBackend) Status(ctx context.Context, reference string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.BaseURL+"/settlements/"+url.PathEscape(reference), nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create status request: %w", err)
	}
	return b.do(req)
}

// Async реализует Backend.
func (b *HTTPBackend) Async() bool {
	return true
}

func (b *HTTPBackend) do(req *http.Request) (Result, error) {
	resp, err := b.HTTPClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("%w: failed to read response: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return Result{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return rejected(resp.StatusCode, respBody), nil
	}

	var payload railResponse
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return Result{}, fmt.Errorf("%w: malformed response: %v", ErrUnavailable, err)
	}
	status, err := parseStatus(payload.Status)
	if err != nil {
		return Result{}, err
	}
	return Result{Reference: payload.Reference, Status: status, FailureReason: payload.FailureReason}, nil
}

// rejected разбирает отказ рельса: платёж окончательно не проведён.
// Тело, не являющееся JSON, становится причиной отказа как есть.
func rejected(statusCode int, body []byte) Result {
	var payload railResponse
	var reason string
	if err := json.Unmarshal(body, &payload); err == nil {
		reason = payload.Error
		if reason == "" {
			reason = payload.FailureReason
		}
	} else {
		reason = strings.TrimSpace(string(body))
	}
	if reason == "" {
		reason = fmt.Sprintf("rejected with status %d", statusCode)
	}
	return Result{Reference: payload.Reference, Status: models.FailedPayment, FailureReason: reason}
}

func parseStatus(raw string) (models.PaymentStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "completed", "settled", "success":
		return models.CompletedPayment, nil
	case "processing", "pending", "accepted":
		return models.ProcessingPayment, nil
	case "failed", "rejected":
		return models.FailedPayment, nil
	}
	return "", fmt.Errorf("%w: unknown settlement status %q", ErrUnavailable, raw)
}
