package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/senyabanana/tender-engine/internal/models"
)

func TestInstantBackend(t *testing.T) {
	b := NewInstantBackend()
	res, err := b.Settle(context.Background(), Instruction{TenderID: "t1", Amount: "60"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != models.CompletedPayment || !strings.HasPrefix(res.Reference, "stl_") {
		t.Fatalf("expected completed result with reference, got %+v", res)
	}
	if b.Async() {
		t.Fatal("expected instant backend to be synchronous")
	}
}

func TestHTTPBackend_Settle(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus models.PaymentStatus
		wantReason string
		wantErr    error
	}{
		{name: "processing", status: http.StatusAccepted, body: `{"reference":"r1","status":"processing"}`, wantStatus: models.ProcessingPayment},
		{name: "completed", status: http.StatusOK, body: `{"reference":"r1","status":"completed"}`, wantStatus: models.CompletedPayment},
		{name: "rejected", status: http.StatusUnprocessableEntity, body: `{"error":"invalid payee"}`, wantStatus: models.FailedPayment, wantReason: "invalid payee"},
		{name: "rejected as text", status: http.StatusUnprocessableEntity, body: "payee account closed\n", wantStatus: models.FailedPayment, wantReason: "payee account closed"},
		{name: "rejected without body", status: http.StatusBadRequest, body: ``, wantStatus: models.FailedPayment, wantReason: "rejected with status 400"},
		{name: "throttled", status: http.StatusTooManyRequests, body: "slow down", wantErr: ErrUnavailable},
		{name: "rail down", status: http.StatusBadGateway, body: ``, wantErr: ErrUnavailable},
		{name: "unknown status", status: http.StatusOK, body: `{"reference":"r1","status":"weird"}`, wantErr: ErrUnavailable},
		{name: "malformed success", status: http.StatusOK, body: "ok", wantErr: ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/settlements" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				if r.Header.Get("Idempotency-Key") != "t1" {
					t.Errorf("expected idempotency key t1, got %q", r.Header.Get("Idempotency-Key"))
				}
				var instruction Instruction
				if err := json.NewDecoder(r.Body).Decode(&instruction); err != nil || instruction.Amount != "60" {
					t.Errorf("unexpected instruction %+v (%v)", instruction, err)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			b := NewHTTPBackend(server.URL, time.Second)
			res, err := b.Settle(context.Background(), Instruction{TenderID: "t1", Amount: "60", Payee: "0xabc"})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Status != tt.wantStatus {
				t.Fatalf("expected status %s, got %s", tt.wantStatus, res.Status)
			}
			if res.FailureReason != tt.wantReason {
				t.Fatalf("expected failure reason %q, got %q", tt.wantReason, res.FailureReason)
			}
		})
	}
}

func TestHTTPBackend_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	b := NewHTTPBackend(server.URL, 20*time.Millisecond)
	if _, err := b.Settle(context.Background(), Instruction{TenderID: "t1", Amount: "60"}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestHTTPBackend_Status(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/settlements/r1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"reference":"r1","status":"failed","failureReason":"insufficient funds"}`))
	}))
	defer server.Close()

	res, err := NewHTTPBackend(server.URL+"/", time.Second).Status(context.Background(), "r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != models.FailedPayment || res.FailureReason != "insufficient funds" {
		t.Fatalf("expected failed with reason, got %+v", res)
	}
}
