package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/senyabanana/tender-engine/internal/models"
)

func licence() models.VerificationSubmission {
	return models.VerificationSubmission{
		Credentials: []models.Credential{{Type: "license", Title: "General contractor licence", Issuer: "City"}},
		Notes:       "please review",
	}
}

func TestSubmitRequest_Validation(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	issued := baseTime
	expired := baseTime.AddDate(-1, 0, 0)

	tests := []struct {
		name       string
		principal  models.Principal
		submission models.VerificationSubmission
		wantCode   models.ErrorCode
	}{
		{
			name:       "admin cannot submit",
			principal:  admin,
			submission: licence(),
			wantCode:   models.CodeAccessDenied,
		},
		{
			name:       "no credentials",
			principal:  c1,
			submission: models.VerificationSubmission{Notes: "empty"},
			wantCode:   models.CodeInvalidInput,
		},
		{
			name:      "credential without title",
			principal: c1,
			submission: models.VerificationSubmission{
				Credentials: []models.Credential{{Type: "license", Title: "<b></b>"}},
			},
			wantCode: models.CodeInvalidInput,
		},
		{
			name:      "expires before issue",
			principal: c1,
			submission: models.VerificationSubmission{
				Credentials: []models.Credential{{Type: "license", Title: "Licence", IssueDate: &issued, ExpiryDate: &expired}},
			},
			wantCode: models.CodeInvalidInput,
		},
		{
			name:      "notes too long",
			principal: c1,
			submission: models.VerificationSubmission{
				Credentials: licence().Credentials,
				Notes:       strings.Repeat("a", maxNotesLength+1),
			},
			wantCode: models.CodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.gate.SubmitRequest(context.Background(), tt.principal, tt.submission)
			expectCode(t, err, tt.wantCode)
		})
	}
}

func TestVerificationLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})

	req, err := f.gate.SubmitRequest(ctx, c1, licence())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Status != models.PendingVerification || req.ContractorID != c1.ID {
		t.Fatalf("unexpected request %+v", req)
	}

	// вторая активная заявка запрещена
	_, err = f.gate.SubmitRequest(ctx, c1, licence())
	expectCode(t, err, models.CodeDuplicatePendingRequest)

	started, err := f.gate.StartReview(ctx, verifier, req.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if started.Status != models.UnderReviewVerification || *started.VerifierID != verifier.ID {
		t.Fatalf("unexpected request after claim %+v", started)
	}
	_, err = f.gate.StartReview(ctx, admin, req.ID)
	expectCode(t, err, models.CodeInvalidTransition)

	_, err = f.gate.SubmitRequest(ctx, c1, licence())
	expectCode(t, err, models.CodeDuplicatePendingRequest)

	reviewed, err := f.gate.ReviewRequest(ctx, verifier, req.ID, models.ReviewRequest{
		Decision: models.ApproveDecision,
		Notes:    "documents match",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reviewed.Status != models.ApprovedVerification || reviewed.Notes != "documents match" || reviewed.ReviewedAt == nil {
		t.Fatalf("unexpected reviewed request %+v", reviewed)
	}

	contractor, _ := f.store.GetContractor(ctx, c1.ID)
	if !contractor.IsVerified || contractor.VerifiedBy == nil || *contractor.VerifiedBy != verifier.ID {
		t.Fatalf("expected c1 verified by %s, got %+v", verifier.ID, contractor)
	}
	if canBid, _ := f.gate.CanBid(ctx, c1.ID); !canBid {
		t.Fatal("expected c1 to be able to bid")
	}

	_, err = f.gate.ReviewRequest(ctx, admin, req.ID, models.ReviewRequest{Decision: models.RejectDecision, Notes: "again"})
	expectCode(t, err, models.CodeAlreadyReviewed)
	_, err = f.gate.StartReview(ctx, admin, req.ID)
	expectCode(t, err, models.CodeAlreadyReviewed)

	// после решения можно подать новую заявку
	f.setNow(func() time.Time { return baseTime.Add(time.Hour) })
	next, err := f.gate.SubmitRequest(ctx, c1, licence())
	if err != nil {
		t.Fatalf("expected new request after review, got %v", err)
	}
	mine, err := f.gate.GetMyRequest(ctx, c1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mine.ID != next.ID {
		t.Fatalf("expected latest request %s, got %s", next.ID, mine.ID)
	}
}

func TestReviewRequest_RejectKeepsFlag(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})

	req, err := f.gate.SubmitRequest(ctx, c2, licence())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reviewed, err := f.gate.ReviewRequest(ctx, admin, req.ID, models.ReviewRequest{
		Decision:        models.RejectDecision,
		Notes:           "licence expired",
		RejectionReason: "expired",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reviewed.Status != models.RejectedVerification || reviewed.RejectionReason == nil || *reviewed.RejectionReason != "expired" {
		t.Fatalf("unexpected rejected request %+v", reviewed)
	}

	contractor, _ := f.store.GetContractor(ctx, c2.ID)
	if contractor.IsVerified {
		t.Fatal("expected rejection to leave c2 unverified")
	}
}

func TestReviewRequest_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})
	req, err := f.gate.SubmitRequest(ctx, c1, licence())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name      string
		principal models.Principal
		requestId string
		review    models.ReviewRequest
		wantCode  models.ErrorCode
	}{
		{
			name:      "contractor cannot review",
			principal: c2,
			requestId: req.ID,
			review:    models.ReviewRequest{Decision: models.ApproveDecision, Notes: "ok"},
			wantCode:  models.CodeNotFound,
		},
		{
			name:      "unknown decision",
			principal: verifier,
			requestId: req.ID,
			review:    models.ReviewRequest{Decision: "maybe", Notes: "ok"},
			wantCode:  models.CodeInvalidInput,
		},
		{
			name:      "notes required",
			principal: verifier,
			requestId: req.ID,
			review:    models.ReviewRequest{Decision: models.ApproveDecision, Notes: "  "},
			wantCode:  models.CodeInvalidInput,
		},
		{
			name:      "unknown request",
			principal: verifier,
			requestId: "missing",
			review:    models.ReviewRequest{Decision: models.ApproveDecision, Notes: "ok"},
			wantCode:  models.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.gate.ReviewRequest(ctx, tt.principal, tt.requestId, tt.review)
			expectCode(t, err, tt.wantCode)
		})
	}

	if stored, _ := f.store.GetRequest(ctx, req.ID); stored.Status != models.PendingVerification {
		t.Fatalf("expected request to stay pending, got %s", stored.Status)
	}
}

func TestSetVerificationStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})

	contractor, err := f.gate.SetVerificationStatus(ctx, verifier, c1.ID, models.VerificationStatusRequest{IsVerified: true, Notes: "known vendor"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !contractor.IsVerified || contractor.VerifiedAt == nil || *contractor.VerifiedBy != verifier.ID {
		t.Fatalf("expected verified contractor, got %+v", contractor)
	}

	contractor, err = f.gate.SetVerificationStatus(ctx, admin, c1.ID, models.VerificationStatusRequest{IsVerified: false, Notes: "licence revoked"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if contractor.IsVerified || contractor.VerifiedAt != nil || contractor.VerifiedBy != nil {
		t.Fatalf("expected verification to be cleared, got %+v", contractor)
	}
	if contractor.VerificationNotes != "licence revoked" {
		t.Fatalf("expected notes to be stored, got %q", contractor.VerificationNotes)
	}

	_, err = f.gate.SetVerificationStatus(ctx, c1, c1.ID, models.VerificationStatusRequest{IsVerified: true})
	expectKind(t, err, models.NotFoundError)

	_, err = f.gate.SetVerificationStatus(ctx, admin, "missing", models.VerificationStatusRequest{IsVerified: true})
	expectCode(t, err, models.CodeNotFound)
}

func TestGetRequests(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})

	requests, err := f.gate.GetRequests(ctx, verifier, 5, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if requests == nil || len(requests) != 0 {
		t.Fatalf("expected empty list, got %v", requests)
	}

	if _, err := f.gate.SubmitRequest(ctx, c1, licence()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.setNow(func() time.Time { return baseTime.Add(time.Minute) })
	if _, err := f.gate.SubmitRequest(ctx, c2, licence()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	requests, err = f.gate.GetRequests(ctx, admin, 5, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(requests) != 2 || requests[0].ContractorID != c2.ID {
		t.Fatalf("expected newest request first, got %+v", requests)
	}

	_, err = f.gate.GetRequests(ctx, c1, 5, 0)
	expectCode(t, err, models.CodeAccessDenied)

	_, err = f.gate.GetMyRequest(ctx, verifier)
	expectCode(t, err, models.CodeAccessDenied)
}
