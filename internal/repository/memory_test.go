package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/senyabanana/tender-engine/internal/models"
)

func newOpenTender(id string) *models.Tender {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	return &models.Tender{
		ID:          id,
		Title:       "Bridge",
		Description: "Repair",
		Budget:      "1000",
		Deadline:    now.Add(72 * time.Hour),
		MaxBids:     5,
		Status:      models.OpenTender,
		CreatorID:   "admin",
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestMemoryStore_AddBid(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.CreateTender(ctx, newOpenTender("t1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	version, err := store.AddBid(ctx, "t1", 1, models.Bid{ID: "b1", BidderID: "c1", Amount: "60"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if version != 2 {
		t.Fatalf("expected version 2, got %d", version)
	}

	tests := []struct {
		name    string
		version int32
		bidder  string
		wantErr error
	}{
		{name: "stale version", version: 1, bidder: "c2", wantErr: ErrVersionConflict},
		{name: "same bidder", version: 2, bidder: "c1", wantErr: ErrDuplicateBid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.AddBid(ctx, "t1", tt.version, models.Bid{ID: "x", BidderID: tt.bidder, Amount: "70"})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	tender, err := store.GetTender(ctx, "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tender.Bids) != 1 || tender.Bids[0].TenderID != "t1" {
		t.Fatalf("expected one bid bound to t1, got %+v", tender.Bids)
	}
}

func TestMemoryStore_GetTenderReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.CreateTender(ctx, newOpenTender("t1"))
	_, _ = store.AddBid(ctx, "t1", 1, models.Bid{ID: "b1", BidderID: "c1", Amount: "60"})

	tender, _ := store.GetTender(ctx, "t1")
	tender.Status = models.CancelledTender
	tender.Bids[0].Amount = "1"

	stored, _ := store.GetTender(ctx, "t1")
	if stored.Status != models.OpenTender || stored.Bids[0].Amount != "60" {
		t.Fatalf("expected stored tender to be unchanged, got %+v", stored)
	}
}

func TestMemoryStore_UpdateTenderMarksSingleWinner(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.CreateTender(ctx, newOpenTender("t1"))
	_, _ = store.AddBid(ctx, "t1", 1, models.Bid{ID: "b1", BidderID: "c1", Amount: "60"})
	_, _ = store.AddBid(ctx, "t1", 2, models.Bid{ID: "b2", BidderID: "c2", Amount: "70"})

	tender, _ := store.GetTender(ctx, "t1")
	winner := "b2"
	tender.Status = models.AwardedTender
	tender.WinningBidID = &winner
	tender.Payment = &models.PaymentRecord{Amount: "70", Status: models.PendingPayment}

	if _, err := store.UpdateTender(ctx, tender, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.UpdateTender(ctx, tender, 3); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	stored, _ := store.GetTender(ctx, "t1")
	winners := 0
	for _, bid := range stored.Bids {
		if bid.IsWinner {
			winners++
		}
	}
	if winners != 1 || !stored.Bids[1].IsWinner {
		t.Fatalf("expected only b2 to win, got %+v", stored.Bids)
	}

	payments, _ := store.GetPayments(ctx, "c2")
	if len(payments) != 1 || payments[0].Amount != "70" {
		t.Fatalf("expected one payment for c2, got %+v", payments)
	}
	if payments, _ := store.GetPayments(ctx, "c1"); len(payments) != 0 {
		t.Fatalf("expected no payments for c1, got %+v", payments)
	}
}

func TestMemoryStore_VerificationRequests(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.CreateContractor(ctx, &models.Contractor{ID: "c1", Email: "c1@example.com", Role: models.ContractorRole})

	first := &models.VerificationRequest{ID: "r1", ContractorID: "c1", Status: models.PendingVerification, SubmittedAt: time.Now()}
	if err := store.CreateRequest(ctx, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := &models.VerificationRequest{ID: "r2", ContractorID: "c1", Status: models.PendingVerification, SubmittedAt: time.Now()}
	if err := store.CreateRequest(ctx, second); !errors.Is(err, ErrDuplicatePendingRequest) {
		t.Fatalf("expected ErrDuplicatePendingRequest, got %v", err)
	}

	now := time.Now()
	verifier := "v1"
	reviewed := *first
	reviewed.Status = models.ApprovedVerification
	reviewed.VerifierID = &verifier
	reviewed.ReviewedAt = &now
	change := &models.VerificationChange{ContractorID: "c1", IsVerified: true, VerifiedAt: &now, VerifiedBy: &verifier}

	from := []models.VerificationStatus{models.PendingVerification, models.UnderReviewVerification}
	if err := store.SaveReview(ctx, &reviewed, from, change); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.SaveReview(ctx, &reviewed, from, change); !errors.Is(err, ErrStaleRequest) {
		t.Fatalf("expected ErrStaleRequest, got %v", err)
	}

	contractor, _ := store.GetContractor(ctx, "c1")
	if !contractor.IsVerified || contractor.VerifiedBy == nil || *contractor.VerifiedBy != "v1" {
		t.Fatalf("expected c1 verified by v1, got %+v", contractor)
	}

	if err := store.CreateRequest(ctx, second); err != nil {
		t.Fatalf("expected a new request after review, got %v", err)
	}
	latest, _ := store.GetLatestRequest(ctx, "c1")
	if latest.ID != "r2" {
		t.Fatalf("expected latest request r2, got %s", latest.ID)
	}
}

func TestMemoryStore_AddRating(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.CreateContractor(ctx, &models.Contractor{ID: "c1", Email: "c1@example.com", Role: models.ContractorRole})

	ratings := []float64{5, 4, 4}
	var contractor *models.Contractor
	for _, r := range ratings {
		var err error
		contractor, err = store.AddRating(ctx, models.ContractorFeedback{ContractorID: "c1", Rating: r, Feedback: "ok"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if contractor.Rating != 4.3 || contractor.RatingCount != 3 {
		t.Fatalf("expected rating 4.3 over 3 votes, got %v over %d", contractor.Rating, contractor.RatingCount)
	}

	if _, err := store.AddRating(ctx, models.ContractorFeedback{ContractorID: "missing", Rating: 5}); !errors.Is(err, ErrContractorNotFound) {
		t.Fatalf("expected ErrContractorNotFound, got %v", err)
	}
}

func TestMemoryStore_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.CreateContractor(ctx, &models.Contractor{ID: "c1", Email: "same@example.com"})
	_ = store.CreateContractor(ctx, &models.Contractor{ID: "c2", Email: "other@example.com"})

	if err := store.CreateContractor(ctx, &models.Contractor{ID: "c3", Email: "same@example.com"}); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	if err := store.UpdateContractor(ctx, &models.Contractor{ID: "c2", Email: "same@example.com"}); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}
