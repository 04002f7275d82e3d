package services

import (
	"context"
	"strings"
	"testing"

	"github.com/senyabanana/tender-engine/internal/models"
)

func strPtr(s string) *string {
	return &s
}

func TestUpdateContractor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})

	tests := []struct {
		name      string
		principal models.Principal
		id        string
		req       models.ContractorUpdateRequest
		wantCode  models.ErrorCode
	}{
		{
			name:      "other contractor",
			principal: c2,
			id:        c1.ID,
			req:       models.ContractorUpdateRequest{Name: strPtr("Mallory")},
			wantCode:  models.CodeNotFound,
		},
		{
			name:      "empty name",
			principal: c1,
			id:        c1.ID,
			req:       models.ContractorUpdateRequest{Name: strPtr("<i></i>")},
			wantCode:  models.CodeInvalidInput,
		},
		{
			name:      "invalid email",
			principal: c1,
			id:        c1.ID,
			req:       models.ContractorUpdateRequest{Email: strPtr("not-an-email")},
			wantCode:  models.CodeInvalidInput,
		},
		{
			name:      "email taken",
			principal: c1,
			id:        c1.ID,
			req:       models.ContractorUpdateRequest{Email: strPtr(c2.ID + "@example.com")},
			wantCode:  models.CodeInvalidInput,
		},
		{
			name:      "organization too long",
			principal: c1,
			id:        c1.ID,
			req:       models.ContractorUpdateRequest{Organization: strPtr(strings.Repeat("o", 201))},
			wantCode:  models.CodeInvalidInput,
		},
		{
			name:      "unknown contractor",
			principal: admin,
			id:        "missing",
			req:       models.ContractorUpdateRequest{Name: strPtr("Ghost")},
			wantCode:  models.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.contractors.UpdateContractor(ctx, tt.principal, tt.id, tt.req)
			expectCode(t, err, tt.wantCode)
		})
	}

	updated, err := f.contractors.UpdateContractor(ctx, c1, c1.ID, models.ContractorUpdateRequest{
		Name:          strPtr("Acme <b>Builders</b>"),
		Email:         strPtr("office@acme.example"),
		WalletAddress: strPtr("0xacme"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Name != "Acme Builders" || updated.Email != "office@acme.example" || updated.WalletAddress != "0xacme" {
		t.Fatalf("unexpected profile %+v", updated)
	}
	if updated.Organization != "" {
		t.Fatalf("expected organization to stay untouched, got %q", updated.Organization)
	}
}

func TestRateContractor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})

	tests := []struct {
		name      string
		principal models.Principal
		req       models.RatingRequest
		wantCode  models.ErrorCode
	}{
		{name: "contractor cannot rate", principal: c2, req: models.RatingRequest{Rating: 5, Feedback: "great"}, wantCode: models.CodeNotFound},
		{name: "rating below range", principal: admin, req: models.RatingRequest{Rating: 0, Feedback: "bad"}, wantCode: models.CodeInvalidInput},
		{name: "rating above range", principal: admin, req: models.RatingRequest{Rating: 6, Feedback: "wow"}, wantCode: models.CodeInvalidInput},
		{name: "feedback required", principal: admin, req: models.RatingRequest{Rating: 3}, wantCode: models.CodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.contractors.RateContractor(ctx, tt.principal, c1.ID, tt.req)
			expectCode(t, err, tt.wantCode)
		})
	}

	var contractor *models.Contractor
	for _, rating := range []float64{5, 4, 4} {
		var err error
		contractor, err = f.contractors.RateContractor(ctx, verifier, c1.ID, models.RatingRequest{Rating: rating, Feedback: "on time"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if contractor.Rating != 4.3 || contractor.RatingCount != 3 {
		t.Fatalf("expected 4.3 over 3 ratings, got %v over %d", contractor.Rating, contractor.RatingCount)
	}
}

func TestContractorProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})
	f.awardedTender(t)

	profile, err := f.contractors.GetContractor(ctx, c1, c1.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.CompletedProjects != 1 {
		t.Fatalf("expected one completed project, got %d", profile.CompletedProjects)
	}

	_, err = f.contractors.GetContractor(ctx, c2, c1.ID)
	expectKind(t, err, models.NotFoundError)

	contractors, err := f.contractors.GetContractors(ctx, verifier, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contractors) != 2 {
		t.Fatalf("expected only contractor accounts, got %d", len(contractors))
	}
	_, err = f.contractors.GetContractors(ctx, c1, 10, 0)
	expectCode(t, err, models.CodeAccessDenied)
}

func TestVerificationOverview(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})
	f.verify(t, c2)

	overview, err := f.contractors.GetVerificationOverview(ctx, admin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if overview.TotalContractors != 2 || overview.VerifiedContractors != 1 || overview.UnverifiedContractors != 1 {
		t.Fatalf("unexpected overview %+v", overview)
	}

	_, err = f.contractors.GetVerificationOverview(ctx, c1)
	expectCode(t, err, models.CodeAccessDenied)
}

func TestDeleteContractor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})

	err := f.contractors.DeleteContractor(ctx, verifier, c2.ID)
	expectCode(t, err, models.CodeNotFound)

	if err := f.contractors.DeleteContractor(ctx, admin, c2.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = f.contractors.GetContractor(ctx, admin, c2.ID)
	expectCode(t, err, models.CodeNotFound)

	err = f.contractors.DeleteContractor(ctx, admin, c2.ID)
	expectCode(t, err, models.CodeNotFound)
}
