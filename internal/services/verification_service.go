package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/senyabanana/tender-engine/internal/auth"
	"github.com/senyabanana/tender-engine/internal/models"
	"github.com/senyabanana/tender-engine/internal/repository"
	"github.com/senyabanana/tender-engine/internal/utils"

	"github.com/google/uuid"
)

const maxNotesLength = 2000

// VerificationService ведёт заявки на верификацию и владеет флагом isVerified подрядчика.
type VerificationService struct {
	Requests    repository.VerificationRepository
	Contractors repository.ContractorRepository
	now         func() time.Time
}

// NewVerificationService создаёт новый экземпляр VerificationService.
func NewVerificationService(requests repository.VerificationRepository, contractors repository.ContractorRepository) *VerificationService {
	return &VerificationService{Requests: requests, Contractors: contractors, now: time.Now}
}

// SubmitRequest создает заявку подрядчика со статусом pending.
func (s *VerificationService) SubmitRequest(ctx context.Context, p models.Principal, submission models.VerificationSubmission) (*models.VerificationRequest, error) {
	if err := authorize(p, auth.SubmitVerification); err != nil {
		return nil, err
	}

	if len(submission.Credentials) == 0 {
		return nil, models.NewValidationError("at least one credential is required")
	}
	credentials := make([]models.Credential, 0, len(submission.Credentials))
	for i, c := range submission.Credentials {
		c.Type = utils.Sanitize(c.Type)
		c.Title = utils.Sanitize(c.Title)
		c.Issuer = utils.Sanitize(c.Issuer)
		if c.Type == "" || c.Title == "" {
			return nil, models.NewValidationError(fmt.Sprintf("credential %d must have a type and a title", i+1))
		}
		if c.IssueDate != nil && c.ExpiryDate != nil && c.ExpiryDate.Before(*c.IssueDate) {
			return nil, models.NewValidationError(fmt.Sprintf("credential %d expires before it was issued", i+1))
		}
		credentials = append(credentials, c)
	}
	notes := utils.Sanitize(submission.Notes)
	if utf8.RuneCountInString(notes) > maxNotesLength {
		return nil, models.NewValidationError("notes must not exceed 2000 characters")
	}

	req := &models.VerificationRequest{
		ID:           uuid.New().String(),
		ContractorID: p.ID,
		Status:       models.PendingVerification,
		Credentials:  credentials,
		Notes:        notes,
		SubmittedAt:  s.now(),
	}
	if err := s.Requests.CreateRequest(ctx, req); err != nil {
		return nil, storageError(err)
	}
	return req, nil
}

// GetRequests возвращает заявки для проверяющих.
func (s *VerificationService) GetRequests(ctx context.Context, p models.Principal, limit, offset int) ([]models.VerificationRequest, error) {
	if err := authorize(p, auth.ListVerificationRequests); err != nil {
		return nil, err
	}
	requests, err := s.Requests.GetRequests(ctx, limit, offset)
	if err != nil {
		return nil, storageError(err)
	}
	if requests == nil {
		requests = []models.VerificationRequest{}
	}
	return requests, nil
}

// GetMyRequest возвращает последнюю заявку текущего подрядчика.
func (s *VerificationService) GetMyRequest(ctx context.Context, p models.Principal) (*models.VerificationRequest, error) {
	if err := authorize(p, auth.ViewOwnVerification); err != nil {
		return nil, err
	}
	req, err := s.Requests.GetLatestRequest(ctx, p.ID)
	if err != nil {
		return nil, storageError(err)
	}
	return req, nil
}

// StartReview берёт заявку в работу: pending -> under_review.
func (s *VerificationService) StartReview(ctx context.Context, p models.Principal, requestId string) (*models.VerificationRequest, error) {
	if err := authorizeResource(p, auth.ReviewVerification, "", "verification request not found"); err != nil {
		return nil, err
	}

	req, err := s.Requests.GetRequest(ctx, requestId)
	if err != nil {
		return nil, storageError(err)
	}
	switch req.Status {
	case models.PendingVerification:
	case models.UnderReviewVerification:
		return nil, models.NewConflictError(models.CodeInvalidTransition, "verification request is already under review")
	default:
		return nil, models.NewConflictError(models.CodeAlreadyReviewed, "verification request has already been reviewed")
	}

	req.Status = models.UnderReviewVerification
	req.VerifierID = &p.ID
	if err := s.Requests.UpdateRequestStatus(ctx, req, models.PendingVerification); err != nil {
		if errors.Is(err, repository.ErrStaleRequest) {
			return nil, models.NewConflictError(models.CodeInvalidTransition, "verification request is no longer pending")
		}
		return nil, storageError(err)
	}
	return req, nil
}

// ReviewRequest одобряет или отклоняет заявку.
// Одобрение и установка isVerified сохраняются атомарно; отклонение флаг не меняет.
func (s *VerificationService) ReviewRequest(ctx context.Context, p models.Principal, requestId string, review models.ReviewRequest) (*models.VerificationRequest, error) {
	if err := authorizeResource(p, auth.ReviewVerification, "", "verification request not found"); err != nil {
		return nil, err
	}

	if review.Decision != models.ApproveDecision && review.Decision != models.RejectDecision {
		return nil, models.NewValidationError("decision must be either approve or reject")
	}
	notes := utils.Sanitize(review.Notes)
	if notes == "" {
		return nil, models.NewValidationError("review notes are required")
	}
	if utf8.RuneCountInString(notes) > maxNotesLength {
		return nil, models.NewValidationError("notes must not exceed 2000 characters")
	}

	req, err := s.Requests.GetRequest(ctx, requestId)
	if err != nil {
		return nil, storageError(err)
	}
	if !req.Status.Active() {
		return nil, models.NewConflictError(models.CodeAlreadyReviewed, "verification request has already been reviewed")
	}

	now := s.now()
	req.VerifierID = &p.ID
	req.ReviewedAt = &now
	req.Notes = notes
	req.RejectionReason = nil

	var change *models.VerificationChange
	if review.Decision == models.ApproveDecision {
		req.Status = models.ApprovedVerification
		c := s.setVerified(req.ContractorID, true, p.ID, notes)
		change = &c
	} else {
		req.Status = models.RejectedVerification
		if reason := utils.Sanitize(review.RejectionReason); reason != "" {
			req.RejectionReason = &reason
		}
	}

	from := []models.VerificationStatus{models.PendingVerification, models.UnderReviewVerification}
	if err := s.Requests.SaveReview(ctx, req, from, change); err != nil {
		return nil, storageError(err)
	}
	return req, nil
}

// SetVerificationStatus напрямую устанавливает флаг верификации подрядчика.
func (s *VerificationService) SetVerificationStatus(ctx context.Context, p models.Principal, contractorId string, req models.VerificationStatusRequest) (*models.Contractor, error) {
	if err := authorizeResource(p, auth.SetVerificationStatus, "", "contractor not found"); err != nil {
		return nil, err
	}
	notes := utils.Sanitize(req.Notes)
	if utf8.RuneCountInString(notes) > maxNotesLength {
		return nil, models.NewValidationError("notes must not exceed 2000 characters")
	}

	if err := s.Contractors.ApplyVerification(ctx, s.setVerified(contractorId, req.IsVerified, p.ID, notes)); err != nil {
		return nil, storageError(err)
	}
	contractor, err := s.Contractors.GetContractor(ctx, contractorId)
	if err != nil {
		return nil, storageError(err)
	}
	return contractor, nil
}

// CanBid сообщает, может ли подрядчик подавать предложения.
func (s *VerificationService) CanBid(ctx context.Context, contractorId string) (bool, error) {
	contractor, err := s.bidder(ctx, contractorId)
	if err != nil || contractor == nil {
		return false, err
	}
	return contractor.IsVerified, nil
}

// bidder возвращает профиль подрядчика или nil, если профиля нет.
func (s *VerificationService) bidder(ctx context.Context, contractorId string) (*models.Contractor, error) {
	contractor, err := s.Contractors.GetContractor(ctx, contractorId)
	if errors.Is(err, repository.ErrContractorNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError(err)
	}
	return contractor, nil
}

// setVerified - общее правило для одобрения заявки и прямой установки флага.
func (s *VerificationService) setVerified(contractorId string, verified bool, actorId, notes string) models.VerificationChange {
	change := models.VerificationChange{
		ContractorID: contractorId,
		IsVerified:   verified,
		Notes:        notes,
	}
	if verified {
		now := s.now()
		actor := actorId
		change.VerifiedAt = &now
		change.VerifiedBy = &actor
	}
	return change
}
