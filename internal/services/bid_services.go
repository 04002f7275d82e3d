package services

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/senyabanana/tender-engine/internal/auth"
	"github.com/senyabanana/tender-engine/internal/lock"
	"github.com/senyabanana/tender-engine/internal/models"
	"github.com/senyabanana/tender-engine/internal/repository"
	"github.com/senyabanana/tender-engine/internal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxProposalLength = 2000

var minBidAmount = decimal.RequireFromString(models.MinBidAmount)

// BidService принимает предложения в тендер.
type BidService struct {
	Repo           repository.TenderRepository
	Gate           *VerificationService
	EnforceMaxBids bool
	mutator        *tenderMutator
	now            func() time.Time
}

// NewBidService создаёт новый экземпляр BidService.
func NewBidService(repo repository.TenderRepository, gate *VerificationService, locker lock.Locker, attempts int, enforceMaxBids bool) *BidService {
	return &BidService{
		Repo:           repo,
		Gate:           gate,
		EnforceMaxBids: enforceMaxBids,
		mutator:        newTenderMutator(repo, locker, attempts),
		now:            time.Now,
	}
}

// SubmitBid добавляет предложение подрядчика.
// Условия проверяются по порядку: тендер существует, открыт, подрядчик верифицирован,
// предложения от него ещё нет, лимит не исчерпан (если включён), сумма не ниже минимальной.
func (s *BidService) SubmitBid(ctx context.Context, p models.Principal, tenderId string, bidReq models.BidRequest) (*models.Bid, error) {
	if err := authorize(p, auth.SubmitBid); err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(bidReq.Amount)
	if err != nil {
		return nil, models.NewValidationError("amount must be a decimal number")
	}
	if bidReq.EstimatedDurationDays < 1 {
		return nil, models.NewValidationError("estimatedDurationDays must be at least 1")
	}
	proposal := utils.Sanitize(bidReq.Proposal)
	if proposal == "" || utf8.RuneCountInString(proposal) > maxProposalLength {
		return nil, models.NewValidationError("proposal is required and must not exceed 2000 characters")
	}

	var created *models.Bid
	err = s.mutator.withLock(ctx, tenderId, func() error {
		return s.mutator.update(ctx, tenderId, func(tender *models.Tender) error {
			if tender.Status != models.OpenTender {
				return models.NewConflictError(models.CodeTenderNotOpen, "tender is not open for bidding")
			}

			bidder, err := s.Gate.bidder(ctx, p.ID)
			if err != nil {
				return err
			}
			if bidder == nil || !bidder.IsVerified {
				return errNotVerified()
			}

			if _, exists := tender.BidByBidder(p.ID); exists {
				return models.NewConflictError(models.CodeDuplicateBid, "contractor has already submitted a bid for this tender")
			}
			if s.EnforceMaxBids && len(tender.Bids) >= tender.MaxBids {
				return models.NewConflictError(models.CodeMaxBidsReached, "tender has reached its maximum number of bids")
			}
			if amount.LessThan(minBidAmount) {
				return models.NewConflictError(models.CodeBidTooLow, "bid amount must be at least "+models.MinBidAmount)
			}

			bid := models.Bid{
				ID:                    uuid.New().String(),
				TenderID:              tender.ID,
				BidderID:              p.ID,
				BidderAddress:         bidder.WalletAddress,
				Amount:                amount.String(),
				EstimatedDurationDays: bidReq.EstimatedDurationDays,
				Proposal:              proposal,
				SubmittedAt:           s.now(),
			}
			if _, err := s.Repo.AddBid(ctx, tender.ID, tender.Version, bid); err != nil {
				return err
			}
			created = &bid
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetTenderBids возвращает предложения тендера; подрядчик видит только свои.
func (s *BidService) GetTenderBids(ctx context.Context, p models.Principal, tenderId string) ([]models.Bid, error) {
	if err := authorizeResource(p, auth.ListBids, "", "tender not found"); err != nil {
		return nil, err
	}
	tender, err := s.Repo.GetTender(ctx, tenderId)
	if err != nil {
		return nil, storageError(err)
	}
	return visibleBids(p, tender.Bids), nil
}

// GetContractorBids возвращает все предложения подрядчика.
func (s *BidService) GetContractorBids(ctx context.Context, p models.Principal, contractorId string) ([]models.Bid, error) {
	if err := authorizeResource(p, auth.ListContractorBids, contractorId, "contractor not found"); err != nil {
		return nil, err
	}
	bids, err := s.Repo.GetBidderBids(ctx, contractorId)
	if err != nil {
		return nil, storageError(err)
	}
	if bids == nil {
		bids = []models.Bid{}
	}
	return bids, nil
}
