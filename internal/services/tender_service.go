package services

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/senyabanana/tender-engine/internal/auth"
	"github.com/senyabanana/tender-engine/internal/lock"
	"github.com/senyabanana/tender-engine/internal/models"
	"github.com/senyabanana/tender-engine/internal/notify"
	"github.com/senyabanana/tender-engine/internal/repository"
	"github.com/senyabanana/tender-engine/internal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 2000

	canBidMessage    = "You can bid on tenders"
	cannotBidMessage = "Complete verification to bid on tenders"
)

// allowedStatusTransition - допустимые ручные переходы статуса тендера.
// Awarded достигается только через AwardTender.
var allowedStatusTransition = map[models.TenderStatus][]models.TenderStatus{
	models.OpenTender:   {models.ClosedTender, models.CancelledTender},
	models.ClosedTender: {models.OpenTender, models.CancelledTender},
}

// TenderService управляет жизненным циклом тендера.
type TenderService struct {
	Repo     repository.TenderRepository
	Gate     *VerificationService
	Notifier *notify.Dispatcher
	mutator  *tenderMutator
	now      func() time.Time
}

// NewTenderService создаёт новый экземпляр TenderService.
func NewTenderService(repo repository.TenderRepository, gate *VerificationService, locker lock.Locker, notifier *notify.Dispatcher, attempts int) *TenderService {
	return &TenderService{
		Repo:     repo,
		Gate:     gate,
		Notifier: notifier,
		mutator:  newTenderMutator(repo, locker, attempts),
		now:      time.Now,
	}
}

// CreateTender создает новый тендер со статусом Open.
func (s *TenderService) CreateTender(ctx context.Context, p models.Principal, tenderReq models.TenderRequest) (*models.Tender, error) {
	if err := authorize(p, auth.CreateTender); err != nil {
		return nil, err
	}

	now := s.now()
	tender, err := s.buildTender(tenderReq, now)
	if err != nil {
		return nil, err
	}
	tender.ID = uuid.New().String()
	tender.CreatorID = p.ID

	if err := s.Repo.CreateTender(ctx, tender); err != nil {
		return nil, storageError(err)
	}
	return tender, nil
}

func (s *TenderService) buildTender(tenderReq models.TenderRequest, now time.Time) (*models.Tender, error) {
	title := utils.Sanitize(tenderReq.Title)
	if title == "" || utf8.RuneCountInString(title) > maxTitleLength {
		return nil, models.NewValidationError("title is required and must not exceed 200 characters")
	}
	description := utils.Sanitize(tenderReq.Description)
	if description == "" || utf8.RuneCountInString(description) > maxDescriptionLength {
		return nil, models.NewValidationError("description is required and must not exceed 2000 characters")
	}

	budget, err := decimal.NewFromString(tenderReq.Budget)
	if err != nil {
		return nil, models.NewValidationError("budget must be a decimal number")
	}
	if budget.IsNegative() {
		return nil, models.NewValidationError("budget must not be negative")
	}

	var deadline time.Time
	switch {
	case tenderReq.Deadline != nil:
		if !tenderReq.Deadline.After(now) {
			return nil, models.NewValidationError("deadline must be in the future")
		}
		deadline = *tenderReq.Deadline
	case tenderReq.DaysUntilDeadline >= 1:
		deadline = now.AddDate(0, 0, tenderReq.DaysUntilDeadline)
	default:
		return nil, models.NewValidationError("deadline or daysUntilDeadline (at least 1) is required")
	}

	minScore := models.DefaultMinQualificationScore
	if tenderReq.MinQualificationScore != nil {
		minScore = *tenderReq.MinQualificationScore
	}
	if minScore < 0 || minScore > 100 {
		return nil, models.NewValidationError("minQualificationScore must be between 0 and 100")
	}

	maxBids := models.DefaultMaxBids
	if tenderReq.MaxBids != nil {
		maxBids = *tenderReq.MaxBids
	}
	if maxBids < 1 {
		return nil, models.NewValidationError("maxBids must be at least 1")
	}

	return &models.Tender{
		Title:                 title,
		Description:           description,
		Budget:                budget.String(),
		Deadline:              deadline,
		MinQualificationScore: minScore,
		MaxBids:               maxBids,
		Status:                models.OpenTender,
		Bids:                  []models.Bid{},
		Version:               1,
		CreatedAt:             now,
		UpdatedAt:             now,
	}, nil
}

// FetchOpenTenders возвращает открытые тендеры; подрядчику дополнительно сообщает, может ли он участвовать.
func (s *TenderService) FetchOpenTenders(ctx context.Context, p models.Principal, limit, offset int) (*models.TenderList, error) {
	if err := authorize(p, auth.ListTenders); err != nil {
		return nil, err
	}

	tenders, err := s.Repo.GetTenders(ctx, []models.TenderStatus{models.OpenTender}, limit, offset)
	if err != nil {
		return nil, storageError(err)
	}
	for i := range tenders {
		tenders[i].Bids = visibleBids(p, tenders[i].Bids)
	}
	if tenders == nil {
		tenders = []models.Tender{}
	}

	list := &models.TenderList{Tenders: tenders}
	if p.Role == models.ContractorRole {
		canBid, err := s.Gate.CanBid(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		list.CanBid = &canBid
		list.VerificationMessage = cannotBidMessage
		if canBid {
			list.VerificationMessage = canBidMessage
		}
	}
	return list, nil
}

// GetTender возвращает тендер по ID.
func (s *TenderService) GetTender(ctx context.Context, p models.Principal, tenderId string) (*models.Tender, error) {
	if err := authorizeResource(p, auth.ViewTender, "", "tender not found"); err != nil {
		return nil, err
	}
	tender, err := s.Repo.GetTender(ctx, tenderId)
	if err != nil {
		return nil, storageError(err)
	}
	tender.Bids = visibleBids(p, tender.Bids)
	return tender, nil
}

// ChangeTenderStatus закрывает, открывает заново или отменяет тендер.
func (s *TenderService) ChangeTenderStatus(ctx context.Context, p models.Principal, tenderId string, status models.TenderStatus) (*models.Tender, error) {
	if err := authorizeResource(p, auth.ChangeTenderStatus, "", "tender not found"); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, models.NewValidationError(fmt.Sprintf("unknown tender status %q", status))
	}

	return s.mutator.mutate(ctx, tenderId, func(tender *models.Tender) error {
		if !utils.Contains(allowedStatusTransition[tender.Status], status) {
			return models.NewConflictError(models.CodeInvalidTransition,
				fmt.Sprintf("cannot change tender status from %s to %s", tender.Status, status))
		}
		tender.Status = status
		tender.UpdatedAt = s.now()
		return nil
	})
}

// AwardTender выбирает победителя. Переход необратим, повторный вызов завершается AlreadyAwarded.
func (s *TenderService) AwardTender(ctx context.Context, p models.Principal, tenderId, bidId string) (*models.Tender, error) {
	if err := authorizeResource(p, auth.AwardTender, "", "tender not found"); err != nil {
		return nil, err
	}
	if bidId == "" {
		return nil, models.NewValidationError("bidId is required")
	}

	tender, err := s.mutator.mutate(ctx, tenderId, func(tender *models.Tender) error {
		if tender.Status != models.OpenTender {
			return models.NewConflictError(models.CodeAlreadyAwarded,
				fmt.Sprintf("tender is %s and can no longer be awarded", tender.Status))
		}
		bid, ok := tender.FindBid(bidId)
		if !ok {
			return models.NewNotFoundError("bid not found")
		}

		now := s.now()
		bid.IsWinner = true
		tender.Status = models.AwardedTender
		tender.WinningBidID = &bid.ID
		tender.AwardedAt = &now
		tender.Payment = &models.PaymentRecord{Amount: bid.Amount, Status: models.PendingPayment}
		tender.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	winner, _ := tender.WinningBid()
	s.Notifier.Send(ctx, notify.Event{
		Type:          notify.TenderAwarded,
		TenderID:      tender.ID,
		BidID:         winner.ID,
		ContractorID:  winner.BidderID,
		Amount:        winner.Amount,
		PaymentStatus: string(models.PendingPayment),
		ActorID:       p.ID,
		OccurredAt:    *tender.AwardedAt,
	})
	return tender, nil
}

// visibleBids скрывает от подрядчиков и публики чужие предложения.
func visibleBids(p models.Principal, bids []models.Bid) []models.Bid {
	if p.Role == models.AdminRole || p.Role == models.VerifierRole {
		return bids
	}
	own := []models.Bid{}
	for _, bid := range bids {
		if bid.BidderID == p.ID {
			own = append(own, bid)
		}
	}
	return own
}
