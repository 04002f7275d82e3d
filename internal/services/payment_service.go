package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/senyabanana/tender-engine/internal/auth"
	"github.com/senyabanana/tender-engine/internal/lock"
	"github.com/senyabanana/tender-engine/internal/models"
	"github.com/senyabanana/tender-engine/internal/notify"
	"github.com/senyabanana/tender-engine/internal/repository"
	"github.com/senyabanana/tender-engine/internal/settlement"
)

// PaymentService ведёт платёж по присуждённому тендеру: Pending -> Processing -> Completed | Failed.
type PaymentService struct {
	Repo          repository.TenderRepository
	Backend       settlement.Backend
	Notifier      *notify.Dispatcher
	SettleTimeout time.Duration
	Logger        *log.Logger
	mutator       *tenderMutator
	now           func() time.Time
}

// NewPaymentService создаёт новый экземпляр PaymentService.
func NewPaymentService(repo repository.TenderRepository, backend settlement.Backend, locker lock.Locker, notifier *notify.Dispatcher, attempts int, settleTimeout time.Duration, logger *log.Logger) *PaymentService {
	return &PaymentService{
		Repo:          repo,
		Backend:       backend,
		Notifier:      notifier,
		SettleTimeout: settleTimeout,
		Logger:        logger,
		mutator:       newTenderMutator(repo, locker, attempts),
		now:           time.Now,
	}
}

// ProcessPayment проводит платёж по присуждённому тендеру.
// Для асинхронного рельса статус Processing сохраняется до обращения к рельсу;
// если рельс не ответил, платёж остаётся в Processing до сверки.
func (s *PaymentService) ProcessPayment(ctx context.Context, p models.Principal, tenderId string) (*models.PaymentRecord, error) {
	if err := authorizeResource(p, auth.ProcessPayment, "", "tender not found"); err != nil {
		return nil, err
	}

	var record *models.PaymentRecord
	err := s.mutator.withLock(ctx, tenderId, func() error {
		var instruction settlement.Instruction
		err := s.mutator.update(ctx, tenderId, func(tender *models.Tender) error {
			if err := checkPayable(tender); err != nil {
				return err
			}
			instruction = instructionFor(tender)
			if instruction.Payee == "" {
				return models.NewConflictError(models.CodeMissingPayee, "winning contractor has no wallet address")
			}
			if !s.Backend.Async() {
				return nil
			}
			tender.Payment.Status = models.ProcessingPayment
			tender.UpdatedAt = s.now()
			return s.mutator.save(ctx, tender)
		})
		if err != nil {
			return err
		}
		if s.Backend.Async() {
			s.notice(ctx, p.ID, tenderId, notify.PaymentProcessing, models.PaymentRecord{Amount: instruction.Amount, Status: models.ProcessingPayment})
		}

		result, err := s.settle(ctx, instruction)
		if err != nil {
			if s.Backend.Async() {
				return models.NewUnavailableError(models.CodeSettlementPending,
					"settlement rail did not confirm the payment; it stays in Processing until reconciled").WithCause(err)
			}
			return models.NewUnavailableError(models.CodeSettlementUnavailable,
				"settlement rail is unavailable, payment was not attempted").WithCause(err)
		}

		record, err = s.applyResult(ctx, p.ID, tenderId, result)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ClearPaymentHistory удаляет запись о платеже. Статус тендера и победитель не меняются.
func (s *PaymentService) ClearPaymentHistory(ctx context.Context, p models.Principal, tenderId string) (*models.Tender, error) {
	if err := authorizeResource(p, auth.ClearPaymentHistory, "", "tender not found"); err != nil {
		return nil, err
	}

	tender, err := s.mutator.mutate(ctx, tenderId, func(tender *models.Tender) error {
		if tender.Status != models.AwardedTender {
			return models.NewConflictError(models.CodeTenderNotAwarded, "tender has not been awarded")
		}
		if tender.Payment != nil && tender.Payment.Status == models.ProcessingPayment {
			return models.NewConflictError(models.CodePaymentInProgress, "payment is being settled and cannot be cleared")
		}
		tender.Payment = nil
		tender.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Notifier.Send(ctx, notify.Event{Type: notify.PaymentCleared, TenderID: tenderId, ActorID: p.ID})
	return tender, nil
}

// ReconcilePayments доводит зависшие в Processing платежи до Completed или Failed.
// Возвращает число платежей, получивших окончательный статус.
func (s *PaymentService) ReconcilePayments(ctx context.Context) (int, error) {
	tenders, err := s.Repo.GetTendersByPaymentStatus(ctx, models.ProcessingPayment)
	if err != nil {
		return 0, storageError(err)
	}

	resolved := 0
	for _, t := range tenders {
		var record *models.PaymentRecord
		err := s.mutator.withLock(ctx, t.ID, func() error {
			tender, err := s.Repo.GetTender(ctx, t.ID)
			if err != nil {
				return storageError(err)
			}
			if tender.Payment == nil || tender.Payment.Status != models.ProcessingPayment {
				return nil
			}

			var result settlement.Result
			if ref := tender.Payment.SettlementReference; ref != "" {
				result, err = s.Backend.Status(ctx, ref)
			} else {
				result, err = s.settle(ctx, instructionFor(tender))
			}
			if err != nil {
				return err
			}
			record, err = s.applyResult(ctx, "", t.ID, result)
			return err
		})
		if err != nil {
			s.Logger.Printf("Failed to reconcile payment for tender %s: %v", t.ID, err)
			continue
		}
		if record != nil && record.Status != models.ProcessingPayment {
			resolved++
		}
	}
	return resolved, nil
}

// GetPayments возвращает реестр всех платежей.
func (s *PaymentService) GetPayments(ctx context.Context, p models.Principal) ([]models.PaymentSummary, error) {
	if err := authorize(p, auth.ListPayments); err != nil {
		return nil, err
	}
	return s.payments(ctx, "")
}

// GetContractorPayments возвращает платежи по тендерам, выигранным подрядчиком.
func (s *PaymentService) GetContractorPayments(ctx context.Context, p models.Principal, contractorId string) ([]models.PaymentSummary, error) {
	if err := authorizeResource(p, auth.ListContractorPayments, contractorId, "contractor not found"); err != nil {
		return nil, err
	}
	return s.payments(ctx, contractorId)
}

func (s *PaymentService) payments(ctx context.Context, contractorId string) ([]models.PaymentSummary, error) {
	payments, err := s.Repo.GetPayments(ctx, contractorId)
	if err != nil {
		return nil, storageError(err)
	}
	if payments == nil {
		payments = []models.PaymentSummary{}
	}
	return payments, nil
}

func (s *PaymentService) settle(ctx context.Context, instruction settlement.Instruction) (settlement.Result, error) {
	if s.SettleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.SettleTimeout)
		defer cancel()
	}

	result, err := s.Backend.Settle(ctx, instruction)
	if err == nil {
		return result, nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return settlement.Result{}, fmt.Errorf("%w: %v", settlement.ErrUnavailable, err)
	}
	return settlement.Result{}, err
}

// applyResult сохраняет ответ рельса; окончательный статус ставится только из Pending или Processing.
func (s *PaymentService) applyResult(ctx context.Context, actorId, tenderId string, result settlement.Result) (*models.PaymentRecord, error) {
	var record models.PaymentRecord
	changed := false
	err := s.mutator.update(ctx, tenderId, func(tender *models.Tender) error {
		payment := tender.Payment
		if payment == nil {
			return models.NewConflictError(models.CodeNoPaymentRecord, "payment record was cleared during settlement")
		}
		if payment.Status != models.PendingPayment && payment.Status != models.ProcessingPayment {
			record = payment.Clone()
			return nil
		}

		if result.Reference != "" {
			payment.SettlementReference = result.Reference
		}
		switch result.Status {
		case models.CompletedPayment, models.FailedPayment:
			now := s.now()
			payment.Status = result.Status
			payment.Date = &now
			payment.FailureReason = result.FailureReason
		default:
			payment.Status = models.ProcessingPayment
		}
		tender.UpdatedAt = s.now()
		if err := s.mutator.save(ctx, tender); err != nil {
			return err
		}
		record = payment.Clone()
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		switch record.Status {
		case models.CompletedPayment:
			s.notice(ctx, actorId, tenderId, notify.PaymentCompleted, record)
		case models.FailedPayment:
			s.notice(ctx, actorId, tenderId, notify.PaymentFailed, record)
		}
	}
	return &record, nil
}

func (s *PaymentService) notice(ctx context.Context, actorId, tenderId, eventType string, record models.PaymentRecord) {
	s.Notifier.Send(ctx, notify.Event{
		Type:                eventType,
		TenderID:            tenderId,
		Amount:              record.Amount,
		PaymentStatus:       string(record.Status),
		SettlementReference: record.SettlementReference,
		ActorID:             actorId,
	})
}

// checkPayable проверяет, что платёж можно провести.
func checkPayable(tender *models.Tender) error {
	if tender.Status != models.AwardedTender {
		return models.NewConflictError(models.CodeTenderNotAwarded, "tender has not been awarded")
	}
	if tender.Payment == nil {
		return models.NewConflictError(models.CodeNoPaymentRecord, "tender has no payment record")
	}
	switch tender.Payment.Status {
	case models.PendingPayment:
		return nil
	case models.ProcessingPayment:
		return models.NewConflictError(models.CodePaymentInProgress, "payment is already being processed")
	case models.CompletedPayment:
		return models.NewConflictError(models.CodeAlreadyProcessed, "payment has already been processed")
	case models.FailedPayment:
		return models.NewConflictError(models.CodePaymentFailed, "payment has failed and cannot be retried")
	}
	return models.NewConflictError(models.CodeInvalidTransition, fmt.Sprintf("unknown payment status %q", tender.Payment.Status))
}

func instructionFor(tender *models.Tender) settlement.Instruction {
	instruction := settlement.Instruction{TenderID: tender.ID, Amount: tender.Payment.Amount}
	if bid, ok := tender.WinningBid(); ok {
		instruction.Payee = bid.BidderAddress
	}
	return instruction
}
