package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/senyabanana/tender-engine/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// TenderRepository - интерфейс для работы с агрегатом тендера.
// Все изменения агрегата проходят через проверку версии (optimistic locking).
type TenderRepository interface {
	CreateTender(ctx context.Context, tender *models.Tender) error
	GetTender(ctx context.Context, tenderId string) (*models.Tender, error)
	GetTenders(ctx context.Context, statuses []models.TenderStatus, limit, offset int) ([]models.Tender, error)
	GetTendersByPaymentStatus(ctx context.Context, status models.PaymentStatus) ([]models.Tender, error)
	GetBidderBids(ctx context.Context, bidderId string) ([]models.Bid, error)
	GetPayments(ctx context.Context, bidderId string) ([]models.PaymentSummary, error)
	AddBid(ctx context.Context, tenderId string, expectedVersion int32, bid models.Bid) (int32, error)
	UpdateTender(ctx context.Context, tender *models.Tender, expectedVersion int32) (int32, error)
}

// PostgresTenderRepository - реализация TenderRepository для базы данных.
type PostgresTenderRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresTenderRepository создаёт новый экземпляр PostgresTenderRepository.
func NewPostgresTenderRepository(db *pgxpool.Pool) *PostgresTenderRepository {
	return &PostgresTenderRepository{DB: db}
}

const tenderColumns = `id, title, description, budget, deadline, min_qualification_score, max_bids, status, creator_id,
	winning_bid_id, awarded_at, payment_amount, payment_status, payment_date, settlement_reference, payment_failure_reason,
	version, created_at, updated_at`

const bidColumns = `id, tender_id, bidder_id, bidder_address, amount, estimated_duration_days, proposal, submitted_at, is_winner`

// CreateTender создает новый тендер.
func (r *PostgresTenderRepository) CreateTender(ctx context.Context, tender *models.Tender) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO tender (id, title, description, budget, deadline, min_qualification_score, max_bids, status, creator_id, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		tender.ID,
		tender.Title,
		tender.Description,
		tender.Budget,
		tender.Deadline,
		tender.MinQualificationScore,
		tender.MaxBids,
		tender.Status,
		tender.CreatorID,
		tender.Version,
		tender.CreatedAt,
		tender.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert tender: %w", err)
	}
	return nil
}

// GetTender возвращает тендер вместе с предложениями в порядке подачи.
func (r *PostgresTenderRepository) GetTender(ctx context.Context, tenderId string) (*models.Tender, error) {
	query := `SELECT ` + tenderColumns + ` FROM tender WHERE id = $1`
	tender, err := scanTender(r.DB.QueryRow(ctx, query, tenderId))
	if err != nil {
		return nil, missing(err, ErrTenderNotFound)
	}

	bids, err := r.loadBids(ctx, []string{tender.ID})
	if err != nil {
		return nil, err
	}
	tender.Bids = bidsOf(bids, tender.ID)
	return tender, nil
}

// GetTenders возвращает список тендеров с фильтром по статусам, новые первыми.
func (r *PostgresTenderRepository) GetTenders(ctx context.Context, statuses []models.TenderStatus, limit, offset int) ([]models.Tender, error) {
	query := `SELECT ` + tenderColumns + ` FROM tender`
	var filters []string
	var args []interface{}
	argIndex := 1

	if len(statuses) > 0 {
		values := make([]string, 0, len(statuses))
		for _, status := range statuses {
			values = append(values, string(status))
		}
		filters = append(filters, fmt.Sprintf("status = ANY($%d)", argIndex))
		args = append(args, pq.Array(values))
		argIndex++
	}

	if len(filters) > 0 {
		query += " WHERE " + strings.Join(filters, " AND ")
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	return r.queryTenders(ctx, query, args...)
}

// GetTendersByPaymentStatus возвращает присуждённые тендеры с указанным статусом платежа.
func (r *PostgresTenderRepository) GetTendersByPaymentStatus(ctx context.Context, status models.PaymentStatus) ([]models.Tender, error) {
	query := `SELECT ` + tenderColumns + ` FROM tender WHERE status = $1 AND payment_status = $2 ORDER BY awarded_at`
	return r.queryTenders(ctx, query, models.AwardedTender, status)
}

// GetPayments возвращает реестр платежей; bidderId ограничивает выборку победителем.
func (r *PostgresTenderRepository) GetPayments(ctx context.Context, bidderId string) ([]models.PaymentSummary, error) {
	query := `
		SELECT t.id, t.title, b.bidder_id, b.bidder_address, t.payment_amount, t.payment_status,
		       t.payment_date, t.settlement_reference, t.awarded_at
		FROM tender t
		JOIN bid b ON b.id = t.winning_bid_id
		WHERE t.status = $1 AND t.payment_status IS NOT NULL`
	args := []interface{}{models.AwardedTender}
	if bidderId != "" {
		if !validID(bidderId) {
			return nil, nil
		}
		query += ` AND b.bidder_id = $2`
		args = append(args, bidderId)
	}
	query += ` ORDER BY t.payment_date DESC NULLS LAST, t.awarded_at DESC`

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []models.PaymentSummary
	for rows.Next() {
		var p models.PaymentSummary
		var reference *string
		if err := rows.Scan(
			&p.TenderID,
			&p.TenderTitle,
			&p.ContractorID,
			&p.ContractorWallet,
			&p.Amount,
			&p.Status,
			&p.Date,
			&reference,
			&p.AwardedAt); err != nil {
			return nil, err
		}
		if reference != nil {
			p.SettlementReference = *reference
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// UpdateTender сохраняет статус, победителя и платёж тендера.
func (r *PostgresTenderRepository) UpdateTender(ctx context.Context, tender *models.Tender, expectedVersion int32) (int32, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var paymentAmount, paymentStatus, reference, failureReason *string
	var paymentDate *time.Time
	if p := tender.Payment; p != nil {
		status := string(p.Status)
		paymentAmount, paymentStatus, paymentDate = &p.Amount, &status, p.Date
		if p.SettlementReference != "" {
			reference = &p.SettlementReference
		}
		if p.FailureReason != "" {
			failureReason = &p.FailureReason
		}
	}

	var version int32
	err = tx.QueryRow(ctx, `
		UPDATE tender
		SET status = $3, winning_bid_id = $4, awarded_at = $5, payment_amount = $6, payment_status = $7,
		    payment_date = $8, settlement_reference = $9, payment_failure_reason = $10,
		    version = version + 1, updated_at = $11
		WHERE id = $1 AND version = $2
		RETURNING version`,
		tender.ID,
		expectedVersion,
		tender.Status,
		tender.WinningBidID,
		tender.AwardedAt,
		paymentAmount,
		paymentStatus,
		paymentDate,
		reference,
		failureReason,
		tender.UpdatedAt).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrVersionConflict
		}
		return 0, err
	}

	if tender.WinningBidID != nil {
		_, err = tx.Exec(ctx, `UPDATE bid SET is_winner = (id = $2) WHERE tender_id = $1`, tender.ID, *tender.WinningBidID)
		if err != nil {
			return 0, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, err
	}
	return version, nil
}

func (r *PostgresTenderRepository) queryTenders(ctx context.Context, query string, args ...interface{}) ([]models.Tender, error) {
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenders []models.Tender
	var ids []string
	for rows.Next() {
		tender, err := scanTender(rows)
		if err != nil {
			return nil, err
		}
		tenders = append(tenders, *tender)
		ids = append(ids, tender.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return tenders, nil
	}

	bids, err := r.loadBids(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range tenders {
		tenders[i].Bids = bidsOf(bids, tenders[i].ID)
	}
	return tenders, nil
}

func scanTender(row pgx.Row) (*models.Tender, error) {
	var t models.Tender
	var paymentAmount, paymentStatus, reference, failureReason *string
	var paymentDate *time.Time
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.Budget,
		&t.Deadline,
		&t.MinQualificationScore,
		&t.MaxBids,
		&t.Status,
		&t.CreatorID,
		&t.WinningBidID,
		&t.AwardedAt,
		&paymentAmount,
		&paymentStatus,
		&paymentDate,
		&reference,
		&failureReason,
		&t.Version,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if paymentStatus != nil {
		t.Payment = &models.PaymentRecord{
			Status: models.PaymentStatus(*paymentStatus),
			Date:   paymentDate,
		}
		if paymentAmount != nil {
			t.Payment.Amount = *paymentAmount
		}
		if reference != nil {
			t.Payment.SettlementReference = *reference
		}
		if failureReason != nil {
			t.Payment.FailureReason = *failureReason
		}
	}
	return &t, nil
}

// bidsOf возвращает предложения тендера; у тендера без предложений пустой, а не nil срез.
func bidsOf(bids map[string][]models.Bid, tenderId string) []models.Bid {
	if tenderBids, ok := bids[tenderId]; ok {
		return tenderBids
	}
	return []models.Bid{}
}
