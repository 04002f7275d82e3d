package repository

import (
	"context"
	"errors"

	"github.com/senyabanana/tender-engine/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
)

// Предложения хранятся в отдельной таблице, но изменяются только через агрегат тендера.

// AddBid добавляет предложение, если тендер открыт и не менялся с expectedVersion.
// Уникальность (tender_id, bidder_id) дополнительно гарантируется ограничением в БД.
func (r *PostgresTenderRepository) AddBid(ctx context.Context, tenderId string, expectedVersion int32, bid models.Bid) (int32, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var version int32
	var seq int
	err = tx.QueryRow(ctx, `
		UPDATE tender SET version = version + 1, updated_at = $3
		WHERE id = $1 AND version = $2 AND status = $4
		RETURNING version, (SELECT COUNT(*) FROM bid WHERE tender_id = $1)`,
		tenderId, expectedVersion, bid.SubmittedAt, models.OpenTender).Scan(&version, &seq)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrVersionConflict
		}
		return 0, err
	}

	insertQuery := `INSERT INTO bid (id, tender_id, seq, bidder_id, bidder_address, amount, estimated_duration_days, proposal, submitted_at, is_winner)
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = tx.Exec(
		ctx,
		insertQuery,
		bid.ID,
		tenderId,
		seq+1,
		bid.BidderID,
		bid.BidderAddress,
		bid.Amount,
		bid.EstimatedDurationDays,
		bid.Proposal,
		bid.SubmittedAt,
		bid.IsWinner)
	if err != nil {
		if constraint, ok := uniqueConstraint(err); ok && constraint == bidTenderBidderConstraint {
			return 0, ErrDuplicateBid
		}
		return 0, err
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, err
	}
	return version, nil
}

// GetBidderBids возвращает все предложения подрядчика.
func (r *PostgresTenderRepository) GetBidderBids(ctx context.Context, bidderId string) ([]models.Bid, error) {
	if !validID(bidderId) {
		return nil, nil
	}
	query := `SELECT ` + bidColumns + ` FROM bid WHERE bidder_id = $1 ORDER BY submitted_at DESC`
	rows, err := r.DB.Query(ctx, query, bidderId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []models.Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, bid)
	}
	return bids, rows.Err()
}

func (r *PostgresTenderRepository) loadBids(ctx context.Context, tenderIds []string) (map[string][]models.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bid WHERE tender_id = ANY($1) ORDER BY tender_id, seq`
	rows, err := r.DB.Query(ctx, query, pq.Array(tenderIds))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bids := make(map[string][]models.Bid, len(tenderIds))
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids[bid.TenderID] = append(bids[bid.TenderID], bid)
	}
	return bids, rows.Err()
}

func scanBid(row pgx.Row) (models.Bid, error) {
	var bid models.Bid
	err := row.Scan(
		&bid.ID,
		&bid.TenderID,
		&bid.BidderID,
		&bid.BidderAddress,
		&bid.Amount,
		&bid.EstimatedDurationDays,
		&bid.Proposal,
		&bid.SubmittedAt,
		&bid.IsWinner,
	)
	return bid, err
}
