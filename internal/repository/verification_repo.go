package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/senyabanana/tender-engine/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// VerificationRepository - интерфейс для работы с заявками на верификацию.
type VerificationRepository interface {
	CreateRequest(ctx context.Context, req *models.VerificationRequest) error
	GetRequest(ctx context.Context, requestId string) (*models.VerificationRequest, error)
	GetRequests(ctx context.Context, limit, offset int) ([]models.VerificationRequest, error)
	GetLatestRequest(ctx context.Context, contractorId string) (*models.VerificationRequest, error)
	UpdateRequestStatus(ctx context.Context, req *models.VerificationRequest, from models.VerificationStatus) error
	SaveReview(ctx context.Context, req *models.VerificationRequest, from []models.VerificationStatus, change *models.VerificationChange) error
}

// PostgresVerificationRepository - реализация VerificationRepository для базы данных.
type PostgresVerificationRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresVerificationRepository создает новый экземпляр PostgresVerificationRepository.
func NewPostgresVerificationRepository(db *pgxpool.Pool) *PostgresVerificationRepository {
	return &PostgresVerificationRepository{DB: db}
}

const requestColumns = `id, contractor_id, verifier_id, status, credentials, notes, rejection_reason, submitted_at, reviewed_at`

// CreateRequest сохраняет новую заявку; частичный уникальный индекс не допускает второй активной.
func (r *PostgresVerificationRepository) CreateRequest(ctx context.Context, req *models.VerificationRequest) error {
	credentials, err := json.Marshal(req.Credentials)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	_, err = r.DB.Exec(ctx, `
		INSERT INTO verification_request (id, contractor_id, status, credentials, notes, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		req.ID,
		req.ContractorID,
		req.Status,
		credentials,
		req.Notes,
		req.SubmittedAt)
	if err != nil {
		if constraint, ok := uniqueConstraint(err); ok && constraint == activeVerificationConstraint {
			return ErrDuplicatePendingRequest
		}
		return err
	}
	return nil
}

// GetRequest возвращает заявку по ID.
func (r *PostgresVerificationRepository) GetRequest(ctx context.Context, requestId string) (*models.VerificationRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM verification_request WHERE id = $1`
	req, err := scanRequest(r.DB.QueryRow(ctx, query, requestId))
	if err != nil {
		return nil, missing(err, ErrRequestNotFound)
	}
	return req, nil
}

// GetRequests возвращает заявки, новые первыми.
func (r *PostgresVerificationRepository) GetRequests(ctx context.Context, limit, offset int) ([]models.VerificationRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM verification_request ORDER BY submitted_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.DB.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []models.VerificationRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}

// GetLatestRequest возвращает последнюю заявку подрядчика.
func (r *PostgresVerificationRepository) GetLatestRequest(ctx context.Context, contractorId string) (*models.VerificationRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM verification_request WHERE contractor_id = $1 ORDER BY submitted_at DESC LIMIT 1`
	req, err := scanRequest(r.DB.QueryRow(ctx, query, contractorId))
	if err != nil {
		return nil, missing(err, ErrRequestNotFound)
	}
	return req, nil
}

// UpdateRequestStatus переводит заявку в новый статус, если она всё ещё в статусе from.
func (r *PostgresVerificationRepository) UpdateRequestStatus(ctx context.Context, req *models.VerificationRequest, from models.VerificationStatus) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE verification_request SET status = $3, verifier_id = $4
		WHERE id = $1 AND status = $2`,
		req.ID, from, req.Status, req.VerifierID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleRequest
	}
	return nil
}

// SaveReview сохраняет решение по заявке и, если есть, изменение флага верификации в одной транзакции.
func (r *PostgresVerificationRepository) SaveReview(ctx context.Context, req *models.VerificationRequest, from []models.VerificationStatus, change *models.VerificationChange) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	statuses := make([]string, 0, len(from))
	for _, status := range from {
		statuses = append(statuses, string(status))
	}

	tag, err := tx.Exec(ctx, `
		UPDATE verification_request
		SET status = $3, verifier_id = $4, notes = $5, rejection_reason = $6, reviewed_at = $7
		WHERE id = $1 AND status = ANY($2)`,
		req.ID,
		pq.Array(statuses),
		req.Status,
		req.VerifierID,
		req.Notes,
		req.RejectionReason,
		req.ReviewedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleRequest
	}

	if change != nil {
		if err := applyVerificationChange(ctx, tx, change); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func scanRequest(row pgx.Row) (*models.VerificationRequest, error) {
	var req models.VerificationRequest
	var credentials []byte
	err := row.Scan(
		&req.ID,
		&req.ContractorID,
		&req.VerifierID,
		&req.Status,
		&credentials,
		&req.Notes,
		&req.RejectionReason,
		&req.SubmittedAt,
		&req.ReviewedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(credentials, &req.Credentials); err != nil {
		return nil, fmt.Errorf("failed to decode credentials: %w", err)
	}
	return &req, nil
}
