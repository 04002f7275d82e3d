package repository

import (
	"context"
	"time"

	"github.com/senyabanana/tender-engine/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ContractorRepository - интерфейс для работы с профилями пользователей.
type ContractorRepository interface {
	CreateContractor(ctx context.Context, contractor *models.Contractor) error
	GetContractor(ctx context.Context, contractorId string) (*models.Contractor, error)
	GetContractors(ctx context.Context, limit, offset int) ([]models.Contractor, error)
	UpdateContractor(ctx context.Context, contractor *models.Contractor) error
	DeleteContractor(ctx context.Context, contractorId string) error
	ApplyVerification(ctx context.Context, change models.VerificationChange) error
	AddRating(ctx context.Context, feedback models.ContractorFeedback) (*models.Contractor, error)
	GetVerificationOverview(ctx context.Context) (*models.VerificationOverview, error)
}

// PostgresContractorRepository - реализация ContractorRepository для базы данных.
type PostgresContractorRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresContractorRepository создает новый экземпляр PostgresContractorRepository.
func NewPostgresContractorRepository(db *pgxpool.Pool) *PostgresContractorRepository {
	return &PostgresContractorRepository{DB: db}
}

// execer - общий знаменатель пула и транзакции.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

const contractorColumns = `u.id, u.name, u.email, u.organization, u.wallet_address, u.role, u.is_verified,
	u.verified_at, u.verified_by, u.verification_notes, u.rating, u.rating_count,
	(SELECT COUNT(*) FROM bid b WHERE b.bidder_id = u.id AND b.is_winner), u.created_at`

// CreateContractor создает профиль пользователя.
func (r *PostgresContractorRepository) CreateContractor(ctx context.Context, contractor *models.Contractor) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO users (id, name, email, organization, wallet_address, role, is_verified, verified_at, verified_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		contractor.ID,
		contractor.Name,
		contractor.Email,
		contractor.Organization,
		contractor.WalletAddress,
		contractor.Role,
		contractor.IsVerified,
		contractor.VerifiedAt,
		contractor.VerifiedBy,
		contractor.CreatedAt)
	if err != nil {
		if constraint, ok := uniqueConstraint(err); ok && constraint == usersEmailConstraint {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// GetContractor возвращает профиль по ID.
func (r *PostgresContractorRepository) GetContractor(ctx context.Context, contractorId string) (*models.Contractor, error) {
	query := `SELECT ` + contractorColumns + ` FROM users u WHERE u.id = $1`
	contractor, err := scanContractor(r.DB.QueryRow(ctx, query, contractorId))
	if err != nil {
		return nil, missing(err, ErrContractorNotFound)
	}
	return contractor, nil
}

// GetContractors возвращает подрядчиков в алфавитном порядке.
func (r *PostgresContractorRepository) GetContractors(ctx context.Context, limit, offset int) ([]models.Contractor, error) {
	query := `SELECT ` + contractorColumns + ` FROM users u WHERE u.role = $1 ORDER BY u.name LIMIT $2 OFFSET $3`
	rows, err := r.DB.Query(ctx, query, models.ContractorRole, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contractors []models.Contractor
	for rows.Next() {
		contractor, err := scanContractor(rows)
		if err != nil {
			return nil, err
		}
		contractors = append(contractors, *contractor)
	}
	return contractors, rows.Err()
}

// UpdateContractor сохраняет изменяемые поля профиля.
func (r *PostgresContractorRepository) UpdateContractor(ctx context.Context, contractor *models.Contractor) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE users SET name = $2, email = $3, organization = $4, wallet_address = $5
		WHERE id = $1`,
		contractor.ID,
		contractor.Name,
		contractor.Email,
		contractor.Organization,
		contractor.WalletAddress)
	if err != nil {
		if constraint, ok := uniqueConstraint(err); ok && constraint == usersEmailConstraint {
			return ErrDuplicateEmail
		}
		return missing(err, ErrContractorNotFound)
	}
	if tag.RowsAffected() == 0 {
		return ErrContractorNotFound
	}
	return nil
}

// DeleteContractor удаляет профиль вместе с заявками и отзывами.
func (r *PostgresContractorRepository) DeleteContractor(ctx context.Context, contractorId string) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM users WHERE id = $1`, contractorId)
	if err != nil {
		return missing(err, ErrContractorNotFound)
	}
	if tag.RowsAffected() == 0 {
		return ErrContractorNotFound
	}
	return nil
}

// ApplyVerification применяет изменение флага верификации вне процесса заявок.
func (r *PostgresContractorRepository) ApplyVerification(ctx context.Context, change models.VerificationChange) error {
	return applyVerificationChange(ctx, r.DB, &change)
}

// AddRating сохраняет отзыв и пересчитывает средний рейтинг.
func (r *PostgresContractorRepository) AddRating(ctx context.Context, feedback models.ContractorFeedback) (*models.Contractor, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE users
		SET rating = ROUND((rating * rating_count + $2::numeric) / (rating_count + 1), 1),
		    rating_count = rating_count + 1
		WHERE id = $1`,
		feedback.ContractorID, feedback.Rating)
	if err != nil {
		return nil, missing(err, ErrContractorNotFound)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrContractorNotFound
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO contractor_feedback (id, contractor_id, rating, feedback, rated_by, rated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New().String(),
		feedback.ContractorID,
		feedback.Rating,
		feedback.Feedback,
		feedback.RatedBy,
		feedback.RatedAt)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + contractorColumns + ` FROM users u WHERE u.id = $1`
	contractor, err := scanContractor(tx.QueryRow(ctx, query, feedback.ContractorID))
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return contractor, nil
}

// GetVerificationOverview считает подрядчиков по флагу верификации.
func (r *PostgresContractorRepository) GetVerificationOverview(ctx context.Context) (*models.VerificationOverview, error) {
	var overview models.VerificationOverview
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_verified)
		FROM users WHERE role = $1`, models.ContractorRole).
		Scan(&overview.TotalContractors, &overview.VerifiedContractors)
	if err != nil {
		return nil, err
	}
	overview.UnverifiedContractors = overview.TotalContractors - overview.VerifiedContractors
	overview.LastUpdated = time.Now()
	return &overview, nil
}

// applyVerificationChange - единственное место, где меняется users.is_verified.
func applyVerificationChange(ctx context.Context, db execer, change *models.VerificationChange) error {
	tag, err := db.Exec(ctx, `
		UPDATE users SET is_verified = $2, verified_at = $3, verified_by = $4, verification_notes = $5
		WHERE id = $1`,
		change.ContractorID,
		change.IsVerified,
		change.VerifiedAt,
		change.VerifiedBy,
		change.Notes)
	if err != nil {
		return missing(err, ErrContractorNotFound)
	}
	if tag.RowsAffected() == 0 {
		return ErrContractorNotFound
	}
	return nil
}

func scanContractor(row pgx.Row) (*models.Contractor, error) {
	var c models.Contractor
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Email,
		&c.Organization,
		&c.WalletAddress,
		&c.Role,
		&c.IsVerified,
		&c.VerifiedAt,
		&c.VerifiedBy,
		&c.VerificationNotes,
		&c.Rating,
		&c.RatingCount,
		&c.CompletedProjects,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
