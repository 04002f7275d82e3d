package repository

import (
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrTenderNotFound          = errors.New("tender not found")
	ErrContractorNotFound      = errors.New("contractor not found")
	ErrRequestNotFound         = errors.New("verification request not found")
	ErrVersionConflict         = errors.New("tender was modified concurrently")
	ErrDuplicateBid            = errors.New("contractor already has a bid on this tender")
	ErrDuplicatePendingRequest = errors.New("contractor already has an active verification request")
	ErrStaleRequest            = errors.New("verification request is no longer in the expected status")
	ErrDuplicateEmail          = errors.New("email is already registered")
)

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"

	bidTenderBidderConstraint    = "bid_tender_bidder_key"
	activeVerificationConstraint = "verification_request_active_idx"
	usersEmailConstraint         = "users_email_key"
)

// uniqueConstraint возвращает имя нарушенного уникального ограничения.
func uniqueConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// missing сводит пустую выборку и идентификатор, который не является UUID, к notFound.
func missing(err, notFound error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation {
		return notFound
	}
	return err
}

// validID сообщает, может ли id храниться в колонке UUID.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
