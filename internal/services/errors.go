package services

import (
	"errors"

	"github.com/senyabanana/tender-engine/internal/auth"
	"github.com/senyabanana/tender-engine/internal/models"
	"github.com/senyabanana/tender-engine/internal/repository"
)

// storageError переводит ошибки хранилища в ErrorResponse.
// Всё, что не является известным конфликтом, считается недоступностью хранилища.
func storageError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := models.AsErrorResponse(err); ok {
		return err
	}

	switch {
	case errors.Is(err, repository.ErrTenderNotFound):
		return models.NewNotFoundError("tender not found")
	case errors.Is(err, repository.ErrContractorNotFound):
		return models.NewNotFoundError("contractor not found")
	case errors.Is(err, repository.ErrRequestNotFound):
		return models.NewNotFoundError("verification request not found")
	case errors.Is(err, repository.ErrDuplicateBid):
		return models.NewConflictError(models.CodeDuplicateBid, "contractor has already submitted a bid for this tender")
	case errors.Is(err, repository.ErrDuplicatePendingRequest):
		return models.NewConflictError(models.CodeDuplicatePendingRequest, "contractor already has a pending verification request")
	case errors.Is(err, repository.ErrVersionConflict):
		return models.NewConflictError(models.CodeVersionConflict, "tender was modified concurrently, please retry").WithCause(err)
	case errors.Is(err, repository.ErrStaleRequest):
		return models.NewConflictError(models.CodeAlreadyReviewed, "verification request has already been reviewed")
	case errors.Is(err, repository.ErrDuplicateEmail):
		return models.NewValidationError("email is already registered")
	}
	return models.NewUnavailableError(models.CodePersistenceUnavailable, "storage is unavailable, please retry").WithCause(err)
}

// authorize проверяет право на действие над коллекцией; отказ - AccessDenied.
func authorize(p models.Principal, action auth.Action) error {
	decision := auth.Authorize(p, action)
	if !decision.Allowed {
		return models.NewErrorResponse(models.AuthorizationError, models.CodeAccessDenied, decision.Reason)
	}
	return nil
}

// authorizeResource проверяет право на действие над конкретным ресурсом.
// Отказ неотличим от отсутствия ресурса.
func authorizeResource(p models.Principal, action auth.Action, ownerID, notFound string) error {
	if !auth.AuthorizeOwner(p, action, ownerID).Allowed {
		return models.NewNotFoundError(notFound)
	}
	return nil
}

func errNotVerified() error {
	return models.NewErrorResponse(models.AuthorizationError, models.CodeNotVerified, "contractor must be verified to bid on tenders")
}
