package services

import (
	"context"
	"net/mail"
	"time"
	"unicode/utf8"

	"github.com/senyabanana/tender-engine/internal/auth"
	"github.com/senyabanana/tender-engine/internal/models"
	"github.com/senyabanana/tender-engine/internal/repository"
	"github.com/senyabanana/tender-engine/internal/utils"
)

// ContractorService - операции с профилями подрядчиков.
type ContractorService struct {
	Repo repository.ContractorRepository
	now  func() time.Time
}

// NewContractorService создаёт новый экземпляр ContractorService.
func NewContractorService(repo repository.ContractorRepository) *ContractorService {
	return &ContractorService{Repo: repo, now: time.Now}
}

// GetContractors возвращает список подрядчиков.
func (s *ContractorService) GetContractors(ctx context.Context, p models.Principal, limit, offset int) ([]models.Contractor, error) {
	if err := authorize(p, auth.ListContractors); err != nil {
		return nil, err
	}
	contractors, err := s.Repo.GetContractors(ctx, limit, offset)
	if err != nil {
		return nil, storageError(err)
	}
	if contractors == nil {
		contractors = []models.Contractor{}
	}
	return contractors, nil
}

// GetContractor возвращает профиль подрядчика.
func (s *ContractorService) GetContractor(ctx context.Context, p models.Principal, contractorId string) (*models.Contractor, error) {
	if err := authorizeResource(p, auth.ViewContractor, contractorId, "contractor not found"); err != nil {
		return nil, err
	}
	contractor, err := s.Repo.GetContractor(ctx, contractorId)
	if err != nil {
		return nil, storageError(err)
	}
	return contractor, nil
}

// UpdateContractor изменяет имя, email, организацию и адрес кошелька.
func (s *ContractorService) UpdateContractor(ctx context.Context, p models.Principal, contractorId string, req models.ContractorUpdateRequest) (*models.Contractor, error) {
	if err := authorizeResource(p, auth.UpdateContractor, contractorId, "contractor not found"); err != nil {
		return nil, err
	}

	contractor, err := s.Repo.GetContractor(ctx, contractorId)
	if err != nil {
		return nil, storageError(err)
	}

	if req.Name != nil {
		name := utils.Sanitize(*req.Name)
		if name == "" || utf8.RuneCountInString(name) > 100 {
			return nil, models.NewValidationError("name is required and must not exceed 100 characters")
		}
		contractor.Name = name
	}
	if req.Email != nil {
		address, err := mail.ParseAddress(*req.Email)
		if err != nil || address.Name != "" {
			return nil, models.NewValidationError("email must be a valid address")
		}
		contractor.Email = address.Address
	}
	if req.Organization != nil {
		organization := utils.Sanitize(*req.Organization)
		if utf8.RuneCountInString(organization) > 200 {
			return nil, models.NewValidationError("organization must not exceed 200 characters")
		}
		contractor.Organization = organization
	}
	if req.WalletAddress != nil {
		wallet := utils.Sanitize(*req.WalletAddress)
		if utf8.RuneCountInString(wallet) > 64 {
			return nil, models.NewValidationError("walletAddress must not exceed 64 characters")
		}
		contractor.WalletAddress = wallet
	}

	if err := s.Repo.UpdateContractor(ctx, contractor); err != nil {
		return nil, storageError(err)
	}
	return contractor, nil
}

// DeleteContractor удаляет профиль подрядчика.
func (s *ContractorService) DeleteContractor(ctx context.Context, p models.Principal, contractorId string) error {
	if err := authorizeResource(p, auth.DeleteContractor, "", "contractor not found"); err != nil {
		return err
	}
	return storageError(s.Repo.DeleteContractor(ctx, contractorId))
}

// RateContractor добавляет оценку от 1 до 5 и пересчитывает средний рейтинг.
func (s *ContractorService) RateContractor(ctx context.Context, p models.Principal, contractorId string, req models.RatingRequest) (*models.Contractor, error) {
	if err := authorizeResource(p, auth.RateContractor, "", "contractor not found"); err != nil {
		return nil, err
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, models.NewValidationError("rating must be between 1 and 5")
	}
	feedback := utils.Sanitize(req.Feedback)
	if feedback == "" || utf8.RuneCountInString(feedback) > maxNotesLength {
		return nil, models.NewValidationError("feedback is required and must not exceed 2000 characters")
	}

	contractor, err := s.Repo.AddRating(ctx, models.ContractorFeedback{
		ContractorID: contractorId,
		Rating:       req.Rating,
		Feedback:     feedback,
		RatedBy:      p.ID,
		RatedAt:      s.now(),
	})
	if err != nil {
		return nil, storageError(err)
	}
	return contractor, nil
}

// GetVerificationOverview возвращает число верифицированных и неверифицированных подрядчиков.
func (s *ContractorService) GetVerificationOverview(ctx context.Context, p models.Principal) (*models.VerificationOverview, error) {
	if err := authorize(p, auth.ViewVerificationOverview); err != nil {
		return nil, err
	}
	overview, err := s.Repo.GetVerificationOverview(ctx)
	if err != nil {
		return nil, storageError(err)
	}
	return overview, nil
}
