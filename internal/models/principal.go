package models

import "time"

// Role - роль аутентифицированного пользователя.
type Role string

const (
	AdminRole      Role = "admin"
	VerifierRole   Role = "verifier"
	ContractorRole Role = "contractor"
	PublicRole     Role = "public"
)

// Valid проверяет, что роль известна.
func (r Role) Valid() bool {
	switch r {
	case AdminRole, VerifierRole, ContractorRole, PublicRole:
		return true
	}
	return false
}

// Principal - аутентифицированный пользователь, выданный подсистемой идентификации.
type Principal struct {
	ID         string `json:"id"`
	Role       Role   `json:"role"`
	IsVerified bool   `json:"isVerified"`
}

// Contractor - профиль пользователя платформы.
type Contractor struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Organization      string     `json:"organization,omitempty"`
	WalletAddress     string     `json:"walletAddress,omitempty"`
	Role              Role       `json:"role"`
	IsVerified        bool       `json:"isVerified"`
	VerifiedAt        *time.Time `json:"verifiedAt,omitempty"`
	VerifiedBy        *string    `json:"verifiedBy,omitempty"`
	VerificationNotes string     `json:"verificationNotes,omitempty"`
	Rating            float64    `json:"rating"`
	RatingCount       int        `json:"ratingCount"`
	CompletedProjects int        `json:"completedProjects"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// ContractorUpdateRequest - изменяемые поля профиля.
type ContractorUpdateRequest struct {
	Name          *string `json:"name,omitempty"`
	Email         *string `json:"email,omitempty"`
	Organization  *string `json:"organization,omitempty"`
	WalletAddress *string `json:"walletAddress,omitempty"`
}

// RatingRequest - оценка подрядчика после завершения проекта.
type RatingRequest struct {
	Rating   float64 `json:"rating"`
	Feedback string  `json:"feedback"`
}

// ContractorFeedback - сохранённый отзыв о подрядчике.
type ContractorFeedback struct {
	ContractorID string    `json:"contractorId"`
	Rating       float64   `json:"rating"`
	Feedback     string    `json:"feedback"`
	RatedBy      string    `json:"ratedBy"`
	RatedAt      time.Time `json:"ratedAt"`
}

// VerificationOverview - сводка по верификации подрядчиков.
type VerificationOverview struct {
	TotalContractors      int       `json:"totalContractors"`
	VerifiedContractors   int       `json:"verifiedContractors"`
	UnverifiedContractors int       `json:"unverifiedContractors"`
	LastUpdated           time.Time `json:"lastUpdated"`
}
