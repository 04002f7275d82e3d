package models

import "time"

type (
	VerificationStatus string // Статус заявки на верификацию
	ReviewDecision     string // Решение проверяющего
)

const (
	PendingVerification     VerificationStatus = "pending"      // Заявка подана
	UnderReviewVerification VerificationStatus = "under_review" // Заявка взята в работу
	ApprovedVerification    VerificationStatus = "approved"     // Заявка одобрена
	RejectedVerification    VerificationStatus = "rejected"     // Заявка отклонена

	ApproveDecision ReviewDecision = "approve"
	RejectDecision  ReviewDecision = "reject"
)

// Active сообщает, ожидает ли заявка решения.
func (s VerificationStatus) Active() bool {
	return s == PendingVerification || s == UnderReviewVerification
}

// Credential - документ, подтверждающий квалификацию подрядчика.
type Credential struct {
	Type       string     `json:"type"`
	Title      string     `json:"title"`
	Issuer     string     `json:"issuer,omitempty"`
	IssueDate  *time.Time `json:"issueDate,omitempty"`
	ExpiryDate *time.Time `json:"expiryDate,omitempty"`
}

// VerificationRequest представляет заявку подрядчика на верификацию.
type VerificationRequest struct {
	ID              string             `json:"id"`
	ContractorID    string             `json:"contractorId"`
	VerifierID      *string            `json:"verifierId,omitempty"`
	Status          VerificationStatus `json:"status"`
	Credentials     []Credential       `json:"credentials"`
	Notes           string             `json:"notes,omitempty"`
	RejectionReason *string            `json:"rejectionReason,omitempty"`
	SubmittedAt     time.Time          `json:"submittedAt"`
	ReviewedAt      *time.Time         `json:"reviewedAt,omitempty"`
}

// VerificationSubmission - запрос подрядчика на верификацию.
type VerificationSubmission struct {
	Credentials []Credential `json:"credentials"`
	Notes       string       `json:"notes"`
}

// ReviewRequest - решение по заявке.
type ReviewRequest struct {
	Decision        ReviewDecision `json:"decision"`
	Notes           string         `json:"notes"`
	RejectionReason string         `json:"rejectionReason,omitempty"`
}

// VerificationStatusRequest - прямая установка флага верификации.
type VerificationStatusRequest struct {
	IsVerified bool   `json:"isVerified"`
	Notes      string `json:"notes"`
}

// VerificationChange - изменение флага isVerified подрядчика.
// Формируется только VerificationService и применяется хранилищем как есть.
type VerificationChange struct {
	ContractorID string
	IsVerified   bool
	VerifiedAt   *time.Time
	VerifiedBy   *string
	Notes        string
}
