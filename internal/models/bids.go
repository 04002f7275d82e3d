package models

import "time"

// MinBidAmount - минимальная сумма предложения на платформе.
const MinBidAmount = "50"

// Bid представляет модель предложения внутри тендера.
type Bid struct {
	ID                    string    `json:"id"`
	TenderID              string    `json:"tenderId"`
	BidderID              string    `json:"bidderId"`
	BidderAddress         string    `json:"bidderAddress"`
	Amount                string    `json:"amount"`
	EstimatedDurationDays int       `json:"estimatedDurationDays"`
	Proposal              string    `json:"proposal"`
	SubmittedAt           time.Time `json:"submittedAt"`
	IsWinner              bool      `json:"isWinner"`
}

// BidRequest представляет структуру запроса для подачи предложения.
type BidRequest struct {
	Amount                string `json:"amount"`
	EstimatedDurationDays int    `json:"estimatedDurationDays"`
	Proposal              string `json:"proposal"`
}
