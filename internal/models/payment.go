package models

import "time"

// PaymentStatus - статус платежа по выигравшему предложению.
type PaymentStatus string

const (
	PendingPayment    PaymentStatus = "Pending"
	ProcessingPayment PaymentStatus = "Processing"
	CompletedPayment  PaymentStatus = "Completed"
	FailedPayment     PaymentStatus = "Failed"
)

// PaymentRecord хранит обязательство по оплате внутри тендера.
type PaymentRecord struct {
	Amount              string        `json:"amount"`
	Status              PaymentStatus `json:"status"`
	Date                *time.Time    `json:"date,omitempty"`
	SettlementReference string        `json:"settlementReference,omitempty"`
	FailureReason       string        `json:"failureReason,omitempty"`
}

// Clone возвращает копию записи о платеже.
func (p PaymentRecord) Clone() PaymentRecord {
	if p.Date != nil {
		d := *p.Date
		p.Date = &d
	}
	return p
}

// PaymentSummary - строка реестра платежей.
type PaymentSummary struct {
	TenderID            string        `json:"tenderId"`
	TenderTitle         string        `json:"tenderTitle"`
	ContractorID        string        `json:"contractorId"`
	ContractorWallet    string        `json:"contractorWallet,omitempty"`
	Amount              string        `json:"amount"`
	Status              PaymentStatus `json:"paymentStatus"`
	Date                *time.Time    `json:"paymentDate,omitempty"`
	SettlementReference string        `json:"settlementReference,omitempty"`
	AwardedAt           *time.Time    `json:"awardedAt,omitempty"`
}

// SummarizePayment собирает строку реестра из тендера с платежом.
func SummarizePayment(t *Tender) (PaymentSummary, bool) {
	if t.Status != AwardedTender || t.Payment == nil {
		return PaymentSummary{}, false
	}
	s := PaymentSummary{
		TenderID:            t.ID,
		TenderTitle:         t.Title,
		Amount:              t.Payment.Amount,
		Status:              t.Payment.Status,
		Date:                t.Payment.Date,
		SettlementReference: t.Payment.SettlementReference,
		AwardedAt:           t.AwardedAt,
	}
	if bid, ok := t.WinningBid(); ok {
		s.ContractorID = bid.BidderID
		s.ContractorWallet = bid.BidderAddress
	}
	return s, true
}
