package models

import "time"

// TenderStatus - статус тендера.
type TenderStatus string

const (
	OpenTender      TenderStatus = "Open"      // Тендер открыт для предложений
	ClosedTender    TenderStatus = "Closed"    // Тендер закрыт, может быть открыт снова
	AwardedTender   TenderStatus = "Awarded"   // Победитель выбран
	CancelledTender TenderStatus = "Cancelled" // Тендер отменён
)

const (
	DefaultMinQualificationScore = 50
	DefaultMaxBids               = 5
)

// Valid проверяет, что статус входит в перечисление.
func (s TenderStatus) Valid() bool {
	switch s {
	case OpenTender, ClosedTender, AwardedTender, CancelledTender:
		return true
	}
	return false
}

// Tender представляет агрегат тендера вместе с предложениями и платежом.
type Tender struct {
	ID                    string         `json:"id"`
	Title                 string         `json:"title"`
	Description           string         `json:"description"`
	Budget                string         `json:"budget"`
	Deadline              time.Time      `json:"deadline"`
	MinQualificationScore int            `json:"minQualificationScore"`
	MaxBids               int            `json:"maxBids"`
	Status                TenderStatus   `json:"status"`
	CreatorID             string         `json:"creatorId"`
	Bids                  []Bid          `json:"bids"`
	WinningBidID          *string        `json:"winningBidId,omitempty"`
	AwardedAt             *time.Time     `json:"awardedAt,omitempty"`
	Payment               *PaymentRecord `json:"payment,omitempty"`
	Version               int32          `json:"version"`
	CreatedAt             time.Time      `json:"createdAt"`
	UpdatedAt             time.Time      `json:"updatedAt"`
}

// FindBid возвращает предложение тендера по ID.
func (t *Tender) FindBid(bidID string) (*Bid, bool) {
	for i := range t.Bids {
		if t.Bids[i].ID == bidID {
			return &t.Bids[i], true
		}
	}
	return nil, false
}

// BidByBidder возвращает предложение подрядчика, если оно уже есть.
func (t *Tender) BidByBidder(bidderID string) (*Bid, bool) {
	for i := range t.Bids {
		if t.Bids[i].BidderID == bidderID {
			return &t.Bids[i], true
		}
	}
	return nil, false
}

// WinningBid возвращает выигравшее предложение.
func (t *Tender) WinningBid() (*Bid, bool) {
	if t.WinningBidID == nil {
		return nil, false
	}
	return t.FindBid(*t.WinningBidID)
}

// Clone делает глубокую копию агрегата, чтобы изменения не утекали до сохранения.
func (t *Tender) Clone() *Tender {
	c := *t
	c.Bids = append([]Bid(nil), t.Bids...)
	if t.WinningBidID != nil {
		id := *t.WinningBidID
		c.WinningBidID = &id
	}
	if t.AwardedAt != nil {
		at := *t.AwardedAt
		c.AwardedAt = &at
	}
	if t.Payment != nil {
		p := t.Payment.Clone()
		c.Payment = &p
	}
	return &c
}

// TenderRequest представляет структуру запроса для создания тендера.
type TenderRequest struct {
	Title                 string     `json:"title"`
	Description           string     `json:"description"`
	Budget                string     `json:"budget"`
	Deadline              *time.Time `json:"deadline,omitempty"`
	DaysUntilDeadline     int        `json:"daysUntilDeadline,omitempty"`
	MinQualificationScore *int       `json:"minQualificationScore,omitempty"`
	MaxBids               *int       `json:"maxBids,omitempty"`
}

// TenderStatusRequest - запрос на смену статуса тендера.
type TenderStatusRequest struct {
	Status TenderStatus `json:"status"`
}

// AwardRequest - запрос на выбор победителя.
type AwardRequest struct {
	BidID string `json:"bidId"`
}

// TenderList - ответ со списком открытых тендеров.
type TenderList struct {
	Tenders             []Tender `json:"tenders"`
	CanBid              *bool    `json:"canBid,omitempty"`
	VerificationMessage string   `json:"verificationMessage,omitempty"`
}
