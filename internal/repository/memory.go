package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/senyabanana/tender-engine/internal/models"

	"github.com/shopspring/decimal"
)

// MemoryStore хранит все агрегаты в памяти процесса.
// Реализует TenderRepository, VerificationRepository и ContractorRepository
// с теми же конфликтами, что и Postgres: версия тендера, (tender, bidder), одна активная заявка.
type MemoryStore struct {
	mu          sync.RWMutex
	tenders     map[string]*models.Tender
	tenderOrder []string
	requests    map[string]*models.VerificationRequest
	users       map[string]*models.Contractor
	feedback    []models.ContractorFeedback
}

// NewMemoryStore создает пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenders:  make(map[string]*models.Tender),
		requests: make(map[string]*models.VerificationRequest),
		users:    make(map[string]*models.Contractor),
	}
}

// CreateTender создает новый тендер.
func (s *MemoryStore) CreateTender(_ context.Context, tender *models.Tender) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tenders[tender.ID] = tender.Clone()
	s.tenderOrder = append(s.tenderOrder, tender.ID)
	return nil
}

// GetTender возвращает копию тендера.
func (s *MemoryStore) GetTender(_ context.Context, tenderId string) (*models.Tender, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tender, ok := s.tenders[tenderId]
	if !ok {
		return nil, ErrTenderNotFound
	}
	return tender.Clone(), nil
}

// GetTenders возвращает тендеры с фильтром по статусам, новые первыми.
func (s *MemoryStore) GetTenders(_ context.Context, statuses []models.TenderStatus, limit, offset int) ([]models.Tender, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tenders []models.Tender
	for i := len(s.tenderOrder) - 1; i >= 0; i-- {
		tender := s.tenders[s.tenderOrder[i]]
		if len(statuses) > 0 && !containsStatus(statuses, tender.Status) {
			continue
		}
		tenders = append(tenders, *tender.Clone())
	}
	sort.SliceStable(tenders, func(i, j int) bool {
		return tenders[i].CreatedAt.After(tenders[j].CreatedAt)
	})
	return paginate(tenders, limit, offset), nil
}

// GetTendersByPaymentStatus возвращает присуждённые тендеры с указанным статусом платежа.
func (s *MemoryStore) GetTendersByPaymentStatus(_ context.Context, status models.PaymentStatus) ([]models.Tender, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tenders []models.Tender
	for _, id := range s.tenderOrder {
		tender := s.tenders[id]
		if tender.Status == models.AwardedTender && tender.Payment != nil && tender.Payment.Status == status {
			tenders = append(tenders, *tender.Clone())
		}
	}
	return tenders, nil
}

// GetBidderBids возвращает все предложения подрядчика, новые первыми.
func (s *MemoryStore) GetBidderBids(_ context.Context, bidderId string) ([]models.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bids []models.Bid
	for _, id := range s.tenderOrder {
		if bid, ok := s.tenders[id].BidByBidder(bidderId); ok {
			bids = append(bids, *bid)
		}
	}
	sort.SliceStable(bids, func(i, j int) bool {
		return bids[i].SubmittedAt.After(bids[j].SubmittedAt)
	})
	return bids, nil
}

// GetPayments возвращает реестр платежей; bidderId ограничивает выборку победителем.
func (s *MemoryStore) GetPayments(_ context.Context, bidderId string) ([]models.PaymentSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payments []models.PaymentSummary
	for _, id := range s.tenderOrder {
		summary, ok := models.SummarizePayment(s.tenders[id].Clone())
		if !ok || (bidderId != "" && summary.ContractorID != bidderId) {
			continue
		}
		payments = append(payments, summary)
	}
	sort.SliceStable(payments, func(i, j int) bool {
		a, b := payments[i], payments[j]
		if (a.Date == nil) != (b.Date == nil) {
			return a.Date != nil
		}
		if a.Date != nil && !a.Date.Equal(*b.Date) {
			return a.Date.After(*b.Date)
		}
		return timeAfter(a.AwardedAt, b.AwardedAt)
	})
	return payments, nil
}

// AddBid добавляет предложение, если тендер открыт и не менялся с expectedVersion.
func (s *MemoryStore) AddBid(_ context.Context, tenderId string, expectedVersion int32, bid models.Bid) (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tender, ok := s.tenders[tenderId]
	if !ok || tender.Version != expectedVersion || tender.Status != models.OpenTender {
		return 0, ErrVersionConflict
	}
	if _, exists := tender.BidByBidder(bid.BidderID); exists {
		return 0, ErrDuplicateBid
	}

	bid.TenderID = tenderId
	tender.Bids = append(tender.Bids, bid)
	tender.Version++
	tender.UpdatedAt = bid.SubmittedAt
	return tender.Version, nil
}

// UpdateTender сохраняет статус, победителя и платёж тендера.
func (s *MemoryStore) UpdateTender(_ context.Context, tender *models.Tender, expectedVersion int32) (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tenders[tender.ID]
	if !ok || stored.Version != expectedVersion {
		return 0, ErrVersionConflict
	}

	updated := stored.Clone()
	updated.Status = tender.Status
	updated.WinningBidID = tender.Clone().WinningBidID
	updated.AwardedAt = tender.Clone().AwardedAt
	updated.Payment = nil
	if tender.Payment != nil {
		payment := tender.Payment.Clone()
		updated.Payment = &payment
	}
	if updated.WinningBidID != nil {
		for i := range updated.Bids {
			updated.Bids[i].IsWinner = updated.Bids[i].ID == *updated.WinningBidID
		}
	}
	updated.UpdatedAt = tender.UpdatedAt
	updated.Version++

	s.tenders[tender.ID] = updated
	return updated.Version, nil
}

// CreateRequest сохраняет новую заявку, если у подрядчика нет активной.
func (s *MemoryStore) CreateRequest(_ context.Context, req *models.VerificationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.requests {
		if existing.ContractorID == req.ContractorID && existing.Status.Active() {
			return ErrDuplicatePendingRequest
		}
	}
	s.requests[req.ID] = cloneRequest(req)
	return nil
}

// GetRequest возвращает заявку по ID.
func (s *MemoryStore) GetRequest(_ context.Context, requestId string) (*models.VerificationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[requestId]
	if !ok {
		return nil, ErrRequestNotFound
	}
	return cloneRequest(req), nil
}

// GetRequests возвращает заявки, новые первыми.
func (s *MemoryStore) GetRequests(_ context.Context, limit, offset int) ([]models.VerificationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	requests := make([]models.VerificationRequest, 0, len(s.requests))
	for _, req := range s.requests {
		requests = append(requests, *cloneRequest(req))
	}
	sortRequests(requests)
	return paginate(requests, limit, offset), nil
}

// GetLatestRequest возвращает последнюю заявку подрядчика.
func (s *MemoryStore) GetLatestRequest(_ context.Context, contractorId string) (*models.VerificationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var requests []models.VerificationRequest
	for _, req := range s.requests {
		if req.ContractorID == contractorId {
			requests = append(requests, *cloneRequest(req))
		}
	}
	if len(requests) == 0 {
		return nil, ErrRequestNotFound
	}
	sortRequests(requests)
	return &requests[0], nil
}

// UpdateRequestStatus переводит заявку в новый статус, если она всё ещё в статусе from.
func (s *MemoryStore) UpdateRequestStatus(_ context.Context, req *models.VerificationRequest, from models.VerificationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.requests[req.ID]
	if !ok || stored.Status != from {
		return ErrStaleRequest
	}
	stored.Status = req.Status
	stored.VerifierID = cloneString(req.VerifierID)
	return nil
}

// SaveReview сохраняет решение по заявке и изменение флага верификации атомарно.
func (s *MemoryStore) SaveReview(_ context.Context, req *models.VerificationRequest, from []models.VerificationStatus, change *models.VerificationChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.requests[req.ID]
	if !ok || !containsVerificationStatus(from, stored.Status) {
		return ErrStaleRequest
	}
	if change != nil {
		if _, ok := s.users[change.ContractorID]; !ok {
			return ErrContractorNotFound
		}
		s.applyVerification(*change)
	}
	s.requests[req.ID] = cloneRequest(req)
	return nil
}

// CreateContractor создает профиль пользователя.
func (s *MemoryStore) CreateContractor(_ context.Context, contractor *models.Contractor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Email == contractor.Email {
			return ErrDuplicateEmail
		}
	}
	c := *contractor
	s.users[c.ID] = &c
	return nil
}

// GetContractor возвращает профиль по ID.
func (s *MemoryStore) GetContractor(_ context.Context, contractorId string) (*models.Contractor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[contractorId]
	if !ok {
		return nil, ErrContractorNotFound
	}
	return s.profile(user), nil
}

// GetContractors возвращает подрядчиков в алфавитном порядке.
func (s *MemoryStore) GetContractors(_ context.Context, limit, offset int) ([]models.Contractor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var contractors []models.Contractor
	for _, user := range s.users {
		if user.Role == models.ContractorRole {
			contractors = append(contractors, *s.profile(user))
		}
	}
	sort.Slice(contractors, func(i, j int) bool {
		if contractors[i].Name != contractors[j].Name {
			return contractors[i].Name < contractors[j].Name
		}
		return contractors[i].ID < contractors[j].ID
	})
	return paginate(contractors, limit, offset), nil
}

// UpdateContractor сохраняет изменяемые поля профиля.
func (s *MemoryStore) UpdateContractor(_ context.Context, contractor *models.Contractor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.users[contractor.ID]
	if !ok {
		return ErrContractorNotFound
	}
	for id, user := range s.users {
		if id != contractor.ID && user.Email == contractor.Email {
			return ErrDuplicateEmail
		}
	}
	stored.Name = contractor.Name
	stored.Email = contractor.Email
	stored.Organization = contractor.Organization
	stored.WalletAddress = contractor.WalletAddress
	return nil
}

// DeleteContractor удаляет профиль вместе с заявками и отзывами.
func (s *MemoryStore) DeleteContractor(_ context.Context, contractorId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[contractorId]; !ok {
		return ErrContractorNotFound
	}
	delete(s.users, contractorId)
	for id, req := range s.requests {
		if req.ContractorID == contractorId {
			delete(s.requests, id)
		}
	}
	kept := s.feedback[:0]
	for _, fb := range s.feedback {
		if fb.ContractorID != contractorId {
			kept = append(kept, fb)
		}
	}
	s.feedback = kept
	return nil
}

// ApplyVerification применяет изменение флага верификации вне процесса заявок.
func (s *MemoryStore) ApplyVerification(_ context.Context, change models.VerificationChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[change.ContractorID]; !ok {
		return ErrContractorNotFound
	}
	s.applyVerification(change)
	return nil
}

// AddRating сохраняет отзыв и пересчитывает средний рейтинг.
func (s *MemoryStore) AddRating(_ context.Context, feedback models.ContractorFeedback) (*models.Contractor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[feedback.ContractorID]
	if !ok {
		return nil, ErrContractorNotFound
	}

	count := decimal.NewFromInt(int64(user.RatingCount))
	average := decimal.NewFromFloat(user.Rating).Mul(count).
		Add(decimal.NewFromFloat(feedback.Rating)).
		Div(count.Add(decimal.NewFromInt(1))).
		Round(1)
	user.Rating = average.InexactFloat64()
	user.RatingCount++
	s.feedback = append(s.feedback, feedback)
	return s.profile(user), nil
}

// GetVerificationOverview считает подрядчиков по флагу верификации.
func (s *MemoryStore) GetVerificationOverview(_ context.Context) (*models.VerificationOverview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	overview := &models.VerificationOverview{LastUpdated: time.Now()}
	for _, user := range s.users {
		if user.Role != models.ContractorRole {
			continue
		}
		overview.TotalContractors++
		if user.IsVerified {
			overview.VerifiedContractors++
		}
	}
	overview.UnverifiedContractors = overview.TotalContractors - overview.VerifiedContractors
	return overview, nil
}

func (s *MemoryStore) applyVerification(change models.VerificationChange) {
	user := s.users[change.ContractorID]
	user.IsVerified = change.IsVerified
	user.VerifiedAt = cloneTime(change.VerifiedAt)
	user.VerifiedBy = cloneString(change.VerifiedBy)
	user.VerificationNotes = change.Notes
}

// profile возвращает копию профиля с вычисленным числом выигранных проектов.
func (s *MemoryStore) profile(user *models.Contractor) *models.Contractor {
	c := *user
	c.VerifiedAt = cloneTime(user.VerifiedAt)
	c.VerifiedBy = cloneString(user.VerifiedBy)
	c.CompletedProjects = 0
	for _, tender := range s.tenders {
		if bid, ok := tender.WinningBid(); ok && bid.BidderID == user.ID {
			c.CompletedProjects++
		}
	}
	return &c
}

func cloneRequest(req *models.VerificationRequest) *models.VerificationRequest {
	c := *req
	c.Credentials = append([]models.Credential(nil), req.Credentials...)
	c.VerifierID = cloneString(req.VerifierID)
	c.RejectionReason = cloneString(req.RejectionReason)
	c.ReviewedAt = cloneTime(req.ReviewedAt)
	return &c
}

func sortRequests(requests []models.VerificationRequest) {
	sort.Slice(requests, func(i, j int) bool {
		if !requests[i].SubmittedAt.Equal(requests[j].SubmittedAt) {
			return requests[i].SubmittedAt.After(requests[j].SubmittedAt)
		}
		return requests[i].ID > requests[j].ID
	})
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func containsStatus(statuses []models.TenderStatus, status models.TenderStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func containsVerificationStatus(statuses []models.VerificationStatus, status models.VerificationStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func timeAfter(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a != nil
	}
	return a.After(*b)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
