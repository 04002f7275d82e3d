package services

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/senyabanana/tender-engine/internal/lock"
	"github.com/senyabanana/tender-engine/internal/models"
	"github.com/senyabanana/tender-engine/internal/notify"
	"github.com/senyabanana/tender-engine/internal/repository"
	"github.com/senyabanana/tender-engine/internal/settlement"

	"github.com/shopspring/decimal"
)

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

var (
	admin    = models.Principal{ID: "admin-1", Role: models.AdminRole}
	verifier = models.Principal{ID: "verifier-1", Role: models.VerifierRole}
	c1       = models.Principal{ID: "contractor-1", Role: models.ContractorRole}
	c2       = models.Principal{ID: "contractor-2", Role: models.ContractorRole}
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, event notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var types []string
	for _, e := range n.events {
		types = append(types, e.Type)
	}
	return types
}

type stubBackend struct {
	async  bool
	settle func(ctx context.Context, instruction settlement.Instruction) (settlement.Result, error)
	status func(ctx context.Context, reference string) (settlement.Result, error)
	calls  int
}

func (b *stubBackend) Settle(ctx context.Context, instruction settlement.Instruction) (settlement.Result, error) {
	b.calls++
	return b.settle(ctx, instruction)
}

func (b *stubBackend) Status(ctx context.Context, reference string) (settlement.Result, error) {
	return b.status(ctx, reference)
}

func (b *stubBackend) Async() bool {
	return b.async
}

type fixture struct {
	store       *repository.MemoryStore
	notices     *recordingNotifier
	gate        *VerificationService
	tenders     *TenderService
	bids        *BidService
	payments    *PaymentService
	contractors *ContractorService
}

type fixtureOptions struct {
	locker         lock.Locker
	attempts       int
	enforceMaxBids bool
	backend        settlement.Backend
	settleTimeout  time.Duration
}

func newFixture(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()

	if opts.backend == nil {
		opts.backend = settlement.NewInstantBackend()
	}
	if opts.settleTimeout == 0 {
		opts.settleTimeout = time.Second
	}

	store := repository.NewMemoryStore()
	notices := &recordingNotifier{}
	logger := log.New(&bytes.Buffer{}, "", 0)
	dispatcher := notify.NewDispatcher(notices, time.Second, logger)

	f := &fixture{store: store, notices: notices}
	f.gate = NewVerificationService(store, store)
	f.tenders = NewTenderService(store, f.gate, opts.locker, dispatcher, opts.attempts)
	f.bids = NewBidService(store, f.gate, opts.locker, opts.attempts, opts.enforceMaxBids)
	f.payments = NewPaymentService(store, opts.backend, opts.locker, dispatcher, opts.attempts, opts.settleTimeout, logger)
	f.contractors = NewContractorService(store)
	f.setNow(func() time.Time { return baseTime })

	for _, p := range []models.Principal{admin, verifier, c1, c2} {
		f.addUser(t, p, false)
	}
	return f
}

func (f *fixture) setNow(now func() time.Time) {
	f.gate.now = now
	f.tenders.now = now
	f.bids.now = now
	f.payments.now = now
	f.contractors.now = now
}

func (f *fixture) addUser(t *testing.T, p models.Principal, verified bool) {
	t.Helper()
	err := f.store.CreateContractor(context.Background(), &models.Contractor{
		ID:            p.ID,
		Name:          p.ID,
		Email:         p.ID + "@example.com",
		WalletAddress: "0x" + p.ID,
		Role:          p.Role,
		IsVerified:    verified,
		CreatedAt:     baseTime,
	})
	if err != nil {
		t.Fatalf("failed to create user %s: %v", p.ID, err)
	}
}

func (f *fixture) verify(t *testing.T, p models.Principal) {
	t.Helper()
	_, err := f.gate.SetVerificationStatus(context.Background(), admin, p.ID, models.VerificationStatusRequest{IsVerified: true, Notes: "checked"})
	if err != nil {
		t.Fatalf("failed to verify %s: %v", p.ID, err)
	}
}

func (f *fixture) createTender(t *testing.T, maxBids int) *models.Tender {
	t.Helper()
	tender, err := f.tenders.CreateTender(context.Background(), admin, models.TenderRequest{
		Title:             "Bridge",
		Description:       "Repair the river bridge",
		Budget:            "50",
		DaysUntilDeadline: 30,
		MaxBids:           &maxBids,
	})
	if err != nil {
		t.Fatalf("failed to create tender: %v", err)
	}
	return tender
}

func (f *fixture) submitBid(p models.Principal, tenderId, amount string) (*models.Bid, error) {
	return f.bids.SubmitBid(context.Background(), p, tenderId, models.BidRequest{
		Amount:                amount,
		EstimatedDurationDays: 30,
		Proposal:              "We will do it",
	})
}

func (f *fixture) tender(t *testing.T, id string) *models.Tender {
	t.Helper()
	tender, err := f.store.GetTender(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to load tender %s: %v", id, err)
	}
	return tender
}

// awardedTender возвращает тендер, присуждённый c1 с суммой 60.
func (f *fixture) awardedTender(t *testing.T) *models.Tender {
	t.Helper()
	f.verify(t, c1)
	tender := f.createTender(t, 5)
	bid, err := f.submitBid(c1, tender.ID, "60")
	if err != nil {
		t.Fatalf("failed to submit bid: %v", err)
	}
	if _, err := f.tenders.AwardTender(context.Background(), admin, tender.ID, bid.ID); err != nil {
		t.Fatalf("failed to award tender: %v", err)
	}
	return f.tender(t, tender.ID)
}

func expectCode(t *testing.T, err error, code models.ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %s, got nil", code)
	}
	if !models.HasCode(err, code) {
		t.Fatalf("expected error %s, got %v", code, err)
	}
}

func expectKind(t *testing.T, err error, kind models.ErrorKind) {
	t.Helper()
	if !models.HasKind(err, kind) {
		t.Fatalf("expected %s error, got %v", kind, err)
	}
}

// checkAggregate проверяет согласованность агрегата тендера.
func checkAggregate(t *testing.T, tender *models.Tender) {
	t.Helper()

	winners := 0
	bidders := make(map[string]bool)
	for _, bid := range tender.Bids {
		if bid.IsWinner {
			winners++
			if tender.WinningBidID == nil || *tender.WinningBidID != bid.ID {
				t.Fatalf("winning bid %s does not match winningBidId", bid.ID)
			}
		}
		if bidders[bid.BidderID] {
			t.Fatalf("bidder %s has more than one bid", bid.BidderID)
		}
		bidders[bid.BidderID] = true
		if amount := bid.Amount; minBidAmount.GreaterThan(mustDecimal(t, amount)) {
			t.Fatalf("bid %s below minimum: %s", bid.ID, amount)
		}
	}
	if winners > 1 {
		t.Fatalf("expected at most one winner, got %d", winners)
	}
	if (winners == 1) != (tender.Status == models.AwardedTender) {
		t.Fatalf("winner present (%d) must match Awarded status (%s)", winners, tender.Status)
	}
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid decimal %q: %v", s, err)
	}
	return d
}

var errRailDown = errors.New("rail down")
