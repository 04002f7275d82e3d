package services

import (
	"context"
	"errors"

	"github.com/senyabanana/tender-engine/internal/lock"
	"github.com/senyabanana/tender-engine/internal/models"
	"github.com/senyabanana/tender-engine/internal/repository"
)

const defaultUpdateAttempts = 3

// tenderMutator - единственный путь изменения агрегата тендера:
// блокировка тендера, чтение, изменение копии и запись с проверкой версии.
type tenderMutator struct {
	repo     repository.TenderRepository
	locker   lock.Locker
	attempts int
}

func newTenderMutator(repo repository.TenderRepository, locker lock.Locker, attempts int) *tenderMutator {
	if attempts <= 0 {
		attempts = defaultUpdateAttempts
	}
	return &tenderMutator{repo: repo, locker: locker, attempts: attempts}
}

// withLock выполняет fn, удерживая блокировку тендера.
func (m *tenderMutator) withLock(ctx context.Context, tenderId string, fn func() error) error {
	if m.locker == nil {
		return fn()
	}
	unlock, err := m.locker.Lock(ctx, tenderId)
	if err != nil {
		return models.NewUnavailableError(models.CodePersistenceUnavailable, "tender is busy, please retry").WithCause(err)
	}
	defer unlock()
	return fn()
}

// update перечитывает тендер и повторяет op при конфликте версий.
// op получает копию тендера и сам сохраняет её через repo.
func (m *tenderMutator) update(ctx context.Context, tenderId string, op func(tender *models.Tender) error) error {
	for attempt := 1; ; attempt++ {
		tender, err := m.repo.GetTender(ctx, tenderId)
		if err != nil {
			return storageError(err)
		}

		err = op(tender)
		if errors.Is(err, repository.ErrVersionConflict) && attempt < m.attempts {
			continue
		}
		return storageError(err)
	}
}

// save записывает изменённую копию тендера.
func (m *tenderMutator) save(ctx context.Context, tender *models.Tender) error {
	version, err := m.repo.UpdateTender(ctx, tender, tender.Version)
	if err != nil {
		return err
	}
	tender.Version = version
	return nil
}

// mutate - update + save под блокировкой для изменений, не требующих внешних вызовов.
func (m *tenderMutator) mutate(ctx context.Context, tenderId string, change func(tender *models.Tender) error) (*models.Tender, error) {
	var result *models.Tender
	err := m.withLock(ctx, tenderId, func() error {
		return m.update(ctx, tenderId, func(tender *models.Tender) error {
			if err := change(tender); err != nil {
				return err
			}
			if err := m.save(ctx, tender); err != nil {
				return err
			}
			result = tender
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
