package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Reconciler доводит зависшие платежи до окончательного статуса.
type Reconciler interface {
	ReconcilePayments(ctx context.Context) (int, error)
}

// Scheduler запускает периодическую сверку платежей.
type Scheduler struct {
	cron       *cron.Cron
	reconciler Reconciler
	timeout    time.Duration
	logger     *log.Logger
}

// NewScheduler создаёт планировщик; задачи не перекрываются, паника задачи перехватывается.
func NewScheduler(reconciler Reconciler, timeout time.Duration, logger *log.Logger) *Scheduler {
	cronLogger := cron.PrintfLogger(logger)
	c := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))

	return &Scheduler{
		cron:       c,
		reconciler: reconciler,
		timeout:    timeout,
		logger:     logger,
	}
}

// Start регистрирует задачу сверки по расписанию и запускает планировщик.
func (s *Scheduler) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.Reconcile); err != nil {
		return fmt.Errorf("failed to schedule payment reconciliation: %w", err)
	}
	s.logger.Printf("Scheduled payment reconciliation: %s", schedule)
	s.cron.Start()
	return nil
}

// Stop останавливает планировщик; возвращённый контекст завершается после текущих задач.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Reconcile выполняет один проход сверки.
func (s *Scheduler) Reconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	resolved, err := s.reconciler.ReconcilePayments(ctx)
	if err != nil {
		s.logger.Printf("Payment reconciliation failed: %v", err)
		return
	}
	if resolved > 0 {
		s.logger.Printf("Payment reconciliation resolved %d payment(s)", resolved)
	}
}
