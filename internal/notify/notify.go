package notify

import (
	"context"
	"log"
	"time"
)

// Типы уведомлений; используются и как routing key.
const (
	TenderAwarded     = "tender.awarded"
	PaymentProcessing = "payment.processing"
	PaymentCompleted  = "payment.completed"
	PaymentFailed     = "payment.failed"
	PaymentCleared    = "payment.cleared"
)

// Event - уведомление о присуждении тендера или изменении платежа.
type Event struct {
	Type                string    `json:"type"`
	TenderID            string    `json:"tenderId"`
	BidID               string    `json:"bidId,omitempty"`
	ContractorID        string    `json:"contractorId,omitempty"`
	Amount              string    `json:"amount,omitempty"`
	PaymentStatus       string    `json:"paymentStatus,omitempty"`
	SettlementReference string    `json:"settlementReference,omitempty"`
	ActorID             string    `json:"actorId"`
	OccurredAt          time.Time `json:"occurredAt"`
}

// SettlementNotifier получает уведомления по принципу fire-and-forget.
type SettlementNotifier interface {
	Notify(ctx context.Context, event Event) error
}

// NoopNotifier только пишет уведомление в лог.
type NoopNotifier struct {
	Logger *log.Logger
}

// Notify реализует SettlementNotifier.
func (n *NoopNotifier) Notify(_ context.Context, event Event) error {
	if n.Logger != nil {
		n.Logger.Printf("Notice %s for tender %s skipped (notifier disabled)", event.Type, event.TenderID)
	}
	return nil
}

// Dispatcher доставляет уведомления, не давая ошибкам получателя повлиять на операцию.
type Dispatcher struct {
	Notifier SettlementNotifier
	Timeout  time.Duration
	Logger   *log.Logger
}

// NewDispatcher создает Dispatcher.
func NewDispatcher(notifier SettlementNotifier, timeout time.Duration, logger *log.Logger) *Dispatcher {
	return &Dispatcher{Notifier: notifier, Timeout: timeout, Logger: logger}
}

// Send отправляет уведомление; ошибка только логируется.
func (d *Dispatcher) Send(ctx context.Context, event Event) {
	if d == nil || d.Notifier == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	ctx = context.WithoutCancel(ctx)
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	if err := d.Notifier.Notify(ctx, event); err != nil && d.Logger != nil {
		d.Logger.Printf("Failed to deliver notice %s for tender %s: %v", event.Type, event.TenderID, err)
	}
}
