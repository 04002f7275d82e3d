package settlement

import (
	"context"
	"errors"

	"github.com/senyabanana/tender-engine/internal/models"

	"github.com/google/uuid"
)

// ErrUnavailable - рельс расчётов недоступен или не ответил вовремя.
var ErrUnavailable = errors.New("settlement rail unavailable")

// Instruction - поручение на оплату выигравшего предложения.
// TenderID служит ключом идемпотентности: повторная отправка не создаёт второй платёж.
type Instruction struct {
	TenderID string `json:"idempotencyKey"`
	Amount   string `json:"amount"`
	Payee    string `json:"payee"`
}

// Result - ответ рельса на поручение или запрос статуса.
type Result struct {
	Reference     string               `json:"reference"`
	Status        models.PaymentStatus `json:"status"`
	FailureReason string               `json:"failureReason,omitempty"`
}

// Backend - рельс расчётов.
type Backend interface {
	// Settle отправляет поручение. Синхронный рельс сразу отвечает Completed или Failed.
	Settle(ctx context.Context, instruction Instruction) (Result, error)
	// Status возвращает текущее состояние поручения по ссылке.
	Status(ctx context.Context, reference string) (Result, error)
	// Async сообщает, может ли рельс ответить Processing.
	Async() bool
}

// InstantBackend считает платёж проведённым в момент вызова.
type InstantBackend struct{}

// NewInstantBackend создает InstantBackend.
func NewInstantBackend() *InstantBackend {
	return &InstantBackend{}
}

// Settle реализует Backend.
func (b *InstantBackend) Settle(_ context.Context, _ Instruction) (Result, error) {
	return Result{Reference: "stl_" + uuid.New().String(), Status: models.CompletedPayment}, nil
}

// Status реализует Backend.
func (b *InstantBackend) Status(_ context.Context, reference string) (Result, error) {
	return Result{Reference: reference, Status: models.CompletedPayment}, nil
}

// Async реализует Backend.
func (b *InstantBackend) Async() bool {
	return false
}
