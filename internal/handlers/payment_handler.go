package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/senyabanana/tender-engine/internal/services"
	"github.com/senyabanana/tender-engine/internal/utils"

	"github.com/go-chi/chi/v5"
)

// PaymentHandler - структура для обработки HTTP-запросов по платежам.
type PaymentHandler struct {
	Service *services.PaymentService
	Logger  *log.Logger
	Timeout time.Duration
}

// NewPaymentHandler создаёт новый экземпляр PaymentHandler.
func NewPaymentHandler(service *services.PaymentService, logger *log.Logger, timeout time.Duration) *PaymentHandler {
	return &PaymentHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// ProcessPayment обрабатывает запросы для проведения платежа.
func (h *PaymentHandler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	record, err := h.Service.ProcessPayment(ctx, p, chi.URLParam(r, "tenderId"))
	if err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusOK, record)
}

// ClearPaymentHistory обрабатывает запросы для удаления записи о платеже.
func (h *PaymentHandler) ClearPaymentHistory(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	tender, err := h.Service.ClearPaymentHistory(ctx, p, chi.URLParam(r, "tenderId"))
	if err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusOK, tender)
}

// GetPayments обрабатывает запросы для получения реестра платежей.
func (h *PaymentHandler) GetPayments(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	payments, err := h.Service.GetPayments(ctx, p)
	if err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusOK, payments)
}

// GetContractorPayments обрабатывает запросы для получения платежей подрядчика.
func (h *PaymentHandler) GetContractorPayments(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	payments, err := h.Service.GetContractorPayments(ctx, p, chi.URLParam(r, "contractorId"))
	if err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusOK, payments)
}
