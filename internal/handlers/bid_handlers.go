package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/senyabanana/tender-engine/internal/models"
	"github.com/senyabanana/tender-engine/internal/services"
	"github.com/senyabanana/tender-engine/internal/utils"

	"github.com/go-chi/chi/v5"
)

// BidHandler - структура для обработки HTTP-запросов по предложениям.
type BidHandler struct {
	Service *services.BidService
	Logger  *log.Logger
	Timeout time.Duration
}

// NewBidHandler создаёт новый экземпляр BidHandler.
func NewBidHandler(service *services.BidService, logger *log.Logger, timeout time.Duration) *BidHandler {
	return &BidHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// CreateBid обрабатывает запросы для подачи предложения.
func (h *BidHandler) CreateBid(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var bidReq models.BidRequest
	if err := utils.DecodeJSON(r, &bidReq); err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}

	bid, err := h.Service.SubmitBid(ctx, p, chi.URLParam(r, "tenderId"), bidReq)
	if err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusCreated, bid)
}

// GetTenderBids обрабатывает запросы для получения предложений по тендеру.
func (h *BidHandler) GetTenderBids(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	bids, err := h.Service.GetTenderBids(ctx, p, chi.URLParam(r, "tenderId"))
	if err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusOK, bids)
}

// GetContractorBids обрабатывает запросы для получения предложений подрядчика.
func (h *BidHandler) GetContractorBids(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	bids, err := h.Service.GetContractorBids(ctx, p, chi.URLParam(r, "contractorId"))
	if err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusOK, bids)
}
