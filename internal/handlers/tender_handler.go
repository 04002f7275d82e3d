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

// TenderHandler - структура для обработки HTTP-запросов по тендерам.
type TenderHandler struct {
	Service *services.TenderService
	Logger  *log.Logger
	Timeout time.Duration
}

// NewTenderHandler создаёт новый экземпляр TenderHandler.
func NewTenderHandler(service *services.TenderService, logger *log.Logger, timeout time.Duration) *TenderHandler {
	return &TenderHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// GetTenders обрабатывает запросы для получения списка открытых тендеров.
func (h *TenderHandler) GetTenders(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	limit, offset, err := utils.ParseLimitOffset(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))
	if err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}

	tenders, err := h.Service.FetchOpenTenders(ctx, p, limit, offset)
	if err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusOK, tenders)
}

// CreateTender обрабатывает запросы для создания тендера.
func (h *TenderHandler) CreateTender(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var tenderReq models.TenderRequest
	if err := utils.DecodeJSON(r, &tenderReq); err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}

	tender, err := h.Service.CreateTender(ctx, p, tenderReq)
	if err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusCreated, tender)
}

// GetTender обрабатывает запросы для получения тендера по ID.
func (h *TenderHandler) GetTender(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	tender, err := h.Service.GetTender(ctx, p, chi.URLParam(r, "tenderId"))
	if err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusOK, tender)
}

// UpdateTenderStatus обрабатывает запросы для изменения статуса тендера.
func (h *TenderHandler) UpdateTenderStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var statusReq models.TenderStatusRequest
	if err := utils.DecodeJSON(r, &statusReq); err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}

	tender, err := h.Service.ChangeTenderStatus(ctx, p, chi.URLParam(r, "tenderId"), statusReq.Status)
	if err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusOK, tender)
}

// AwardTender обрабатывает запросы для выбора победителя тендера.
func (h *TenderHandler) AwardTender(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var awardReq models.AwardRequest
	if err := utils.DecodeJSON(r, &awardReq); err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}

	tender, err := h.Service.AwardTender(ctx, p, chi.URLParam(r, "tenderId"), awardReq.BidID)
	if err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusOK, tender)
}
