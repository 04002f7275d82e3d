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

// ContractorHandler - структура для обработки HTTP-запросов по профилям подрядчиков.
type ContractorHandler struct {
	Service *services.ContractorService
	Logger  *log.Logger
	Timeout time.Duration
}

// NewContractorHandler создаёт новый экземпляр ContractorHandler.
func NewContractorHandler(service *services.ContractorService, logger *log.Logger, timeout time.Duration) *ContractorHandler {
	return &ContractorHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// GetContractors обрабатывает запросы для получения списка подрядчиков.
func (h *ContractorHandler) GetContractors(w http.ResponseWriter, r *http.Request) {
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

	contractors, err := h.Service.GetContractors(ctx, p, limit, offset)
	if err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusOK, contractors)
}

// GetContractor обрабатывает запросы для получения профиля подрядчика.
func (h *ContractorHandler) GetContractor(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	contractor, err := h.Service.GetContractor(ctx, p, chi.URLParam(r, "contractorId"))
	if err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusOK, contractor)
}

// UpdateContractor обрабатывает запросы для изменения профиля.
func (h *ContractorHandler) UpdateContractor(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var updateReq models.ContractorUpdateRequest
	if err := utils.DecodeJSON(r, &updateReq); err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}

	contractor, err := h.Service.UpdateContractor(ctx, p, chi.URLParam(r, "contractorId"), updateReq)
	if err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusOK, contractor)
}

// DeleteContractor обрабатывает запросы для удаления профиля.
func (h *ContractorHandler) DeleteContractor(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	if err := h.Service.DeleteContractor(ctx, p, chi.URLParam(r, "contractorId")); err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RateContractor обрабатывает запросы для оценки подрядчика.
func (h *ContractorHandler) RateContractor(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var ratingReq models.RatingRequest
	if err := utils.DecodeJSON(r, &ratingReq); err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}

	contractor, err := h.Service.RateContractor(ctx, p, chi.URLParam(r, "contractorId"), ratingReq)
	if err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusOK, contractor)
}

// GetVerificationOverview обрабатывает запросы для получения сводки по верификации.
func (h *ContractorHandler) GetVerificationOverview(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	overview, err := h.Service.GetVerificationOverview(ctx, p)
	if err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusOK, overview)
}
