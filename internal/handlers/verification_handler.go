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

// VerificationHandler - структура для обработки HTTP-запросов по верификации подрядчиков.
type VerificationHandler struct {
	Service *services.VerificationService
	Logger  *log.Logger
	Timeout time.Duration
}

// NewVerificationHandler создаёт новый экземпляр VerificationHandler.
func NewVerificationHandler(service *services.VerificationService, logger *log.Logger, timeout time.Duration) *VerificationHandler {
	return &VerificationHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// SubmitRequest обрабатывает запросы для подачи заявки на верификацию.
func (h *VerificationHandler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var submission models.VerificationSubmission
	if err := utils.DecodeJSON(r, &submission); err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}

	req, err := h.Service.SubmitRequest(ctx, p, submission)
	if err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusCreated, req)
}

// GetRequests обрабатывает запросы для получения списка заявок.
func (h *VerificationHandler) GetRequests(w http.ResponseWriter, r *http.Request) {
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

	requests, err := h.Service.GetRequests(ctx, p, limit, offset)
	if err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusOK, requests)
}

// GetMyRequest обрабатывает запросы подрядчика на получение своей последней заявки.
func (h *VerificationHandler) GetMyRequest(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	req, err := h.Service.GetMyRequest(ctx, p)
	if err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusOK, req)
}

// StartReview обрабатывает запросы для взятия заявки в работу.
func (h *VerificationHandler) StartReview(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	req, err := h.Service.StartReview(ctx, p, chi.URLParam(r, "requestId"))
	if err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusOK, req)
}

// ReviewRequest обрабатывает запросы для вынесения решения по заявке.
func (h *VerificationHandler) ReviewRequest(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var review models.ReviewRequest
	if err := utils.DecodeJSON(r, &review); err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}

	req, err := h.Service.ReviewRequest(ctx, p, chi.URLParam(r, "requestId"), review)
	if err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusOK, req)
}

// SetVerificationStatus обрабатывает запросы для прямой установки флага верификации.
func (h *VerificationHandler) SetVerificationStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var statusReq models.VerificationStatusRequest
	if err := utils.DecodeJSON(r, &statusReq); err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}

	contractor, err := h.Service.SetVerificationStatus(ctx, p, chi.URLParam(r, "contractorId"), statusReq)
	if err != nil {
		utils.HandleError(w, h.Logger, err)
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusOK, contractor)
}
