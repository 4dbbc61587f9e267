package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/cafe-loyalty/internal/middleware"
)

// RedeemEarnToken погашает токен начисления, предъявленный клиентом на кассе.
func (h *Handler) RedeemEarnToken(w http.ResponseWriter, r *http.Request) {
	branchID, ok := middleware.GetBranchIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req redeemTokenRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.service.RedeemEarnToken(r.Context(), req.Code, branchID)
	if err != nil {
		h.writeError(w, err, "redeem earn token", zap.Int64("branchID", branchID))
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

// RedeemCampaignToken погашает токен акции и возвращает предложение для кассира.
func (h *Handler) RedeemCampaignToken(w http.ResponseWriter, r *http.Request) {
	branchID, ok := middleware.GetBranchIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req redeemTokenRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.service.RedeemCampaignToken(r.Context(), req.Code, branchID)
	if err != nil {
		h.writeError(w, err, "redeem campaign token", zap.Int64("branchID", branchID))
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

// ConfirmRedemption подтверждает заявку по коду, который назвал клиент.
func (h *Handler) ConfirmRedemption(w http.ResponseWriter, r *http.Request) {
	branchID, ok := middleware.GetBranchIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req confirmRedemptionRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.service.ConfirmRedemption(r.Context(), req.ConfirmationCode, branchID)
	if err != nil {
		h.writeError(w, err, "confirm redemption", zap.Int64("branchID", branchID))
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

// CampaignUsage возвращает статистику использования акции.
func (h *Handler) CampaignUsage(w http.ResponseWriter, r *http.Request) {
	campaignID, err := strconv.ParseInt(chi.URLParam(r, "campaignID"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	usage, err := h.service.CampaignUsage(r.Context(), campaignID)
	if err != nil {
		h.writeError(w, err, "campaign usage", zap.Int64("campaignID", campaignID))
		return
	}

	h.writeJSON(w, http.StatusOK, usage)
}
