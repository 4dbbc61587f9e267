package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/cafe-loyalty/internal/middleware"
)

// IssueEarnToken выдаёт текущему клиенту токен начисления.
func (h *Handler) IssueEarnToken(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	res, err := h.service.IssueEarnToken(r.Context(), accountID)
	if err != nil {
		h.writeError(w, err, "issue earn token", zap.Int64("accountID", accountID))
		return
	}

	h.writeJSON(w, http.StatusCreated, res)
}

// IssueCampaignToken выдаёт текущему клиенту токен акции.
func (h *Handler) IssueCampaignToken(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	campaignID, err := strconv.ParseInt(chi.URLParam(r, "campaignID"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req campaignTokenRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.service.IssueCampaignToken(r.Context(), accountID, campaignID, req.OfferID, req.BranchID)
	if err != nil {
		h.writeError(w, err, "issue campaign token", zap.Int64("accountID", accountID), zap.Int64("campaignID", campaignID))
		return
	}

	h.writeJSON(w, http.StatusCreated, res)
}

// RequestRedemption создаёт заявку на получение товара за баллы.
func (h *Handler) RequestRedemption(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req redemptionRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.service.RequestRedemption(r.Context(), accountID, req.ProductID)
	if err != nil {
		h.writeError(w, err, "request redemption", zap.Int64("accountID", accountID), zap.Int64("productID", req.ProductID))
		return
	}

	h.writeJSON(w, http.StatusCreated, res)
}

type pendingRedemptionResponse struct {
	ID               int64  `json:"id"`
	ProductName      string `json:"product_name"`
	PointCost        int64  `json:"point_cost"`
	ConfirmationCode string `json:"confirmation_code"`
	RequestedAt      string `json:"requested_at"`
}

// ListPendingRedemptions возвращает неподтверждённые заявки текущего клиента.
func (h *Handler) ListPendingRedemptions(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	requests, err := h.service.ListPendingRedemptions(r.Context(), accountID)
	if err != nil {
		h.writeError(w, err, "list pending redemptions", zap.Int64("accountID", accountID))
		return
	}

	if len(requests) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]pendingRedemptionResponse, 0, len(requests))
	for _, req := range requests {
		resp = append(resp, pendingRedemptionResponse{
			ID:               req.ID,
			ProductName:      req.ProductName,
			PointCost:        req.PointCost,
			ConfirmationCode: req.ConfirmationCode,
			RequestedAt:      req.RequestedAt.Format(time.RFC3339),
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// GetBalance возвращает баланс и обороты текущего клиента.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	summary, err := h.service.LedgerSummary(r.Context(), accountID)
	if err != nil {
		h.writeError(w, err, "ledger summary", zap.Int64("accountID", accountID))
		return
	}

	h.writeJSON(w, http.StatusOK, summary)
}

type ledgerEntryResponse struct {
	Delta       int64  `json:"delta"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

// GetLedger возвращает историю операций текущего клиента. Параметр limit необязателен.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var limit int
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := h.service.ListLedgerEntries(r.Context(), accountID, limit)
	if err != nil {
		h.writeError(w, err, "list ledger entries", zap.Int64("accountID", accountID))
		return
	}

	if len(entries) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]ledgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, ledgerEntryResponse{
			Delta:       e.Delta,
			Kind:        string(e.Kind),
			Description: e.Description,
			CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}
