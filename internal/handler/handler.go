// Package handler содержит HTTP-обработчики API программы лояльности.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/cafe-loyalty/internal/middleware"
	"github.com/mmeshcher/cafe-loyalty/internal/model"
	"github.com/mmeshcher/cafe-loyalty/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterAccount(ctx context.Context, login, displayName, password string, preferredBranchID *int64) (int64, error)
	Authenticate(ctx context.Context, login, password string) (int64, error)

	IssueEarnToken(ctx context.Context, accountID int64) (*service.EarnTokenIssue, error)
	IssueCampaignToken(ctx context.Context, accountID, campaignID, offerID int64, branchHint *int64) (*service.CampaignTokenIssue, error)
	RequestRedemption(ctx context.Context, accountID, productID int64) (*service.RedemptionTicket, error)
	ListPendingRedemptions(ctx context.Context, accountID int64) ([]model.RedemptionRequest, error)
	LedgerSummary(ctx context.Context, accountID int64) (*model.LedgerSummary, error)
	ListLedgerEntries(ctx context.Context, accountID int64, limit int) ([]model.LedgerEntry, error)

	RedeemEarnToken(ctx context.Context, code string, branchID int64) (*model.EarnRedemption, error)
	RedeemCampaignToken(ctx context.Context, code string, branchID int64) (*model.CampaignRedemption, error)
	ConfirmRedemption(ctx context.Context, confirmationCode string, branchID int64) (*model.ConfirmedRedemption, error)
	CampaignUsage(ctx context.Context, campaignID int64) (*model.CampaignUsage, error)
}

// Handler реализует HTTP-обработчики API программы лояльности.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	rateLimiter    *middleware.RateLimiter
	trustProxy     bool
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
// limiter может быть nil, тогда частота запросов не ограничивается.
// trustProxy включает разбор X-Real-IP/X-Forwarded-For и допустим только за доверенным прокси.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, limiter *middleware.RateLimiter, trustProxy bool) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		rateLimiter:    limiter,
		trustProxy:     trustProxy,
	}
}

// Register обрабатывает регистрацию нового клиента.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}

	accountID, err := h.service.RegisterAccount(r.Context(), req.Login, req.DisplayName, req.Password, req.PreferredBranchID)
	if err != nil {
		h.writeError(w, err, "register account", zap.String("login", req.Login))
		return
	}

	if err := h.authMiddleware.SetAuthCookie(w, accountID); err != nil {
		h.writeError(w, err, "set auth cookie", zap.Int64("accountID", accountID))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Login выполняет аутентификацию клиента и устанавливает cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}

	accountID, err := h.service.Authenticate(r.Context(), req.Login, req.Password)
	if err != nil {
		h.writeError(w, err, "authenticate", zap.String("login", req.Login))
		return
	}

	if err := h.authMiddleware.SetAuthCookie(w, accountID); err != nil {
		h.writeError(w, err, "set auth cookie", zap.Int64("accountID", accountID))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// validatable запрос, умеющий проверить свои поля.
type validatable interface {
	Validate() error
}

// decode читает JSON-тело запроса и проверяет его. При ошибке ответ уже записан.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, req validatable) bool {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return false
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("encode response", zap.Error(err))
	}
}
