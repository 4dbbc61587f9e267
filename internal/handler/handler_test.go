package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/cafe-loyalty/internal/middleware"
	"github.com/mmeshcher/cafe-loyalty/internal/model"
	"github.com/mmeshcher/cafe-loyalty/internal/service"
)

type stubService struct {
	registerID  int64
	registerErr error

	authID  int64
	authErr error

	earnIssue    *service.EarnTokenIssue
	earnIssueErr error

	campaignIssue    *service.CampaignTokenIssue
	campaignIssueErr error
	gotOfferID       int64
	gotBranchHint    *int64

	ticket    *service.RedemptionTicket
	ticketErr error

	pending  []model.RedemptionRequest
	summary  *model.LedgerSummary
	entries  []model.LedgerEntry
	gotLimit int
	usage    *model.CampaignUsage
	usageErr error

	earnRedemption     *model.EarnRedemption
	campaignRedemption *model.CampaignRedemption
	confirmed          *model.ConfirmedRedemption
	redeemErr          error
	gotCode            string
	gotBranchID        int64
}

func (s *stubService) RegisterAccount(ctx context.Context, login, displayName, password string, preferredBranchID *int64) (int64, error) {
	return s.registerID, s.registerErr
}

func (s *stubService) Authenticate(ctx context.Context, login, password string) (int64, error) {
	return s.authID, s.authErr
}

func (s *stubService) IssueEarnToken(ctx context.Context, accountID int64) (*service.EarnTokenIssue, error) {
	return s.earnIssue, s.earnIssueErr
}

func (s *stubService) IssueCampaignToken(ctx context.Context, accountID, campaignID, offerID int64, branchHint *int64) (*service.CampaignTokenIssue, error) {
	s.gotOfferID = offerID
	s.gotBranchHint = branchHint
	return s.campaignIssue, s.campaignIssueErr
}

func (s *stubService) RequestRedemption(ctx context.Context, accountID, productID int64) (*service.RedemptionTicket, error) {
	return s.ticket, s.ticketErr
}

func (s *stubService) ListPendingRedemptions(ctx context.Context, accountID int64) ([]model.RedemptionRequest, error) {
	return s.pending, nil
}

func (s *stubService) LedgerSummary(ctx context.Context, accountID int64) (*model.LedgerSummary, error) {
	return s.summary, nil
}

func (s *stubService) ListLedgerEntries(ctx context.Context, accountID int64, limit int) ([]model.LedgerEntry, error) {
	s.gotLimit = limit
	return s.entries, nil
}

func (s *stubService) RedeemEarnToken(ctx context.Context, code string, branchID int64) (*model.EarnRedemption, error) {
	s.gotCode, s.gotBranchID = code, branchID
	return s.earnRedemption, s.redeemErr
}

func (s *stubService) RedeemCampaignToken(ctx context.Context, code string, branchID int64) (*model.CampaignRedemption, error) {
	s.gotCode, s.gotBranchID = code, branchID
	return s.campaignRedemption, s.redeemErr
}

func (s *stubService) ConfirmRedemption(ctx context.Context, code string, branchID int64) (*model.ConfirmedRedemption, error) {
	s.gotCode, s.gotBranchID = code, branchID
	return s.confirmed, s.redeemErr
}

func (s *stubService) CampaignUsage(ctx context.Context, campaignID int64) (*model.CampaignUsage, error) {
	return s.usage, s.usageErr
}

type testServer struct {
	handler *Handler
	router  http.Handler
}

func newTestServer(t *testing.T, svc Service) *testServer {
	t.Helper()

	h := NewHandler(svc, zap.NewNop(), middleware.NewAuthMiddleware("test-secret"), nil, false)
	return &testServer{handler: h, router: h.SetupRouter()}
}

func (ts *testServer) customerRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	req := newJSONRequest(t, method, path, body)
	rec := httptest.NewRecorder()
	require.NoError(t, ts.handler.authMiddleware.SetAuthCookie(rec, 1))
	req.AddCookie(rec.Result().Cookies()[0])
	return req
}

func (ts *testServer) branchRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	req := newJSONRequest(t, method, path, body)
	token, err := ts.handler.authMiddleware.IssueToken(middleware.RoleBranch, 3, time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func newJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name       string
		body       map[string]any
		svcErr     error
		wantStatus int
		wantCookie bool
	}{
		{
			name:       "success",
			body:       map[string]any{"login": "anna", "password": "secret1", "display_name": "Анна"},
			wantStatus: http.StatusOK,
			wantCookie: true,
		},
		{
			name:       "short password",
			body:       map[string]any{"login": "anna", "password": "123"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "login taken",
			body:       map[string]any{"login": "anna", "password": "secret1"},
			svcErr:     model.ErrAccountExists,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "unknown preferred branch",
			body:       map[string]any{"login": "anna", "password": "secret1", "preferred_branch_id": 99},
			svcErr:     model.ErrBranchNotFound,
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, &stubService{registerID: 42, registerErr: tt.svcErr})

			rec := ts.do(newJSONRequest(t, http.MethodPost, "/api/user/register", tt.body))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCookie, len(rec.Result().Cookies()) > 0)
		})
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ts := newTestServer(t, &stubService{authErr: model.ErrInvalidCredentials})

	rec := ts.do(newJSONRequest(t, http.MethodPost, "/api/user/login", map[string]string{"login": "anna", "password": "wrong"}))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_OtherNotFoundIsNotUnauthorized(t *testing.T) {
	ts := newTestServer(t, &stubService{authErr: fmt.Errorf("preferred branch: %w", model.ErrBranchNotFound)})

	rec := ts.do(newJSONRequest(t, http.MethodPost, "/api/user/login", map[string]string{"login": "anna", "password": "secret1"}))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogin_StoreUnavailable(t *testing.T) {
	ts := newTestServer(t, &stubService{authErr: model.ErrStoreUnavailable})

	rec := ts.do(newJSONRequest(t, http.MethodPost, "/api/user/login", map[string]string{"login": "anna", "password": "secret1"}))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestIssueEarnToken(t *testing.T) {
	ts := newTestServer(t, &stubService{earnIssue: &service.EarnTokenIssue{Code: "c0de", RemainingAllowance: 2}})

	rec := ts.do(ts.customerRequest(t, http.MethodPost, "/api/user/tokens/earn", nil))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"code":"c0de","remaining_allowance":2}`, rec.Body.String())
}

func TestIssueEarnToken_RateLimited(t *testing.T) {
	ts := newTestServer(t, &stubService{earnIssueErr: &model.RateLimitedError{RetryAfter: 90*time.Second + time.Millisecond}})

	rec := ts.do(ts.customerRequest(t, http.MethodPost, "/api/user/tokens/earn", nil))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "91", rec.Header().Get("Retry-After"))
}

func TestIssueEarnToken_RequiresCustomer(t *testing.T) {
	ts := newTestServer(t, &stubService{})

	rec := ts.do(ts.branchRequest(t, http.MethodPost, "/api/user/tokens/earn", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIssueCampaignToken(t *testing.T) {
	svc := &stubService{campaignIssueErr: &model.CampaignNotUsableError{Reason: model.RejectPerCustomerCap}}
	ts := newTestServer(t, svc)

	rec := ts.do(ts.customerRequest(t, http.MethodPost, "/api/user/campaigns/5/tokens", map[string]any{"offer_id": 50, "branch_id": 3}))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), string(model.RejectPerCustomerCap))
	assert.Equal(t, int64(50), svc.gotOfferID)
	require.NotNil(t, svc.gotBranchHint)
	assert.Equal(t, int64(3), *svc.gotBranchHint)

	rec = ts.do(ts.customerRequest(t, http.MethodPost, "/api/user/campaigns/abc/tokens", map[string]any{"offer_id": 50}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(ts.customerRequest(t, http.MethodPost, "/api/user/campaigns/5/tokens", map[string]any{}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestRedemption(t *testing.T) {
	tests := []struct {
		name       string
		svc        *stubService
		body       map[string]any
		wantStatus int
	}{
		{
			name:       "created",
			svc:        &stubService{ticket: &service.RedemptionTicket{ID: 1, ConfirmationCode: "123455", PointCost: 50}},
			body:       map[string]any{"product_id": 7},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "insufficient points",
			svc:        &stubService{ticketErr: model.ErrInsufficientPoints},
			body:       map[string]any{"product_id": 7},
			wantStatus: http.StatusPaymentRequired,
		},
		{
			name:       "product unavailable",
			svc:        &stubService{ticketErr: model.ErrProductUnavailable},
			body:       map[string]any{"product_id": 7},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "missing product",
			svc:        &stubService{},
			body:       map[string]any{},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.svc)

			rec := ts.do(ts.customerRequest(t, http.MethodPost, "/api/user/redemptions", tt.body))

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestListPendingRedemptions_NoContent(t *testing.T) {
	ts := newTestServer(t, &stubService{})

	rec := ts.do(ts.customerRequest(t, http.MethodGet, "/api/user/redemptions", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestGetBalance(t *testing.T) {
	ts := newTestServer(t, &stubService{summary: &model.LedgerSummary{Current: 30, Earned: 80, Spent: 50}})

	rec := ts.do(ts.customerRequest(t, http.MethodGet, "/api/user/balance", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"current":30,"earned":80,"spent":50}`, rec.Body.String())
}

func TestGetLedger(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	svc := &stubService{entries: []model.LedgerEntry{
		{Delta: 1, Kind: model.LedgerKindEarn, Description: "earn token redeemed at branch 3", CreatedAt: created},
	}}
	ts := newTestServer(t, svc)

	rec := ts.do(ts.customerRequest(t, http.MethodGet, "/api/user/ledger?limit=5", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, svc.gotLimit)
	assert.JSONEq(t,
		`[{"delta":1,"kind":"earn","description":"earn token redeemed at branch 3","created_at":"2024-03-01T09:30:00Z"}]`,
		rec.Body.String())

	rec = ts.do(ts.customerRequest(t, http.MethodGet, "/api/user/ledger?limit=x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRedeemEarnToken(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "ok", wantStatus: http.StatusOK},
		{name: "malformed", err: model.ErrMalformedCode, wantStatus: http.StatusUnprocessableEntity},
		{name: "unknown", err: model.ErrInvalidToken, wantStatus: http.StatusNotFound},
		{name: "already used", err: model.ErrAlreadyUsed, wantStatus: http.StatusConflict},
		{name: "inactive branch", err: model.ErrBranchInactive, wantStatus: http.StatusForbidden},
		{name: "store down", err: model.ErrStoreUnavailable, wantStatus: http.StatusServiceUnavailable},
		{name: "unexpected", err: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{earnRedemption: &model.EarnRedemption{AccountID: 1, NewBalance: 1}, redeemErr: tt.err}
			ts := newTestServer(t, svc)

			rec := ts.do(ts.branchRequest(t, http.MethodPost, "/api/branch/tokens/earn/redeem", map[string]string{"code": "abc"}))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "abc", svc.gotCode)
			assert.Equal(t, int64(3), svc.gotBranchID)
		})
	}
}

func TestRedeemCampaignToken_Expired(t *testing.T) {
	ts := newTestServer(t, &stubService{redeemErr: model.ErrExpired})

	rec := ts.do(ts.branchRequest(t, http.MethodPost, "/api/branch/tokens/campaign/redeem", map[string]string{"code": "abc"}))

	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestConfirmRedemption(t *testing.T) {
	svc := &stubService{confirmed: &model.ConfirmedRedemption{AccountID: 1, ProductName: "Латте", PointCost: 50, NewBalance: 10}}
	ts := newTestServer(t, svc)

	rec := ts.do(ts.branchRequest(t, http.MethodPost, "/api/branch/redemptions/confirm", map[string]string{"confirmation_code": "123455"}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "123455", svc.gotCode)
	assert.JSONEq(t, `{"account_id":1,"product_name":"Латте","point_cost":50,"new_balance":10}`, rec.Body.String())

	rec = ts.do(ts.customerRequest(t, http.MethodPost, "/api/branch/redemptions/confirm", map[string]string{"confirmation_code": "123455"}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCampaignUsage(t *testing.T) {
	remaining := 7
	ts := newTestServer(t, &stubService{usage: &model.CampaignUsage{CampaignID: 5, Issued: 4, Consumed: 3, Remaining: &remaining}})

	rec := ts.do(ts.branchRequest(t, http.MethodGet, "/api/branch/campaigns/5/usage", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"campaign_id":5,"issued":4,"consumed":3,"remaining":7}`, rec.Body.String())
}

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{model.ErrInvalidRequest, http.StatusBadRequest},
		{model.ErrInvalidOrAlreadyConfirmed, http.StatusConflict},
		{model.ErrInsufficientPoints, http.StatusPaymentRequired},
		{model.ErrInvalidCredentials, http.StatusUnauthorized},
		{model.ErrBranchNotFound, http.StatusNotFound},
		{&model.CampaignNotUsableError{Reason: model.RejectExpired}, http.StatusForbidden},
		{&model.RateLimitedError{}, http.StatusTooManyRequests},
		{context.Canceled, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFromError(tt.err), tt.err.Error())
	}
}

func TestRouter_RateLimitClientAddress(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		wantSecond int
	}{
		{name: "forwarding headers ignored", trustProxy: false, wantSecond: http.StatusTooManyRequests},
		{name: "trusted proxy", trustProxy: true, wantSecond: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&stubService{}, zap.NewNop(), middleware.NewAuthMiddleware("test-secret"), middleware.NewRateLimiter(6), tt.trustProxy)
			router := h.SetupRouter()

			var codes []int
			for _, ip := range []string{"203.0.113.1", "203.0.113.2"} {
				req := newJSONRequest(t, http.MethodPost, "/api/user/login", map[string]string{"login": "anna", "password": "secret1"})
				req.RemoteAddr = "10.0.0.1:5000"
				req.Header.Set("X-Real-IP", ip)
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, req)
				codes = append(codes, rec.Code)
			}

			assert.Equal(t, http.StatusOK, codes[0])
			assert.Equal(t, tt.wantSecond, codes[1])
		})
	}
}
