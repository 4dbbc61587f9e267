package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmeshcher/cafe-loyalty/internal/model"
)

// EarnTokenIssue результат выдачи токена начисления.
type EarnTokenIssue struct {
	Code               string `json:"code"`
	RemainingAllowance int    `json:"remaining_allowance"`
}

// CampaignTokenIssue результат выдачи токена акции.
type CampaignTokenIssue struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IssueEarnToken выдаёт клиенту токен начисления одного балла.
// Не более EarnTokenLimit токенов за EarnTokenWindow; лимит проверяется подсчётом,
// так как перевыдача лишь тратит токены и не влияет на баланс.
func (s *Service) IssueEarnToken(ctx context.Context, accountID int64) (*EarnTokenIssue, error) {
	now := s.clock.Now()

	issued, err := s.repo.EarnTokenTimesSince(ctx, accountID, now.Add(-EarnTokenWindow))
	if err != nil {
		return nil, err
	}

	count := len(issued)
	if count >= EarnTokenLimit {
		// Выдача возобновится, когда в окне останется меньше EarnTokenLimit токенов.
		retryAfter := issued[count-EarnTokenLimit].Add(EarnTokenWindow).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return nil, &model.RateLimitedError{RetryAfter: retryAfter}
	}

	token := &model.Token{
		Kind:      model.TokenKindEarn,
		AccountID: accountID,
		Points:    model.EarnTokenPoints,
		CreatedAt: now,
	}
	if err := s.createToken(ctx, token); err != nil {
		return nil, err
	}
	s.metrics.TokenIssued(string(model.TokenKindEarn))

	return &EarnTokenIssue{
		Code:               token.Code,
		RemainingAllowance: EarnTokenLimit - count - 1,
	}, nil
}

// IssueCampaignToken выдаёт клиенту токен акции на выбранное предложение.
// Срок действия фиксируется при выдаче: min(окончание акции, now+24ч).
func (s *Service) IssueCampaignToken(ctx context.Context, accountID, campaignID, offerID int64, branchHint *int64) (*CampaignTokenIssue, error) {
	now := s.clock.Now()

	c, err := s.repo.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	switch {
	case !c.Enabled:
		return nil, &model.CampaignNotUsableError{Reason: model.RejectDisabled}
	case now.Before(c.StartsAt):
		return nil, &model.CampaignNotUsableError{Reason: model.RejectNotStarted}
	case !c.IsValid(now):
		return nil, &model.CampaignNotUsableError{Reason: model.RejectExpired}
	}

	if branchHint != nil && !c.AllowsBranch(*branchHint) {
		return nil, &model.CampaignNotUsableError{Reason: model.RejectBranchNotEnabled}
	}

	offer, err := s.repo.GetCampaignOffer(ctx, campaignID, offerID)
	if err != nil {
		return nil, err
	}
	if offer == nil || !offer.Active {
		return nil, &model.CampaignNotUsableError{Reason: model.RejectOfferUnavailable}
	}

	perCustomer, total, err := s.repo.CountConsumedCampaignTokens(ctx, campaignID, accountID)
	if err != nil {
		return nil, err
	}
	if c.MaxUsagePerCustomer > 0 && perCustomer >= c.MaxUsagePerCustomer {
		return nil, &model.CampaignNotUsableError{Reason: model.RejectPerCustomerCap}
	}
	if c.TotalUsageLimit != nil && total >= *c.TotalUsageLimit {
		return nil, &model.CampaignNotUsableError{Reason: model.RejectGlobalCap}
	}

	expiresAt := now.Add(CampaignTokenTTL)
	if c.EndsAt.Before(expiresAt) {
		expiresAt = c.EndsAt
	}

	token := &model.Token{
		Kind:         model.TokenKindCampaign,
		AccountID:    accountID,
		CreatedAt:    now,
		ExpiresAt:    &expiresAt,
		CampaignID:   &c.ID,
		OfferID:      &offer.ID,
		OfferName:    offer.ProductName,
		OfferDetails: offerDetails(offer),
	}
	if err := s.createToken(ctx, token); err != nil {
		return nil, err
	}
	s.metrics.TokenIssued(string(model.TokenKindCampaign))

	return &CampaignTokenIssue{Code: token.Code, ExpiresAt: expiresAt}, nil
}

// createToken сохраняет токен, генерируя новый код при коллизии.
func (s *Service) createToken(ctx context.Context, token *model.Token) error {
	var err error
	for range maxCodeAttempts {
		token.Code = s.codes.TokenCode()
		err = s.repo.CreateToken(ctx, token)
		if !errors.Is(err, model.ErrDuplicateCode) {
			return err
		}
	}
	return fmt.Errorf("create token after %d attempts: %w", maxCodeAttempts, err)
}

func offerDetails(o *model.CampaignOffer) string {
	var discount string
	switch o.DiscountType {
	case model.DiscountTypeFixed:
		discount = fmt.Sprintf("-%.2f", o.DiscountValue)
	default:
		discount = fmt.Sprintf("-%g%%", o.DiscountValue)
	}
	if o.Description == "" {
		return discount
	}
	return o.Description + " (" + discount + ")"
}
