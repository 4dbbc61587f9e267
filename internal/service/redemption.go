package service

import (
	"context"
	"fmt"

	"github.com/mmeshcher/cafe-loyalty/internal/model"
	"github.com/mmeshcher/cafe-loyalty/internal/notify"
	"github.com/mmeshcher/cafe-loyalty/internal/validation"
)

// RedeemEarnToken погашает токен начисления в филиале и зачисляет балл владельцу.
// Из двух одновременных погашений одного кода успешно ровно одно, второе получает
// model.ErrAlreadyUsed.
func (s *Service) RedeemEarnToken(ctx context.Context, code string, branchID int64) (*model.EarnRedemption, error) {
	res, err := s.redeemEarnToken(ctx, code, branchID)
	s.metrics.Redemption("earn_token", outcome(err))
	if err != nil {
		return nil, err
	}

	s.metrics.PointsCredited(model.EarnTokenPoints)
	s.notify(ctx, notify.Event{
		Kind:        notify.EventPointsCredited,
		AccountID:   res.AccountID,
		BranchID:    branchID,
		Delta:       model.EarnTokenPoints,
		Balance:     res.NewBalance,
		Description: fmt.Sprintf("+%d point(s)", model.EarnTokenPoints),
		OccurredAt:  s.clock.Now(),
	})
	return res, nil
}

func (s *Service) redeemEarnToken(ctx context.Context, code string, branchID int64) (*model.EarnRedemption, error) {
	if !validation.IsValidTokenCode(code) {
		return nil, model.ErrMalformedCode
	}
	if err := s.checkBranch(ctx, branchID); err != nil {
		return nil, err
	}
	return s.repo.ConsumeEarnToken(ctx, code, branchID, s.clock.Now())
}

// RedeemCampaignToken погашает токен акции и возвращает данные предложения для кассы.
// Проверяются срок действия на текущий момент и ограничение акции по филиалам;
// баланс клиента не изменяется.
func (s *Service) RedeemCampaignToken(ctx context.Context, code string, branchID int64) (*model.CampaignRedemption, error) {
	res, err := s.redeemCampaignToken(ctx, code, branchID)
	s.metrics.Redemption("campaign_token", outcome(err))
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) redeemCampaignToken(ctx context.Context, code string, branchID int64) (*model.CampaignRedemption, error) {
	if !validation.IsValidTokenCode(code) {
		return nil, model.ErrMalformedCode
	}
	if err := s.checkBranch(ctx, branchID); err != nil {
		return nil, err
	}
	return s.repo.ConsumeCampaignToken(ctx, code, branchID, s.clock.Now())
}
