package service

import (
	"context"

	"github.com/mmeshcher/cafe-loyalty/internal/model"
)

const (
	defaultLedgerLimit = 50
	maxLedgerLimit     = 500
)

// LedgerSummary возвращает баланс клиента и обороты по журналу.
func (s *Service) LedgerSummary(ctx context.Context, accountID int64) (*model.LedgerSummary, error) {
	return s.repo.GetLedgerSummary(ctx, accountID)
}

// ListLedgerEntries возвращает последние записи журнала клиента.
func (s *Service) ListLedgerEntries(ctx context.Context, accountID int64, limit int) ([]model.LedgerEntry, error) {
	if limit <= 0 {
		limit = defaultLedgerLimit
	}
	if limit > maxLedgerLimit {
		limit = maxLedgerLimit
	}
	return s.repo.ListLedgerEntries(ctx, accountID, limit)
}

// ListPendingRedemptions возвращает неподтверждённые заявки клиента.
func (s *Service) ListPendingRedemptions(ctx context.Context, accountID int64) ([]model.RedemptionRequest, error) {
	return s.repo.ListPendingRedemptions(ctx, accountID)
}

// CampaignUsage возвращает статистику использования акции.
func (s *Service) CampaignUsage(ctx context.Context, campaignID int64) (*model.CampaignUsage, error) {
	return s.repo.GetCampaignUsage(ctx, campaignID)
}
