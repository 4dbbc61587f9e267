package repository

import (
	"context"
	"time"

	"github.com/mmeshcher/cafe-loyalty/internal/model"
)

// ListLedgerEntries возвращает последние записи журнала клиента, новые первыми.
func (r *PostgresRepository) ListLedgerEntries(ctx context.Context, accountID int64, limit int) ([]model.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, account_id, delta, kind, description, created_at
		 FROM ledger_entries
		 WHERE account_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		accountID, limit,
	)
	if err != nil {
		return nil, storeError("select ledger entries", err)
	}
	defer rows.Close()

	var res []model.LedgerEntry
	for rows.Next() {
		var (
			e    model.LedgerEntry
			kind string
		)
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Delta, &kind, &e.Description, &e.CreatedAt); err != nil {
			return nil, storeError("scan ledger entry", err)
		}
		e.Kind = model.LedgerKind(kind)
		res = append(res, e)
	}

	if err := rows.Err(); err != nil {
		return nil, storeError("rows error", err)
	}

	return res, nil
}

// GetLedgerSummary возвращает текущий баланс клиента и обороты по журналу.
func (r *PostgresRepository) GetLedgerSummary(ctx context.Context, accountID int64) (*model.LedgerSummary, error) {
	a, err := r.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	s := model.LedgerSummary{Current: a.Balance}
	err = r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(delta) FILTER (WHERE delta > 0), 0),
		        COALESCE(-SUM(delta) FILTER (WHERE delta < 0), 0)
		 FROM ledger_entries
		 WHERE account_id = $1`,
		accountID,
	).Scan(&s.Earned, &s.Spent)
	if err != nil {
		return nil, storeError("sum ledger entries", err)
	}

	return &s, nil
}

// GetHousekeepingStats собирает агрегаты для отчётности на момент now.
func (r *PostgresRepository) GetHousekeepingStats(ctx context.Context, now time.Time) (*model.HousekeepingStats, error) {
	var s model.HousekeepingStats

	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM redemption_requests WHERE status = $1`,
		string(model.RedemptionStatusPending),
	).Scan(&s.PendingRedemptions)
	if err != nil {
		return nil, storeError("count pending redemptions", err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT count(*) FILTER (WHERE kind = $2 AND expires_at IS NOT NULL AND expires_at < $3),
		        count(*) FILTER (WHERE kind = $4)
		 FROM tokens
		 WHERE status = $1`,
		string(model.TokenStatusActive), string(model.TokenKindCampaign), now, string(model.TokenKindEarn),
	).Scan(&s.ExpiredCampaignTokens, &s.ActiveEarnTokens)
	if err != nil {
		return nil, storeError("count tokens", err)
	}

	return &s, nil
}
