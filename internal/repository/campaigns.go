package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mmeshcher/cafe-loyalty/internal/model"
)

// querier общий интерфейс пула и транзакции.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// GetCampaign возвращает акцию вместе со списком разрешённых филиалов.
func (r *PostgresRepository) GetCampaign(ctx context.Context, id int64) (*model.Campaign, error) {
	var c model.Campaign
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, starts_at, ends_at, enabled, max_usage_per_customer, total_usage_limit
		 FROM campaigns WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.StartsAt, &c.EndsAt, &c.Enabled, &c.MaxUsagePerCustomer, &c.TotalUsageLimit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrCampaignNotFound
		}
		return nil, storeError("get campaign", err)
	}

	c.BranchIDs, err = campaignBranches(ctx, r.pool, id)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func campaignBranches(ctx context.Context, q querier, campaignID int64) ([]int64, error) {
	rows, err := q.Query(ctx,
		`SELECT branch_id FROM campaign_branches WHERE campaign_id = $1 ORDER BY branch_id`, campaignID)
	if err != nil {
		return nil, storeError("select campaign branches", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, storeError("scan campaign branch", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("rows error", err)
	}
	return ids, nil
}

// GetCampaignOffer возвращает предложение акции или nil, если оно не принадлежит акции.
func (r *PostgresRepository) GetCampaignOffer(ctx context.Context, campaignID, offerID int64) (*model.CampaignOffer, error) {
	offer, err := getCampaignOffer(ctx, r.pool, offerID)
	if err != nil {
		return nil, err
	}
	if offer == nil || offer.CampaignID != campaignID {
		return nil, nil
	}
	return offer, nil
}

func getCampaignOffer(ctx context.Context, q querier, offerID int64) (*model.CampaignOffer, error) {
	var (
		o            model.CampaignOffer
		discountType string
	)
	err := q.QueryRow(ctx,
		`SELECT id, campaign_id, product_name, description, discount_type, discount_value,
		        original_price, campaign_price, active
		 FROM campaign_offers WHERE id = $1`, offerID,
	).Scan(&o.ID, &o.CampaignID, &o.ProductName, &o.Description, &discountType, &o.DiscountValue,
		&o.OriginalPrice, &o.CampaignPrice, &o.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeError("get campaign offer", err)
	}
	o.DiscountType = model.DiscountType(discountType)
	return &o, nil
}

// CountConsumedCampaignTokens возвращает число погашенных токенов акции у клиента и всего.
func (r *PostgresRepository) CountConsumedCampaignTokens(ctx context.Context, campaignID, accountID int64) (int, int, error) {
	var perCustomer, total int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FILTER (WHERE account_id = $2), count(*)
		 FROM tokens
		 WHERE campaign_id = $1 AND kind = $3 AND status = $4`,
		campaignID, accountID, string(model.TokenKindCampaign), string(model.TokenStatusConsumed),
	).Scan(&perCustomer, &total)
	if err != nil {
		return 0, 0, storeError("count consumed campaign tokens", err)
	}
	return perCustomer, total, nil
}

// GetCampaignUsage возвращает статистику выдачи и погашения токенов акции.
func (r *PostgresRepository) GetCampaignUsage(ctx context.Context, campaignID int64) (*model.CampaignUsage, error) {
	c, err := r.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	usage := model.CampaignUsage{CampaignID: campaignID}
	err = r.pool.QueryRow(ctx,
		`SELECT count(*), count(*) FILTER (WHERE status = $3)
		 FROM tokens
		 WHERE campaign_id = $1 AND kind = $2`,
		campaignID, string(model.TokenKindCampaign), string(model.TokenStatusConsumed),
	).Scan(&usage.Issued, &usage.Consumed)
	if err != nil {
		return nil, storeError("campaign usage", err)
	}

	if c.TotalUsageLimit != nil {
		remaining := *c.TotalUsageLimit - usage.Consumed
		if remaining < 0 {
			remaining = 0
		}
		usage.Remaining = &remaining
	}
	return &usage, nil
}
