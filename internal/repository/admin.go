package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/cafe-loyalty/internal/model"
)

// Методы этого файла обслуживают инструменты администрирования и наполнение
// справочников; ядро только читает филиалы, акции и товары.

// CreateBranch создаёт филиал.
func (r *PostgresRepository) CreateBranch(ctx context.Context, name string, active bool) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO branches (name, active) VALUES ($1, $2) RETURNING id`, name, active,
	).Scan(&id)
	if err != nil {
		return 0, storeError("create branch", err)
	}
	return id, nil
}

// CreateProduct создаёт товар, доступный за баллы.
func (r *PostgresRepository) CreateProduct(ctx context.Context, name string, pointCost int64, active bool) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO products (name, point_cost, active) VALUES ($1, $2, $3) RETURNING id`,
		name, pointCost, active,
	).Scan(&id)
	if err != nil {
		return 0, storeError("create product", err)
	}
	return id, nil
}

// CreateCampaign создаёт акцию и привязывает её к филиалам из c.BranchIDs.
func (r *PostgresRepository) CreateCampaign(ctx context.Context, c *model.Campaign) (int64, error) {
	var id int64
	err := r.inTx(ctx, "create campaign", func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO campaigns (name, starts_at, ends_at, enabled, max_usage_per_customer, total_usage_limit)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			c.Name, c.StartsAt, c.EndsAt, c.Enabled, c.MaxUsagePerCustomer, c.TotalUsageLimit,
		).Scan(&id)
		if err != nil {
			return storeError("insert campaign", err)
		}

		for _, branchID := range c.BranchIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO campaign_branches (campaign_id, branch_id) VALUES ($1, $2)`, id, branchID,
			); err != nil {
				if isForeignKeyViolation(err) {
					return fmt.Errorf("%w: %d", model.ErrBranchNotFound, branchID)
				}
				return storeError("insert campaign branch", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// CreateCampaignOffer добавляет товарное предложение к акции.
func (r *PostgresRepository) CreateCampaignOffer(ctx context.Context, o *model.CampaignOffer) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO campaign_offers (campaign_id, product_name, description, discount_type, discount_value,
		                              original_price, campaign_price, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		o.CampaignID, o.ProductName, o.Description, string(o.DiscountType), o.DiscountValue,
		o.OriginalPrice, o.CampaignPrice, o.Active,
	).Scan(&id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, model.ErrCampaignNotFound
		}
		return 0, storeError("create campaign offer", err)
	}
	return id, nil
}

// SetProductPointCost изменяет стоимость товара. Уже созданные заявки хранят прежнюю стоимость.
func (r *PostgresRepository) SetProductPointCost(ctx context.Context, productID, pointCost int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET point_cost = $2 WHERE id = $1`, productID, pointCost)
	if err != nil {
		return storeError("update product", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrProductUnavailable
	}
	return nil
}
