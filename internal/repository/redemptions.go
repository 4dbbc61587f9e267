package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/cafe-loyalty/internal/model"
)

// GetProduct возвращает товар по идентификатору.
func (r *PostgresRepository) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	var p model.Product
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, point_cost, active FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.PointCost, &p.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrProductUnavailable
		}
		return nil, storeError("get product", err)
	}
	return &p, nil
}

// CreateRedemptionRequest сохраняет заявку на списание в состоянии pending.
// Возвращает model.ErrDuplicateCode, если код подтверждения уже занят другой ожидающей заявкой.
func (r *PostgresRepository) CreateRedemptionRequest(ctx context.Context, req *model.RedemptionRequest) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO redemption_requests (account_id, product_id, product_name, point_cost, confirmation_code, status, requested_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		req.AccountID, req.ProductID, req.ProductName, req.PointCost, req.ConfirmationCode,
		string(model.RedemptionStatusPending), req.RequestedAt,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, model.ErrDuplicateCode
		}
		if isForeignKeyViolation(err) {
			return 0, model.ErrAccountNotFound
		}
		return 0, storeError("insert redemption request", err)
	}
	return id, nil
}

// ConfirmRedemptionRequest подтверждает заявку и списывает зафиксированную стоимость.
// Переход pending→confirmed, списание и запись журнала выполняются одной транзакцией;
// при нехватке баллов транзакция откатывается и заявка остаётся ожидающей.
func (r *PostgresRepository) ConfirmRedemptionRequest(ctx context.Context, code string, branchID int64, now time.Time) (*model.ConfirmedRedemption, error) {
	var res model.ConfirmedRedemption

	err := r.inTx(ctx, "confirm redemption", func(tx pgx.Tx) error {
		var id int64
		err := tx.QueryRow(ctx,
			`UPDATE redemption_requests SET status = $4, confirmed_branch_id = $2, confirmed_at = $3
			 WHERE confirmation_code = $1 AND status = $5
			 RETURNING id, account_id, product_name, point_cost`,
			code, branchID, now,
			string(model.RedemptionStatusConfirmed), string(model.RedemptionStatusPending),
		).Scan(&id, &res.AccountID, &res.ProductName, &res.PointCost)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return model.ErrInvalidOrAlreadyConfirmed
			}
			return storeError("confirm redemption request", err)
		}

		res.NewBalance, err = debitPoints(ctx, tx, res.AccountID, res.PointCost)
		if err != nil {
			if errors.Is(err, errGuardFailed) {
				return model.ErrInsufficientPoints
			}
			return err
		}

		description := fmt.Sprintf("redemption #%d: %s at branch %d", id, res.ProductName, branchID)
		return appendLedger(ctx, tx, res.AccountID, -res.PointCost, model.LedgerKindSpend, description, now)
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ListPendingRedemptions возвращает ожидающие подтверждения заявки клиента.
func (r *PostgresRepository) ListPendingRedemptions(ctx context.Context, accountID int64) ([]model.RedemptionRequest, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, account_id, product_id, product_name, point_cost, confirmation_code, status, requested_at
		 FROM redemption_requests
		 WHERE account_id = $1 AND status = $2
		 ORDER BY requested_at DESC`,
		accountID, string(model.RedemptionStatusPending),
	)
	if err != nil {
		return nil, storeError("select pending redemptions", err)
	}
	defer rows.Close()

	var res []model.RedemptionRequest
	for rows.Next() {
		var (
			req    model.RedemptionRequest
			status string
		)
		if err := rows.Scan(&req.ID, &req.AccountID, &req.ProductID, &req.ProductName, &req.PointCost,
			&req.ConfirmationCode, &status, &req.RequestedAt); err != nil {
			return nil, storeError("scan redemption request", err)
		}
		req.Status = model.RedemptionStatus(status)
		res = append(res, req)
	}

	if err := rows.Err(); err != nil {
		return nil, storeError("rows error", err)
	}

	return res, nil
}
