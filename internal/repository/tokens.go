package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/cafe-loyalty/internal/model"
)

// EarnTokenTimesSince возвращает время выдачи токенов начисления клиента после since,
// от ранних к поздним.
func (r *PostgresRepository) EarnTokenTimesSince(ctx context.Context, accountID int64, since time.Time) ([]time.Time, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT created_at
		 FROM tokens
		 WHERE account_id = $1 AND kind = $2 AND created_at > $3
		 ORDER BY created_at`,
		accountID, string(model.TokenKindEarn), since,
	)
	if err != nil {
		return nil, storeError("select earn tokens", err)
	}
	defer rows.Close()

	var res []time.Time
	for rows.Next() {
		var created time.Time
		if err := rows.Scan(&created); err != nil {
			return nil, storeError("scan earn token", err)
		}
		res = append(res, created)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("rows error", err)
	}
	return res, nil
}

// CreateToken сохраняет новый активный токен.
// Возвращает model.ErrDuplicateCode при коллизии кода.
func (r *PostgresRepository) CreateToken(ctx context.Context, t *model.Token) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO tokens (code, kind, account_id, points, status, created_at, expires_at,
		                     campaign_id, offer_id, offer_name, offer_details)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.Code, string(t.Kind), t.AccountID, t.Points, string(model.TokenStatusActive), t.CreatedAt, t.ExpiresAt,
		t.CampaignID, t.OfferID, t.OfferName, t.OfferDetails,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrDuplicateCode
		}
		if isForeignKeyViolation(err) {
			return model.ErrAccountNotFound
		}
		return storeError("insert token", err)
	}
	return nil
}

// ConsumeEarnToken погашает токен начисления и зачисляет баллы владельцу.
// Переход active→consumed, начисление и запись журнала выполняются одной транзакцией.
func (r *PostgresRepository) ConsumeEarnToken(ctx context.Context, code string, branchID int64, now time.Time) (*model.EarnRedemption, error) {
	var res model.EarnRedemption

	err := r.inTx(ctx, "consume earn token", func(tx pgx.Tx) error {
		var points int64
		err := tx.QueryRow(ctx,
			`UPDATE tokens SET status = $4, consumed_branch_id = $2, consumed_at = $3
			 WHERE code = $1 AND kind = $5 AND status = $6
			 RETURNING account_id, points`,
			code, branchID, now,
			string(model.TokenStatusConsumed), string(model.TokenKindEarn), string(model.TokenStatusActive),
		).Scan(&res.AccountID, &points)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return diagnoseEarnToken(ctx, tx, code)
			}
			return storeError("consume earn token", err)
		}

		res.NewBalance, err = creditPoints(ctx, tx, res.AccountID, points)
		if err != nil {
			return err
		}

		description := fmt.Sprintf("earn token redeemed at branch %d", branchID)
		return appendLedger(ctx, tx, res.AccountID, points, model.LedgerKindEarn, description, now)
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func diagnoseEarnToken(ctx context.Context, tx pgx.Tx, code string) error {
	var status string
	err := tx.QueryRow(ctx,
		`SELECT status FROM tokens WHERE code = $1 AND kind = $2`,
		code, string(model.TokenKindEarn),
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrInvalidToken
		}
		return storeError("diagnose earn token", err)
	}
	return model.ErrAlreadyUsed
}

// ConsumeCampaignToken погашает токен акции. Срок действия проверяется на момент now,
// ограничение по филиалам берётся из акции. Баланс клиента не изменяется.
func (r *PostgresRepository) ConsumeCampaignToken(ctx context.Context, code string, branchID int64, now time.Time) (*model.CampaignRedemption, error) {
	var res model.CampaignRedemption

	err := r.inTx(ctx, "consume campaign token", func(tx pgx.Tx) error {
		var (
			offerID      int64
			offerName    string
			offerDetails string
		)
		err := tx.QueryRow(ctx,
			`UPDATE tokens t SET status = $4, consumed_branch_id = $2, consumed_at = $3
			 WHERE t.code = $1 AND t.kind = $5 AND t.status = $6
			   AND (t.expires_at IS NULL OR t.expires_at >= $3)
			   AND (NOT EXISTS (SELECT 1 FROM campaign_branches cb WHERE cb.campaign_id = t.campaign_id)
			        OR EXISTS (SELECT 1 FROM campaign_branches cb WHERE cb.campaign_id = t.campaign_id AND cb.branch_id = $2))
			 RETURNING t.account_id, t.campaign_id, t.offer_id, t.offer_name, t.offer_details`,
			code, branchID, now,
			string(model.TokenStatusConsumed), string(model.TokenKindCampaign), string(model.TokenStatusActive),
		).Scan(&res.AccountID, &res.CampaignID, &offerID, &offerName, &offerDetails)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return diagnoseCampaignToken(ctx, tx, code, branchID, now)
			}
			return storeError("consume campaign token", err)
		}

		offer, err := getCampaignOffer(ctx, tx, offerID)
		if err != nil {
			return err
		}
		if offer == nil {
			offer = &model.CampaignOffer{ID: offerID, CampaignID: res.CampaignID, ProductName: offerName, Description: offerDetails}
		}
		res.Offer = *offer
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// diagnoseCampaignToken определяет, какое из условий погашения не выполнилось.
func diagnoseCampaignToken(ctx context.Context, tx pgx.Tx, code string, branchID int64, now time.Time) error {
	var (
		status     string
		expiresAt  *time.Time
		campaignID int64
	)
	err := tx.QueryRow(ctx,
		`SELECT status, expires_at, campaign_id FROM tokens WHERE code = $1 AND kind = $2`,
		code, string(model.TokenKindCampaign),
	).Scan(&status, &expiresAt, &campaignID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrInvalidToken
		}
		return storeError("diagnose campaign token", err)
	}

	if model.TokenStatus(status) == model.TokenStatusConsumed {
		return model.ErrAlreadyUsed
	}
	token := model.Token{ExpiresAt: expiresAt}
	if token.IsExpired(now) {
		return model.ErrExpired
	}

	branches, err := campaignBranches(ctx, tx, campaignID)
	if err != nil {
		return err
	}
	c := model.Campaign{BranchIDs: branches}
	if !c.AllowsBranch(branchID) {
		return model.ErrBranchNotAllowed
	}

	// Все условия выполнены, значит строку изменили между UPDATE и проверкой.
	return model.ErrAlreadyUsed
}
