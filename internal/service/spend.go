package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmeshcher/cafe-loyalty/internal/model"
	"github.com/mmeshcher/cafe-loyalty/internal/notify"
	"github.com/mmeshcher/cafe-loyalty/internal/validation"
)

// RedemptionTicket результат создания заявки на списание.
type RedemptionTicket struct {
	ID               int64  `json:"id"`
	ConfirmationCode string `json:"confirmation_code"`
	ProductName      string `json:"product_name"`
	PointCost        int64  `json:"point_cost"`
	// Shortfall сколько баллов не хватает на момент заявки; заполняется только
	// при рекомендательной проверке баланса.
	Shortfall int64 `json:"shortfall,omitempty"`
}

// RequestRedemption создаёт заявку на получение товара за баллы.
// Стоимость фиксируется в заявке, баланс не изменяется и не резервируется.
// Проверка баланса здесь предварительная: обязательная выполняется при подтверждении.
func (s *Service) RequestRedemption(ctx context.Context, accountID, productID int64) (*RedemptionTicket, error) {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.Active {
		return nil, model.ErrProductUnavailable
	}

	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var shortfall int64
	if account.Balance < product.PointCost {
		if !s.advisoryBalanceCheck {
			return nil, model.ErrInsufficientPoints
		}
		shortfall = product.PointCost - account.Balance
	}

	req := &model.RedemptionRequest{
		AccountID:   accountID,
		ProductID:   product.ID,
		ProductName: product.Name,
		PointCost:   product.PointCost,
		Status:      model.RedemptionStatusPending,
		RequestedAt: s.clock.Now(),
	}

	for range maxCodeAttempts {
		req.ConfirmationCode, err = s.codes.ConfirmationCode()
		if err != nil {
			return nil, err
		}
		req.ID, err = s.repo.CreateRedemptionRequest(ctx, req)
		if !errors.Is(err, model.ErrDuplicateCode) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create redemption request: %w", err)
	}

	return &RedemptionTicket{
		ID:               req.ID,
		ConfirmationCode: req.ConfirmationCode,
		ProductName:      req.ProductName,
		PointCost:        req.PointCost,
		Shortfall:        shortfall,
	}, nil
}

// ConfirmRedemption подтверждает заявку по коду в филиале и списывает зафиксированную стоимость.
// При нехватке баллов возвращает model.ErrInsufficientPoints, заявка остаётся ожидающей.
func (s *Service) ConfirmRedemption(ctx context.Context, confirmationCode string, branchID int64) (*model.ConfirmedRedemption, error) {
	res, err := s.confirmRedemption(ctx, confirmationCode, branchID)
	s.metrics.Redemption("confirm_redemption", outcome(err))
	if err != nil {
		return nil, err
	}

	s.metrics.PointsDebited(res.PointCost)
	s.notify(ctx, notify.Event{
		Kind:        notify.EventRedemptionConfirmed,
		AccountID:   res.AccountID,
		BranchID:    branchID,
		Delta:       -res.PointCost,
		Balance:     res.NewBalance,
		Description: res.ProductName,
		OccurredAt:  s.clock.Now(),
	})
	return res, nil
}

func (s *Service) confirmRedemption(ctx context.Context, code string, branchID int64) (*model.ConfirmedRedemption, error) {
	if !validation.IsValidConfirmationCode(code) {
		return nil, model.ErrMalformedCode
	}
	if err := s.checkBranch(ctx, branchID); err != nil {
		return nil, err
	}
	return s.repo.ConfirmRedemptionRequest(ctx, code, branchID, s.clock.Now())
}
