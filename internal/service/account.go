package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/cafe-loyalty/internal/model"
)

// RegisterAccount регистрирует нового клиента.
func (s *Service) RegisterAccount(ctx context.Context, login, displayName, password string, preferredBranchID *int64) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	return s.repo.CreateAccount(ctx, login, displayName, hash, preferredBranchID)
}

// Authenticate проверяет логин и пароль клиента и возвращает его идентификатор.
func (s *Service) Authenticate(ctx context.Context, login, password string) (int64, error) {
	a, err := s.repo.GetAccountByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			return 0, model.ErrInvalidCredentials
		}
		return 0, err
	}

	if err := bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(password)); err != nil {
		return 0, model.ErrInvalidCredentials
	}

	return a.ID, nil
}
