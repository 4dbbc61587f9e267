package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/cafe-loyalty/internal/model"
)

// CreateAccount создаёт учётную запись клиента с нулевым балансом.
func (r *PostgresRepository) CreateAccount(ctx context.Context, login, displayName string, passwordHash []byte, preferredBranchID *int64) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO accounts (login, display_name, password_hash, status, preferred_branch_id)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		login, displayName, passwordHash, string(model.AccountStatusUnverified), preferredBranchID,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", model.ErrAccountExists, login)
		}
		if isForeignKeyViolation(err) {
			return 0, model.ErrBranchNotFound
		}
		return 0, storeError("create account", err)
	}
	return id, nil
}

const accountColumns = `id, login, display_name, password_hash, status, preferred_branch_id, balance, created_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	var (
		a      model.Account
		status string
	)
	err := row.Scan(&a.ID, &a.Login, &a.DisplayName, &a.PasswordHash, &status, &a.PreferredBranchID, &a.Balance, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.Status = model.AccountStatus(status)
	return &a, nil
}

// GetAccountByLogin возвращает клиента по логину.
func (r *PostgresRepository) GetAccountByLogin(ctx context.Context, login string) (*model.Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE login = $1`, login))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrAccountNotFound
		}
		return nil, storeError("get account by login", err)
	}
	return a, nil
}

// GetAccount возвращает клиента по идентификатору.
func (r *PostgresRepository) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrAccountNotFound
		}
		return nil, storeError("get account", err)
	}
	return a, nil
}

// GetBranch возвращает филиал по идентификатору.
func (r *PostgresRepository) GetBranch(ctx context.Context, id int64) (*model.Branch, error) {
	var b model.Branch
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, active FROM branches WHERE id = $1`, id,
	).Scan(&b.ID, &b.Name, &b.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrBranchNotFound
		}
		return nil, storeError("get branch", err)
	}
	return &b, nil
}

// CreditPoints начисляет баллы клиенту и записывает операцию в журнал одной транзакцией.
func (r *PostgresRepository) CreditPoints(ctx context.Context, accountID, amount int64, description string, now time.Time) (int64, error) {
	if amount <= 0 {
		return 0, model.ErrInvalidAmount
	}

	var balance int64
	err := r.inTx(ctx, "credit points", func(tx pgx.Tx) error {
		var err error
		balance, err = creditPoints(ctx, tx, accountID, amount)
		if err != nil {
			return err
		}
		return appendLedger(ctx, tx, accountID, amount, model.LedgerKindEarn, description, now)
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// DebitPoints списывает баллы, если баланс позволяет, и записывает операцию в журнал.
// Возвращает model.ErrInsufficientBalance, если списание увело бы баланс в минус.
func (r *PostgresRepository) DebitPoints(ctx context.Context, accountID, amount int64, description string, now time.Time) (int64, error) {
	if amount <= 0 {
		return 0, model.ErrInvalidAmount
	}

	var balance int64
	err := r.inTx(ctx, "debit points", func(tx pgx.Tx) error {
		var err error
		balance, err = debitPoints(ctx, tx, accountID, amount)
		if err != nil {
			if errors.Is(err, errGuardFailed) {
				exists, existsErr := accountExists(ctx, tx, accountID)
				if existsErr != nil {
					return existsErr
				}
				if !exists {
					return model.ErrAccountNotFound
				}
				return model.ErrInsufficientBalance
			}
			return err
		}
		return appendLedger(ctx, tx, accountID, -amount, model.LedgerKindSpend, description, now)
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// errGuardFailed условие охраняемого UPDATE не выполнилось.
var errGuardFailed = errors.New("guarded update affected no rows")

func creditPoints(ctx context.Context, tx pgx.Tx, accountID, amount int64) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx,
		`UPDATE accounts SET balance = balance + $2 WHERE id = $1 RETURNING balance`,
		accountID, amount,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, model.ErrAccountNotFound
		}
		return 0, storeError("credit balance", err)
	}
	return balance, nil
}

// debitPoints уменьшает баланс одним охраняемым UPDATE; чтение и запись баланса
// никогда не разделяются на два обращения.
func debitPoints(ctx context.Context, tx pgx.Tx, accountID, amount int64) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx,
		`UPDATE accounts SET balance = balance - $2 WHERE id = $1 AND balance >= $2 RETURNING balance`,
		accountID, amount,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, errGuardFailed
		}
		return 0, storeError("debit balance", err)
	}
	return balance, nil
}

func accountExists(ctx context.Context, tx pgx.Tx, accountID int64) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, accountID).Scan(&exists)
	if err != nil {
		return false, storeError("check account", err)
	}
	return exists, nil
}

func appendLedger(ctx context.Context, tx pgx.Tx, accountID, delta int64, kind model.LedgerKind, description string, now time.Time) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO ledger_entries (account_id, delta, kind, description, created_at) VALUES ($1, $2, $3, $4, $5)`,
		accountID, delta, string(kind), description, now,
	)
	if err != nil {
		return storeError("append ledger entry", err)
	}
	return nil
}
