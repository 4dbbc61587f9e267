// Package notify доставляет клиентам уведомления о начислениях и списаниях.
//
// Доставка best-effort: ошибки логируются и никогда не откатывают операцию,
// после которой уведомление было отправлено.
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventKind тип события для уведомления.
type EventKind string

const (
	EventPointsCredited      EventKind = "points_credited"
	EventRedemptionConfirmed EventKind = "redemption_confirmed"
)

// Event описывает событие изменения баланса клиента.
type Event struct {
	Kind        EventKind `json:"kind"`
	AccountID   int64     `json:"account_id"`
	BranchID    int64     `json:"branch_id"`
	Delta       int64     `json:"delta"`
	Balance     int64     `json:"balance"`
	Description string    `json:"description,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Notifier отправляет событие во внешний канал доставки.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// LogNotifier пишет события в лог; используется, когда канал доставки не настроен.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier создаёт LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify записывает событие в лог.
func (n *LogNotifier) Notify(_ context.Context, e Event) error {
	n.logger.Info("notification",
		zap.String("kind", string(e.Kind)),
		zap.Int64("accountID", e.AccountID),
		zap.Int64("branchID", e.BranchID),
		zap.Int64("delta", e.Delta),
		zap.Int64("balance", e.Balance),
	)
	return nil
}

// Dispatcher отправляет уведомления асинхронно, не задерживая вызывающую операцию.
type Dispatcher struct {
	notifier Notifier
	logger   *zap.Logger
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewDispatcher создаёт диспетчер поверх notifier с ограничением времени на одну доставку.
func NewDispatcher(notifier Notifier, logger *zap.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		notifier: notifier,
		logger:   logger,
		timeout:  timeout,
	}
}

// Dispatch отправляет событие в фоне. Отмена ctx запроса не прерывает доставку.
func (d *Dispatcher) Dispatch(ctx context.Context, e Event) {
	if d == nil || d.notifier == nil {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		if err := d.notifier.Notify(sendCtx, e); err != nil {
			d.logger.Warn("notification delivery failed",
				zap.Error(err),
				zap.String("kind", string(e.Kind)),
				zap.Int64("accountID", e.AccountID),
			)
		}
	}()
}

// Wait дожидается завершения всех начатых доставок.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
