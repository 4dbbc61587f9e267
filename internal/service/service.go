// Package service реализует ядро программы лояльности: выдачу одноразовых токенов,
// их погашение, двухфазное списание баллов и отчётные представления.
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/cafe-loyalty/internal/metrics"
	"github.com/mmeshcher/cafe-loyalty/internal/model"
	"github.com/mmeshcher/cafe-loyalty/internal/notify"
)

const (
	// EarnTokenWindow скользящее окно ограничения выдачи токенов начисления.
	EarnTokenWindow = 10 * time.Minute
	// EarnTokenLimit число токенов начисления, доступных клиенту в окне.
	EarnTokenLimit = 3
	// CampaignTokenTTL максимальный срок жизни токена акции.
	CampaignTokenTTL = 24 * time.Hour

	maxCodeAttempts = 3
)

// Repository описывает контракт хранилища, используемый сервисом.
type Repository interface {
	Close() error

	CreateAccount(ctx context.Context, login, displayName string, passwordHash []byte, preferredBranchID *int64) (int64, error)
	GetAccountByLogin(ctx context.Context, login string) (*model.Account, error)
	GetAccount(ctx context.Context, id int64) (*model.Account, error)
	GetBranch(ctx context.Context, id int64) (*model.Branch, error)

	EarnTokenTimesSince(ctx context.Context, accountID int64, since time.Time) ([]time.Time, error)
	CreateToken(ctx context.Context, t *model.Token) error
	ConsumeEarnToken(ctx context.Context, code string, branchID int64, now time.Time) (*model.EarnRedemption, error)
	ConsumeCampaignToken(ctx context.Context, code string, branchID int64, now time.Time) (*model.CampaignRedemption, error)

	GetCampaign(ctx context.Context, id int64) (*model.Campaign, error)
	GetCampaignOffer(ctx context.Context, campaignID, offerID int64) (*model.CampaignOffer, error)
	CountConsumedCampaignTokens(ctx context.Context, campaignID, accountID int64) (int, int, error)
	GetCampaignUsage(ctx context.Context, campaignID int64) (*model.CampaignUsage, error)

	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	CreateRedemptionRequest(ctx context.Context, req *model.RedemptionRequest) (int64, error)
	ConfirmRedemptionRequest(ctx context.Context, code string, branchID int64, now time.Time) (*model.ConfirmedRedemption, error)
	ListPendingRedemptions(ctx context.Context, accountID int64) ([]model.RedemptionRequest, error)

	ListLedgerEntries(ctx context.Context, accountID int64, limit int) ([]model.LedgerEntry, error)
	GetLedgerSummary(ctx context.Context, accountID int64) (*model.LedgerSummary, error)
	GetHousekeepingStats(ctx context.Context, now time.Time) (*model.HousekeepingStats, error)
}

// Clock источник текущего времени.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Notifier доставляет уведомления без ожидания результата.
type Notifier interface {
	Dispatch(ctx context.Context, e notify.Event)
}

// Service содержит бизнес-логику программы лояльности.
type Service struct {
	repo     Repository
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger
	clock    Clock
	codes    CodeGenerator

	advisoryBalanceCheck bool
}

// Option настраивает Service.
type Option func(*Service)

// WithClock подменяет источник времени.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithCodeGenerator подменяет генератор кодов.
func WithCodeGenerator(g CodeGenerator) Option {
	return func(s *Service) { s.codes = g }
}

// WithMetrics включает учёт метрик.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger задаёт логгер фоновых процессов.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithAdvisoryBalanceCheck делает проверку баланса при создании заявки
// рекомендательной: заявка создаётся и при нехватке баллов, а обязательная
// проверка остаётся только при подтверждении.
func WithAdvisoryBalanceCheck() Option {
	return func(s *Service) { s.advisoryBalanceCheck = true }
}

// NewService создаёт новый сервис с указанным репозиторием и диспетчером уведомлений.
func NewService(repo Repository, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		notifier: notifier,
		logger:   zap.NewNop(),
		clock:    systemClock{},
		codes:    NewRandomCodeGenerator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

func (s *Service) notify(ctx context.Context, e notify.Event) {
	if s.notifier == nil {
		return
	}
	s.notifier.Dispatch(ctx, e)
}

// checkBranch проверяет, что филиал существует и принимает операции.
func (s *Service) checkBranch(ctx context.Context, branchID int64) error {
	b, err := s.repo.GetBranch(ctx, branchID)
	if err != nil {
		return err
	}
	if !b.Active {
		return model.ErrBranchInactive
	}
	return nil
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	if kind := model.KindOf(err); kind != 0 {
		return kind.String()
	}
	return "error"
}
