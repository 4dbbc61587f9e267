// Package model содержит доменные сущности программы лояльности кофейни.
package model

import "time"

// AccountStatus описывает статус подтверждения учётной записи клиента.
type AccountStatus string

const (
	AccountStatusUnverified AccountStatus = "unverified"
	AccountStatusVerified   AccountStatus = "verified"
)

// Account представляет клиента программы лояльности и его баланс баллов.
type Account struct {
	ID                int64
	Login             string
	DisplayName       string
	PasswordHash      []byte
	Status            AccountStatus
	PreferredBranchID *int64
	Balance           int64
	CreatedAt         time.Time
}

// Branch описывает филиал кофейни, на котором принимаются токены.
type Branch struct {
	ID     int64
	Name   string
	Active bool
}

// TokenKind различает одноразовые токены начисления и токены кампаний.
type TokenKind string

const (
	TokenKindEarn     TokenKind = "earn"
	TokenKindCampaign TokenKind = "campaign"
)

// TokenStatus описывает жизненный цикл одноразового токена.
type TokenStatus string

const (
	TokenStatusActive   TokenStatus = "active"
	TokenStatusConsumed TokenStatus = "consumed"
)

// EarnTokenPoints количество баллов, начисляемых за один токен начисления.
const EarnTokenPoints int64 = 1

// Token описывает одноразовый код, выданный клиенту.
// Для токенов кампаний заполнены CampaignID, OfferID и снимок предложения.
type Token struct {
	Code             string
	Kind             TokenKind
	AccountID        int64
	Points           int64
	Status           TokenStatus
	CreatedAt        time.Time
	ExpiresAt        *time.Time
	ConsumedBranchID *int64
	ConsumedAt       *time.Time

	CampaignID   *int64
	OfferID      *int64
	OfferName    string
	OfferDetails string
}

// IsExpired сообщает, истёк ли срок действия токена к моменту now.
// Токен без срока действия не истекает никогда.
func (t *Token) IsExpired(now time.Time) bool {
	if t.ExpiresAt == nil {
		return false
	}
	return now.After(*t.ExpiresAt)
}

// Campaign описывает акцию с окном действия и лимитами использования.
type Campaign struct {
	ID                  int64
	Name                string
	StartsAt            time.Time
	EndsAt              time.Time
	Enabled             bool
	MaxUsagePerCustomer int
	TotalUsageLimit     *int
	// BranchIDs пустой означает, что акция действует во всех филиалах.
	BranchIDs []int64
}

// IsValid сообщает, включена ли акция и попадает ли now в окно её действия.
func (c *Campaign) IsValid(now time.Time) bool {
	return c.Enabled && !now.Before(c.StartsAt) && !now.After(c.EndsAt)
}

// AllowsBranch сообщает, разрешено ли использование акции в филиале.
func (c *Campaign) AllowsBranch(branchID int64) bool {
	if len(c.BranchIDs) == 0 {
		return true
	}
	for _, id := range c.BranchIDs {
		if id == branchID {
			return true
		}
	}
	return false
}

// DiscountType описывает способ расчёта скидки по предложению акции.
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

// CampaignOffer описывает товарное предложение акции.
type CampaignOffer struct {
	ID            int64        `json:"id"`
	CampaignID    int64        `json:"campaign_id"`
	ProductName   string       `json:"product_name"`
	Description   string       `json:"description,omitempty"`
	DiscountType  DiscountType `json:"discount_type"`
	DiscountValue float64      `json:"discount_value"`
	OriginalPrice *float64     `json:"original_price,omitempty"`
	CampaignPrice *float64     `json:"campaign_price,omitempty"`
	Active        bool         `json:"-"`
}

// Product описывает товар, который можно получить за баллы.
type Product struct {
	ID        int64
	Name      string
	PointCost int64
	Active    bool
}

// RedemptionStatus описывает состояние заявки на списание баллов.
type RedemptionStatus string

const (
	RedemptionStatusPending   RedemptionStatus = "pending"
	RedemptionStatusConfirmed RedemptionStatus = "confirmed"
)

// RedemptionRequest описывает двухфазную заявку на получение товара за баллы.
// Стоимость фиксируется в момент создания заявки.
type RedemptionRequest struct {
	ID                int64
	AccountID         int64
	ProductID         int64
	ProductName       string
	PointCost         int64
	ConfirmationCode  string
	Status            RedemptionStatus
	RequestedAt       time.Time
	ConfirmedBranchID *int64
	ConfirmedAt       *time.Time
}

// LedgerKind описывает тип операции в журнале баллов.
type LedgerKind string

const (
	LedgerKindEarn  LedgerKind = "earn"
	LedgerKindSpend LedgerKind = "spend"
)

// LedgerEntry неизменяемая запись журнала об изменении баланса.
type LedgerEntry struct {
	ID          int64
	AccountID   int64
	Delta       int64
	Kind        LedgerKind
	Description string
	CreatedAt   time.Time
}

// LedgerSummary содержит текущий баланс и обороты клиента по журналу.
type LedgerSummary struct {
	Current int64 `json:"current"`
	Earned  int64 `json:"earned"`
	Spent   int64 `json:"spent"`
}

// CampaignUsage содержит статистику использования токенов акции.
type CampaignUsage struct {
	CampaignID int64 `json:"campaign_id"`
	Issued     int   `json:"issued"`
	Consumed   int   `json:"consumed"`
	// Remaining nil, если общий лимит акции не задан.
	Remaining *int `json:"remaining,omitempty"`
}

// HousekeepingStats содержит агрегаты для отчётности, собираемые фоновым процессом.
type HousekeepingStats struct {
	PendingRedemptions    int
	ExpiredCampaignTokens int
	ActiveEarnTokens      int
}

// EarnRedemption результат погашения токена начисления.
type EarnRedemption struct {
	AccountID  int64 `json:"account_id"`
	NewBalance int64 `json:"new_balance"`
}

// CampaignRedemption результат погашения токена акции.
type CampaignRedemption struct {
	AccountID  int64         `json:"account_id"`
	CampaignID int64         `json:"campaign_id"`
	Offer      CampaignOffer `json:"offer"`
}

// ConfirmedRedemption результат подтверждения заявки на списание.
type ConfirmedRedemption struct {
	AccountID   int64  `json:"account_id"`
	ProductName string `json:"product_name"`
	PointCost   int64  `json:"point_cost"`
	NewBalance  int64  `json:"new_balance"`
}
