package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind классифицирует ошибки ядра по типу отказа.
type ErrorKind int

const (
	// KindValidation некорректные входные данные, отклонённые до изменения состояния.
	KindValidation ErrorKind = iota + 1
	// KindNotFound неизвестный код токена, заявки или сущности.
	KindNotFound
	// KindConflict условная запись проиграла: кто-то успел раньше.
	KindConflict
	// KindPolicy отказ по бизнес-правилу.
	KindPolicy
	// KindBalance недостаточно баллов.
	KindBalance
	// KindUnavailable хранилище недоступно.
	KindUnavailable
	// KindUnauthenticated неверные учётные данные.
	KindUnauthenticated
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindPolicy:
		return "policy"
	case KindBalance:
		return "balance"
	case KindUnavailable:
		return "store_unavailable"
	case KindUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Error типизированная ошибка ядра с кодом, стабильным для вызывающей стороны.
type Error struct {
	Kind ErrorKind
	Code string
}

func (e *Error) Error() string {
	return e.Code
}

func newError(kind ErrorKind, code string) *Error {
	return &Error{Kind: kind, Code: code}
}

var (
	ErrMalformedCode  = newError(KindValidation, "malformed code")
	ErrInvalidAmount  = newError(KindValidation, "amount must be positive")
	ErrInvalidRequest = newError(KindValidation, "invalid request")

	ErrInvalidToken       = newError(KindNotFound, "invalid token")
	ErrAccountNotFound    = newError(KindNotFound, "account not found")
	ErrBranchNotFound     = newError(KindNotFound, "branch not found")
	ErrCampaignNotFound   = newError(KindNotFound, "campaign not found")

	ErrInvalidCredentials = newError(KindUnauthenticated, "invalid credentials")

	ErrAlreadyUsed               = newError(KindConflict, "token already used")
	ErrInvalidOrAlreadyConfirmed = newError(KindConflict, "redemption request invalid or already confirmed")
	ErrAccountExists             = newError(KindConflict, "account already exists")
	ErrDuplicateCode             = newError(KindConflict, "generated code already exists")

	ErrRateLimited        = newError(KindPolicy, "rate limited")
	ErrCampaignNotUsable  = newError(KindPolicy, "campaign not usable")
	ErrBranchNotAllowed   = newError(KindPolicy, "branch not allowed")
	ErrBranchInactive     = newError(KindPolicy, "branch inactive")
	ErrExpired            = newError(KindPolicy, "token expired")
	ErrProductUnavailable = newError(KindPolicy, "product unavailable")

	ErrInsufficientPoints  = newError(KindBalance, "insufficient points")
	ErrInsufficientBalance = newError(KindBalance, "insufficient balance")

	ErrStoreUnavailable = newError(KindUnavailable, "store unavailable")
)

// KindOf возвращает класс ошибки ядра или 0, если ошибка не из таксономии.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return KindPolicy
	}
	var cn *CampaignNotUsableError
	if errors.As(err, &cn) {
		return KindPolicy
	}
	return 0
}

// RateLimitedError возвращается, когда окно выдачи токенов начисления исчерпано.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s: retry after %s", ErrRateLimited.Code, e.RetryAfter.Round(time.Second))
}

// Is позволяет сравнивать ошибку с ErrRateLimited через errors.Is.
func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// CampaignRejection причина, по которой акция не может быть использована.
type CampaignRejection string

const (
	RejectExpired          CampaignRejection = "expired"
	RejectNotStarted       CampaignRejection = "not-started"
	RejectDisabled         CampaignRejection = "disabled"
	RejectBranchNotEnabled CampaignRejection = "branch-not-enabled"
	RejectPerCustomerCap   CampaignRejection = "per-customer-cap-reached"
	RejectGlobalCap        CampaignRejection = "global-cap-reached"
	RejectOfferUnavailable CampaignRejection = "offer-unavailable"
)

// CampaignNotUsableError возвращается при отказе в выдаче токена акции.
type CampaignNotUsableError struct {
	Reason CampaignRejection
}

func (e *CampaignNotUsableError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCampaignNotUsable.Code, e.Reason)
}

// Is позволяет сравнивать ошибку с ErrCampaignNotUsable через errors.Is.
func (e *CampaignNotUsableError) Is(target error) bool {
	return target == ErrCampaignNotUsable
}
