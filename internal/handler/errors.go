package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/mmeshcher/cafe-loyalty/internal/model"
)

// statusFromError сопоставляет ошибку ядра HTTP-статусу.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, model.ErrMalformedCode):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, model.ErrExpired):
		return http.StatusGone
	}

	switch model.KindOf(err) {
	case model.KindValidation:
		return http.StatusBadRequest
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindConflict:
		return http.StatusConflict
	case model.KindPolicy:
		return http.StatusForbidden
	case model.KindBalance:
		return http.StatusPaymentRequired
	case model.KindUnavailable:
		return http.StatusServiceUnavailable
	case model.KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError пишет ответ об ошибке. Ошибки вне таксономии ядра и
// недоступность хранилища логируются, их текст клиенту не передаётся.
func (h *Handler) writeError(w http.ResponseWriter, err error, op string, fields ...zap.Field) {
	status := statusFromError(err)

	if status >= http.StatusInternalServerError {
		h.logger.Error(op+" error", append(fields, zap.Error(err))...)
		http.Error(w, http.StatusText(status), status)
		return
	}

	var rl *model.RateLimitedError
	if errors.As(err, &rl) {
		seconds := int(math.Ceil(rl.RetryAfter.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	http.Error(w, err.Error(), status)
}
