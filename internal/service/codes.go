package service

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/mmeshcher/cafe-loyalty/internal/validation"
)

// CodeGenerator выдаёт коды токенов и коды подтверждения заявок.
type CodeGenerator interface {
	// TokenCode возвращает непрозрачный устойчивый к коллизиям код токена.
	TokenCode() string
	// ConfirmationCode возвращает короткий код подтверждения для кассира.
	ConfirmationCode() (string, error)
}

// RandomCodeGenerator генерирует UUIDv4 для токенов и шестизначные коды
// с контрольной цифрой Луна для заявок.
type RandomCodeGenerator struct{}

// NewRandomCodeGenerator создаёт генератор на основе криптографического ГСЧ.
func NewRandomCodeGenerator() *RandomCodeGenerator {
	return &RandomCodeGenerator{}
}

// TokenCode возвращает новый UUIDv4.
func (RandomCodeGenerator) TokenCode() string {
	return uuid.NewString()
}

var confirmationSpace = big.NewInt(100000)

// ConfirmationCode возвращает пять случайных цифр и контрольную цифру.
func (RandomCodeGenerator) ConfirmationCode() (string, error) {
	n, err := rand.Int(rand.Reader, confirmationSpace)
	if err != nil {
		return "", fmt.Errorf("generate confirmation code: %w", err)
	}
	digits := fmt.Sprintf("%05d", n.Int64())
	check, _ := validation.LuhnCheckDigit(digits)
	return digits + string(check), nil
}
