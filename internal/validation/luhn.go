// Package validation содержит проверки формата кодов, предъявляемых на кассе.
package validation

import (
	"unicode"
)

// ConfirmationCodeLength длина кода подтверждения заявки, включая контрольную цифру.
const ConfirmationCodeLength = 6

// TokenCodeMaxLength предельная длина кода токена, совпадает с размером колонки tokens.code.
const TokenCodeMaxLength = 64

// IsValidLuhn проверяет строку цифр по алгоритму Луна.
func IsValidLuhn(number string) bool {
	if number == "" {
		return false
	}

	sum := 0
	double := false

	for i := len(number) - 1; i >= 0; i-- {
		ch := rune(number[i])
		if !unicode.IsDigit(ch) {
			return false
		}
		digit := int(ch - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}

	return sum%10 == 0
}

// LuhnCheckDigit вычисляет контрольную цифру, которую нужно дописать к digits.
// Возвращает false, если digits содержит не только цифры.
func LuhnCheckDigit(digits string) (byte, bool) {
	sum := 0
	double := true

	for i := len(digits) - 1; i >= 0; i-- {
		ch := rune(digits[i])
		if !unicode.IsDigit(ch) {
			return 0, false
		}
		digit := int(ch - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}

	return byte('0' + (10-sum%10)%10), true
}

// IsValidConfirmationCode проверяет код подтверждения заявки: шесть цифр с контрольной цифрой Луна.
// Опечатка кассира отсекается до обращения к хранилищу.
func IsValidConfirmationCode(code string) bool {
	return len(code) == ConfirmationCodeLength && IsValidLuhn(code)
}

// IsValidTokenCode проверяет формат непрозрачного кода токена: от одного до
// TokenCodeMaxLength символов из латинских букв, цифр, '-' и '_'.
func IsValidTokenCode(code string) bool {
	if code == "" || len(code) > TokenCodeMaxLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}
