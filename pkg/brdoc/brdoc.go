package brdoc

import (
	"math/rand"
	"strings"
)

// OnlyDigits strips every non-digit character.
func OnlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SanitizeCPF reduces a CPF to its digits.
func SanitizeCPF(cpf string) string {
	return OnlyDigits(cpf)
}

// IsStructurallyValidCPF checks only the digit count, which is what the
// lenient providers care about.
func IsStructurallyValidCPF(cpf string) bool {
	return len(OnlyDigits(cpf)) == 11
}

// SanitizePhone reduces a phone number to its digits.
func SanitizePhone(phone string) string {
	return OnlyDigits(phone)
}

// WithCountryCode prefixes the Brazilian country code when absent.
func WithCountryCode(phone string) string {
	digits := OnlyDigits(phone)
	if strings.HasPrefix(digits, "55") {
		return digits
	}
	return "55" + digits
}

// MaskCPF hides all but the first three digits for logging.
func MaskCPF(cpf string) string {
	digits := OnlyDigits(cpf)
	if len(digits) <= 3 {
		return strings.Repeat("*", len(digits))
	}
	return digits[:3] + strings.Repeat("*", len(digits)-3)
}

func cpfCheckDigit(digits []int, weight int) int {
	sum := 0
	for _, d := range digits {
		sum += d * weight
		weight--
	}
	if r := sum % 11; r >= 2 {
		return 11 - r
	}
	return 0
}

// GenerateCPF synthesizes a random checksum-valid CPF. Used for gateways
// that validate the document but whose settlement does not depend on it.
func GenerateCPF() string {
	for {
		digits := make([]int, 9, 11)
		for i := range digits {
			digits[i] = rand.Intn(10)
		}
		digits = append(digits, cpfCheckDigit(digits, 10))
		digits = append(digits, cpfCheckDigit(digits, 11))

		var b strings.Builder
		allSame := true
		for i, d := range digits {
			if i > 0 && d != digits[0] {
				allSame = false
			}
			b.WriteByte(byte('0' + d))
		}
		// All-same-digit CPFs pass the checksum but are rejected upstream.
		if !allSame {
			return b.String()
		}
	}
}
