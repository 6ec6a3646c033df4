package brdoc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeCPF(t *testing.T) {
	require.Equal(t, "12345678909", SanitizeCPF("123.456.789-09"))
	require.Equal(t, "12345678909", SanitizeCPF("12345678909"))
	require.Equal(t, "", SanitizeCPF("abc"))
}

func TestWithCountryCode(t *testing.T) {
	require.Equal(t, "5511999999999", WithCountryCode("11999999999"))
	require.Equal(t, "5511999999999", WithCountryCode("5511999999999"))
	require.Equal(t, "5511999999999", WithCountryCode("(11) 99999-9999"))
}

func TestGenerateCPF_IsChecksumValid(t *testing.T) {
	for i := 0; i < 50; i++ {
		cpf := GenerateCPF()
		require.Len(t, cpf, 11)

		digits := make([]int, 11)
		for j, r := range cpf {
			digits[j] = int(r - '0')
		}
		require.Equal(t, digits[9], cpfCheckDigit(digits[:9], 10))
		require.Equal(t, digits[10], cpfCheckDigit(digits[:10], 11))
	}
}

func TestMaskCPF(t *testing.T) {
	require.Equal(t, "123********", MaskCPF("123.456.789-09"))
	require.Equal(t, "**", MaskCPF("12"))
}
