package identity

import (
	"fmt"
	"regexp"
)

var nonDigits = regexp.MustCompile(`[^0-9]`)

// NormalizeCPF strips everything but digits.
func NormalizeCPF(cpf string) string {
	return nonDigits.ReplaceAllString(cpf, "")
}

// ValidateCPF checks length and both check digits of a normalized CPF.
func ValidateCPF(cpf string) error {
	if len(cpf) != 11 {
		return fmt.Errorf("CPF deve ter 11 dígitos")
	}
	same := true
	for i := 1; i < 11; i++ {
		if cpf[i] != cpf[0] {
			same = false
			break
		}
	}
	if same {
		return fmt.Errorf("CPF inválido")
	}
	if checkDigit(cpf[:9], 10) != cpf[9]-'0' || checkDigit(cpf[:10], 11) != cpf[10]-'0' {
		return fmt.Errorf("CPF inválido")
	}
	return nil
}

func checkDigit(digits string, weight int) byte {
	sum := 0
	for i := 0; i < len(digits); i++ {
		sum += int(digits[i]-'0') * (weight - i)
	}
	r := (sum * 10) % 11
	if r == 10 {
		r = 0
	}
	return byte(r)
}

// FormatCPF renders 11 digits as 000.000.000-00.
func FormatCPF(cpf string) string {
	if len(cpf) != 11 {
		return cpf
	}
	return cpf[:3] + "." + cpf[3:6] + "." + cpf[6:9] + "-" + cpf[9:]
}
