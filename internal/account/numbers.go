package account

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	accountNumberLength = 20
	cardNumberLength    = 16
	cardPrefix          = "2200"
)

// newAccountNumber returns a random 20-digit account number.
func newAccountNumber() (string, error) {
	return randomDigits(accountNumberLength)
}

// newCardNumber returns a 16-digit card number whose last digit is a Luhn check digit.
func newCardNumber() (string, error) {
	body, err := randomDigits(cardNumberLength - len(cardPrefix) - 1)
	if err != nil {
		return "", err
	}
	partial := cardPrefix + body
	return partial + string(rune('0'+luhnCheckDigit(partial))), nil
}

func randomDigits(n int) (string, error) {
	var b strings.Builder
	b.Grow(n)
	ten := big.NewInt(10)
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}

// luhnCheckDigit computes the digit that makes partial+digit pass the Luhn check.
func luhnCheckDigit(partial string) int {
	sum := 0
	double := true
	for i := len(partial) - 1; i >= 0; i-- {
		d := int(partial[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return (10 - sum%10) % 10
}
