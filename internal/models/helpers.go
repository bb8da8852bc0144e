package models

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

const NativeDecimals = 18

var decimalAmount = regexp.MustCompile(`^\d*\.?\d+$`)

// ParseUnits converts a decimal string such as "1.5" into base units with
// the given number of decimals. More fractional digits than decimals is an
// error rather than a silent truncation.
func ParseUnits(amount string, decimals int) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("amount is empty")
	}

	// Plain decimal digits only: no sign, exponent, fraction or base prefix.
	if !decimalAmount.MatchString(amount) {
		return nil, fmt.Errorf("invalid amount: %q", amount)
	}

	r, ok := new(big.Rat).SetString(amount)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %q", amount)
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	r.Mul(r, new(big.Rat).SetInt(scale))
	if !r.IsInt() {
		return nil, fmt.Errorf("amount %q has more than %d decimals", amount, decimals)
	}

	return new(big.Int).Set(r.Num()), nil
}

func ParseEther(amount string) (*big.Int, error) {
	return ParseUnits(amount, NativeDecimals)
}

// FormatUnits is the inverse of ParseUnits, trimming trailing zeros.
func FormatUnits(value *big.Int, decimals int) string {
	if value == nil {
		return "0"
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	s := new(big.Rat).SetFrac(value, scale).FloatString(decimals)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}

func FormatEther(value *big.Int) string {
	return FormatUnits(value, NativeDecimals)
}

// FormatWalletAddress masks an address or hash for display: the 0x prefix
// and the first and last visible characters.
func FormatWalletAddress(address string, visible int) string {
	if visible <= 0 {
		visible = 4
	}

	body := strings.TrimPrefix(address, "0x")
	prefix := address[:len(address)-len(body)]
	if len(body) <= visible*2 {
		return address
	}

	return fmt.Sprintf("%s%s...%s", prefix, body[:visible], body[len(body)-visible:])
}

func TxURL(explorerURL, txHash string) string {
	if txHash == "" {
		return ""
	}
	return strings.TrimRight(explorerURL, "/") + "/tx/" + txHash
}

// GenerateSalt returns 32 random bytes for deterministic game deployment.
func GenerateSalt() ([32]byte, error) {
	var salt [32]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return salt, fmt.Errorf("failed to generate salt: %v", err)
	}
	return salt, nil
}
