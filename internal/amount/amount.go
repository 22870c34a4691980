// Package amount converts between human decimal strings and chain base
// units. All arithmetic inside the engine happens on base-unit integers;
// decimal strings exist only at the API boundary.
package amount

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	scouterr "github.com/Sonic-Vault/scout-api/internal/errors"
)

// Fixed base-unit exponents per chain family.
const (
	EVMDecimals    = 18 // wei
	SolanaDecimals = 9  // lamports
)

// ToBaseUnits converts a decimal string like "1.5" into a base-unit integer
// string. Precision beyond the chain exponent is rejected rather than
// rounded.
func ToBaseUnits(value string, decimals int32) (string, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return "", scouterr.Wrap(scouterr.KindInvalidInput, "amount must be a decimal number", err)
	}
	if d.IsNegative() {
		return "", scouterr.New(scouterr.KindInvalidInput, "amount must be non-negative")
	}
	shifted := d.Shift(decimals)
	if !shifted.Equal(shifted.Truncate(0)) {
		return "", scouterr.Newf(scouterr.KindInvalidInput, "amount precision exceeds %d decimals", decimals)
	}
	return shifted.BigInt().String(), nil
}

// FromBaseUnits formats a base-unit integer string as a decimal string with
// trailing zeros trimmed.
func FromBaseUnits(baseUnits string, decimals int32) (string, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(baseUnits), 10)
	if !ok {
		return "", scouterr.New(scouterr.KindInvalidInput, "base amount must be an integer")
	}
	return decimal.NewFromBigInt(n, -decimals).String(), nil
}

// ParseBaseUnits validates a base-unit integer string and returns its value.
func ParseBaseUnits(baseUnits string) (*big.Int, error) {
	clean := strings.TrimSpace(baseUnits)
	n, ok := new(big.Int).SetString(clean, 10)
	if !ok || n.Sign() < 0 {
		return nil, scouterr.New(scouterr.KindInvalidInput, "amount must be a non-negative integer string")
	}
	return n, nil
}
