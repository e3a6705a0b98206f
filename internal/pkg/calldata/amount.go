package calldata

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"wallet-orchestrator/internal/domain"
)

// maxDecimals bounds token decimals so 10^decimals fits a uint256.
const maxDecimals = 77

var hundred = decimal.NewFromInt(100)

func parseDecimal(amount string, decimals int) (decimal.Decimal, error) {
	if decimals < 0 || decimals > maxDecimals {
		return decimal.Decimal{}, fmt.Errorf("%w: unsupported decimals %d", domain.ErrInvalidAmount, decimals)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q is not a decimal number", domain.ErrInvalidAmount, amount)
	}
	if !d.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%w: %q must be greater than zero", domain.ErrInvalidAmount, amount)
	}
	return d, nil
}

// toUint256 rejects values that abi.Pack would silently reduce mod 2^256.
func toUint256(raw decimal.Decimal, amount string) (*big.Int, error) {
	v := raw.BigInt()
	if v.BitLen() > 256 {
		return nil, fmt.Errorf("%w: %q exceeds uint256", domain.ErrInvalidAmount, amount)
	}
	return v, nil
}

// ParseAmount converts a human decimal amount into base units, truncating
// digits beyond decimals toward zero.
func ParseAmount(amount string, decimals int) (*big.Int, error) {
	d, err := parseDecimal(amount, decimals)
	if err != nil {
		return nil, err
	}
	raw := d.Shift(int32(decimals)).Truncate(0)
	if !raw.IsPositive() {
		return nil, fmt.Errorf("%w: %q is below the smallest unit", domain.ErrInvalidAmount, amount)
	}
	return toUint256(raw, amount)
}

// ValidateAmount is the strict form of ParseAmount used on user input: it
// also rejects amounts with more fractional digits than the token supports.
func ValidateAmount(amount string, decimals int) (*big.Int, error) {
	d, err := parseDecimal(amount, decimals)
	if err != nil {
		return nil, err
	}
	shifted := d.Shift(int32(decimals))
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, fmt.Errorf("%w: %q has more than %d decimal places", domain.ErrInvalidAmount, amount, decimals)
	}
	return toUint256(shifted, amount)
}

// FormatUnits renders base units as an exact decimal string without trailing zeros.
func FormatUnits(raw *big.Int, decimals int) string {
	if raw == nil {
		return "0"
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).String()
}

// FormatDisplay renders base units for display: 2 places for 6-decimal
// tokens, 4 places otherwise.
func FormatDisplay(raw *big.Int, decimals int) string {
	places := int32(4)
	if decimals == 6 {
		places = 2
	}
	if raw == nil {
		return decimal.Zero.StringFixed(places)
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).StringFixed(places)
}

// MinimumAmountOut returns floor(amountOut * (100 - slippagePercent) / 100).
func MinimumAmountOut(amountOut *big.Int, slippagePercent float64) *big.Int {
	if amountOut == nil {
		return new(big.Int)
	}
	keep := hundred.Sub(decimal.NewFromFloat(slippagePercent))
	return decimal.NewFromBigInt(amountOut, 0).Mul(keep).Shift(-2).Floor().BigInt()
}

// ParseAddress parses a 0x-prefixed 20-byte hex address.
func ParseAddress(s string) (common.Address, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return common.Address{}, fmt.Errorf("%w: %q", domain.ErrInvalidAddress, s)
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", domain.ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}
