package utils

import (
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const NotAvailable = "N/A"

// FormatUnitsTrim divides amount by 10^decimals, keeps at most maxFrac
// fractional digits and drops trailing zeros.
//
//	1234500000000000000, 18, 4 -> "1.2345"
//	1000000000000000000, 18, 4 -> "1"
func FormatUnitsTrim(amount *big.Int, decimals uint8, maxFrac int) string {
	if amount == nil || amount.Sign() == 0 {
		return "0"
	}

	neg := amount.Sign() < 0
	abs := new(big.Int).Abs(amount)
	intPart, fracStr := split(abs, decimals)

	if len(fracStr) > maxFrac {
		fracStr = fracStr[:max(maxFrac, 0)]
	}
	fracStr = strings.TrimRight(fracStr, "0")

	out := intPart.String()
	if fracStr != "" {
		out += "." + fracStr
	}
	if neg {
		out = "-" + out
	}
	return out
}

// FormatUnitsFixed renders amount with exactly places fractional digits,
// rounding half up.
//
//	1234500000000000000, 18, 2 -> "1.23"
//	1995000000000000000, 18, 2 -> "2.00"
func FormatUnitsFixed(amount *big.Int, decimals uint8, places int) string {
	if amount == nil {
		amount = new(big.Int)
	}
	places = max(places, 0)

	neg := amount.Sign() < 0
	abs := new(big.Int).Abs(amount)

	if places < int(decimals) {
		// add half of the dropped unit, then truncate
		drop := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(int(decimals)-places)), nil)
		half := new(big.Int).Rsh(drop, 1)
		abs.Add(abs, half)
		abs.Div(abs, drop)
		abs.Mul(abs, drop)
	}

	intPart, fracStr := split(abs, decimals)
	if len(fracStr) > places {
		fracStr = fracStr[:places]
	} else {
		fracStr += strings.Repeat("0", places-len(fracStr))
	}

	out := intPart.String()
	if places > 0 {
		out += "." + fracStr
	}
	if neg && abs.Sign() != 0 {
		out = "-" + out
	}
	return out
}

// split returns the integer part and the fractional digits left-padded to decimals.
func split(abs *big.Int, decimals uint8) (*big.Int, string) {
	base := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	intPart, fracPart := new(big.Int).QuoRem(abs, base, new(big.Int))

	if decimals == 0 {
		return intPart, ""
	}
	fracStr := fracPart.String()
	if len(fracStr) < int(decimals) {
		fracStr = strings.Repeat("0", int(decimals)-len(fracStr)) + fracStr
	}
	return intPart, fracStr
}

// FormatBalance is the two-decimal display used for token balances.
func FormatBalance(amount *big.Int, decimals uint8) string {
	return FormatUnitsFixed(amount, decimals, 2)
}

// FormatGwei renders a wei gas price in Gwei, or N/A when unknown.
func FormatGwei(wei *big.Int) string {
	if wei == nil {
		return NotAvailable
	}
	return FormatUnitsTrim(wei, 9, 9) + " Gwei"
}

// ShortAddress keeps the 0x prefix with four hex digits and the last four.
func ShortAddress(addr common.Address) string {
	return shorten(addr.Hex(), 6, 4)
}

func ShortHash(hash common.Hash) string {
	return shorten(hash.Hex(), 10, 8)
}

func shorten(s string, head, tail int) string {
	if len(s) <= head+tail {
		return s
	}
	return s[:head] + "..." + s[len(s)-tail:]
}

// FormatUnix renders a contract timestamp (unix seconds) in the local zone.
func FormatUnix(sec uint64) string {
	if sec == 0 {
		return "-"
	}
	return time.Unix(int64(sec), 0).Local().Format(time.DateTime)
}
