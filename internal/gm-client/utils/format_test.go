package utils

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func wei(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(s)
	}
	return v
}

func TestFormatUnitsTrim(t *testing.T) {
	tests := []struct {
		amount  *big.Int
		maxFrac int
		want    string
	}{
		{nil, 4, "0"},
		{wei("1234500000000000000"), 4, "1.2345"},
		{wei("1000000000000000000"), 4, "1"},
		{wei("1"), 18, "0.000000000000000001"},
		{wei("1"), 4, "0"},
		{wei("-1500000000000000000"), 4, "-1.5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatUnitsTrim(tt.amount, 18, tt.maxFrac))
	}
}

func TestFormatBalance(t *testing.T) {
	tests := map[string]string{
		"0":                      "0.00",
		"1234500000000000000":    "1.23",
		"1235000000000000000":    "1.24",
		"1995000000000000000":    "2.00",
		"1000000000000000000000": "1000.00",
		"4999999999999999":       "0.00",
		"5000000000000000":       "0.01",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatBalance(wei(in), 18), in)
	}
	assert.Equal(t, "0.00", FormatBalance(nil, 18))
}

func TestFormatUnitsFixed_MoreDigitsThanDecimals(t *testing.T) {
	assert.Equal(t, "12.500", FormatUnitsFixed(big.NewInt(125), 1, 3))
	assert.Equal(t, "125", FormatUnitsFixed(big.NewInt(125), 0, 0))
}

func TestFormatGwei(t *testing.T) {
	assert.Equal(t, "N/A", FormatGwei(nil))
	assert.Equal(t, "20 Gwei", FormatGwei(big.NewInt(20_000_000_000)))
	assert.Equal(t, "1.5 Gwei", FormatGwei(big.NewInt(1_500_000_000)))
}

func TestShorten(t *testing.T) {
	addr := common.HexToAddress("0x1234567890123456789012345678901234567890")
	assert.Equal(t, "0x1234...7890", ShortAddress(addr))

	hash := common.HexToHash("0xabc")
	assert.Equal(t, "0x00000000...00000abc", ShortHash(hash))
	assert.Equal(t, "0xab", shorten("0xab", 6, 4))
}

func TestFormatUnix(t *testing.T) {
	assert.Equal(t, "-", FormatUnix(0))
	want := time.Unix(1_700_000_000, 0).Local().Format(time.DateTime)
	assert.Equal(t, want, FormatUnix(1_700_000_000))
}
