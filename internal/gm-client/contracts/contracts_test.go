package contracts

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterfacesParsedAtInit(t *testing.T) {
	assert.Len(t, GM.ABI.Methods, 5)
	assert.Contains(t, TIP20.ABI.Methods, MethodBalanceOf)
}

func TestPackSendGM_SelectorMatchesSignature(t *testing.T) {
	data, err := PackSendGM("GM! from Web App")
	require.NoError(t, err)

	selector := crypto.Keccak256([]byte("sendGM(string)"))[:4]
	assert.Equal(t, selector, data[:4])

	args, err := GM.ABI.Methods[MethodSendGM].Inputs.Unpack(data[4:])
	require.NoError(t, err)
	assert.Equal(t, "GM! from Web App", args[0])
}

func TestParse_RejectsSchemaMismatch(t *testing.T) {
	_, err := parse("bad", tip20ABI, map[string]signature{
		MethodBalanceOf: {sig: "balanceOf(address)", outputs: []string{"uint128"}, view: true},
	})
	require.ErrorIs(t, err, ErrSchemaMismatch)

	_, err = parse("missing", tip20ABI, map[string]signature{
		MethodTotalGMs: {sig: "totalGMs()", outputs: []string{"uint256"}, view: true},
	})
	require.ErrorIs(t, err, ErrSchemaMismatch)

	_, err = parse("write-as-view", gmABI, map[string]signature{
		MethodSendGM: {sig: "sendGM(string)", view: true},
	})
	require.ErrorIs(t, err, ErrSchemaMismatch)

	_, err = parse("garbage", `[{`, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSchemaMismatch)
}

func TestPack_WrongArgs(t *testing.T) {
	_, err := GM.Pack(MethodGetUserStats, "not-an-address")
	require.Error(t, err)
}
