package chainread_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/chainread"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/chainread/chainreadtest"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/contracts"
)

var (
	gmAddr    = common.HexToAddress("0xfBE3F1551e7E0aDC754d7Dd532F2c647EBf350D2")
	pathUSD   = common.HexToAddress("0x20c0000000000000000000000000000000000000")
	userAddr  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	otherAddr = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func newReader(backend *chainreadtest.Backend) *chainread.Reader {
	return chainread.NewReader(backend, chainread.Config{
		GMContract:          gmAddr,
		ReceiptPollInterval: 5 * time.Millisecond,
	})
}

func TestBalanceOf(t *testing.T) {
	backend := chainreadtest.New()
	backend.SeedToken(pathUSD, big.NewInt(1_500_000_000_000_000_000))

	bal, err := newReader(backend).BalanceOf(context.Background(), pathUSD, userAddr)
	require.NoError(t, err)
	assert.Equal(t, "1500000000000000000", bal.String())
}

func TestRead_Idempotent(t *testing.T) {
	backend := chainreadtest.New()
	backend.SeedGM(gmAddr, []chainreadtest.Feed{
		{Sender: userAddr, Text: "gm", Timestamp: 100, Sequence: 1},
		{Sender: otherAddr, Text: "gm gm", Timestamp: 101, Sequence: 2},
	}, 2)
	reader := newReader(backend)

	first, err := reader.Read(context.Background(), gmAddr, contracts.GM, contracts.MethodGetRecentMessages, big.NewInt(10))
	require.NoError(t, err)
	second, err := reader.Read(context.Background(), gmAddr, contracts.GM, contracts.MethodGetRecentMessages, big.NewInt(10))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, backend.Calls(contracts.MethodGetRecentMessages))
}

func TestRead_NoCodeIsReadError(t *testing.T) {
	backend := chainreadtest.New()

	_, err := newReader(backend).TotalGMs(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, chainread.ErrRead))
}

func TestRead_RevertIsReadError(t *testing.T) {
	backend := chainreadtest.New()
	backend.Deploy(gmAddr)

	_, err := newReader(backend).UserStats(context.Background(), userAddr)
	require.Error(t, err)
	assert.True(t, errors.Is(err, chainread.ErrRead))
}

func TestUserStats(t *testing.T) {
	backend := chainreadtest.New()
	backend.Deploy(gmAddr)
	backend.SetCall(gmAddr, contracts.GM, contracts.MethodGetUserStats, big.NewInt(7), big.NewInt(3), big.NewInt(1_700_000_000))

	stats, err := newReader(backend).UserStats(context.Background(), userAddr)
	require.NoError(t, err)
	assert.Equal(t, chainread.UserStats{Count: 7, Streak: 3, LastActivity: 1_700_000_000}, stats)
}

func TestRecentMessages_ContractOrder(t *testing.T) {
	backend := chainreadtest.New()
	backend.SeedGM(gmAddr, []chainreadtest.Feed{
		{Sender: userAddr, Text: "one", Timestamp: 100, Sequence: 1},
		{Sender: otherAddr, Text: "two", Timestamp: 200, Sequence: 2},
		{Sender: userAddr, Text: "three", Timestamp: 300, Sequence: 3},
	}, 3)

	msgs, err := newReader(backend).RecentMessages(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "one", msgs[0].Text)
	assert.Equal(t, uint64(3), msgs[2].Sequence)
	assert.Equal(t, otherAddr, msgs[1].Sender)
}

func TestRecentMessages_MismatchedArrays(t *testing.T) {
	backend := chainreadtest.New()
	backend.Deploy(gmAddr)
	backend.SetCall(gmAddr, contracts.GM, contracts.MethodGetRecentMessages,
		[]common.Address{userAddr, otherAddr},
		[]string{"only one"},
		[]*big.Int{big.NewInt(1), big.NewInt(2)},
		[]*big.Int{big.NewInt(1), big.NewInt(2)},
	)

	_, err := newReader(backend).RecentMessages(context.Background(), 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, chainread.ErrRead))
}

func TestGasPrice(t *testing.T) {
	backend := chainreadtest.New()
	reader := newReader(backend)

	price, err := reader.GasPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(20_000_000_000), price.Int64())

	backend.SetGasPrice(nil, errors.New("rpc down"))
	_, err = reader.GasPrice(context.Background())
	assert.True(t, errors.Is(err, chainread.ErrRead))
}

func TestHasCode(t *testing.T) {
	backend := chainreadtest.New()
	backend.Deploy(gmAddr)
	reader := newReader(backend)

	ok, err := reader.HasCode(context.Background(), gmAddr)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = reader.HasCode(context.Background(), otherAddr)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWaitForReceipt_PollsUntilMined(t *testing.T) {
	backend := chainreadtest.New()
	hash := common.HexToHash("0xabc")

	go func() {
		time.Sleep(30 * time.Millisecond)
		backend.SetReceipt(hash, types.ReceiptStatusSuccessful)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	receipt, err := newReader(backend).WaitForReceipt(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, hash, receipt.TxHash)
	assert.Greater(t, backend.Calls("eth_getTransactionReceipt"), 1)
}

func TestWaitForReceipt_Timeout(t *testing.T) {
	backend := chainreadtest.New()

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	_, err := newReader(backend).WaitForReceipt(ctx, common.HexToHash("0xabc"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, chainread.ErrReceipt))
}

func TestWaitForReceipt_Reverted(t *testing.T) {
	backend := chainreadtest.New()
	hash := common.HexToHash("0xdead")
	backend.SetReceipt(hash, types.ReceiptStatusFailed)

	receipt, err := newReader(backend).WaitForReceipt(context.Background(), hash)
	require.Error(t, err)
	assert.True(t, errors.Is(err, chainread.ErrReceipt))
	require.NotNil(t, receipt)
}

func TestWaitForReceipt_TransientErrorsKeepPolling(t *testing.T) {
	backend := chainreadtest.New()
	hash := common.HexToHash("0xbeef")
	backend.SetReceiptErr(errors.New("connection reset"))

	go func() {
		time.Sleep(20 * time.Millisecond)
		backend.SetReceiptErr(nil)
		backend.SetReceipt(hash, types.ReceiptStatusSuccessful)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := newReader(backend).WaitForReceipt(ctx, hash)
	require.NoError(t, err)
}

func TestRateLimit_CancelledWaitIsReadError(t *testing.T) {
	backend := chainreadtest.New()
	reader := chainread.NewReader(backend, chainread.Config{GMContract: gmAddr, RequestsPerSecond: 0.001, Burst: 1})

	_, err := reader.GasPrice(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = reader.GasPrice(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, chainread.ErrRead))
}
