package snapshot

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/chainread"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/chainread/chainreadtest"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/contracts"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/wallet"
)

var (
	gmAddr    = common.HexToAddress("0xfBE3F1551e7E0aDC754d7Dd532F2c647EBf350D2")
	pathUSD   = common.HexToAddress("0x20c0000000000000000000000000000000000000")
	alphaUSD  = common.HexToAddress("0x20c0000000000000000000000000000000000001")
	userAddr  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	otherAddr = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

type account struct{ addr *common.Address }

func (a account) Account() (wallet.Account, bool) {
	if a.addr == nil {
		return wallet.Account{}, false
	}
	return wallet.Account{Address: *a.addr}, true
}

func connected() account { return account{addr: &userAddr} }

func seeded(t *testing.T) *chainreadtest.Backend {
	t.Helper()
	b := chainreadtest.New()
	b.SeedToken(pathUSD, big.NewInt(5e18))
	b.SeedToken(alphaUSD, big.NewInt(2e18))
	b.SeedGM(gmAddr, []chainreadtest.Feed{
		{Sender: userAddr, Text: "gm 1", Timestamp: 100, Sequence: 1},
		{Sender: otherAddr, Text: "gm 2", Timestamp: 200, Sequence: 2},
		{Sender: userAddr, Text: "gm 3", Timestamp: 300, Sequence: 3},
	}, 3)
	b.SetCall(gmAddr, contracts.GM, contracts.MethodGetUserStats, big.NewInt(2), big.NewInt(1), big.NewInt(300))
	return b
}

func newAggregator(reader Reader) *Aggregator {
	return NewAggregator(reader, Config{NativeToken: pathUSD, SecondaryToken: alphaUSD})
}

func readerFor(b *chainreadtest.Backend) *chainread.Reader {
	return chainread.NewReader(b, chainread.Config{GMContract: gmAddr})
}

func TestRefresh_NoAccountIsNoop(t *testing.T) {
	b := seeded(t)
	agg := newAggregator(readerFor(b))

	_, ok := agg.Refresh(context.Background(), account{})
	assert.False(t, ok)
	assert.Zero(t, b.Calls(contracts.MethodBalanceOf))
	assert.Zero(t, b.Calls("eth_gasPrice"))

	_, ok = agg.Current()
	assert.False(t, ok)
}

func TestRefresh_AllFields(t *testing.T) {
	agg := newAggregator(readerFor(seeded(t)))

	snap, ok := agg.Refresh(context.Background(), connected())
	require.True(t, ok)

	assert.Equal(t, userAddr, snap.Account)
	assert.Equal(t, "5000000000000000000", snap.NativeBalance.String())
	assert.Equal(t, "2000000000000000000", snap.SecondaryBalance.String())
	assert.Equal(t, int64(3), snap.TotalMessages.Int64())
	assert.Equal(t, chainread.UserStats{Count: 2, Streak: 1, LastActivity: 300}, snap.UserStats)
	assert.Equal(t, int64(20_000_000_000), snap.GasPrice.Int64())
	assert.Empty(t, snap.Unavailable)
	assert.Equal(t, uint64(1), snap.Generation)

	cur, ok := agg.Current()
	require.True(t, ok)
	assert.Equal(t, snap, cur)
}

func TestRefresh_RecentMessagesMostRecentFirst(t *testing.T) {
	agg := newAggregator(readerFor(seeded(t)))

	snap, ok := agg.Refresh(context.Background(), connected())
	require.True(t, ok)
	require.Len(t, snap.RecentMessages, 3)

	var seqs []uint64
	for _, m := range snap.RecentMessages {
		seqs = append(seqs, m.Sequence)
	}
	assert.Equal(t, []uint64{3, 2, 1}, seqs)
}

func TestRefresh_PartialFailureContained(t *testing.T) {
	readErr := errors.New("boom")
	cases := []struct {
		field     Field
		breakRead func(b *chainreadtest.Backend)
		check     func(t *testing.T, s Snapshot)
	}{
		{FieldNativeBalance, func(b *chainreadtest.Backend) {
			b.FailCall(pathUSD, contracts.TIP20, contracts.MethodBalanceOf, readErr)
		}, func(t *testing.T, s Snapshot) {
			assert.Zero(t, s.NativeBalance.Sign())
			assert.Equal(t, "2000000000000000000", s.SecondaryBalance.String())
		}},
		{FieldSecondaryBalance, func(b *chainreadtest.Backend) {
			b.FailCall(alphaUSD, contracts.TIP20, contracts.MethodBalanceOf, readErr)
		}, func(t *testing.T, s Snapshot) {
			assert.Zero(t, s.SecondaryBalance.Sign())
			assert.Equal(t, "5000000000000000000", s.NativeBalance.String())
		}},
		{FieldTotalMessages, func(b *chainreadtest.Backend) {
			b.FailCall(gmAddr, contracts.GM, contracts.MethodGetMessageCount, readErr)
		}, func(t *testing.T, s Snapshot) {
			assert.Zero(t, s.TotalMessages.Sign())
			assert.Len(t, s.RecentMessages, 3)
		}},
		{FieldUserStats, func(b *chainreadtest.Backend) {
			b.FailCall(gmAddr, contracts.GM, contracts.MethodGetUserStats, readErr)
		}, func(t *testing.T, s Snapshot) {
			assert.Equal(t, chainread.UserStats{}, s.UserStats)
			assert.Equal(t, int64(3), s.TotalMessages.Int64())
		}},
		{FieldRecentMessages, func(b *chainreadtest.Backend) {
			b.FailCall(gmAddr, contracts.GM, contracts.MethodGetRecentMessages, readErr)
		}, func(t *testing.T, s Snapshot) {
			assert.NotNil(t, s.RecentMessages)
			assert.Empty(t, s.RecentMessages)
			assert.Equal(t, uint64(2), s.UserStats.Count)
		}},
		{FieldGasPrice, func(b *chainreadtest.Backend) {
			b.SetGasPrice(nil, readErr)
		}, func(t *testing.T, s Snapshot) {
			assert.Nil(t, s.GasPrice)
			assert.Equal(t, "5000000000000000000", s.NativeBalance.String())
		}},
	}

	for _, tc := range cases {
		t.Run(string(tc.field), func(t *testing.T) {
			b := seeded(t)
			tc.breakRead(b)

			snap, ok := newAggregator(readerFor(b)).Refresh(context.Background(), connected())
			require.True(t, ok)
			assert.Equal(t, []Field{tc.field}, snap.Unavailable)
			assert.False(t, snap.Available(tc.field))
			tc.check(t, snap)
		})
	}
}

func TestRefresh_Idempotent(t *testing.T) {
	agg := newAggregator(readerFor(seeded(t)))

	first, ok := agg.Refresh(context.Background(), connected())
	require.True(t, ok)
	second, ok := agg.Refresh(context.Background(), connected())
	require.True(t, ok)

	assert.Equal(t, first.Generation+1, second.Generation)
	first.Generation, second.Generation = 0, 0
	first.FetchedAt, second.FetchedAt = time.Time{}, time.Time{}
	assert.Equal(t, first, second)
}

// gatedReader blocks the first native balance read until released.
type gatedReader struct {
	Reader
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedReader) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	if token == pathUSD {
		first := false
		g.once.Do(func() { first = true })
		if first {
			close(g.entered)
			<-g.release
		}
	}
	return g.Reader.BalanceOf(ctx, token, owner)
}

func TestRefresh_StaleResultNotPublished(t *testing.T) {
	b := seeded(t)
	gated := &gatedReader{Reader: readerFor(b), entered: make(chan struct{}), release: make(chan struct{})}
	agg := newAggregator(gated)

	staleDone := make(chan Snapshot)
	go func() {
		s, _ := agg.Refresh(context.Background(), connected())
		staleDone <- s
	}()
	<-gated.entered

	b.SeedToken(pathUSD, big.NewInt(9e18))
	fresh, ok := agg.Refresh(context.Background(), connected())
	require.True(t, ok)

	close(gated.release)
	stale := <-staleDone

	assert.Less(t, stale.Generation, fresh.Generation)
	cur, ok := agg.Current()
	require.True(t, ok)
	assert.Equal(t, fresh.Generation, cur.Generation)
	assert.Equal(t, "9000000000000000000", cur.NativeBalance.String())
}

func TestRefreshGasPrice_WritesOnlyGas(t *testing.T) {
	b := seeded(t)
	agg := newAggregator(readerFor(b))

	before, ok := agg.Refresh(context.Background(), connected())
	require.True(t, ok)

	b.SetGasPrice(big.NewInt(42), nil)
	price, ok := agg.RefreshGasPrice(context.Background())
	require.True(t, ok)
	assert.Equal(t, int64(42), price.Int64())

	after, _ := agg.Current()
	assert.Equal(t, int64(42), after.GasPrice.Int64())
	assert.Equal(t, before.Generation, after.Generation)
	assert.Equal(t, before.NativeBalance, after.NativeBalance)
	assert.Equal(t, before.RecentMessages, after.RecentMessages)

	b.SetGasPrice(nil, errors.New("down"))
	_, ok = agg.RefreshGasPrice(context.Background())
	assert.False(t, ok)

	after, _ = agg.Current()
	assert.Nil(t, after.GasPrice)
	assert.Equal(t, []Field{FieldGasPrice}, after.Unavailable)
}

func TestGasFailure_SameRuleForRefreshAndTick(t *testing.T) {
	b := seeded(t)
	agg := newAggregator(readerFor(b))

	_, ok := agg.RefreshGasPrice(context.Background())
	require.True(t, ok)

	b.SetGasPrice(nil, errors.New("down"))
	snap, ok := agg.Refresh(context.Background(), connected())
	require.True(t, ok)
	assert.Nil(t, snap.GasPrice)
	assert.Equal(t, []Field{FieldGasPrice}, snap.Unavailable)

	b.SetGasPrice(big.NewInt(7), nil)
	_, ok = agg.RefreshGasPrice(context.Background())
	require.True(t, ok)
	b.SetGasPrice(nil, errors.New("down"))
	_, ok = agg.RefreshGasPrice(context.Background())
	require.False(t, ok)

	cur, _ := agg.Current()
	assert.Nil(t, cur.GasPrice)
	assert.Equal(t, []Field{FieldGasPrice}, cur.Unavailable)
}

func TestRefreshGasPrice_WithoutSnapshot(t *testing.T) {
	agg := newAggregator(readerFor(seeded(t)))

	price, ok := agg.RefreshGasPrice(context.Background())
	require.True(t, ok)
	assert.Equal(t, int64(20_000_000_000), price.Int64())

	_, ok = agg.Current()
	assert.False(t, ok)
}

func TestRunGasTicker(t *testing.T) {
	b := seeded(t)
	agg := newAggregator(readerFor(b))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		agg.RunGasTicker(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return b.Calls("eth_gasPrice") >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestCurrent_ReturnsCopy(t *testing.T) {
	agg := newAggregator(readerFor(seeded(t)))
	_, ok := agg.Refresh(context.Background(), connected())
	require.True(t, ok)

	cur, _ := agg.Current()
	cur.NativeBalance.SetInt64(0)
	cur.RecentMessages[0].Text = "mutated"

	again, _ := agg.Current()
	assert.Equal(t, "5000000000000000000", again.NativeBalance.String())
	assert.Equal(t, "gm 3", again.RecentMessages[0].Text)
}

func TestOrderForDisplay_TiesBySequence(t *testing.T) {
	in := []chainread.Message{
		{Text: "b", Timestamp: 10, Sequence: 2},
		{Text: "a", Timestamp: 10, Sequence: 1},
		{Text: "c", Timestamp: 11, Sequence: 3},
	}
	out := OrderForDisplay(in)
	assert.Equal(t, "c", out[0].Text)
	assert.Equal(t, "b", out[1].Text)
	assert.Equal(t, "a", out[2].Text)
	assert.Equal(t, "b", in[0].Text)
}
