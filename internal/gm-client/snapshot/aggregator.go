package snapshot

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/sourcegraph/conc"

	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/chainread"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/constants"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/wallet"
)

// Reader is the chain read surface the aggregator depends on.
type Reader interface {
	BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error)
	MessageCount(ctx context.Context) (*big.Int, error)
	UserStats(ctx context.Context, user common.Address) (chainread.UserStats, error)
	RecentMessages(ctx context.Context, count uint64) ([]chainread.Message, error)
	GasPrice(ctx context.Context) (*big.Int, error)
}

type AccountSource interface {
	Account() (wallet.Account, bool)
}

type Observer interface {
	ObserveRefresh(s Snapshot, published bool, took time.Duration)
}

type Config struct {
	NativeToken    common.Address
	SecondaryToken common.Address
	MessagesCount  uint64
	Observer       Observer
}

type Aggregator struct {
	reader Reader
	cfg    Config
	now    func() time.Time

	generation atomic.Uint64
	current    atomic.Pointer[Snapshot]
}

func NewAggregator(reader Reader, cfg Config) *Aggregator {
	if cfg.MessagesCount == 0 {
		cfg.MessagesCount = constants.RecentMessagesCount
	}
	return &Aggregator{reader: reader, cfg: cfg, now: time.Now}
}

// Refresh reads everything for the connected account and publishes the result.
// Without an account it does nothing and reports false. Individual read
// failures never fail the refresh. A refresh that finishes after a newer one
// has been published is returned but not published.
func (a *Aggregator) Refresh(ctx context.Context, src AccountSource) (Snapshot, bool) {
	acct, ok := src.Account()
	if !ok {
		return Snapshot{}, false
	}

	start := time.Now()
	gen := a.generation.Add(1)
	snap := a.fetch(ctx, acct.Address)
	snap.Generation = gen

	published := a.publish(&snap)
	if !published {
		log.Info("discarded stale snapshot", "generation", gen)
	}
	if a.cfg.Observer != nil {
		a.cfg.Observer.ObserveRefresh(snap, published, time.Since(start))
	}
	return snap.clone(), true
}

func (a *Aggregator) fetch(ctx context.Context, owner common.Address) Snapshot {
	snap := Snapshot{Account: owner}

	var (
		mu          sync.Mutex
		unavailable []Field
		wg          conc.WaitGroup
	)
	fail := func(f Field, err error) {
		log.Warn("snapshot read failed; using default", "field", string(f), "account", owner.Hex(), "error", err)
		mu.Lock()
		unavailable = append(unavailable, f)
		mu.Unlock()
	}

	wg.Go(func() {
		v, err := a.reader.BalanceOf(ctx, a.cfg.NativeToken, owner)
		if err != nil {
			fail(FieldNativeBalance, err)
			v = new(big.Int)
		}
		snap.NativeBalance = v
	})
	wg.Go(func() {
		v, err := a.reader.BalanceOf(ctx, a.cfg.SecondaryToken, owner)
		if err != nil {
			fail(FieldSecondaryBalance, err)
			v = new(big.Int)
		}
		snap.SecondaryBalance = v
	})
	wg.Go(func() {
		v, err := a.reader.MessageCount(ctx)
		if err != nil {
			fail(FieldTotalMessages, err)
			v = new(big.Int)
		}
		snap.TotalMessages = v
	})
	wg.Go(func() {
		v, err := a.reader.UserStats(ctx, owner)
		if err != nil {
			fail(FieldUserStats, err)
			v = chainread.UserStats{}
		}
		snap.UserStats = v
	})
	wg.Go(func() {
		v, err := a.reader.RecentMessages(ctx, a.cfg.MessagesCount)
		if err != nil {
			fail(FieldRecentMessages, err)
			v = nil
		}
		snap.RecentMessages = OrderForDisplay(v)
	})
	wg.Go(func() {
		v, err := a.reader.GasPrice(ctx)
		if err != nil {
			fail(FieldGasPrice, err)
			return
		}
		snap.GasPrice = v
	})
	wg.Wait()

	if snap.RecentMessages == nil {
		snap.RecentMessages = []chainread.Message{}
	}
	sortFields(unavailable)
	snap.Unavailable = unavailable
	snap.FetchedAt = a.now()
	return snap
}

func (a *Aggregator) publish(snap *Snapshot) bool {
	for {
		cur := a.current.Load()
		if cur != nil && cur.Generation > snap.Generation {
			return false
		}
		if a.current.CompareAndSwap(cur, snap) {
			return true
		}
	}
}

// Current returns a copy of the last published snapshot.
func (a *Aggregator) Current() (Snapshot, bool) {
	cur := a.current.Load()
	if cur == nil {
		return Snapshot{}, false
	}
	return cur.clone(), true
}

// RefreshGasPrice reads the gas price and writes only the gas field of the
// current snapshot. Failures mark the field unavailable and are not returned.
func (a *Aggregator) RefreshGasPrice(ctx context.Context) (*big.Int, bool) {
	price, err := a.reader.GasPrice(ctx)
	if err != nil {
		log.Warn("gas price unavailable", "error", err)
		price = nil
	}

	for {
		cur := a.current.Load()
		if cur == nil {
			break
		}
		next := cur.clone()
		next.setGas(price)
		if a.current.CompareAndSwap(cur, &next) {
			break
		}
	}
	return cloneBig(price), price != nil
}

// RunGasTicker refreshes the gas price now and then every interval until ctx ends.
func (a *Aggregator) RunGasTicker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = constants.GasPriceRefreshInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.RefreshGasPrice(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.RefreshGasPrice(ctx)
		}
	}
}
