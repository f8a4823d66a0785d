// Package chainread is the read-only path to the chain: contract view calls,
// gas price and receipt lookups. Reads are pure queries and are never retried here.
package chainread

import (
	"context"
	"math/big"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/time/rate"

	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/constants"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/contracts"
)

var (
	ErrRead    = errors.New("chain read failed")
	ErrReceipt = errors.New("transaction receipt failed")
)

// Backend is the subset of an ethclient the reader needs.
type Backend interface {
	bind.ContractCaller
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// ReadObserver is notified after every chain query.
type ReadObserver interface {
	ObserveRead(method string, took time.Duration, err error)
}

type Config struct {
	GMContract          common.Address
	ReceiptPollInterval time.Duration
	// RequestsPerSecond <= 0 disables client-side limiting.
	RequestsPerSecond float64
	Burst             int
	Observer          ReadObserver
}

type Reader struct {
	backend      Backend
	gm           common.Address
	pollInterval time.Duration
	limiter      *rate.Limiter
	observer     ReadObserver
}

func NewReader(backend Backend, cfg Config) *Reader {
	if cfg.ReceiptPollInterval <= 0 {
		cfg.ReceiptPollInterval = constants.ReceiptPollInterval
	}

	r := &Reader{
		backend:      backend,
		gm:           cfg.GMContract,
		pollInterval: cfg.ReceiptPollInterval,
		observer:     cfg.Observer,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return r
}

func (r *Reader) GMContract() common.Address { return r.gm }

// Read performs a view call of method on target at the latest block and
// returns the decoded outputs. A target without deployed code fails with ErrRead.
func (r *Reader) Read(ctx context.Context, target common.Address, iface contracts.Interface, method string, args ...any) ([]any, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	var out []any
	err := iface.Bind(target, r.backend).Call(&bind.CallOpts{Context: ctx}, &out, method, args...)
	r.observe(method, start, err)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "%s.%s at %s", iface.Name, method, target.Hex()), ErrRead)
	}
	return out, nil
}

// HasCode reports whether any contract code is deployed at addr.
func (r *Reader) HasCode(ctx context.Context, addr common.Address) (bool, error) {
	if err := r.wait(ctx); err != nil {
		return false, err
	}

	start := time.Now()
	code, err := r.backend.CodeAt(ctx, addr, nil)
	r.observe("eth_getCode", start, err)
	if err != nil {
		return false, errors.Mark(errors.Wrapf(err, "code at %s", addr.Hex()), ErrRead)
	}
	return len(code) > 0, nil
}

// GasPrice returns the node's suggested gas price in wei.
func (r *Reader) GasPrice(ctx context.Context) (*big.Int, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	price, err := r.backend.SuggestGasPrice(ctx)
	r.observe("eth_gasPrice", start, err)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "gas price"), ErrRead)
	}
	if price == nil {
		return nil, errors.Mark(errors.New("gas price: empty response"), ErrRead)
	}
	return price, nil
}

func (r *Reader) wait(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return errors.Mark(errors.Wrap(err, "rate limit"), ErrRead)
	}
	return nil
}

func (r *Reader) observe(method string, start time.Time, err error) {
	if r.observer != nil {
		r.observer.ObserveRead(method, time.Since(start), err)
	}
}
