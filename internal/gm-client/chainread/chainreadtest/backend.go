// Package chainreadtest provides an in-memory chainread.Backend for tests.
package chainreadtest

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/contracts"
)

var ErrReverted = errors.New("execution reverted")

type callKey struct {
	to       common.Address
	selector [4]byte
}

type callResult struct {
	method string
	output []byte
	err    error
}

// Backend answers contract calls from registered results. Calls to an address
// with code but no registered result revert; calls to an address without code
// return empty data.
type Backend struct {
	mu sync.Mutex

	code     map[common.Address][]byte
	results  map[callKey]callResult
	receipts map[common.Hash]*types.Receipt
	calls    map[string]int

	gasPrice   *big.Int
	gasErr     error
	receiptErr error
}

func New() *Backend {
	return &Backend{
		code:     make(map[common.Address][]byte),
		results:  make(map[callKey]callResult),
		receipts: make(map[common.Hash]*types.Receipt),
		calls:    make(map[string]int),
		gasPrice: big.NewInt(20_000_000_000),
	}
}

// Deploy marks addr as holding contract code.
func (b *Backend) Deploy(addr common.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.code[addr] = []byte{0x60, 0x80}
}

// SetCall registers the outputs returned for method on addr. It panics on
// values that do not match the method's outputs.
func (b *Backend) SetCall(addr common.Address, iface contracts.Interface, method string, values ...any) {
	m := iface.ABI.Methods[method]
	output, err := m.Outputs.Pack(values...)
	if err != nil {
		panic(err)
	}
	b.set(addr, iface, method, callResult{method: method, output: output})
}

// SetRaw registers raw return data for method on addr.
func (b *Backend) SetRaw(addr common.Address, iface contracts.Interface, method string, output []byte) {
	b.set(addr, iface, method, callResult{method: method, output: output})
}

// FailCall makes every call of method on addr return err.
func (b *Backend) FailCall(addr common.Address, iface contracts.Interface, method string, err error) {
	b.set(addr, iface, method, callResult{method: method, err: err})
}

func (b *Backend) set(addr common.Address, iface contracts.Interface, method string, res callResult) {
	var key callKey
	key.to = addr
	copy(key.selector[:], iface.ABI.Methods[method].ID)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.results[key] = res
}

func (b *Backend) SetGasPrice(price *big.Int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gasPrice, b.gasErr = price, err
}

// SetReceipt makes hash mined with the given status.
func (b *Backend) SetReceipt(hash common.Hash, status uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.receipts[hash] = &types.Receipt{TxHash: hash, Status: status, BlockNumber: big.NewInt(1)}
}

func (b *Backend) SetReceiptErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.receiptErr = err
}

// Calls returns how many times method was queried.
func (b *Backend) Calls(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method]
}

func (b *Backend) CodeAt(_ context.Context, addr common.Address, _ *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.code[addr], nil
}

func (b *Backend) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, ErrReverted
	}

	var key callKey
	key.to = *msg.To
	copy(key.selector[:], msg.Data[:4])

	b.mu.Lock()
	defer b.mu.Unlock()

	res, ok := b.results[key]
	if !ok {
		b.calls["unknown"]++
		if len(b.code[key.to]) == 0 {
			return nil, nil
		}
		return nil, ErrReverted
	}
	b.calls[res.method]++
	if res.err != nil {
		return nil, res.err
	}
	return res.output, nil
}

func (b *Backend) SuggestGasPrice(context.Context) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["eth_gasPrice"]++
	if b.gasErr != nil {
		return nil, b.gasErr
	}
	return new(big.Int).Set(b.gasPrice), nil
}

func (b *Backend) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["eth_getTransactionReceipt"]++
	if b.receiptErr != nil {
		return nil, b.receiptErr
	}
	receipt, ok := b.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

// SeedGM registers a GM contract at addr with the given feed and stats.
func (b *Backend) SeedGM(addr common.Address, messages []Feed, total int64) {
	b.Deploy(addr)

	senders := make([]common.Address, len(messages))
	texts := make([]string, len(messages))
	timestamps := make([]*big.Int, len(messages))
	counts := make([]*big.Int, len(messages))
	for i, m := range messages {
		senders[i] = m.Sender
		texts[i] = m.Text
		timestamps[i] = new(big.Int).SetUint64(m.Timestamp)
		counts[i] = new(big.Int).SetUint64(m.Sequence)
	}

	b.SetCall(addr, contracts.GM, contracts.MethodGetRecentMessages, senders, texts, timestamps, counts)
	b.SetCall(addr, contracts.GM, contracts.MethodGetMessageCount, big.NewInt(total))
	b.SetCall(addr, contracts.GM, contracts.MethodTotalGMs, big.NewInt(total))
}

// SeedToken registers a TIP-20 token at addr reporting balance for every holder.
func (b *Backend) SeedToken(addr common.Address, balance *big.Int) {
	b.Deploy(addr)
	b.SetCall(addr, contracts.TIP20, contracts.MethodBalanceOf, balance)
}

type Feed struct {
	Sender    common.Address
	Text      string
	Timestamp uint64
	Sequence  uint64
}
