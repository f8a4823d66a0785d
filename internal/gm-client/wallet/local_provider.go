package wallet

import (
	"context"
	"encoding/json"
	"math/big"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/chains"
)

// Signer is the key behind a LocalProvider.
type Signer interface {
	Address() common.Address
	SignHash(ctx context.Context, digest []byte) ([]byte, error)
}

// TxBackend is what the local wallet needs from a chain endpoint to send.
type TxBackend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

type Dialer func(ctx context.Context, rpcURL string) (TxBackend, error)

// ApproveFunc decides whether the user accepts a signing request.
type ApproveFunc func(ctx context.Context, method string, tx SendTxParams) bool

func dialEthclient(ctx context.Context, rpcURL string) (TxBackend, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return client, nil
}

type LocalOption func(*LocalProvider)

func WithDialer(d Dialer) LocalOption {
	return func(p *LocalProvider) { p.dial = d }
}

func WithApproval(f ApproveFunc) LocalOption {
	return func(p *LocalProvider) { p.approve = f }
}

// LocalProvider is an in-process wallet. It keeps its own registry of known
// networks keyed by hex chain id, and signs with a single local key.
type LocalProvider struct {
	signer  Signer
	dial    Dialer
	approve ApproveFunc

	mu       sync.Mutex
	networks map[string]chains.NetworkConfig
	active   string
	backends map[string]TxBackend
	retired  []TxBackend
	closed   bool

	// sendMu serializes dial, nonce assignment and broadcast so concurrent
	// sends never share a nonce. nextNonce is keyed by hex chain id.
	sendMu    sync.Mutex
	nextNonce map[string]uint64
}

// NewLocalProvider starts on initial, which becomes the only known network.
func NewLocalProvider(signer Signer, initial chains.NetworkConfig, opts ...LocalOption) (*LocalProvider, error) {
	if signer == nil {
		return nil, errors.New("local wallet: signer is nil")
	}
	if err := initial.Normalize(); err != nil {
		return nil, errors.Wrap(err, "local wallet: initial network")
	}

	p := &LocalProvider{
		signer:    signer,
		dial:      dialEthclient,
		networks:  map[string]chains.NetworkConfig{initial.ChainIDHex: initial},
		active:    initial.ChainIDHex,
		backends:  make(map[string]TxBackend),
		nextNonce: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *LocalProvider) Request(ctx context.Context, method string, params []any, result any) error {
	switch method {
	case MethodRequestAccounts, MethodAccounts:
		return setResult(result, []string{p.signer.Address().Hex()})

	case MethodChainID:
		p.mu.Lock()
		active := p.active
		p.mu.Unlock()
		return setResult(result, active)

	case MethodSwitchChain:
		var req SwitchChainParams
		if err := firstParam(params, &req); err != nil {
			return err
		}
		if err := p.switchTo(chains.NormalizeChainIDHex(req.ChainID)); err != nil {
			return err
		}
		return setResult(result, nil)

	case MethodAddChain:
		var req AddChainParams
		if err := firstParam(params, &req); err != nil {
			return err
		}
		network, err := req.Network()
		if err != nil {
			return &ProviderError{Code: -32602, Message: err.Error()}
		}
		p.upsert(network)
		if err := p.switchTo(network.ChainIDHex); err != nil {
			return err
		}
		return setResult(result, nil)

	case MethodSendTransaction:
		var req SendTxParams
		if err := firstParam(params, &req); err != nil {
			return err
		}
		hash, err := p.sendTransaction(ctx, req)
		if err != nil {
			return err
		}
		return setResult(result, hash.Hex())

	default:
		return NewProviderError(CodeUnsupportedMethod, "method %s is not supported", method)
	}
}

// Networks returns the known chain ids.
func (p *LocalProvider) Networks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.networks))
	for id := range p.networks {
		out = append(out, id)
	}
	return out
}

func (p *LocalProvider) ActiveChainID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

func (p *LocalProvider) switchTo(chainIDHex string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.networks[chainIDHex]; !ok {
		return NewProviderError(CodeUnrecognizedChain, "Unrecognized chain ID %q. Try adding the chain using wallet_addEthereumChain first.", chainIDHex)
	}
	if p.active != chainIDHex {
		log.Info("local wallet switched network", "chain_id", chainIDHex)
	}
	p.active = chainIDHex
	return nil
}

// upsert adds or replaces a network; a replaced network drops its cached backend.
func (p *LocalProvider) upsert(network chains.NetworkConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if prev, ok := p.networks[network.ChainIDHex]; ok && prev.PrimaryRPC() != network.PrimaryRPC() {
		if backend, ok := p.backends[network.ChainIDHex]; ok {
			p.retired = append(p.retired, backend)
			delete(p.backends, network.ChainIDHex)
		}
		delete(p.nextNonce, network.ChainIDHex)
	}
	p.networks[network.ChainIDHex] = network
	log.Info("local wallet registered network", "name", network.Name, "chain_id", network.ChainIDHex)
}

// activeBackend must be called with sendMu held, so a backend is dialed at
// most once per network.
func (p *LocalProvider) activeBackend(ctx context.Context) (chains.NetworkConfig, TxBackend, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return chains.NetworkConfig{}, nil, NewProviderError(CodeDisconnected, "local wallet is closed")
	}
	network := p.networks[p.active]
	backend, ok := p.backends[network.ChainIDHex]
	p.mu.Unlock()
	if ok {
		return network, backend, nil
	}

	backend, err := p.dial(ctx, network.PrimaryRPC())
	if err != nil {
		return network, nil, NewProviderError(CodeDisconnected, "dial %s: %v", network.PrimaryRPC(), err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		closeBackend(backend)
		return network, nil, NewProviderError(CodeDisconnected, "local wallet is closed")
	}
	p.backends[network.ChainIDHex] = backend
	return network, backend, nil
}

// nonceFor returns the higher of the node's pending nonce and the next nonce
// this wallet has handed out, so a lagging node cannot cause reuse.
func (p *LocalProvider) nonceFor(ctx context.Context, backend TxBackend, chainIDHex string, from common.Address) (uint64, error) {
	pending, err := backend.PendingNonceAt(ctx, from)
	if err != nil {
		return 0, errors.Wrap(err, "nonce")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if next := p.nextNonce[chainIDHex]; next > pending {
		return next, nil
	}
	return pending, nil
}

func (p *LocalProvider) markSent(chainIDHex string, nonce uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextNonce[chainIDHex] = nonce + 1
}

// Close releases every dialed backend. Later sends fail as disconnected.
func (p *LocalProvider) Close() {
	p.mu.Lock()
	backends := p.retired
	for _, b := range p.backends {
		backends = append(backends, b)
	}
	p.backends = make(map[string]TxBackend)
	p.retired = nil
	p.closed = true
	p.mu.Unlock()

	for _, b := range backends {
		closeBackend(b)
	}
}

func closeBackend(b TxBackend) {
	if c, ok := b.(interface{ Close() }); ok {
		c.Close()
	}
}

func (p *LocalProvider) sendTransaction(ctx context.Context, req SendTxParams) (common.Hash, error) {
	from := p.signer.Address()
	if req.From != from {
		return common.Hash{}, NewProviderError(CodeUnauthorized, "account %s is not managed by this wallet", req.From.Hex())
	}
	if p.approve != nil && !p.approve(ctx, MethodSendTransaction, req) {
		return common.Hash{}, NewProviderError(CodeUserRejected, "User rejected the request.")
	}

	p.sendMu.Lock()
	defer p.sendMu.Unlock()

	network, backend, err := p.activeBackend(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	chainID := new(big.Int).SetUint64(network.ChainID)

	nonce, err := p.nonceFor(ctx, backend, network.ChainIDHex, from)
	if err != nil {
		return common.Hash{}, err
	}

	value := big.NewInt(0)
	if req.Value != nil {
		value = req.Value.ToInt()
	}

	var gasLimit uint64
	if req.Gas != nil {
		gasLimit = uint64(*req.Gas)
	} else {
		gasLimit = estimateGasLimit(ctx, backend, from, req.To, value, req.Data)
	}

	tx, err := buildTx(ctx, backend, chainID, nonce, gasLimit, req.To, value, req.Data)
	if err != nil {
		return common.Hash{}, err
	}

	signer := types.LatestSignerForChainID(chainID)
	sig, err := p.signer.SignHash(ctx, signer.Hash(tx).Bytes())
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "sign")
	}
	signed, err := tx.WithSignature(signer, sig)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "with signature")
	}

	if err := backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, errors.Wrap(err, "send raw transaction")
	}
	p.markSent(network.ChainIDHex, nonce)

	log.Info("local wallet broadcast transaction",
		"hash", signed.Hash().Hex(),
		"chain_id", network.ChainIDHex,
		"nonce", nonce,
		"type", signed.Type(),
	)
	return signed.Hash(), nil
}

func estimateGasLimit(ctx context.Context, backend TxBackend, from common.Address, to *common.Address, value *big.Int, data []byte) uint64 {
	est, err := backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: to, Value: value, Data: data})
	if err != nil {
		log.Warn("gas estimate failed; using fallback", "error", err)
		if to == nil {
			return 1_500_000
		}
		return 250_000
	}

	est += est / 10
	if est < 21_000 {
		est = 21_000
	}
	return est
}

// buildTx prefers a dynamic fee tx and falls back to legacy when the chain
// reports no base fee.
func buildTx(ctx context.Context, backend TxBackend, chainID *big.Int, nonce, gas uint64, to *common.Address, value *big.Int, data []byte) (*types.Transaction, error) {
	head, err := backend.HeaderByNumber(ctx, nil)
	if err == nil && head != nil && head.BaseFee != nil {
		tip, err := backend.SuggestGasTipCap(ctx)
		if err != nil {
			tip = big.NewInt(1_000_000_000)
		}
		feeCap := new(big.Int).Mul(head.BaseFee, big.NewInt(2))
		feeCap.Add(feeCap, tip)

		return types.NewTx(&types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: feeCap,
			Gas:       gas,
			To:        to,
			Value:     value,
			Data:      data,
		}), nil
	}

	gasPrice, err := backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "gas price")
	}
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       to,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	}), nil
}

// firstParam decodes params[0] into out through JSON, so callers may pass
// either typed structs or generic maps.
func firstParam(params []any, out any) error {
	if len(params) == 0 {
		return &ProviderError{Code: -32602, Message: "missing params"}
	}
	b, err := json.Marshal(params[0])
	if err != nil {
		return &ProviderError{Code: -32602, Message: err.Error()}
	}
	if err := json.Unmarshal(b, out); err != nil {
		return &ProviderError{Code: -32602, Message: err.Error()}
	}
	return nil
}

func setResult(result any, v any) error {
	if result == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encode result")
	}
	return errors.Wrap(json.Unmarshal(b, result), "decode result")
}

// ParseAccounts validates the eth_requestAccounts result.
func ParseAccounts(raw []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if !common.IsHexAddress(s) {
			return nil, errors.Newf("invalid account address %q", s)
		}
		out = append(out, common.HexToAddress(s))
	}
	return out, nil
}
