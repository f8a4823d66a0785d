// Package wallettest provides a scripted wallet.Provider for tests.
package wallettest

import (
	"context"
	"encoding/json"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/wallet"
)

// Provider behaves like a browser wallet that knows a set of chains. Errors
// set on it are returned from the matching method.
type Provider struct {
	mu sync.Mutex

	Accounts []string
	Known    map[string]bool
	Active   string

	SwitchErr   error
	AddErr      error
	AccountsErr error
	SendErr     error

	// OnSend, when set, decides the outcome of eth_sendTransaction.
	OnSend func(wallet.SendTxParams) (common.Hash, error)

	methods []string
	sent    []wallet.SendTxParams
	nonce   int64
}

func New(account common.Address, known ...string) *Provider {
	p := &Provider{
		Accounts: []string{account.Hex()},
		Known:    make(map[string]bool),
	}
	for _, id := range known {
		p.Known[id] = true
	}
	return p
}

func (p *Provider) Request(_ context.Context, method string, params []any, result any) error {
	p.mu.Lock()
	p.methods = append(p.methods, method)
	p.mu.Unlock()

	switch method {
	case wallet.MethodSwitchChain:
		var req wallet.SwitchChainParams
		decode(params, &req)

		p.mu.Lock()
		defer p.mu.Unlock()
		if p.SwitchErr != nil {
			return p.SwitchErr
		}
		if !p.Known[req.ChainID] {
			return wallet.NewProviderError(wallet.CodeUnrecognizedChain, "unrecognized chain %s", req.ChainID)
		}
		p.Active = req.ChainID
		return nil

	case wallet.MethodAddChain:
		var req wallet.AddChainParams
		decode(params, &req)

		p.mu.Lock()
		defer p.mu.Unlock()
		if p.AddErr != nil {
			return p.AddErr
		}
		p.Known[req.ChainID] = true
		p.Active = req.ChainID
		return nil

	case wallet.MethodRequestAccounts, wallet.MethodAccounts:
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.AccountsErr != nil {
			return p.AccountsErr
		}
		return set(result, p.Accounts)

	case wallet.MethodSendTransaction:
		var req wallet.SendTxParams
		decode(params, &req)

		p.mu.Lock()
		p.sent = append(p.sent, req)
		onSend, sendErr := p.OnSend, p.SendErr
		p.nonce++
		hash := common.BigToHash(big.NewInt(0xabc0 + p.nonce))
		p.mu.Unlock()

		if onSend != nil {
			h, err := onSend(req)
			if err != nil {
				return err
			}
			hash = h
		} else if sendErr != nil {
			return sendErr
		}
		return set(result, hash.Hex())

	default:
		return wallet.NewProviderError(wallet.CodeUnsupportedMethod, "unsupported %s", method)
	}
}

// Methods returns the methods called so far, in order.
func (p *Provider) Methods() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.methods...)
}

// Sent returns the transactions submitted so far.
func (p *Provider) Sent() []wallet.SendTxParams {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]wallet.SendTxParams(nil), p.sent...)
}

func decode(params []any, out any) {
	if len(params) == 0 {
		return
	}
	b, _ := json.Marshal(params[0])
	_ = json.Unmarshal(b, out)
}

func set(result any, v any) error {
	if result == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, result)
}
