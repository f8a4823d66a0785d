// Package wallet holds the signing side of the client: the provider transport,
// the network guard and the connected session.
package wallet

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/chains"
)

// EIP-1193 provider error codes.
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnsupportedMethod = 4200
	CodeDisconnected      = 4900
	CodeUnrecognizedChain = 4902
)

const (
	MethodRequestAccounts = "eth_requestAccounts"
	MethodAccounts        = "eth_accounts"
	MethodChainID         = "eth_chainId"
	MethodSwitchChain     = "wallet_switchEthereumChain"
	MethodAddChain        = "wallet_addEthereumChain"
	MethodSendTransaction = "eth_sendTransaction"
)

// Provider is an EIP-1193 style signing transport. result, when non-nil, is a
// pointer the JSON result is decoded into.
type Provider interface {
	Request(ctx context.Context, method string, params []any, result any) error
}

type ProviderError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

func (e *ProviderError) ErrorCode() int { return e.Code }

func (e *ProviderError) ErrorData() any { return e.Data }

func NewProviderError(code int, format string, args ...any) *ProviderError {
	return &ProviderError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ProviderErrorCode extracts the provider code from err. Some mobile wallets
// wrap the real code in data.originalError.code; that one wins when present.
func ProviderErrorCode(err error) (int, bool) {
	var coded rpc.Error
	if !errors.As(err, &coded) {
		return 0, false
	}

	var withData rpc.DataError
	if errors.As(err, &withData) {
		if data, ok := withData.ErrorData().(map[string]any); ok {
			if orig, ok := data["originalError"].(map[string]any); ok {
				if code, ok := orig["code"].(float64); ok {
					return int(code), true
				}
			}
		}
	}
	return coded.ErrorCode(), true
}

func IsUserRejected(err error) bool {
	code, ok := ProviderErrorCode(err)
	return ok && code == CodeUserRejected
}

type SwitchChainParams struct {
	ChainID string `json:"chainId"`
}

type AddChainParams struct {
	ChainID           string                `json:"chainId"`
	ChainName         string                `json:"chainName"`
	RPCURLs           []string              `json:"rpcUrls"`
	NativeCurrency    chains.NativeCurrency `json:"nativeCurrency"`
	BlockExplorerURLs []string              `json:"blockExplorerUrls,omitempty"`
}

// AddChainParamsFor describes network the way wallet_addEthereumChain expects.
func AddChainParamsFor(network chains.NetworkConfig) AddChainParams {
	p := AddChainParams{
		ChainID:        network.ChainIDHex,
		ChainName:      network.Name,
		NativeCurrency: network.NativeCurrency,
	}
	if rpcURL := network.PrimaryRPC(); rpcURL != "" {
		p.RPCURLs = []string{rpcURL}
	}
	if network.Explorer != "" {
		p.BlockExplorerURLs = []string{network.Explorer}
	}
	return p
}

// Network converts the request back into a network config.
func (p AddChainParams) Network() (chains.NetworkConfig, error) {
	n := chains.NetworkConfig{
		Name:           p.ChainName,
		ChainIDHex:     p.ChainID,
		NativeCurrency: p.NativeCurrency,
	}
	for i, u := range p.RPCURLs {
		n.RPCs = append(n.RPCs, chains.RPC{Name: fmt.Sprintf("rpc-%d", i), URL: u})
	}
	if len(p.BlockExplorerURLs) > 0 {
		n.Explorer = p.BlockExplorerURLs[0]
	}
	if err := n.Normalize(); err != nil {
		return chains.NetworkConfig{}, err
	}
	return n, nil
}

type SendTxParams struct {
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to,omitempty"`
	Data  hexutil.Bytes   `json:"data,omitempty"`
	Value *hexutil.Big    `json:"value,omitempty"`
	Gas   *hexutil.Uint64 `json:"gas,omitempty"`
}
