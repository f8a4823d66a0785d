package wallet

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/chains"
)

var ErrNetwork = errors.New("wallet network switch failed")

// Guard makes sure the wallet is on the target network before signing.
type Guard struct {
	network chains.NetworkConfig
}

func NewGuard(network chains.NetworkConfig) *Guard {
	return &Guard{network: network}
}

func (g *Guard) Network() chains.NetworkConfig { return g.network }

// EnsureNetwork asks the wallet to switch to the target chain. When the wallet
// does not know the chain it is asked to add it instead. Nothing is retried.
func (g *Guard) EnsureNetwork(ctx context.Context, p Provider) error {
	if p == nil {
		return errors.Mark(ErrNoTransport, ErrNetwork)
	}

	chainID := g.network.ChainIDHex
	err := p.Request(ctx, MethodSwitchChain, []any{SwitchChainParams{ChainID: chainID}}, nil)
	if err == nil {
		return nil
	}

	code, ok := ProviderErrorCode(err)
	if !ok || code != CodeUnrecognizedChain {
		return errors.Mark(errors.Wrapf(err, "switch wallet to chain %s", chainID), ErrNetwork)
	}

	log.Info("wallet does not know the target chain; requesting add", "chain_id", chainID, "name", g.network.Name)

	if err := p.Request(ctx, MethodAddChain, []any{AddChainParamsFor(g.network)}, nil); err != nil {
		return errors.Mark(errors.Wrapf(err, "add chain %s to wallet", chainID), ErrNetwork)
	}
	return nil
}
