package chains

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/quantumauth-io/quantum-go-utils/retry"
)

var ErrChainMismatch = errors.New("rpc endpoint serves a different chain")

type ChainConfig struct {
	Network          NetworkConfig
	PreferredRPCName string
	DialTimeout      time.Duration
}

// ChainService owns the read-only client for the single target chain.
type ChainService struct {
	cfg    ChainConfig
	rpc    RPC
	mu     sync.Mutex
	client *ethclient.Client
}

func NewChainService(ctx context.Context, cfg ChainConfig) (*ChainService, error) {
	if err := cfg.Network.Normalize(); err != nil {
		return nil, err
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 30 * time.Second
	}

	service := &ChainService{
		cfg: cfg,
		rpc: selectRPC(cfg.Network, cfg.PreferredRPCName),
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	retryCfg := retry.DefaultConfig()
	retryCfg.InitialDelayBeforeRetrying = 250 * time.Millisecond
	retryCfg.MaxDelayBeforeRetrying = 5 * time.Second

	_, err := retry.Retry(dialCtx, retryCfg,
		func(ctx context.Context) ([]interface{}, error) {
			return nil, service.dialAndVerify(ctx)
		},
		nil, // always retry
		"dial chain rpc")
	if err != nil {
		return nil, errors.Wrapf(err, "connect to %s at %s", cfg.Network.Name, service.rpc.URL)
	}

	log.Info("chain client ready",
		"network", cfg.Network.Name,
		"chain_id", cfg.Network.ChainID,
		"rpc", service.rpc.Name,
	)
	return service, nil
}

func (s *ChainService) dialAndVerify(ctx context.Context) error {
	client, err := ethclient.DialContext(ctx, s.rpc.URL)
	if err != nil {
		return errors.Wrapf(err, "dial %q", s.rpc.URL)
	}

	id, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return errors.Wrap(err, "eth_chainId")
	}
	if id.Uint64() != s.cfg.Network.ChainID {
		client.Close()
		return errors.Wrapf(ErrChainMismatch, "want %d, got %s", s.cfg.Network.ChainID, id.String())
	}

	s.mu.Lock()
	if s.client != nil {
		s.client.Close()
	}
	s.client = client
	s.mu.Unlock()
	return nil
}

// HTTP returns the dialed client.
func (s *ChainService) HTTP() (*ethclient.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil, errors.New("no active http client")
	}
	return s.client, nil
}

// Network returns the normalized target network.
func (s *ChainService) Network() NetworkConfig { return s.cfg.Network }

// Close closes the cached client (call on shutdown).
func (s *ChainService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		s.client.Close()
		s.client = nil
	}
	return nil
}

// pick RPC by preferred name; otherwise first
func selectRPC(network NetworkConfig, preferred string) RPC {
	if preferred = strings.TrimSpace(preferred); preferred != "" {
		for _, r := range network.RPCs {
			if strings.EqualFold(r.Name, preferred) {
				return r
			}
		}
	}
	return network.RPCs[0]
}
