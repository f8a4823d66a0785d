package chains

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

var ErrInvalidNetwork = errors.New("invalid network config")

// NetworkConfig describes the target network and its RPC endpoints.
type NetworkConfig struct {
	Name           string         `json:"name" yaml:"name" mapstructure:"name"`
	ChainID        uint64         `json:"chainId" yaml:"chainId" mapstructure:"chainId"`
	ChainIDHex     string         `json:"chainIdHex" yaml:"chainIdHex" mapstructure:"chainIdHex"`
	NativeCurrency NativeCurrency `json:"nativeCurrency" yaml:"nativeCurrency" mapstructure:"nativeCurrency"`
	RPCs           []RPC          `json:"rpcs" yaml:"rpcs" mapstructure:"rpcs"`
	Explorer       string         `json:"explorer" yaml:"explorer" mapstructure:"explorer"`
}

type NativeCurrency struct {
	Name     string `json:"name" yaml:"name" mapstructure:"name"`
	Symbol   string `json:"symbol" yaml:"symbol" mapstructure:"symbol"`
	Decimals uint8  `json:"decimals" yaml:"decimals" mapstructure:"decimals"`
}

type RPC struct {
	Name string `json:"name" yaml:"name" mapstructure:"name"`
	URL  string `json:"url" yaml:"url" mapstructure:"url"`
	WSS  string `json:"wss" yaml:"wss" mapstructure:"wss"`
}

// Normalize fills ChainIDHex from ChainID (or the reverse) and trims user input.
func (n *NetworkConfig) Normalize() error {
	n.Name = strings.TrimSpace(n.Name)
	n.Explorer = strings.TrimRight(strings.TrimSpace(n.Explorer), "/")
	n.ChainIDHex = NormalizeChainIDHex(n.ChainIDHex)

	switch {
	case n.ChainID == 0 && n.ChainIDHex == "":
		return errors.Wrapf(ErrInvalidNetwork, "network %q: chainId is required", n.Name)
	case n.ChainID == 0:
		id, err := strconv.ParseUint(strings.TrimPrefix(n.ChainIDHex, "0x"), 16, 64)
		if err != nil {
			return errors.Wrapf(ErrInvalidNetwork, "network %q: invalid chainIdHex %q", n.Name, n.ChainIDHex)
		}
		n.ChainID = id
	case n.ChainIDHex == "":
		n.ChainIDHex = ChainIDToHex(n.ChainID)
	default:
		if ChainIDToHex(n.ChainID) != n.ChainIDHex {
			return errors.Wrapf(ErrInvalidNetwork, "network %q: chainId %d does not match chainIdHex %s", n.Name, n.ChainID, n.ChainIDHex)
		}
	}

	rpcs := make([]RPC, 0, len(n.RPCs))
	for _, r := range n.RPCs {
		r.Name = strings.TrimSpace(r.Name)
		r.URL = strings.TrimSpace(r.URL)
		r.WSS = strings.TrimSpace(r.WSS)
		if r.URL == "" {
			continue
		}
		rpcs = append(rpcs, r)
	}
	if len(rpcs) == 0 {
		return errors.Wrapf(ErrInvalidNetwork, "network %q has no RPCs configured", n.Name)
	}
	n.RPCs = rpcs

	if n.NativeCurrency.Decimals == 0 {
		n.NativeCurrency.Decimals = 18
	}
	return nil
}

// PrimaryRPC returns the first configured http endpoint.
func (n NetworkConfig) PrimaryRPC() string {
	if len(n.RPCs) == 0 {
		return ""
	}
	return n.RPCs[0].URL
}

// TxURL links a transaction hash to the block explorer.
func (n NetworkConfig) TxURL(hash string) string {
	if n.Explorer == "" {
		return ""
	}
	return n.Explorer + "/tx/" + hash
}

func ChainIDToHex(id uint64) string {
	return "0x" + strconv.FormatUint(id, 16)
}

func NormalizeChainIDHex(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	// drop leading zeros so 0x0a and 0xa compare equal
	trimmed := strings.TrimLeft(s[2:], "0")
	if trimmed == "" {
		trimmed = "0"
	}
	return "0x" + trimmed
}
