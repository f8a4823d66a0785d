package config

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	utilsconfig "github.com/quantumauth-io/quantum-go-utils/config"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/chains"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/constants"
)

const (
	WalletModeLocal = "local"
	WalletModeRPC   = "rpc"
	WalletModeNone  = "none"
)

type ClientSettings struct {
	LocalHost    string
	Port         string
	AllowOrigins []string
}

type ChainSettings struct {
	Network      chains.NetworkConfig
	PreferredRPC string
	DialTimeout  time.Duration
}

type Contracts struct {
	GM             string
	NativeToken    string
	SecondaryToken string
}

type Timing struct {
	GasPriceRefresh         time.Duration
	ReceiptPoll             time.Duration
	ReceiptTimeout          time.Duration
	PostConfirmPollAttempts int
	PostConfirmPollInterval time.Duration
	RecentMessages          uint64
}

type WalletSettings struct {
	Mode        string
	ProviderURL string
	KeyFile     string
	PasswordEnv string
}

type Reads struct {
	RequestsPerSecond float64
	Burst             int
}

type Config struct {
	ClientSettings *ClientSettings
	Chain          ChainSettings
	Contracts      Contracts
	Timing         Timing
	Wallet         WalletSettings
	Reads          Reads
}

// envOverrides are read from the process environment and an optional .env file.
type envOverrides struct {
	RPCURL            string `env:"GM_RPC_URL"`
	WalletMode        string `env:"GM_WALLET_MODE"`
	WalletProviderURL string `env:"GM_WALLET_PROVIDER_URL"`
	WalletKeyFile     string `env:"GM_WALLET_KEY_FILE"`
	HTTPPort          string `env:"GM_HTTP_PORT"`
	Contract          string `env:"GM_CONTRACT"`
}

// Load reads the embedded defaults, any config.yaml found on the search path,
// then environment overrides, and validates the result.
func Load() (*Config, error) {
	home, _ := os.UserHomeDir()
	paths := []string{
		filepath.Join(home, ".config", constants.AppName),
		".",
	}

	cfg, err := utilsconfig.ParseConfigWithEmbedded[Config](paths, EmbeddedConfigYAML)
	if err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) ApplyEnv() error {
	if _, statErr := os.Stat(".env"); statErr == nil {
		if err := godotenv.Load(); err != nil {
			log.Warn("ignoring unreadable .env file", "error", err)
		}
	}

	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return errors.Wrap(err, "parse environment")
	}
	c.applyOverrides(o)
	return nil
}

func (c *Config) applyOverrides(o envOverrides) {
	if c.ClientSettings == nil {
		c.ClientSettings = &ClientSettings{}
	}
	if o.RPCURL != "" {
		c.Chain.Network.RPCs = append([]chains.RPC{{Name: "env", URL: o.RPCURL}}, c.Chain.Network.RPCs...)
		c.Chain.PreferredRPC = "env"
	}
	if o.WalletMode != "" {
		c.Wallet.Mode = o.WalletMode
	}
	if o.WalletProviderURL != "" {
		c.Wallet.ProviderURL = o.WalletProviderURL
	}
	if o.WalletKeyFile != "" {
		c.Wallet.KeyFile = o.WalletKeyFile
	}
	if o.HTTPPort != "" {
		c.ClientSettings.Port = o.HTTPPort
	}
	if o.Contract != "" {
		c.Contracts.GM = o.Contract
	}
}

// Validate normalises the network and addresses and fills timing defaults.
func (c *Config) Validate() error {
	if c.ClientSettings == nil {
		c.ClientSettings = &ClientSettings{}
	}
	if c.ClientSettings.LocalHost == "" {
		c.ClientSettings.LocalHost = "127.0.0.1"
	}
	if c.ClientSettings.Port == "" {
		c.ClientSettings.Port = "6138"
	}

	if err := c.Chain.Network.Normalize(); err != nil {
		return err
	}

	var err error
	if c.Contracts.GM, err = canonicalAddress("Contracts.GM", c.Contracts.GM, constants.GMContract); err != nil {
		return err
	}
	if c.Contracts.NativeToken, err = canonicalAddress("Contracts.NativeToken", c.Contracts.NativeToken, constants.PathUSDAddress); err != nil {
		return err
	}
	if c.Contracts.SecondaryToken, err = canonicalAddress("Contracts.SecondaryToken", c.Contracts.SecondaryToken, constants.AlphaUSDAddress); err != nil {
		return err
	}

	c.Wallet.Mode = strings.ToLower(strings.TrimSpace(c.Wallet.Mode))
	switch c.Wallet.Mode {
	case "":
		c.Wallet.Mode = WalletModeLocal
	case WalletModeLocal, WalletModeNone:
	case WalletModeRPC:
		if strings.TrimSpace(c.Wallet.ProviderURL) == "" {
			return errors.New("Wallet.ProviderURL is required in rpc mode")
		}
	default:
		return errors.Newf("invalid Wallet.Mode %q (allowed: local, rpc, none)", c.Wallet.Mode)
	}
	if c.Wallet.PasswordEnv == "" {
		c.Wallet.PasswordEnv = "GM_WALLET_PASSWORD"
	}

	c.Timing.withDefaults()
	if c.Reads.RequestsPerSecond < 0 {
		return errors.New("Reads.RequestsPerSecond must not be negative")
	}
	return nil
}

func (t *Timing) withDefaults() {
	if t.GasPriceRefresh <= 0 {
		t.GasPriceRefresh = constants.GasPriceRefreshInterval
	}
	if t.ReceiptPoll <= 0 {
		t.ReceiptPoll = constants.ReceiptPollInterval
	}
	if t.ReceiptTimeout <= 0 {
		t.ReceiptTimeout = constants.ReceiptTimeout
	}
	if t.PostConfirmPollAttempts <= 0 {
		t.PostConfirmPollAttempts = constants.PostConfirmPollAttempts
	}
	if t.PostConfirmPollInterval <= 0 {
		t.PostConfirmPollInterval = constants.PostConfirmPollInterval
	}
	if t.RecentMessages == 0 {
		t.RecentMessages = constants.RecentMessagesCount
	}
}

func canonicalAddress(field, raw, def string) (string, error) {
	a := strings.TrimSpace(raw)
	if a == "" {
		a = def
	}
	if !strings.HasPrefix(a, "0x") && !strings.HasPrefix(a, "0X") {
		a = "0x" + a
	}
	if !common.IsHexAddress(a) {
		return "", errors.Newf("%s: invalid address %q", field, raw)
	}
	return common.HexToAddress(a).Hex(), nil
}

func (c *Config) GMContract() common.Address { return common.HexToAddress(c.Contracts.GM) }

func (c *Config) NativeToken() common.Address { return common.HexToAddress(c.Contracts.NativeToken) }

func (c *Config) SecondaryToken() common.Address {
	return common.HexToAddress(c.Contracts.SecondaryToken)
}

func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.ClientSettings.LocalHost, c.ClientSettings.Port)
}
