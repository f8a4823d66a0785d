package constants

import "time"

const (
	AppName    = "tempo-gm-client"
	WalletFile = "wallet.json"

	SchemaV1      = 1
	FilePerm      = 0o600
	DirectoryPerm = 0o700

	// AAD const for the local signing wallet
	AADConstant = "tempo-gm-client:ethwallet:v1"

	DefaultMessage = "GM! from Web App"
)

// Observable timing of the client.
const (
	GasPriceRefreshInterval = 15 * time.Second
	PostConfirmPollAttempts = 5
	PostConfirmPollInterval = 1500 * time.Millisecond
	ReceiptPollInterval     = time.Second
	ReceiptTimeout          = 2 * time.Minute
	RecentMessagesCount     = 10
)

// Tempo testnet defaults.
const (
	TempoChainID       uint64 = 42431
	TempoChainName            = "Tempo Testnet"
	TempoRPCURL               = "https://rpc.moderato.tempo.xyz"
	TempoExplorerURL          = "https://explore.tempo.xyz"
	TempoCurrencyName         = "USD"
	TempoCurrencySymbol       = "USD"
	TempoCurrencyDecimals     = 18

	PathUSDAddress  = "0x20c0000000000000000000000000000000000000"
	AlphaUSDAddress = "0x20c0000000000000000000000000000000000001"
	GMContract      = "0xfBE3F1551e7E0aDC754d7Dd532F2c647EBf350D2"
)
