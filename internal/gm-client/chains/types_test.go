package chains

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempo() NetworkConfig {
	return NetworkConfig{
		Name:           " Tempo Testnet ",
		ChainID:        42431,
		NativeCurrency: NativeCurrency{Name: "USD", Symbol: "USD", Decimals: 18},
		RPCs:           []RPC{{Name: "default", URL: " https://rpc.moderato.tempo.xyz "}},
		Explorer:       "https://explore.tempo.xyz/",
	}
}

func TestNormalize_FillsHexFromID(t *testing.T) {
	n := tempo()
	require.NoError(t, n.Normalize())

	assert.Equal(t, "Tempo Testnet", n.Name)
	assert.Equal(t, "0xa5bf", n.ChainIDHex)
	assert.Equal(t, "https://rpc.moderato.tempo.xyz", n.PrimaryRPC())
	assert.Equal(t, "https://explore.tempo.xyz", n.Explorer)
}

func TestNormalize_FillsIDFromHex(t *testing.T) {
	n := tempo()
	n.ChainID = 0
	n.ChainIDHex = "0xA5BF"
	require.NoError(t, n.Normalize())
	assert.Equal(t, uint64(42431), n.ChainID)
}

func TestNormalize_Rejects(t *testing.T) {
	mismatch := tempo()
	mismatch.ChainIDHex = "0x1"
	require.ErrorIs(t, mismatch.Normalize(), ErrInvalidNetwork)

	noRPC := tempo()
	noRPC.RPCs = []RPC{{Name: "empty"}}
	require.ErrorIs(t, noRPC.Normalize(), ErrInvalidNetwork)

	noID := tempo()
	noID.ChainID = 0
	require.ErrorIs(t, noID.Normalize(), ErrInvalidNetwork)

	badHex := tempo()
	badHex.ChainID = 0
	badHex.ChainIDHex = "0xzz"
	require.ErrorIs(t, badHex.Normalize(), ErrInvalidNetwork)
}

func TestTxURL(t *testing.T) {
	n := tempo()
	require.NoError(t, n.Normalize())
	assert.Equal(t, "https://explore.tempo.xyz/tx/0xabc", n.TxURL("0xabc"))

	n.Explorer = ""
	assert.Empty(t, n.TxURL("0xabc"))
}

func TestSelectRPC_PrefersNamed(t *testing.T) {
	n := tempo()
	n.RPCs = append(n.RPCs, RPC{Name: "Backup", URL: "https://backup.example"})
	require.NoError(t, n.Normalize())

	assert.Equal(t, "https://backup.example", selectRPC(n, "backup").URL)
	assert.Equal(t, "https://rpc.moderato.tempo.xyz", selectRPC(n, "missing").URL)
	assert.Equal(t, "https://rpc.moderato.tempo.xyz", selectRPC(n, "").URL)
}
