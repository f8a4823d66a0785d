package securefile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type secret struct {
	Key string `json:"key"`
}

var fastKDF = Options{
	KDF: KDFParams{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32},
	AAD: []byte("test:v1"),
}

func TestEncryptedJSON_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "wallet.json")

	require.NoError(t, WriteEncryptedJSON(path, secret{Key: "abc"}, []byte("correct horse"), fastKDF))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := ReadEncryptedJSON[secret](path, []byte("correct horse"), fastKDF)
	require.NoError(t, err)
	assert.Equal(t, "abc", got.Key)
}

func TestEncryptedJSON_WrongPasswordOrAAD(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.json")
	require.NoError(t, WriteEncryptedJSON(path, secret{Key: "abc"}, []byte("correct horse"), fastKDF))

	_, err := ReadEncryptedJSON[secret](path, []byte("wrong horse"), fastKDF)
	assert.ErrorIs(t, err, ErrInvalidPasswordOrCorrupt)

	otherAAD := fastKDF
	otherAAD.AAD = []byte("other:v1")
	_, err = ReadEncryptedJSON[secret](path, []byte("correct horse"), otherAAD)
	assert.ErrorIs(t, err, ErrInvalidPasswordOrCorrupt)
}

func TestReadEncryptedJSON_Missing(t *testing.T) {
	_, err := ReadEncryptedJSON[secret](filepath.Join(t.TempDir(), "nope.json"), []byte("pw"), fastKDF)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestWriteEncryptedJSON_RejectsEmptyPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.json")
	require.Error(t, WriteEncryptedJSON(path, secret{}, nil, fastKDF))
	require.Error(t, WriteEncryptedJSON(path, secret{}, make([]byte, 8), fastKDF))
}

func TestConfigPathCandidates(t *testing.T) {
	t.Setenv("SNAP_REAL_HOME", "")
	t.Setenv("HOME", "/home/gm")
	t.Setenv("GM_ENV", "local")

	paths, err := ConfigPathCandidates("tempo-gm-client", "wallet.json")
	require.NoError(t, err)
	require.NotEmpty(t, paths)
	assert.Equal(t, "/home/gm/.config/tempo-gm-client/local/wallet.json", paths[0])

	t.Setenv("GM_ENV", "staging")
	_, err = ConfigPathCandidates("tempo-gm-client", "wallet.json")
	require.Error(t, err)
}
