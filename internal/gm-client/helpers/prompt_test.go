package helpers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	require.NoError(t, ValidatePassword([]byte("s3cret!pass")))
	require.Error(t, ValidatePassword([]byte("short")))
	require.Error(t, ValidatePassword([]byte("has a space")))
	require.Error(t, ValidatePassword([]byte("tab\tinside!")))
}

func TestPasswordFromEnv(t *testing.T) {
	t.Setenv("GM_TEST_PASSWORD", "from-env-pass")

	pw, err := PasswordFromEnvOrPrompt("GM_TEST_PASSWORD", "unused: ")
	require.NoError(t, err)
	assert.Equal(t, "from-env-pass", string(pw))

	t.Setenv("GM_TEST_PASSWORD", "tiny")
	_, err = PasswordFromEnvOrPrompt("GM_TEST_PASSWORD", "unused: ")
	require.Error(t, err)
}

func TestPromptLineWithDefault(t *testing.T) {
	assert.Equal(t, "typed", PromptLineWithDefault(strings.NewReader("typed\n"), "Message", "GM"))
	assert.Equal(t, "GM", PromptLineWithDefault(strings.NewReader("\n"), "Message", "GM"))
	assert.Equal(t, "last", PromptLineWithDefault(strings.NewReader("last"), "Message", "GM"))
}

func TestZeroBytes(t *testing.T) {
	b := []byte("secret")
	ZeroBytes(b)
	assert.Equal(t, make([]byte, 6), b)
}
