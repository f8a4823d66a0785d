package wallet_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/wallet"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/wallet/wallettest"
)

func TestConnect_NoTransport(t *testing.T) {
	s := wallet.NewSession(nil, wallet.NewGuard(tempoNetwork(t)))

	_, err := s.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, wallet.ErrConnect))
	assert.True(t, errors.Is(err, wallet.ErrNoTransport))

	_, ok := s.Account()
	assert.False(t, ok)
}

func TestConnect_SwitchesThenTakesFirstAccount(t *testing.T) {
	p := wallettest.New(userAddr, "0xa5bf")
	p.Accounts = append(p.Accounts, "0x2222222222222222222222222222222222222222")
	s := wallet.NewSession(p, wallet.NewGuard(tempoNetwork(t)))

	acct, err := s.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, userAddr, acct.Address)

	got, ok := s.Account()
	require.True(t, ok)
	assert.Equal(t, userAddr, got.Address)
	assert.Equal(t, []string{wallet.MethodSwitchChain, wallet.MethodRequestAccounts}, p.Methods())
}

func TestConnect_NetworkFailure(t *testing.T) {
	p := wallettest.New(userAddr)
	p.AddErr = errors.New("add refused")
	s := wallet.NewSession(p, wallet.NewGuard(tempoNetwork(t)))

	_, err := s.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, wallet.ErrNetwork))
	assert.True(t, errors.Is(err, wallet.ErrConnect))

	_, ok := s.Account()
	assert.False(t, ok)
	assert.NotContains(t, p.Methods(), wallet.MethodRequestAccounts)
}

func TestConnect_UserRejectsAccounts(t *testing.T) {
	p := wallettest.New(userAddr, "0xa5bf")
	p.AccountsErr = wallet.NewProviderError(wallet.CodeUserRejected, "User rejected the request.")
	s := wallet.NewSession(p, wallet.NewGuard(tempoNetwork(t)))

	_, err := s.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, wallet.ErrConnect))
	assert.True(t, wallet.IsUserRejected(err))
}

func TestConnect_EmptyOrInvalidAccounts(t *testing.T) {
	p := wallettest.New(userAddr, "0xa5bf")
	p.Accounts = nil
	s := wallet.NewSession(p, wallet.NewGuard(tempoNetwork(t)))

	_, err := s.Connect(context.Background())
	assert.True(t, errors.Is(err, wallet.ErrConnect))

	p.Accounts = []string{"not-an-address"}
	_, err = s.Connect(context.Background())
	assert.True(t, errors.Is(err, wallet.ErrConnect))
}

func TestConnect_ReconnectReplacesAccount(t *testing.T) {
	p := wallettest.New(userAddr, "0xa5bf")
	s := wallet.NewSession(p, wallet.NewGuard(tempoNetwork(t)))

	_, err := s.Connect(context.Background())
	require.NoError(t, err)

	other := common.HexToAddress("0x3333333333333333333333333333333333333333")
	p.Accounts = []string{other.Hex()}
	acct, err := s.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, other, acct.Address)

	cur, ok := s.Account()
	require.True(t, ok)
	assert.Equal(t, other, cur.Address)
}
