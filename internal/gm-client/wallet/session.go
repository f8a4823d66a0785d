package wallet

import (
	"context"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

var (
	ErrConnect     = errors.New("wallet connect failed")
	ErrNoTransport = errors.New("no transport")
)

type Account struct {
	Address common.Address `json:"address"`
}

// Session is the single connected account of the client. A nil provider means
// no wallet transport is available.
type Session struct {
	provider Provider
	guard    *Guard
	account  atomic.Pointer[Account]
}

func NewSession(provider Provider, guard *Guard) *Session {
	return &Session{provider: provider, guard: guard}
}

// Connect runs the network guard, requests accounts and keeps the first one.
// Reconnecting replaces the account; a failed connect leaves the previous one.
func (s *Session) Connect(ctx context.Context) (Account, error) {
	if s.provider == nil {
		return Account{}, errors.Mark(ErrNoTransport, ErrConnect)
	}

	if err := s.guard.EnsureNetwork(ctx, s.provider); err != nil {
		return Account{}, errors.Mark(err, ErrConnect)
	}

	var raw []string
	if err := s.provider.Request(ctx, MethodRequestAccounts, nil, &raw); err != nil {
		return Account{}, errors.Mark(errors.Wrap(err, "request accounts"), ErrConnect)
	}

	addrs, err := ParseAccounts(raw)
	if err != nil {
		return Account{}, errors.Mark(err, ErrConnect)
	}
	if len(addrs) == 0 {
		return Account{}, errors.Mark(errors.New("wallet returned no accounts"), ErrConnect)
	}

	acct := Account{Address: addrs[0]}
	s.account.Store(&acct)
	log.Info("wallet connected", "address", acct.Address.Hex(), "chain_id", s.guard.Network().ChainIDHex)
	return acct, nil
}

// Account returns the connected account, if any.
func (s *Session) Account() (Account, bool) {
	acct := s.account.Load()
	if acct == nil {
		return Account{}, false
	}
	return *acct, true
}

func (s *Session) Provider() Provider { return s.provider }

func (s *Session) Guard() *Guard { return s.guard }
