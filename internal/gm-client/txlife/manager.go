// Package txlife drives a sendGM write from submission to a terminal status.
package txlife

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/sourcegraph/conc"

	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/constants"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/contracts"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/history"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/status"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/wallet"
)

var (
	ErrSubmit       = errors.New("transaction submit failed")
	ErrNotConnected = errors.New("wallet not connected")
)

type ReceiptWaiter interface {
	WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// Refresher reloads the displayed chain state after a confirmation.
type Refresher interface {
	RefreshSnapshot(ctx context.Context)
}

type Config struct {
	Contract       common.Address
	ReceiptTimeout time.Duration
	PollAttempts   int
	PollInterval   time.Duration
	// TxURL links a hash to the explorer; optional.
	TxURL func(hash string) string
	Clock Clock
}

type Manager struct {
	session   *wallet.Session
	receipts  ReceiptWaiter
	refresher Refresher
	history   *history.Store
	status    *status.Reporter
	cfg       Config

	base   context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup
}

func NewManager(session *wallet.Session, receipts ReceiptWaiter, refresher Refresher, store *history.Store, reporter *status.Reporter, cfg Config) *Manager {
	if cfg.ReceiptTimeout <= 0 {
		cfg.ReceiptTimeout = constants.ReceiptTimeout
	}
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = constants.PostConfirmPollAttempts
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = constants.PostConfirmPollInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}

	base, cancel := context.WithCancel(context.Background())
	return &Manager{
		session:   session,
		receipts:  receipts,
		refresher: refresher,
		history:   store,
		status:    reporter,
		cfg:       cfg,
		base:      base,
		cancel:    cancel,
	}
}

// Send submits sendGM(message) through the connected wallet. The pending record
// is in the history store before Send returns; confirmation and the follow-up
// refreshes continue in the background, detached from ctx.
func (m *Manager) Send(ctx context.Context, message string) (history.Record, error) {
	acct, ok := m.session.Account()
	if !ok {
		m.status.Error(status.MsgNotConnected, nil)
		return history.Record{}, errors.Mark(ErrNotConnected, ErrSubmit)
	}
	provider := m.session.Provider()

	m.status.Loading(status.MsgBroadcasting)

	if err := m.session.Guard().EnsureNetwork(ctx, provider); err != nil {
		m.status.Error(status.MsgTxFailed, err)
		return history.Record{}, err
	}

	data, err := contracts.PackSendGM(message)
	if err != nil {
		m.status.Error(status.MsgTxFailed, err)
		return history.Record{}, errors.Mark(err, ErrSubmit)
	}

	var hashHex string
	req := wallet.SendTxParams{From: acct.Address, To: &m.cfg.Contract, Data: data}
	if err := provider.Request(ctx, wallet.MethodSendTransaction, []any{req}, &hashHex); err != nil {
		m.status.Error(status.MsgTxFailed, err)
		return history.Record{}, errors.Mark(errors.Wrap(err, "sendGM"), ErrSubmit)
	}

	hash, err := parseHash(hashHex)
	if err != nil {
		m.status.Error(status.MsgTxFailed, err)
		return history.Record{}, errors.Mark(err, ErrSubmit)
	}

	rec := history.Record{
		Hash:        hash,
		SubmittedAt: m.cfg.Clock.Now(),
		Status:      history.StatusPending,
		Message:     message,
	}
	if m.cfg.TxURL != nil {
		rec.ExplorerURL = m.cfg.TxURL(hash.Hex())
	}
	if err := m.history.Append(rec); err != nil {
		m.status.Error(status.MsgTxFailed, err)
		return history.Record{}, errors.Mark(err, ErrSubmit)
	}
	log.Info("transaction submitted", "hash", hash.Hex(), "from", acct.Address.Hex())

	m.status.Loading(status.MsgFinalizing)
	m.wg.Go(func() { m.await(rec) })
	return rec, nil
}

func (m *Manager) await(rec history.Record) {
	ctx, cancel := context.WithTimeout(m.base, m.cfg.ReceiptTimeout)
	receipt, err := m.receipts.WaitForReceipt(ctx, rec.Hash)
	cancel()

	if err != nil {
		log.Warn("transaction failed", "hash", rec.Hash.Hex(), "error", err)
		if _, uerr := m.history.UpdateStatus(rec.Hash, history.StatusFailed); uerr != nil {
			log.Error("history update failed", "hash", rec.Hash.Hex(), "error", uerr)
		}
		m.status.Error(status.MsgTxFailed, err)
		return
	}

	if _, err := m.history.UpdateStatus(rec.Hash, history.StatusSuccess); err != nil {
		log.Error("history update failed", "hash", rec.Hash.Hex(), "error", err)
		m.status.Error(status.MsgTxFailed, err)
		return
	}
	if receipt != nil {
		log.Info("transaction confirmed", "hash", rec.Hash.Hex(), "block", receipt.BlockNumber, "gas_used", receipt.GasUsed)
	}
	m.status.Success(status.MsgSent, rec.ExplorerURL)

	m.poll(rec.Hash)
}

// poll runs a fixed number of refreshes spaced by the poll interval. It is not
// extended or retried.
func (m *Manager) poll(hash common.Hash) {
	for attempt := 1; attempt <= m.cfg.PollAttempts; attempt++ {
		select {
		case <-m.base.Done():
			return
		case <-m.cfg.Clock.After(m.cfg.PollInterval):
		}
		log.Info("post-confirmation refresh", "hash", hash.Hex(), "attempt", attempt, "of", m.cfg.PollAttempts)
		m.refresher.RefreshSnapshot(m.base)
	}
}

// Wait blocks until every background lifecycle has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close stops pending receipt waits and polls, then waits for them to exit.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}

func parseHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(strings.TrimSpace(s))
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, errors.Newf("wallet returned invalid transaction hash %q", s)
	}
	hash := common.BytesToHash(b)
	if hash == (common.Hash{}) {
		return common.Hash{}, errors.New("wallet returned an empty transaction hash")
	}
	return hash, nil
}
