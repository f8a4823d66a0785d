// Package controller is the entry point the outer surfaces call: it connects
// the wallet, keeps the snapshot current and submits GM writes, reporting each
// outcome on the status line.
package controller

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/chains"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/constants"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/history"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/snapshot"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/status"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/txlife"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/wallet"
)

type Config struct {
	Receipts txlife.ReceiptWaiter
	Tx       txlife.Config
}

type Controller struct {
	session   *wallet.Session
	snapshots *snapshot.Aggregator
	history   *history.Store
	status    *status.Reporter
	tx        *txlife.Manager
}

func New(session *wallet.Session, snapshots *snapshot.Aggregator, store *history.Store, reporter *status.Reporter, cfg Config) *Controller {
	c := &Controller{
		session:   session,
		snapshots: snapshots,
		history:   store,
		status:    reporter,
	}
	c.tx = txlife.NewManager(session, cfg.Receipts, c, store, reporter, cfg.Tx)
	return c
}

// Connect attaches the wallet account and loads its first snapshot.
func (c *Controller) Connect(ctx context.Context) (wallet.Account, error) {
	acct, err := c.session.Connect(ctx)
	if err != nil {
		if errors.Is(err, wallet.ErrNoTransport) {
			c.status.Error(status.MsgNoWallet, err)
		} else {
			c.status.Error(status.MsgConnectFailed, err)
		}
		return wallet.Account{}, err
	}

	c.status.Success(status.MsgOnline, "")
	c.Refresh(ctx)
	return acct, nil
}

// Refresh reloads the snapshot and reports the sync outcome. It does nothing
// while no wallet is connected.
func (c *Controller) Refresh(ctx context.Context) (snapshot.Snapshot, bool) {
	snap, ok := c.snapshots.Refresh(ctx, c.session)
	if !ok {
		return snap, false
	}

	if snap.Unreachable() {
		reason := "no chain data available"
		if ctx.Err() != nil {
			reason = ctx.Err().Error()
		}
		c.status.Error(fmt.Sprintf(status.MsgSyncFailedFmt, reason), nil)
		return snap, true
	}

	if len(snap.Unavailable) > 0 {
		log.Warn("snapshot incomplete", "generation", snap.Generation, "unavailable", joinFields(snap.Unavailable))
	}
	c.status.Success(status.MsgSyncComplete, "")
	return snap, true
}

// RefreshSnapshot lets the transaction manager trigger the follow-up refreshes.
func (c *Controller) RefreshSnapshot(ctx context.Context) {
	c.Refresh(ctx)
}

// SendGM submits message, or the default greeting when it is blank.
func (c *Controller) SendGM(ctx context.Context, message string) (history.Record, error) {
	if strings.TrimSpace(message) == "" {
		message = constants.DefaultMessage
	}
	return c.tx.Send(ctx, message)
}

func (c *Controller) Account() (wallet.Account, bool) { return c.session.Account() }

func (c *Controller) Snapshot() (snapshot.Snapshot, bool) { return c.snapshots.Current() }

func (c *Controller) Transactions() []history.Record { return c.history.ListDescending() }

func (c *Controller) Status() *status.Reporter { return c.status }

func (c *Controller) Network() chains.NetworkConfig { return c.session.Guard().Network() }

// Wait blocks until in-flight transactions and their follow-up polls finish.
func (c *Controller) Wait() { c.tx.Wait() }

func (c *Controller) Close() { c.tx.Close() }

func joinFields(fields []snapshot.Field) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = string(f)
	}
	return strings.Join(parts, ",")
}
