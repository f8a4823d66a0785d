package http

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/chains"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/history"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/snapshot"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/status"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/wallet"
)

// App is what the handlers drive; *controller.Controller implements it.
type App interface {
	Connect(ctx context.Context) (wallet.Account, error)
	Refresh(ctx context.Context) (snapshot.Snapshot, bool)
	SendGM(ctx context.Context, message string) (history.Record, error)
	Account() (wallet.Account, bool)
	Snapshot() (snapshot.Snapshot, bool)
	Transactions() []history.Record
	Status() *status.Reporter
	Network() chains.NetworkConfig
}

const (
	statusEvent        = "status"
	statusStreamBuffer = 16
)

type Handler struct {
	app      App
	contract common.Address
}

func NewHandler(app App, contract common.Address) *Handler {
	return &Handler{app: app, contract: contract}
}

func (h *Handler) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// GET /api/chain
func (h *Handler) Chain(c *gin.Context) {
	n := h.app.Network()
	res := chainRes{
		Name:       n.Name,
		ChainID:    n.ChainID,
		ChainIDHex: n.ChainIDHex,
		Currency:   n.NativeCurrency,
		RPC:        n.PrimaryRPC(),
		Explorer:   n.Explorer,
		Contract:   h.contract.Hex(),
	}
	if acct, ok := h.app.Account(); ok {
		a := newAccountRes(acct)
		res.Account = &a
	}
	c.JSON(http.StatusOK, res)
}

// GET /api/snapshot
func (h *Handler) Snapshot(c *gin.Context) {
	snap, ok := h.app.Snapshot()
	if !ok {
		c.JSON(http.StatusNotFound, errorRes{Error: "no snapshot yet", RequestID: requestID(c)})
		return
	}
	c.JSON(http.StatusOK, newSnapshotRes(snap, h.app.Network().NativeCurrency.Decimals))
}

// GET /api/transactions
func (h *Handler) Transactions(c *gin.Context) {
	records := h.app.Transactions()
	res := make([]transactionRes, 0, len(records))
	for _, r := range records {
		res = append(res, newTransactionRes(r))
	}
	c.JSON(http.StatusOK, res)
}

// GET /api/status?limit=n
func (h *Handler) Status(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, errorRes{Error: "invalid limit", RequestID: requestID(c)})
			return
		}
		limit = n
	}

	reporter := h.app.Status()
	res := statusRes{Recent: reporter.Recent(limit)}
	if ev, ok := reporter.Last(); ok {
		res.Current = &ev
	}
	c.JSON(http.StatusOK, res)
}

// GET /api/status/stream
//
// Server-sent events: the current status first, then every new one until the
// client goes away.
func (h *Handler) StatusStream(c *gin.Context) {
	reporter := h.app.Status()
	events, stop := reporter.Subscribe(statusStreamBuffer)
	defer stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	if ev, ok := reporter.Last(); ok {
		c.SSEvent(statusEvent, ev)
	} else {
		c.SSEvent("ready", gin.H{})
	}
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(statusEvent, ev)
			return true
		}
	})
}

// POST /api/connect
func (h *Handler) Connect(c *gin.Context) {
	acct, err := h.app.Connect(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAccountRes(acct))
}

// POST /api/gm
func (h *Handler) SendGM(c *gin.Context) {
	// an empty body, chunked or not, sends the default message
	var req sendGMReq
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, errorRes{Error: err.Error(), RequestID: requestID(c)})
		return
	}

	rec, err := h.app.SendGM(c.Request.Context(), req.Message)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, newTransactionRes(rec))
}

// POST /api/refresh
func (h *Handler) Refresh(c *gin.Context) {
	snap, ok := h.app.Refresh(c.Request.Context())
	if !ok {
		c.JSON(http.StatusConflict, errorRes{Error: "wallet not connected", RequestID: requestID(c)})
		return
	}
	c.JSON(http.StatusOK, newSnapshotRes(snap, h.app.Network().NativeCurrency.Decimals))
}
