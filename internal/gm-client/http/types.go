package http

import (
	"math/big"
	"time"

	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/chains"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/history"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/snapshot"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/status"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/utils"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/wallet"
)

type errorRes struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type sendGMReq struct {
	Message string `json:"message"`
}

type accountRes struct {
	Address string `json:"address"`
	Short   string `json:"short"`
}

func newAccountRes(a wallet.Account) accountRes {
	return accountRes{Address: a.Address.Hex(), Short: utils.ShortAddress(a.Address)}
}

type chainRes struct {
	Name       string                `json:"name"`
	ChainID    uint64                `json:"chain_id"`
	ChainIDHex string                `json:"chain_id_hex"`
	Currency   chains.NativeCurrency `json:"native_currency"`
	RPC        string                `json:"rpc"`
	Explorer   string                `json:"explorer"`
	Contract   string                `json:"contract"`
	Account    *accountRes           `json:"account,omitempty"`
}

type userStatsRes struct {
	Count        uint64 `json:"count"`
	Streak       uint64 `json:"streak"`
	LastActivity string `json:"last_activity"`
}

type messageRes struct {
	Sequence uint64 `json:"sequence"`
	Sender   string `json:"sender"`
	Short    string `json:"sender_short"`
	Text     string `json:"text"`
	Time     string `json:"time"`
}

type snapshotRes struct {
	Account          accountRes       `json:"account"`
	NativeBalance    string           `json:"native_balance"`
	SecondaryBalance string           `json:"secondary_balance"`
	TotalMessages    string           `json:"total_messages"`
	UserStats        userStatsRes     `json:"user_stats"`
	RecentMessages   []messageRes     `json:"recent_messages"`
	GasPrice         string           `json:"gas_price"`
	Unavailable      []snapshot.Field `json:"unavailable"`
	Generation       uint64           `json:"generation"`
	FetchedAt        time.Time        `json:"fetched_at"`
}

func newSnapshotRes(s snapshot.Snapshot, decimals uint8) snapshotRes {
	res := snapshotRes{
		Account:          newAccountRes(wallet.Account{Address: s.Account}),
		NativeBalance:    utils.FormatBalance(s.NativeBalance, decimals),
		SecondaryBalance: utils.FormatBalance(s.SecondaryBalance, decimals),
		TotalMessages:    bigString(s.TotalMessages),
		UserStats: userStatsRes{
			Count:        s.UserStats.Count,
			Streak:       s.UserStats.Streak,
			LastActivity: utils.FormatUnix(s.UserStats.LastActivity),
		},
		RecentMessages: make([]messageRes, 0, len(s.RecentMessages)),
		GasPrice:       utils.FormatGwei(s.GasPrice),
		Unavailable:    s.Unavailable,
		Generation:     s.Generation,
		FetchedAt:      s.FetchedAt,
	}
	if res.Unavailable == nil {
		res.Unavailable = []snapshot.Field{}
	}
	for _, m := range s.RecentMessages {
		res.RecentMessages = append(res.RecentMessages, messageRes{
			Sequence: m.Sequence,
			Sender:   m.Sender.Hex(),
			Short:    utils.ShortAddress(m.Sender),
			Text:     m.Text,
			Time:     utils.FormatUnix(m.Timestamp),
		})
	}
	return res
}

type transactionRes struct {
	Hash        string         `json:"hash"`
	Short       string         `json:"hash_short"`
	Status      history.Status `json:"status"`
	Message     string         `json:"message"`
	SubmittedAt time.Time      `json:"submitted_at"`
	ExplorerURL string         `json:"explorer_url,omitempty"`
}

func newTransactionRes(r history.Record) transactionRes {
	return transactionRes{
		Hash:        r.Hash.Hex(),
		Short:       utils.ShortHash(r.Hash),
		Status:      r.Status,
		Message:     r.Message,
		SubmittedAt: r.SubmittedAt,
		ExplorerURL: r.ExplorerURL,
	}
}

type statusRes struct {
	Current *status.Event  `json:"current,omitempty"`
	Recent  []status.Event `json:"recent"`
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
