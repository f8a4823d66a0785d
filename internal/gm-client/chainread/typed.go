package chainread

import (
	"context"
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"

	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/contracts"
)

// Message is one entry of the contract's message feed.
type Message struct {
	Sender    common.Address `json:"sender"`
	Text      string         `json:"text"`
	Timestamp uint64         `json:"timestamp"`
	Sequence  uint64         `json:"sequence"`
}

type UserStats struct {
	Count        uint64 `json:"count"`
	Streak       uint64 `json:"streak"`
	LastActivity uint64 `json:"lastActivity"`
}

// BalanceOf reads a TIP-20 balance in raw units.
func (r *Reader) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	out, err := r.Read(ctx, token, contracts.TIP20, contracts.MethodBalanceOf, owner)
	if err != nil {
		return nil, err
	}
	return bigOut(out, 0, contracts.MethodBalanceOf)
}

func (r *Reader) TotalGMs(ctx context.Context) (*big.Int, error) {
	out, err := r.Read(ctx, r.gm, contracts.GM, contracts.MethodTotalGMs)
	if err != nil {
		return nil, err
	}
	return bigOut(out, 0, contracts.MethodTotalGMs)
}

func (r *Reader) MessageCount(ctx context.Context) (*big.Int, error) {
	out, err := r.Read(ctx, r.gm, contracts.GM, contracts.MethodGetMessageCount)
	if err != nil {
		return nil, err
	}
	return bigOut(out, 0, contracts.MethodGetMessageCount)
}

func (r *Reader) UserStats(ctx context.Context, user common.Address) (UserStats, error) {
	out, err := r.Read(ctx, r.gm, contracts.GM, contracts.MethodGetUserStats, user)
	if err != nil {
		return UserStats{}, err
	}

	vals := make([]uint64, 3)
	for i := range vals {
		v, err := bigOut(out, i, contracts.MethodGetUserStats)
		if err != nil {
			return UserStats{}, err
		}
		if vals[i], err = toUint64(v, contracts.MethodGetUserStats); err != nil {
			return UserStats{}, err
		}
	}
	return UserStats{Count: vals[0], Streak: vals[1], LastActivity: vals[2]}, nil
}

// RecentMessages returns up to count messages in the order the contract
// returns them. The four parallel arrays must have the same length.
func (r *Reader) RecentMessages(ctx context.Context, count uint64) ([]Message, error) {
	method := contracts.MethodGetRecentMessages
	out, err := r.Read(ctx, r.gm, contracts.GM, method, new(big.Int).SetUint64(count))
	if err != nil {
		return nil, err
	}
	if len(out) != 4 {
		return nil, decodeErr(method, "expected 4 outputs, got %d", len(out))
	}

	senders, ok := out[0].([]common.Address)
	if !ok {
		return nil, decodeErr(method, "senders has type %T", out[0])
	}
	texts, ok := out[1].([]string)
	if !ok {
		return nil, decodeErr(method, "messageTexts has type %T", out[1])
	}
	timestamps, ok := out[2].([]*big.Int)
	if !ok {
		return nil, decodeErr(method, "timestamps has type %T", out[2])
	}
	sequences, ok := out[3].([]*big.Int)
	if !ok {
		return nil, decodeErr(method, "counts has type %T", out[3])
	}

	n := len(senders)
	if len(texts) != n || len(timestamps) != n || len(sequences) != n {
		return nil, decodeErr(method, "array lengths differ: %d/%d/%d/%d", n, len(texts), len(timestamps), len(sequences))
	}

	messages := make([]Message, 0, n)
	for i := 0; i < n; i++ {
		ts, err := toUint64(timestamps[i], method)
		if err != nil {
			return nil, err
		}
		seq, err := toUint64(sequences[i], method)
		if err != nil {
			return nil, err
		}
		messages = append(messages, Message{
			Sender:    senders[i],
			Text:      texts[i],
			Timestamp: ts,
			Sequence:  seq,
		})
	}
	return messages, nil
}

func bigOut(out []any, i int, method string) (*big.Int, error) {
	if len(out) <= i {
		return nil, decodeErr(method, "missing output %d", i)
	}
	v, ok := out[i].(*big.Int)
	if !ok || v == nil {
		return nil, decodeErr(method, "output %d has type %T", i, out[i])
	}
	return v, nil
}

func toUint64(v *big.Int, method string) (uint64, error) {
	if v == nil || v.Sign() < 0 || !v.IsUint64() {
		return 0, decodeErr(method, "value %v does not fit uint64", v)
	}
	return v.Uint64(), nil
}

func decodeErr(method, format string, args ...any) error {
	return errors.Mark(errors.Newf("decode %s: "+format, append([]any{method}, args...)...), ErrRead)
}
