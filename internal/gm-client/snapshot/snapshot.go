// Package snapshot aggregates the independent chain reads shown to the user
// into one immutable value.
package snapshot

import (
	"math/big"
	"slices"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/chainread"
)

type Field string

const (
	FieldNativeBalance    Field = "nativeBalance"
	FieldSecondaryBalance Field = "secondaryBalance"
	FieldTotalMessages    Field = "totalMessages"
	FieldUserStats        Field = "userStats"
	FieldRecentMessages   Field = "recentMessages"
	FieldGasPrice         Field = "gasPrice"
)

// Fields lists every field a refresh reads.
var Fields = []Field{
	FieldGasPrice,
	FieldNativeBalance,
	FieldRecentMessages,
	FieldSecondaryBalance,
	FieldTotalMessages,
	FieldUserStats,
}

// Snapshot is never mutated after publication. Fields whose read failed hold
// their default and are listed in Unavailable; a nil GasPrice means unavailable.
type Snapshot struct {
	Account          common.Address      `json:"account"`
	NativeBalance    *big.Int            `json:"nativeBalance"`
	SecondaryBalance *big.Int            `json:"secondaryBalance"`
	TotalMessages    *big.Int            `json:"totalMessages"`
	UserStats        chainread.UserStats `json:"userStats"`
	RecentMessages   []chainread.Message `json:"recentMessages"`
	GasPrice         *big.Int            `json:"gasPrice"`
	Unavailable      []Field             `json:"unavailable,omitempty"`
	Generation       uint64              `json:"generation"`
	FetchedAt        time.Time           `json:"fetchedAt"`
}

func (s Snapshot) Available(f Field) bool {
	return !slices.Contains(s.Unavailable, f)
}

// Unreachable reports whether every read of the refresh failed.
func (s Snapshot) Unreachable() bool {
	return len(s.Unavailable) >= len(Fields)
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.NativeBalance = cloneBig(s.NativeBalance)
	out.SecondaryBalance = cloneBig(s.SecondaryBalance)
	out.TotalMessages = cloneBig(s.TotalMessages)
	out.GasPrice = cloneBig(s.GasPrice)
	out.RecentMessages = slices.Clone(s.RecentMessages)
	out.Unavailable = slices.Clone(s.Unavailable)
	return out
}

func (s *Snapshot) setGas(price *big.Int) {
	s.GasPrice = cloneBig(price)
	s.Unavailable = slices.DeleteFunc(s.Unavailable, func(f Field) bool { return f == FieldGasPrice })
	if price == nil {
		s.Unavailable = append(s.Unavailable, FieldGasPrice)
		sortFields(s.Unavailable)
	}
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func sortFields(fields []Field) {
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
}

// OrderForDisplay sorts by timestamp then sequence, ascending, and reverses
// the result so the most recent message comes first.
func OrderForDisplay(msgs []chainread.Message) []chainread.Message {
	out := slices.Clone(msgs)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].Sequence < out[j].Sequence
	})
	slices.Reverse(out)
	return out
}
