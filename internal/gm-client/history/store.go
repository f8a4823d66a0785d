// Package history keeps the session's submitted transactions.
package history

import (
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

func (s Status) Valid() bool {
	return s == StatusPending || s.Terminal()
}

var (
	ErrNotFound          = errors.New("transaction record not found")
	ErrDuplicateHash     = errors.New("transaction record already exists")
	ErrInvalidTransition = errors.New("invalid transaction status transition")
)

type Record struct {
	Hash        common.Hash `json:"hash"`
	SubmittedAt time.Time   `json:"submittedAt"`
	Status      Status      `json:"status"`
	Message     string      `json:"message,omitempty"`
	ExplorerURL string      `json:"explorerUrl,omitempty"`
}

type entry struct {
	Record
	seq uint64
}

// Store is an in-memory, append-only list of records indexed by hash.
// Records are never deleted and only move pending -> success|failed.
type Store struct {
	mu      sync.RWMutex
	byHash  map[common.Hash]*entry
	ordered []*entry
	nextSeq uint64

	onChange func(Record)
}

func NewStore() *Store {
	return &Store{byHash: make(map[common.Hash]*entry)}
}

// OnChange registers a callback invoked after every append or status update.
// It runs outside the store lock.
func (s *Store) OnChange(fn func(Record)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

func (s *Store) Append(r Record) error {
	if r.Status == "" {
		r.Status = StatusPending
	}
	if r.Status != StatusPending {
		return errors.Wrapf(ErrInvalidTransition, "append %s with status %s", r.Hash.Hex(), r.Status)
	}

	s.mu.Lock()
	if _, ok := s.byHash[r.Hash]; ok {
		s.mu.Unlock()
		return errors.Wrapf(ErrDuplicateHash, "%s", r.Hash.Hex())
	}
	e := &entry{Record: r, seq: s.nextSeq}
	s.nextSeq++
	s.byHash[r.Hash] = e
	s.ordered = append(s.ordered, e)
	cb := s.onChange
	s.mu.Unlock()

	if cb != nil {
		cb(r)
	}
	return nil
}

// UpdateStatus moves a pending record to a terminal status.
func (s *Store) UpdateStatus(hash common.Hash, status Status) (Record, error) {
	if !status.Terminal() {
		return Record{}, errors.Wrapf(ErrInvalidTransition, "%s -> %s", hash.Hex(), status)
	}

	s.mu.Lock()
	e, ok := s.byHash[hash]
	if !ok {
		s.mu.Unlock()
		return Record{}, errors.Wrapf(ErrNotFound, "%s", hash.Hex())
	}
	if e.Status.Terminal() {
		from := e.Status
		s.mu.Unlock()
		return Record{}, errors.Wrapf(ErrInvalidTransition, "%s: %s -> %s", hash.Hex(), from, status)
	}
	e.Status = status
	out := e.Record
	cb := s.onChange
	s.mu.Unlock()

	if cb != nil {
		cb(out)
	}
	return out, nil
}

func (s *Store) Get(hash common.Hash) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byHash[hash]
	if !ok {
		return Record{}, false
	}
	return e.Record, true
}

// ListDescending returns copies ordered by submission time, newest first.
// Equal timestamps keep the later insertion first.
func (s *Store) ListDescending() []Record {
	s.mu.RLock()
	entries := make([]*entry, len(s.ordered))
	copy(entries, s.ordered)
	out := make([]Record, len(entries))
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.SubmittedAt.Equal(b.SubmittedAt) {
			return a.SubmittedAt.After(b.SubmittedAt)
		}
		return a.seq > b.seq
	})
	for i, e := range entries {
		out[i] = e.Record
	}
	s.mu.RUnlock()
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ordered)
}
