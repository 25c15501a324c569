// Package ledgerstore persists ledger snapshots and seen account values in a WAL.
package ledgerstore

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/gowal"

	"github.com/vadiminshakov/whalewatch/internal/domain"
)

const (
	defaultLedgerDir  = "./wal/ledger"
	ledgerSegmentSize = 50
	ledgerMaxSegments = 20
	ledgerKeyPrefix   = "ledger_snapshot_"
	seenKeyPrefix     = "seen_values_"
)

// LedgerRecord is one persisted full ledger.
type LedgerRecord struct {
	SavedAt   time.Time         `json:"saved_at"`
	Positions []domain.Position `json:"positions"`
}

// SeenRecord is one persisted seen-value ledger.
type SeenRecord struct {
	SavedAt time.Time                  `json:"saved_at"`
	Values  map[string]decimal.Decimal `json:"values"`
}

// WALStore keeps every persist as a full record; the newest one wins on load.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
	now func() time.Time
}

// NewWALStore initializes a WAL-backed ledger store under the provided directory.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultLedgerDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "ledger_",
		SegmentThreshold: ledgerSegmentSize,
		MaxSegments:      ledgerMaxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init ledger WAL")
	}

	return &WALStore{wal: wal, now: time.Now}, nil
}

// SaveLedger writes the full ledger; it never stores a diff.
func (s *WALStore) SaveLedger(positions []domain.Position) error {
	if positions == nil {
		positions = []domain.Position{}
	}
	return s.write(ledgerKeyPrefix, LedgerRecord{SavedAt: s.now().UTC(), Positions: positions})
}

// SaveSeen writes the seen-value ledger.
func (s *WALStore) SaveSeen(values map[string]decimal.Decimal) error {
	if values == nil {
		values = map[string]decimal.Decimal{}
	}
	return s.write(seenKeyPrefix, SeenRecord{SavedAt: s.now().UTC(), Values: values})
}

func (s *WALStore) write(prefix string, record any) error {
	if s == nil || s.wal == nil {
		return errors.New("ledger store is not initialized")
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "marshal ledger record")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	key := prefix + s.now().UTC().Format(time.RFC3339Nano)
	return errors.Wrap(s.wal.Write(nextIndex, key, payload), "write ledger record")
}

// LatestLedger returns the newest ledger record, ok=false when none was saved.
func (s *WALStore) LatestLedger() (LedgerRecord, bool, error) {
	var rec LedgerRecord
	ok, err := s.latest(ledgerKeyPrefix, &rec)
	return rec, ok, err
}

// LatestSeen returns the newest seen-value record, ok=false when none was saved.
func (s *WALStore) LatestSeen() (SeenRecord, bool, error) {
	var rec SeenRecord
	ok, err := s.latest(seenKeyPrefix, &rec)
	return rec, ok, err
}

func (s *WALStore) latest(prefix string, out any) (bool, error) {
	if s == nil || s.wal == nil {
		return false, errors.New("ledger store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for idx := s.wal.CurrentIndex(); idx > 0; idx-- {
		key, payload, err := s.wal.Get(idx)
		if err != nil {
			return false, errors.Wrapf(err, "read record %d", idx)
		}
		if key == "" {
			// older segments were rotated out
			break
		}
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if err := json.Unmarshal(payload, out); err != nil {
			return false, errors.Wrapf(err, "decode record %d", idx)
		}
		return true, nil
	}

	return false, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("ledger store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
