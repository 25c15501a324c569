// Package ledger holds the in-memory position ledger and the seen-value ledger
// shared by scan workers.
package ledger

import (
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/whalewatch/internal/domain"
)

// Ledger current position records across all tracked addresses.
// At most one set of records per address exists at any time.
type Ledger struct {
	mu   sync.RWMutex
	rows []domain.Position
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{}
}

// Replace removes every record of address and appends records in one critical section.
// An empty records slice leaves the address with no rows.
func (l *Ledger) Replace(address string, records []domain.Position) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.rows[:0]
	for _, row := range l.rows {
		if row.Address != address {
			kept = append(kept, row)
		}
	}
	// zero the tail so dropped rows do not linger in the backing array
	for i := len(kept); i < len(l.rows); i++ {
		l.rows[i] = domain.Position{}
	}
	l.rows = append(kept, records...)
}

// Has reports whether the ledger holds at least one record for address.
func (l *Ledger) Has(address string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, row := range l.rows {
		if row.Address == address {
			return true
		}
	}
	return false
}

// For returns a copy of the records of address.
func (l *Ledger) For(address string) []domain.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.Position
	for _, row := range l.rows {
		if row.Address == address {
			out = append(out, row)
		}
	}
	return out
}

// Len number of records.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.rows)
}

// Snapshot returns a copy of the full ledger.
func (l *Ledger) Snapshot() []domain.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Position, len(l.rows))
	copy(out, l.rows)
	return out
}

// Load replaces the whole ledger, used when restoring persisted state.
func (l *Ledger) Load(rows []domain.Position) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rows = make([]domain.Position, len(rows))
	copy(l.rows, rows)
}

// Reset drops all records.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = nil
}

// Filter narrows a ledger query. Empty fields match everything.
type Filter struct {
	Coins   []string
	Side    domain.PositionSide
	Address string
}

func (f Filter) match(p domain.Position) bool {
	if f.Side != "" && p.Side != f.Side {
		return false
	}
	if f.Address != "" && !strings.EqualFold(f.Address, p.Address) {
		return false
	}
	if len(f.Coins) == 0 {
		return true
	}
	for _, coin := range f.Coins {
		if strings.EqualFold(coin, p.Coin) {
			return true
		}
	}
	return false
}

// Query returns a copy of the records matching f.
func (l *Ledger) Query(f Filter) []domain.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Position, 0, len(l.rows))
	for _, row := range l.rows {
		if f.match(row) {
			out = append(out, row)
		}
	}
	return out
}

// SeenValues last account value observed per address at a successful merge.
type SeenValues struct {
	mu     sync.RWMutex
	values map[string]decimal.Decimal
}

// NewSeenValues creates an empty seen-value ledger.
func NewSeenValues() *SeenValues {
	return &SeenValues{values: make(map[string]decimal.Decimal)}
}

// Get returns the last seen value of address.
func (s *SeenValues) Get(address string) (decimal.Decimal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[address]
	return v, ok
}

// Set records value for address.
func (s *SeenValues) Set(address string, value decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[address] = value
}

// Snapshot returns a copy of all seen values.
func (s *SeenValues) Snapshot() map[string]decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]decimal.Decimal, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Load replaces all seen values.
func (s *SeenValues) Load(values map[string]decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values = make(map[string]decimal.Decimal, len(values))
	for k, v := range values {
		s.values[k] = v
	}
}
