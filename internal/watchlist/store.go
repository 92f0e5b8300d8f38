// Package watchlist keeps the tracked tickers, the latest enrichment per
// ticker and the scheduled refresh that keeps them current.
package watchlist

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/trogers1052/dilution-tracker/internal/enrich"
)

var (
	// ErrInvalidSymbol is returned for blank or malformed symbols
	ErrInvalidSymbol = errors.New("invalid symbol")
	// ErrNotWatched is returned when removing a symbol that is not on the watchlist
	ErrNotWatched = errors.New("symbol not on watchlist")
)

// Store persists the watchlist. Symbols passed in are already normalized.
type Store interface {
	Symbols(ctx context.Context) ([]string, error)
	Add(ctx context.Context, symbol string) error
	Remove(ctx context.Context, symbol string) error
}

// NormalizeSymbol trims, uppercases and validates a watchlist symbol
func NormalizeSymbol(raw string) (string, error) {
	symbol, err := enrich.NormalizeTicker(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, raw)
	}
	return symbol, nil
}

// MemoryStore is an in-process Store that keeps insertion order
type MemoryStore struct {
	mu      sync.RWMutex
	symbols []string
}

// NewMemoryStore creates a MemoryStore seeded with symbols. Invalid and
// duplicate entries are skipped.
func NewMemoryStore(symbols ...string) *MemoryStore {
	s := &MemoryStore{}
	for _, raw := range symbols {
		symbol, err := NormalizeSymbol(raw)
		if err != nil {
			continue
		}
		_ = s.Add(context.Background(), symbol)
	}
	return s
}

// Symbols returns a copy of the watchlist
func (s *MemoryStore) Symbols(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.symbols...), nil
}

// Add appends symbol unless it is already present
func (s *MemoryStore) Add(_ context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.symbols {
		if existing == symbol {
			return nil
		}
	}
	s.symbols = append(s.symbols, symbol)
	return nil
}

// Remove deletes symbol from the watchlist
func (s *MemoryStore) Remove(_ context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.symbols {
		if existing == symbol {
			s.symbols = append(s.symbols[:i], s.symbols[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotWatched, symbol)
}
