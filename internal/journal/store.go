package journal

import (
	"context"
	"fmt"
	"sync"

	"github.com/trogers1052/dilution-tracker/internal/models"
)

// Store persists journal trades. Create assigns the trade ID and rejects a
// second trade with the same non-empty source and order ID with
// ErrDuplicateTrade.
type Store interface {
	Create(ctx context.Context, t *models.Trade) error
	ExistsByOrderID(ctx context.Context, source, orderID string) (bool, error)
	Get(ctx context.Context, id string) (*models.Trade, error)
	List(ctx context.Context, offset, limit int) ([]*models.Trade, error)
	All(ctx context.Context) ([]*models.Trade, error)
	Update(ctx context.Context, t *models.Trade) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore is a process-lifetime Store. IDs are trade_<n> with n
// increasing monotonically and never reused after a delete.
type MemoryStore struct {
	mu     sync.RWMutex
	trades []*models.Trade
	orders map[orderKey]string
	nextID int
}

type orderKey struct {
	source, orderID string
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[orderKey]string)}
}

// Create appends t and assigns its ID
func (s *MemoryStore) Create(_ context.Context, t *models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := orderKey{t.Source, t.OrderID}
	if t.OrderID != "" {
		if _, ok := s.orders[key]; ok {
			return fmt.Errorf("%w: %s/%s", ErrDuplicateTrade, t.Source, t.OrderID)
		}
	}
	s.nextID++
	t.ID = fmt.Sprintf("trade_%d", s.nextID)
	stored := *t
	s.trades = append(s.trades, &stored)
	if t.OrderID != "" {
		s.orders[key] = t.ID
	}
	return nil
}

// ExistsByOrderID reports whether a trade from source with orderID is stored
func (s *MemoryStore) ExistsByOrderID(_ context.Context, source, orderID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.orders[orderKey{source, orderID}]
	return ok, nil
}

// Get returns a copy of the trade with id
func (s *MemoryStore) Get(_ context.Context, id string) (*models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		t := *s.trades[i]
		return &t, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrTradeNotFound, id)
}

// List returns up to limit trades starting at offset, in insertion order
func (s *MemoryStore) List(_ context.Context, offset, limit int) ([]*models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyTrades(page(s.trades, offset, limit)), nil
}

// All returns every trade in insertion order
func (s *MemoryStore) All(_ context.Context) ([]*models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyTrades(s.trades), nil
}

// Update replaces the stored trade with the same ID
func (s *MemoryStore) Update(_ context.Context, t *models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(t.ID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrTradeNotFound, t.ID)
	}
	stored := *t
	s.trades[i] = &stored
	return nil
}

// Delete removes the trade with id
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrTradeNotFound, id)
	}
	if t := s.trades[i]; t.OrderID != "" {
		delete(s.orders, orderKey{t.Source, t.OrderID})
	}
	s.trades = append(s.trades[:i], s.trades[i+1:]...)
	return nil
}

func (s *MemoryStore) indexOf(id string) int {
	for i, t := range s.trades {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func page(trades []*models.Trade, offset, limit int) []*models.Trade {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(trades) || limit <= 0 {
		return nil
	}
	end := offset + limit
	if end > len(trades) {
		end = len(trades)
	}
	return trades[offset:end]
}

func copyTrades(trades []*models.Trade) []*models.Trade {
	out := make([]*models.Trade, 0, len(trades))
	for _, t := range trades {
		c := *t
		out = append(out, &c)
	}
	return out
}
