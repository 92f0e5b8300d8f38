package database

import (
	"context"
	"fmt"
	"time"

	"github.com/trogers1052/dilution-tracker/internal/watchlist"
)

// WatchlistStore is a watchlist.Store backed by the watchlist table
type WatchlistStore struct {
	db *DB
}

// Symbols returns every watched symbol in the order it was added
func (s *WatchlistStore) Symbols(ctx context.Context) ([]string, error) {
	query := `
		SELECT symbol
		FROM watchlist
		ORDER BY added_at ASC, symbol ASC
	`
	rows, err := s.db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get watchlist symbols: %w", err)
	}
	defer rows.Close()

	symbols := []string{}
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate watchlist: %w", err)
	}
	return symbols, nil
}

// Add puts symbol on the watchlist. Adding an existing symbol is a no-op.
func (s *WatchlistStore) Add(ctx context.Context, symbol string) error {
	query := `
		INSERT INTO watchlist (symbol, added_at)
		VALUES ($1, $2)
		ON CONFLICT (symbol) DO NOTHING
	`
	if _, err := s.db.conn.ExecContext(ctx, query, symbol, time.Now()); err != nil {
		return fmt.Errorf("failed to add watchlist symbol: %w", err)
	}
	return nil
}

// Remove takes symbol off the watchlist
func (s *WatchlistStore) Remove(ctx context.Context, symbol string) error {
	result, err := s.db.conn.ExecContext(ctx, `DELETE FROM watchlist WHERE symbol = $1`, symbol)
	if err != nil {
		return fmt.Errorf("failed to remove watchlist symbol: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", watchlist.ErrNotWatched, symbol)
	}
	return nil
}

// Seed adds symbols that are not yet on the watchlist
func (s *WatchlistStore) Seed(ctx context.Context, symbols []string) error {
	for _, symbol := range symbols {
		if err := s.Add(ctx, symbol); err != nil {
			return err
		}
	}
	return nil
}
