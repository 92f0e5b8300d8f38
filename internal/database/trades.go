package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/dilution-tracker/internal/journal"
	"github.com/trogers1052/dilution-tracker/internal/models"
)

const tradeIDPrefix = "trade_"

const tradeColumns = `
	number, user_id, symbol, side, quantity, entry_price, exit_price, commission,
	setup, mistakes, lessons, market_conditions, sector_momentum,
	stop_loss, target, trade_date, entry_time, exit_time,
	gross_pnl, net_pnl, risk_reward, source, order_id, created_at, updated_at`

// uniqueViolation is the PostgreSQL error code for a unique index conflict
const uniqueViolation = "23505"

// TradeStore is a journal.Store backed by the trades table
type TradeStore struct {
	db *DB
}

// Create inserts a trade and assigns its ID from the row number
func (s *TradeStore) Create(ctx context.Context, t *models.Trade) error {
	query := `
		INSERT INTO trades (
			user_id, symbol, side, quantity, entry_price, exit_price, commission,
			setup, mistakes, lessons, market_conditions, sector_momentum,
			stop_loss, target, trade_date, entry_time, exit_time,
			gross_pnl, net_pnl, risk_reward, source, order_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24
		)
		RETURNING number
	`
	// Manual trades carry no order, and NULLs never conflict in the unique index
	var source, orderID sql.NullString
	if t.OrderID != "" {
		source = sql.NullString{String: t.Source, Valid: true}
		orderID = sql.NullString{String: t.OrderID, Valid: true}
	}

	var number int64
	err := s.db.conn.QueryRowContext(ctx, query,
		t.UserID, t.Symbol, string(t.Side), t.Quantity, t.EntryPrice, t.ExitPrice, t.Commission,
		t.Setup, t.Mistakes, t.Lessons, t.MarketConditions, t.SectorMomentum,
		t.StopLoss, t.Target, t.Date, t.EntryTime, t.ExitTime,
		t.GrossPnl, t.NetPnl, t.RiskReward, source, orderID, t.CreatedAt, t.UpdatedAt,
	).Scan(&number)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s/%s", journal.ErrDuplicateTrade, t.Source, t.OrderID)
	}
	if err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}

	t.ID = formatTradeID(number)
	return nil
}

// ExistsByOrderID reports whether a trade from source with orderID is stored
func (s *TradeStore) ExistsByOrderID(ctx context.Context, source, orderID string) (bool, error) {
	var exists bool
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM trades WHERE source = $1 AND order_id = $2)`,
		source, orderID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check trade order: %w", err)
	}
	return exists, nil
}

// Get retrieves a trade by ID
func (s *TradeStore) Get(ctx context.Context, id string) (*models.Trade, error) {
	number, ok := parseTradeID(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", journal.ErrTradeNotFound, id)
	}

	query := `SELECT ` + tradeColumns + ` FROM trades WHERE number = $1`
	t, err := scanTrade(s.db.conn.QueryRowContext(ctx, query, number))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", journal.ErrTradeNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	return t, nil
}

// List returns up to limit trades starting at offset, oldest first
func (s *TradeStore) List(ctx context.Context, offset, limit int) ([]*models.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades ORDER BY number ASC LIMIT $1 OFFSET $2`
	return s.queryTrades(ctx, query, limit, offset)
}

// All returns every trade, oldest first
func (s *TradeStore) All(ctx context.Context) ([]*models.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades ORDER BY number ASC`
	return s.queryTrades(ctx, query)
}

// Update rewrites the input and derived fields of an existing trade
func (s *TradeStore) Update(ctx context.Context, t *models.Trade) error {
	number, ok := parseTradeID(t.ID)
	if !ok {
		return fmt.Errorf("%w: %s", journal.ErrTradeNotFound, t.ID)
	}

	query := `
		UPDATE trades SET
			symbol = $2, side = $3, quantity = $4, entry_price = $5, exit_price = $6, commission = $7,
			setup = $8, mistakes = $9, lessons = $10, market_conditions = $11, sector_momentum = $12,
			stop_loss = $13, target = $14, trade_date = $15, entry_time = $16, exit_time = $17,
			gross_pnl = $18, net_pnl = $19, risk_reward = $20, updated_at = $21
		WHERE number = $1
	`
	result, err := s.db.conn.ExecContext(ctx, query,
		number, t.Symbol, string(t.Side), t.Quantity, t.EntryPrice, t.ExitPrice, t.Commission,
		t.Setup, t.Mistakes, t.Lessons, t.MarketConditions, t.SectorMomentum,
		t.StopLoss, t.Target, t.Date, t.EntryTime, t.ExitTime,
		t.GrossPnl, t.NetPnl, t.RiskReward, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update trade: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", journal.ErrTradeNotFound, t.ID)
	}
	return nil
}

// Delete removes a trade by ID
func (s *TradeStore) Delete(ctx context.Context, id string) error {
	number, ok := parseTradeID(id)
	if !ok {
		return fmt.Errorf("%w: %s", journal.ErrTradeNotFound, id)
	}

	result, err := s.db.conn.ExecContext(ctx, `DELETE FROM trades WHERE number = $1`, number)
	if err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", journal.ErrTradeNotFound, id)
	}
	return nil
}

func (s *TradeStore) queryTrades(ctx context.Context, query string, args ...any) ([]*models.Trade, error) {
	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	trades := []*models.Trade{}
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trades: %w", err)
	}
	return trades, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrade(row rowScanner) (*models.Trade, error) {
	var t models.Trade
	var number int64
	var side string
	var setup, mistakes, lessons, marketConditions, sectorMomentum sql.NullString
	var stopLoss, target, riskReward sql.NullString
	var source, orderID sql.NullString
	var tradeDate, entryTime, exitTime sql.NullTime

	err := row.Scan(
		&number, &t.UserID, &t.Symbol, &side, &t.Quantity, &t.EntryPrice, &t.ExitPrice, &t.Commission,
		&setup, &mistakes, &lessons, &marketConditions, &sectorMomentum,
		&stopLoss, &target, &tradeDate, &entryTime, &exitTime,
		&t.GrossPnl, &t.NetPnl, &riskReward, &source, &orderID, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.ID = formatTradeID(number)
	t.Side = models.TradeSide(side)
	t.Setup = nullString(setup)
	t.Mistakes = nullString(mistakes)
	t.Lessons = nullString(lessons)
	t.MarketConditions = nullString(marketConditions)
	t.SectorMomentum = nullString(sectorMomentum)
	t.StopLoss = nullDecimal(stopLoss)
	t.Target = nullDecimal(target)
	t.RiskReward = nullDecimal(riskReward)
	t.Source = source.String
	t.OrderID = orderID.String

	if tradeDate.Valid {
		d := tradeDate.Time.Format("2006-01-02")
		t.Date = &d
	}
	if entryTime.Valid {
		t.EntryTime = &entryTime.Time
	}
	if exitTime.Valid {
		t.ExitTime = &exitTime.Time
	}
	return &t, nil
}

func formatTradeID(number int64) string {
	return tradeIDPrefix + strconv.FormatInt(number, 10)
}

func parseTradeID(id string) (int64, bool) {
	if !strings.HasPrefix(id, tradeIDPrefix) {
		return 0, false
	}
	number, err := strconv.ParseInt(strings.TrimPrefix(id, tradeIDPrefix), 10, 64)
	if err != nil || number <= 0 {
		return 0, false
	}
	return number, true
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullDecimal(v sql.NullString) *float64 {
	if !v.Valid {
		return nil
	}
	d, err := decimal.NewFromString(v.String)
	if err != nil {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}
