package execution

import (
	"database/sql"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"cryptobotv1/internal/model"
)

// Journal persists fills and closed positions to SQLite for audit and
// post-run analysis.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// NewJournal opens (or creates) the journal database in WAL mode.
func NewJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_sync=NORMAL")
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS fills (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id   TEXT NOT NULL,
		symbol     TEXT NOT NULL,
		qty        REAL NOT NULL,
		price      REAL NOT NULL,
		slippage   REAL DEFAULT 0,
		filled_at  DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_fills_symbol ON fills(symbol);
	CREATE INDEX IF NOT EXISTS idx_fills_filled_at ON fills(filled_at);

	CREATE TABLE IF NOT EXISTS trades (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		position_id  INTEGER NOT NULL,
		symbol       TEXT NOT NULL,
		direction    TEXT NOT NULL,
		qty          REAL NOT NULL,
		entry_price  REAL NOT NULL,
		exit_price   REAL NOT NULL,
		realized_pnl REAL NOT NULL,
		fees         REAL NOT NULL,
		exit_reason  TEXT NOT NULL,
		opened_at    DATETIME NOT NULL,
		closed_at    DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
	CREATE INDEX IF NOT EXISTS idx_trades_closed_at ON trades(closed_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[journal] opened trade journal at %s", dbPath)
	return &Journal{db: db}, nil
}

// RecordFill persists a fill.
func (j *Journal) RecordFill(fill model.Fill) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		`INSERT INTO fills (order_id, symbol, qty, price, slippage, filled_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		fill.OrderID, fill.Symbol, fill.Qty, fill.Price, fill.Slippage,
		fill.FilledAt.UTC().Format(time.RFC3339),
	)
	return err
}

// RecordTrade persists a closed position.
func (j *Journal) RecordTrade(pos model.Position) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		`INSERT INTO trades (position_id, symbol, direction, qty, entry_price, exit_price,
		                     realized_pnl, fees, exit_reason, opened_at, closed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pos.ID, pos.Symbol, string(pos.Direction), pos.Qty, pos.EntryPrice, pos.ExitPrice,
		pos.RealizedPnL, pos.Fees, pos.ExitReason,
		pos.OpenedAt.UTC().Format(time.RFC3339), pos.ClosedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// TradeRecord is a row from the trades table.
type TradeRecord struct {
	ID          int64   `json:"id"`
	PositionID  int64   `json:"position_id"`
	Symbol      string  `json:"symbol"`
	Direction   string  `json:"direction"`
	Qty         float64 `json:"qty"`
	EntryPrice  float64 `json:"entry_price"`
	ExitPrice   float64 `json:"exit_price"`
	RealizedPnL float64 `json:"realized_pnl"`
	Fees        float64 `json:"fees"`
	ExitReason  string  `json:"exit_reason"`
	OpenedAt    string  `json:"opened_at"`
	ClosedAt    string  `json:"closed_at"`
}

// Trades returns the last N closed trades, newest first.
func (j *Journal) Trades(limit int) ([]TradeRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT id, position_id, symbol, direction, qty, entry_price, exit_price,
		        realized_pnl, fees, exit_reason, opened_at, closed_at
		 FROM trades ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []TradeRecord
	for rows.Next() {
		var t TradeRecord
		if err := rows.Scan(&t.ID, &t.PositionID, &t.Symbol, &t.Direction, &t.Qty,
			&t.EntryPrice, &t.ExitPrice, &t.RealizedPnL, &t.Fees, &t.ExitReason,
			&t.OpenedAt, &t.ClosedAt); err != nil {
			continue
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}
