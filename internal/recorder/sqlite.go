package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists surveillance history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so external tools can read history while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS refresh_history (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp      INTEGER NOT NULL,
			days_requested INTEGER,
			days_found     INTEGER,
			rows           INTEGER,
			symbols        INTEGER,
			latest_date    TEXT,
			alerts         INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_refresh_ts ON refresh_history(timestamp)`,

		`CREATE TABLE IF NOT EXISTS volume_alerts (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp       INTEGER NOT NULL,
			date            TEXT,
			symbol          TEXT,
			total_volume    INTEGER,
			buy_volume      INTEGER,
			dp_index        REAL,
			relative_volume REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_ts ON volume_alerts(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_symbol ON volume_alerts(symbol)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRefresh(snap *RefreshSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO refresh_history
		(timestamp, days_requested, days_found, rows, symbols, latest_date, alerts)
		VALUES (?,?,?,?,?,?,?)`,
		time.Now().Unix(), snap.DaysRequested, snap.DaysFound,
		snap.Rows, snap.Symbols, snap.LatestDate, snap.Alerts,
	)
	return err
}

func (r *SQLiteRecorder) RecordAlert(evt *VolumeAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO volume_alerts
		(timestamp, date, symbol, total_volume, buy_volume, dp_index, relative_volume)
		VALUES (?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.Date, evt.Symbol,
		evt.TotalVolume, evt.BuyVolume, evt.DPIndex, evt.RelativeVolume,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
