package slot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

// MySQL stores values in the kv_slots table.
type MySQL struct {
	db *sql.DB
}

// NewMySQL opens dsn, pings it and creates the table if needed.
func NewMySQL(ctx context.Context, dsn string) (*MySQL, error) {
	if dsn == "" {
		return nil, fmt.Errorf("slot: mysql backend needs a DSN")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("slot: mysql open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("slot: mysql ping: %w", err)
	}

	m := &MySQL{db: db}
	if err := m.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}

func (m *MySQL) migrate(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS kv_slots (
    slot_key VARCHAR(191) PRIMARY KEY,
    value LONGBLOB NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
)`)
	if err != nil {
		return fmt.Errorf("slot: mysql migrate: %w", err)
	}
	return nil
}

// Get implements Slot.
func (m *MySQL) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := m.db.QueryRowContext(ctx, `SELECT value FROM kv_slots WHERE slot_key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("slot: mysql get %s: %w", key, err)
	}
	return data, nil
}

// Put implements Slot.
func (m *MySQL) Put(ctx context.Context, key string, value []byte) error {
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO kv_slots (slot_key, value) VALUES (?, ?)
         ON DUPLICATE KEY UPDATE value = VALUES(value)`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("slot: mysql put %s: %w", key, err)
	}
	return nil
}

// Close implements Slot.
func (m *MySQL) Close() error {
	return m.db.Close()
}
