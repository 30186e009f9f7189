package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
)

// ModemDeviceID is the reserved device id for the modem's All-Link table.
const ModemDeviceID = "modem"

// Repository defines the interface for link-record persistence.
type Repository interface {
	// Replace atomically swaps a device's cached records for the given set.
	Replace(ctx context.Context, deviceID string, records []insteon.Record) error

	// List returns a device's cached records in descending slot order.
	List(ctx context.Context, deviceID string) ([]insteon.Record, error)

	// Devices returns the ids of all devices with cached records.
	Devices(ctx context.Context) ([]string, error)

	// Delete removes a device's cached records, returning the row count.
	Delete(ctx context.Context, deviceID string) (int64, error)

	// LastUpdated returns the most recent write time for a device's cache.
	LastUpdated(ctx context.Context, deviceID string) (time.Time, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed link-record repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Replace atomically swaps a device's cached records for the given set.
// The delete and inserts run in a single transaction so a crash cannot
// leave a mixed cache.
func (r *SQLiteRepository) Replace(ctx context.Context, deviceID string, records []insteon.Record) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction for %s: %w", deviceID, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, "DELETE FROM link_records WHERE device_id = ?", deviceID); err != nil {
		return fmt.Errorf("clearing records for %s: %w", deviceID, err)
	}

	const query = `INSERT INTO link_records
		(device_id, mem_addr, flags, grp, target, data1, data2, data3)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	for _, rec := range records {
		_, err := tx.ExecContext(ctx, query,
			deviceID, rec.MemAddr, rec.Flags.Byte(), rec.Group,
			rec.Target.String(), rec.Data1, rec.Data2, rec.Data3)
		if err != nil {
			return fmt.Errorf("inserting record %04x for %s: %w", rec.MemAddr, deviceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing records for %s: %w", deviceID, err)
	}
	return nil
}

// List returns a device's cached records in descending slot order.
func (r *SQLiteRepository) List(ctx context.Context, deviceID string) ([]insteon.Record, error) {
	const query = `SELECT mem_addr, flags, grp, target, data1, data2, data3
		FROM link_records WHERE device_id = ? ORDER BY mem_addr DESC`
	rows, err := r.db.QueryContext(ctx, query, deviceID)
	if err != nil {
		return nil, fmt.Errorf("querying records for %s: %w", deviceID, err)
	}
	defer rows.Close()

	var records []insteon.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record for %s: %w", deviceID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records for %s: %w", deviceID, err)
	}
	return records, nil
}

// Devices returns the ids of all devices with cached records.
func (r *SQLiteRepository) Devices(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT device_id FROM link_records ORDER BY device_id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying cached devices: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning device id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device ids: %w", err)
	}
	return ids, nil
}

// Delete removes a device's cached records, returning the row count.
func (r *SQLiteRepository) Delete(ctx context.Context, deviceID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM link_records WHERE device_id = ?", deviceID)
	if err != nil {
		return 0, fmt.Errorf("deleting records for %s: %w", deviceID, err)
	}
	n, _ := result.RowsAffected() //nolint:errcheck // SQLite always supports RowsAffected
	return n, nil
}

// LastUpdated returns the most recent write time for a device's cache.
// Returns ErrNoCachedRecords if the device has no rows.
func (r *SQLiteRepository) LastUpdated(ctx context.Context, deviceID string) (time.Time, error) {
	const query = `SELECT MAX(updated_at) FROM link_records WHERE device_id = ?`
	var updatedAt sql.NullString
	if err := r.db.QueryRowContext(ctx, query, deviceID).Scan(&updatedAt); err != nil {
		return time.Time{}, fmt.Errorf("querying last update for %s: %w", deviceID, err)
	}
	if !updatedAt.Valid {
		return time.Time{}, ErrNoCachedRecords
	}
	t, err := time.Parse("2006-01-02T15:04:05Z", updatedAt.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing update time for %s: %w", deviceID, err)
	}
	return t, nil
}

// scanRecord scans one link record from a Rows cursor.
func scanRecord(rows *sql.Rows) (insteon.Record, error) {
	var rec insteon.Record
	var flags uint8
	var target string

	err := rows.Scan(&rec.MemAddr, &flags, &rec.Group, &target,
		&rec.Data1, &rec.Data2, &rec.Data3)
	if err != nil {
		return insteon.Record{}, err
	}

	rec.Flags = insteon.ControlFlagsFromByte(flags)
	addr, err := insteon.ParseAddress(target)
	if err != nil {
		return insteon.Record{}, fmt.Errorf("parsing target %q: %w", target, err)
	}
	rec.Target = addr
	return rec, nil
}
