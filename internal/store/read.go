package store

import (
	"context"
	"database/sql"
	"fmt"
)

// RecentLocal returns up to n local records, newest first.
//
// Returns an empty slice (not nil) if the collection is empty.
func (s *Store) RecentLocal(ctx context.Context, n int) ([]LocalRecord, error) {
	if n <= 0 {
		return []LocalRecord{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, name, email, created_at, run_id
		FROM local_records
		ORDER BY seq DESC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("query local records: %w", err)
	}
	defer rows.Close()

	return scanLocalRows(rows)
}

// RecentSynced returns up to n synced records, newest first.
//
// Returns an empty slice (not nil) if the collection is empty.
func (s *Store) RecentSynced(ctx context.Context, n int) ([]SyncedRecord, error) {
	if n <= 0 {
		return []SyncedRecord{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, user_id, name, email, synced_at, run_id
		FROM synced_records
		ORDER BY seq DESC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("query synced records: %w", err)
	}
	defer rows.Close()

	return scanSyncedRows(rows)
}

// LocalByID returns every local record with the given id in insertion order.
func (s *Store) LocalByID(ctx context.Context, id string) ([]LocalRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, name, email, created_at, run_id
		FROM local_records
		WHERE id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query local records by id: %w", err)
	}
	defer rows.Close()

	return scanLocalRows(rows)
}

// SyncedFor returns every synced record for userID in insertion order.
func (s *Store) SyncedFor(ctx context.Context, userID string) ([]SyncedRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, user_id, name, email, synced_at, run_id
		FROM synced_records
		WHERE user_id = ?
		ORDER BY seq ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query synced records by user: %w", err)
	}
	defer rows.Close()

	return scanSyncedRows(rows)
}

// CountLocal returns the size of the local collection.
func (s *Store) CountLocal(ctx context.Context) (int, error) {
	return s.count(ctx, "local_records")
}

// CountSynced returns the size of the synced collection.
func (s *Store) CountSynced(ctx context.Context) (int, error) {
	return s.count(ctx, "synced_records")
}

// count is only called with the two fixed table names above.
func (s *Store) count(ctx context.Context, table string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func scanLocalRows(rows *sql.Rows) ([]LocalRecord, error) {
	records := []LocalRecord{}
	for rows.Next() {
		var rec LocalRecord
		if err := rows.Scan(&rec.Seq, &rec.ID, &rec.Name, &rec.Email, &rec.CreatedAt, &rec.RunID); err != nil {
			return nil, fmt.Errorf("scan local record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate local records: %w", err)
	}
	return records, nil
}

func scanSyncedRows(rows *sql.Rows) ([]SyncedRecord, error) {
	records := []SyncedRecord{}
	for rows.Next() {
		var rec SyncedRecord
		if err := rows.Scan(&rec.Seq, &rec.UserID, &rec.Name, &rec.Email, &rec.SyncedAt, &rec.RunID); err != nil {
			return nil, fmt.Errorf("scan synced record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate synced records: %w", err)
	}
	return records, nil
}
