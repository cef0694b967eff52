package store

import (
	"context"
	"fmt"
)

// AppendLocal appends rec to the local collection and returns its seq.
// rec.Seq is ignored; the store assigns it.
func (s *Store) AppendLocal(ctx context.Context, rec LocalRecord) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO local_records (id, name, email, created_at, run_id)
		VALUES (?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.Name,
		rec.Email,
		rec.CreatedAt,
		rec.RunID,
	)
	if err != nil {
		return 0, fmt.Errorf("append local record: %w", err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append local record: last insert id: %w", err)
	}
	return seq, nil
}

// AppendSynced appends rec to the synced collection and returns its seq.
// No deduplication is performed.
func (s *Store) AppendSynced(ctx context.Context, rec SyncedRecord) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO synced_records (user_id, name, email, synced_at, run_id)
		VALUES (?, ?, ?, ?, ?)
	`,
		rec.UserID,
		rec.Name,
		rec.Email,
		rec.SyncedAt,
		rec.RunID,
	)
	if err != nil {
		return 0, fmt.Errorf("append synced record: %w", err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append synced record: last insert id: %w", err)
	}
	return seq, nil
}
