package store

// LocalRecord is a user as written to the user service's store.
type LocalRecord struct {
	Seq       int64  `json:"seq"`
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt"`
	RunID     string `json:"run_id,omitempty"`
}

// SyncedRecord is a profile as written by the consuming profile service.
// UserID refers to LocalRecord.ID.
type SyncedRecord struct {
	Seq      int64  `json:"seq"`
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	SyncedAt string `json:"syncedAt"`
	RunID    string `json:"run_id,omitempty"`
}
