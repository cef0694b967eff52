// Package store provides the SQLite-backed derived record store.
//
// The store holds two append-only collections:
//   - local_records: users as written by the user service (user_db)
//   - synced_records: profiles as written by the profile service (profile_db)
//
// # Ordering
//
// Every row gets a seq from INTEGER PRIMARY KEY AUTOINCREMENT. Reads order
// by seq, never by timestamp, so the "most recent" view is the insertion
// order even when two records share a display time.
//
// # Lifetime
//
// The store is session-scoped. Sessions open ":memory:" so nothing outlives
// the process; Reset clears both collections for a session restart. The
// store performs no deduplication: keeping one synced record per user and
// run is the caller's job.
//
// # Database Configuration
//
//   - Single connection: one writer, and ":memory:" stays one database
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - WAL + synchronous=NORMAL when backed by a file
package store
