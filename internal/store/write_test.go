package store

import (
	"context"
	"testing"
)

func TestAppendLocal_AssignsMonotonicSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	var last int64
	for i, name := range []string{"ada", "grace", "edsger"} {
		seq, err := s.AppendLocal(ctx, createTestLocal(name, name))
		if err != nil {
			t.Fatalf("AppendLocal(%d) failed: %v", i, err)
		}
		if seq <= last {
			t.Errorf("seq %d not greater than previous %d", seq, last)
		}
		last = seq
	}
}

func TestAppendLocal_IgnoresCallerSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := createTestLocal("1", "ada")
	rec.Seq = 42
	seq, err := s.AppendLocal(ctx, rec)
	if err != nil {
		t.Fatalf("AppendLocal() failed: %v", err)
	}
	if seq != 1 {
		t.Errorf("seq = %d, want 1", seq)
	}
}

func TestAppendLocal_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	want := LocalRecord{
		ID:        "local-abc",
		Name:      "Ada Lovelace",
		Email:     "ada@example.com",
		CreatedAt: "09:15:00",
		RunID:     "run-1",
	}
	seq, err := s.AppendLocal(ctx, want)
	if err != nil {
		t.Fatalf("AppendLocal() failed: %v", err)
	}
	want.Seq = seq

	got, err := s.LocalByID(ctx, "local-abc")
	if err != nil {
		t.Fatalf("LocalByID() failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("LocalByID() returned %d records, want 1", len(got))
	}
	if got[0] != want {
		t.Errorf("LocalByID() = %+v, want %+v", got[0], want)
	}
}

func TestAppendSynced_NoDeduplication(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := s.AppendSynced(ctx, createTestSynced("7", "ada")); err != nil {
			t.Fatalf("AppendSynced(%d) failed: %v", i, err)
		}
	}

	got, err := s.SyncedFor(ctx, "7")
	if err != nil {
		t.Fatalf("SyncedFor() failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("SyncedFor() returned %d records, want 2 (store does not dedupe)", len(got))
	}
	if len(got) == 2 && got[0].Seq >= got[1].Seq {
		t.Errorf("SyncedFor() not in insertion order: %d, %d", got[0].Seq, got[1].Seq)
	}
}

func TestAppendSynced_WithoutLocalRecord(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// user_id is a reference, not a foreign key.
	if _, err := s.AppendSynced(ctx, createTestSynced("missing", "ghost")); err != nil {
		t.Fatalf("AppendSynced() failed: %v", err)
	}
}

func TestAppend_CancelledContext(t *testing.T) {
	s := createTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.AppendLocal(ctx, createTestLocal("1", "ada")); err == nil {
		t.Error("AppendLocal() with cancelled context should fail")
	}
	if _, err := s.AppendSynced(ctx, createTestSynced("1", "ada")); err == nil {
		t.Error("AppendSynced() with cancelled context should fail")
	}
}
