package store

import (
	"context"
	"errors"
	"testing"
)

func TestReadLog_EmptySession(t *testing.T) {
	s := createTestStore(t)

	got, err := s.ReadLog(context.Background(), "missing")
	if err != nil {
		t.Fatalf("ReadLog() failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("ReadLog() = %v, want empty non-nil slice", got)
	}
}

func TestReadLog_OrderedByIndex(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	canon := createTestLog()
	for i := len(canon) - 1; i >= 0; i-- {
		if _, err := s.AppendMove(ctx, "s1", canon[i]); err != nil {
			t.Fatalf("AppendMove() failed: %v", err)
		}
	}

	got, err := s.ReadLog(ctx, "s1")
	if err != nil {
		t.Fatalf("ReadLog() failed: %v", err)
	}
	for i, rec := range got {
		if rec.Index != i {
			t.Errorf("position %d holds index %d", i, rec.Index)
		}
	}
}

func TestReadDigest_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, _, err := s.ReadDigest(context.Background(), "missing")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("ReadDigest() error = %v, want ErrSessionNotFound", err)
	}
}

func TestListSessions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.ReplaceLog(ctx, "beta", createTestLog()); err != nil {
		t.Fatalf("ReplaceLog() failed: %v", err)
	}
	if _, err := s.AppendMove(ctx, "alpha", createTestLog()[0]); err != nil {
		t.Fatalf("AppendMove() failed: %v", err)
	}

	sessions, err := s.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions() failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("ListSessions() returned %d sessions, want 2", len(sessions))
	}

	if sessions[0].ID != "alpha" || sessions[0].MoveCount != 1 || sessions[0].Digest != "" {
		t.Errorf("sessions[0] = %+v", sessions[0])
	}
	if sessions[1].ID != "beta" || sessions[1].MoveCount != 5 || sessions[1].Digest == "" {
		t.Errorf("sessions[1] = %+v", sessions[1])
	}
}
