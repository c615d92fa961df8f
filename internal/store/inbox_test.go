package store

import (
	"path/filepath"
	"testing"

	"github.com/teamkit/teamkit/internal/domain"
	"github.com/teamkit/teamkit/internal/filestore"
)

func TestInboxLazyDirectoryCreation(t *testing.T) {
	base := t.TempDir()
	s := NewInboxStore(base, "sess-1")

	msgs, err := s.ReadAll("a")
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected empty inbox, got %v", msgs)
	}
	if filestore.Exists(s.dir()) {
		t.Fatal("inbox directory should not exist after a read-only call")
	}

	if err := s.Append("a", domain.NewMessage("lead", "hi", "", "", fixedTime())); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if !filestore.Exists(s.dir()) {
		t.Fatal("inbox directory should exist after the first append")
	}

	bMsgs, err := s.ReadAll("b")
	if err != nil {
		t.Fatalf("ReadAll(b): %v", err)
	}
	if len(bMsgs) != 0 {
		t.Fatalf("expected b's inbox empty, got %v", bMsgs)
	}
	if filestore.Exists(filepath.Join(s.dir(), "b.json")) {
		t.Fatal("b.json should not have been created by a read")
	}
}

func TestInboxReadUnreadIsIdempotent(t *testing.T) {
	base := t.TempDir()
	s := NewInboxStore(base, "sess-1")

	if err := s.Append("worker", domain.NewMessage("lead", "do the thing", "", "", fixedTime())); err != nil {
		t.Fatal(err)
	}

	first, err := s.ReadUnread("worker")
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 unread message, got %d", len(first))
	}

	second, err := s.ReadUnread("worker")
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != 0 {
		t.Fatalf("expected no unread on second call, got %d", len(second))
	}

	all, err := s.ReadAll("worker")
	if err != nil {
		t.Fatal(err)
	}
	if !all[0].Read {
		t.Fatal("message should be marked read after ReadUnread")
	}
}

func TestInboxAppendOrderPreserved(t *testing.T) {
	base := t.TempDir()
	s := NewInboxStore(base, "sess-1")
	for _, text := range []string{"one", "two", "three"} {
		if err := s.Append("worker", domain.NewMessage("lead", text, "", "", fixedTime())); err != nil {
			t.Fatal(err)
		}
	}
	unread, err := s.ReadUnread("worker")
	if err != nil {
		t.Fatal(err)
	}
	if len(unread) != 3 || unread[0].Text != "one" || unread[2].Text != "three" {
		t.Fatalf("unexpected order: %+v", unread)
	}
}

func TestInboxClearAndCleanup(t *testing.T) {
	base := t.TempDir()
	s := NewInboxStore(base, "sess-1")
	if err := s.Append("worker", domain.NewMessage("lead", "x", "", "", fixedTime())); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear("worker"); err != nil {
		t.Fatal(err)
	}
	msgs, err := s.ReadAll("worker")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected empty inbox after Clear, got %v", msgs)
	}

	if err := s.Append("worker", domain.NewMessage("lead", "x", "", "", fixedTime())); err != nil {
		t.Fatal(err)
	}
	if err := s.Cleanup(); err != nil {
		t.Fatal(err)
	}
	if filestore.Exists(s.dir()) {
		t.Fatal("Cleanup should remove the inbox directory")
	}
}
