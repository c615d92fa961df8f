package history

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"testing"
)

func readRecords(t *testing.T, path string) []record {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open history file: %v", err)
	}
	defer f.Close()

	var records []record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("corrupt JSONL line %q: %v", scanner.Text(), err)
		}
		records = append(records, rec)
	}
	return records
}

func TestFileSinkAppendsOneLinePerCall(t *testing.T) {
	dir := t.TempDir()
	s := NewFileSink(dir)
	ctx := context.Background()

	if err := s.SyncMessage(ctx, "sess-1", "worker", "lead", "go do the thing"); err != nil {
		t.Fatal(err)
	}
	if err := s.SyncTask(ctx, "sess-1", "1", map[string]any{"subject": "write report"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SyncAgentTurn(ctx, "sess-1", "worker", map[string]any{"loops": 2}); err != nil {
		t.Fatal(err)
	}

	records := readRecords(t, s.sessionPath("sess-1"))
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].Kind != "message" || records[0].Agent != "worker" || records[0].From != "lead" {
		t.Fatalf("unexpected message record: %+v", records[0])
	}
	if records[1].Kind != "task" || records[1].TaskID != "1" {
		t.Fatalf("unexpected task record: %+v", records[1])
	}
	if records[2].Kind != "turn" || records[2].Agent != "worker" {
		t.Fatalf("unexpected turn record: %+v", records[2])
	}
}

func TestFileSinkSeparatesSessions(t *testing.T) {
	dir := t.TempDir()
	s := NewFileSink(dir)
	ctx := context.Background()

	if err := s.SyncMessage(ctx, "sess-a", "x", "y", "one"); err != nil {
		t.Fatal(err)
	}
	if err := s.SyncMessage(ctx, "sess-b", "x", "y", "two"); err != nil {
		t.Fatal(err)
	}

	if got := len(readRecords(t, s.sessionPath("sess-a"))); got != 1 {
		t.Fatalf("sess-a: expected 1 record, got %d", got)
	}
	if got := len(readRecords(t, s.sessionPath("sess-b"))); got != 1 {
		t.Fatalf("sess-b: expected 1 record, got %d", got)
	}
}

func TestFileSinkHonorsCancelledContext(t *testing.T) {
	dir := t.TempDir()
	s := NewFileSink(dir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.SyncMessage(ctx, "sess-1", "x", "y", "late"); err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
	if _, err := os.Stat(s.sessionPath("sess-1")); !os.IsNotExist(err) {
		t.Fatal("no file should be written for a cancelled call")
	}
}
