package store

import (
	"testing"

	"github.com/teamkit/teamkit/internal/domain"
)

func strPtr(s string) *string       { return &s }
func statusPtr(s domain.Status) *domain.Status { return &s }

func TestTaskIDsAreStrictlyIncreasing(t *testing.T) {
	base := t.TempDir()
	s := NewTaskStore(base, "sess-1")

	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		tsk, err := s.CreateTask("subj", "desc", "", "", nil)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, tsk.ID)
	}
	if ids[0] != "1" || ids[1] != "2" || ids[2] != "3" {
		t.Fatalf("expected sequential ids 1,2,3, got %v", ids)
	}

	if err := s.DeleteTask("2"); err != nil {
		t.Fatal(err)
	}
	again, err := s.CreateTask("subj4", "desc", "", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != "4" {
		t.Fatalf("deleted id 2 must not be reused; got next id %s", again.ID)
	}
}

func TestTaskListSortedNumerically(t *testing.T) {
	base := t.TempDir()
	s := NewTaskStore(base, "sess-1")
	for i := 0; i < 11; i++ {
		if _, err := s.CreateTask("s", "d", "", "", nil); err != nil {
			t.Fatal(err)
		}
	}
	tasks, err := s.ListTasks()
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 11 {
		t.Fatalf("expected 11 tasks, got %d", len(tasks))
	}
	for i, tsk := range tasks {
		want := i + 1
		got := tsk.ID
		if got != itoa(want) {
			t.Fatalf("tasks not sorted numerically: index %d has id %s", i, got)
		}
	}
}

func itoa(n int) string {
	digits := []byte{}
	if n == 0 {
		return "0"
	}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func TestTaskMetadataMergeWithNullDelete(t *testing.T) {
	base := t.TempDir()
	s := NewTaskStore(base, "sess-1")
	tsk, err := s.CreateTask("s", "d", "", "", map[string]any{"priority": "high", "source": "user"})
	if err != nil {
		t.Fatal(err)
	}

	updated, ok, err := s.UpdateTask(tsk.ID, domain.TaskUpdate{
		Metadata: map[string]any{"priority": "low", "source": nil, "tag": "v2"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected update to find the task")
	}
	want := map[string]any{"priority": "low", "tag": "v2"}
	if len(updated.Metadata) != len(want) {
		t.Fatalf("metadata = %v, want %v", updated.Metadata, want)
	}
	for k, v := range want {
		if updated.Metadata[k] != v {
			t.Fatalf("metadata[%s] = %v, want %v", k, updated.Metadata[k], v)
		}
	}
	if _, present := updated.Metadata["source"]; present {
		t.Fatal("source should have been deleted by the null merge")
	}
}

func TestTaskDeletedStatusPurgesFile(t *testing.T) {
	base := t.TempDir()
	s := NewTaskStore(base, "sess-1")
	tsk, err := s.CreateTask("s", "d", "", "", nil)
	if err != nil {
		t.Fatal(err)
	}

	deleted, ok, err := s.UpdateTask(tsk.ID, domain.TaskUpdate{Status: statusPtr(domain.StatusDeleted)})
	if err != nil {
		t.Fatal(err)
	}
	if !ok || !deleted.Deleted {
		t.Fatalf("expected deleted marker set, got %+v (ok=%v)", deleted, ok)
	}

	_, stillThere, err := s.GetTask(tsk.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stillThere {
		t.Fatal("task file should have been purged")
	}

	list, err := s.ListTasks()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Fatalf("deleted task should not appear in ListTasks, got %v", list)
	}
}

func TestTaskUpdateBlockedByUnion(t *testing.T) {
	base := t.TempDir()
	s := NewTaskStore(base, "sess-1")
	a, _ := s.CreateTask("a", "d", "", "", nil)
	b, _ := s.CreateTask("b", "d", "", "", nil)

	updated, ok, err := s.UpdateTask(b.ID, domain.TaskUpdate{AddBlockedBy: []string{a.ID}})
	if err != nil || !ok {
		t.Fatalf("update failed: %v ok=%v", err, ok)
	}
	if len(updated.BlockedBy) != 1 || updated.BlockedBy[0] != a.ID {
		t.Fatalf("expected blockedBy=[%s], got %v", a.ID, updated.BlockedBy)
	}

	// Re-adding the same id must not duplicate it.
	updated2, _, err := s.UpdateTask(b.ID, domain.TaskUpdate{AddBlockedBy: []string{a.ID}})
	if err != nil {
		t.Fatal(err)
	}
	if len(updated2.BlockedBy) != 1 {
		t.Fatalf("expected union to dedupe, got %v", updated2.BlockedBy)
	}
}

func TestTaskUpdateUnknownIDReturnsFalse(t *testing.T) {
	base := t.TempDir()
	s := NewTaskStore(base, "sess-1")
	_, ok, err := s.UpdateTask("999", domain.TaskUpdate{Subject: strPtr("x")})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected ok=false for unknown task id")
	}
}
