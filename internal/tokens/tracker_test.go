package tokens

import "testing"

func TestTrackerAccumulatesPerAgent(t *testing.T) {
	tr := NewTracker()
	tr.Record("sess-1", "lead", 100, 20)
	tr.Record("sess-1", "lead", 50, 10)
	tr.Record("sess-1", "worker", 30, 5)

	usage := tr.SessionUsage("sess-1")
	if usage["lead"].PromptTokens != 150 || usage["lead"].CompletionTokens != 30 {
		t.Fatalf("lead usage = %+v", usage["lead"])
	}
	if usage["worker"].PromptTokens != 30 || usage["worker"].CompletionTokens != 5 {
		t.Fatalf("worker usage = %+v", usage["worker"])
	}
}

func TestTrackerTotalsSumAcrossAgents(t *testing.T) {
	tr := NewTracker()
	tr.Record("sess-1", "lead", 100, 20)
	tr.Record("sess-1", "worker", 30, 5)

	total := tr.Totals("sess-1")
	if total.PromptTokens != 130 || total.CompletionTokens != 25 {
		t.Fatalf("totals = %+v", total)
	}
}

func TestTrackerAllSessionsSortedByID(t *testing.T) {
	tr := NewTracker()
	tr.Record("sess-b", "lead", 10, 1)
	tr.Record("sess-a", "lead", 20, 2)

	all := tr.AllSessions()
	if len(all) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(all))
	}
	if all[0].SessionID != "sess-a" || all[1].SessionID != "sess-b" {
		t.Fatalf("expected sorted session ids, got %+v", all)
	}
	if all[0].Usage.PromptTokens != 20 {
		t.Fatalf("sess-a usage = %+v", all[0].Usage)
	}
}

func TestTrackerClearSession(t *testing.T) {
	tr := NewTracker()
	tr.Record("sess-1", "lead", 100, 20)
	tr.ClearSession("sess-1")

	if total := tr.Totals("sess-1"); total.PromptTokens != 0 || total.CompletionTokens != 0 {
		t.Fatalf("expected zero usage after ClearSession, got %+v", total)
	}
	if len(tr.AllSessions()) != 0 {
		t.Fatal("expected no tracked sessions after ClearSession")
	}
}

func TestEstimatorCountsNonEmptyText(t *testing.T) {
	e := NewEstimator()
	if n := e.Count(""); n != 0 {
		t.Fatalf("empty text should count 0 tokens, got %d", n)
	}
	if n := e.Count("hello world, this is a longer sentence for counting"); n == 0 {
		t.Fatal("non-empty text should count at least one token")
	}
}
