package protocol

import "testing"

func TestRoundTripAllTypes(t *testing.T) {
	approve := true
	envs := []Envelope{
		IdleNotification("worker"),
		ShutdownRequest("lead", "worker", "session ending"),
		ShutdownApproved("worker", "lead", "req-1"),
		TaskAssignment("lead", "worker", "3", "write the report"),
		TaskCompleted("worker", "lead", "3", "write the report"),
		PlanApprovalRequest("worker", "lead", "req-2", "do X then Y"),
		PlanApprovalResponse("lead", "worker", "req-2", approve, "do X then Y"),
	}

	for _, env := range envs {
		text, summary, err := Encode(env)
		if err != nil {
			t.Fatalf("Encode(%v): %v", env.Type, err)
		}
		if summary == "" {
			t.Errorf("Encode(%v): empty summary", env.Type)
		}
		got, ok := Parse(text)
		if !ok {
			t.Fatalf("Parse(%v): not recognized as an envelope", env.Type)
		}
		if got.Type != env.Type || got.From != env.From || got.Target != env.Target {
			t.Errorf("round trip mismatch: got %+v, want %+v", got, env)
		}
	}
}

func TestParsePlainTextIsNotEnvelope(t *testing.T) {
	_, ok := Parse("just a normal message, not JSON")
	if ok {
		t.Fatal("plain text should not parse as an envelope")
	}
}

func TestParseJSONWithoutTypeIsNotEnvelope(t *testing.T) {
	_, ok := Parse(`{"foo": "bar"}`)
	if ok {
		t.Fatal("JSON object without a type field should not parse as an envelope")
	}
}

func TestParseRepairsMalformedJSON(t *testing.T) {
	// trailing comma, which a strict decoder rejects outright.
	malformed := `{"type":"idle_notification","from":"worker",}`
	env, ok := Parse(malformed)
	if !ok {
		t.Fatal("expected jsonrepair to recover a trailing-comma envelope")
	}
	if env.Type != TypeIdleNotification || env.From != "worker" {
		t.Errorf("got %+v", env)
	}
}
