package event

import (
	"encoding/json"
	"testing"
)

type movedPayload struct {
	GuardID string `json:"guard_id"`
	To      int    `json:"to"`
}

func TestAttribution_NormalizedSortsAndDefaults(t *testing.T) {
	a := Attribution{Kind: AttrActor, SourceID: "crew-2", ActorIDs: []string{"crew-2", "crew-1", "crew-2"}, TargetIDs: []string{"z", "a"}}
	n := a.Normalized("patrol")
	if len(n.ActorIDs) != 2 || n.ActorIDs[0] != "crew-1" || n.ActorIDs[1] != "crew-2" {
		t.Fatalf("actor ids=%v", n.ActorIDs)
	}
	if n.TargetIDs[0] != "a" {
		t.Fatalf("target ids=%v", n.TargetIDs)
	}
	if a.ActorIDs[0] != "crew-2" {
		t.Fatalf("Normalized mutated its input")
	}

	for _, in := range []Attribution{{}, {Kind: "bogus", SourceID: "x"}} {
		got := in.Normalized("patrol")
		if got.Kind != AttrSystem || got.SourceID != "patrol" {
			t.Fatalf("default attribution for %+v = %+v", in, got)
		}
	}
}

func TestCause_DepthCapped(t *testing.T) {
	c := Cause{Kind: CauseWorld, ID: "root"}
	for i := 0; i < 10; i++ {
		c = Cause{Kind: CauseSystem, ID: "s"}.Because(c)
		if c.Depth() > MaxCauseDepth {
			t.Fatalf("depth %d exceeds cap", c.Depth())
		}
	}
	if c.Depth() != MaxCauseDepth {
		t.Fatalf("depth=%d want %d", c.Depth(), MaxCauseDepth)
	}

	long := Cause{Kind: CauseRule, Upstream: make([]CauseRef, MaxCauseDepth+3)}
	if got := long.Normalized().Depth(); got != MaxCauseDepth {
		t.Fatalf("normalized depth=%d", got)
	}
}

func TestCauseFrom_FollowsAttribution(t *testing.T) {
	cases := map[AttributionKind]CauseKind{AttrSystem: CauseSystem, AttrRule: CauseRule, AttrActor: CauseActor}
	for ak, ck := range cases {
		c := CauseFrom(Attribution{Kind: ak, SourceID: "id"})
		if c.Kind != ck || c.ID != "id" {
			t.Fatalf("%s: got %+v", ak, c)
		}
	}
}

func TestCatalog_DuplicateAndCheck(t *testing.T) {
	cat, err := NewCatalog(
		Definition{Type: "GUARD_MOVED", Payload: movedPayload{}},
		Definition{Type: "NOTE", Payload: map[string]any{}, Informational: true},
	)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if err := cat.Register(Definition{Type: "GUARD_MOVED", Payload: movedPayload{}}); err == nil {
		t.Fatalf("expected duplicate definition error")
	}
	if err := cat.Check([]Type{"GUARD_MOVED"}); err != nil {
		t.Fatalf("check: %v", err)
	}
	if err := cat.Check(nil); err == nil {
		t.Fatalf("expected missing reducer error")
	}
	if err := cat.Check([]Type{"GUARD_MOVED", "UNKNOWN"}); err == nil {
		t.Fatalf("expected undefined type error")
	}
	if !cat.Matches(Event{Type: "GUARD_MOVED", Payload: &movedPayload{}}) {
		t.Fatalf("pointer payload should match")
	}
	if cat.Matches(Event{Type: "GUARD_MOVED", Payload: "nope"}) {
		t.Fatalf("string payload should not match")
	}
}

func TestDecode_Defensive(t *testing.T) {
	want := movedPayload{GuardID: "g1", To: 3}
	if got, ok := Decode[movedPayload](Event{Payload: want}); !ok || got != want {
		t.Fatalf("value decode: %+v %v", got, ok)
	}
	if got, ok := Decode[movedPayload](Event{Payload: &want}); !ok || got != want {
		t.Fatalf("pointer decode: %+v %v", got, ok)
	}

	var generic map[string]any
	b, _ := json.Marshal(want)
	_ = json.Unmarshal(b, &generic)
	if got, ok := Decode[movedPayload](Event{Payload: generic}); !ok || got != want {
		t.Fatalf("generic decode: %+v %v", got, ok)
	}

	if _, ok := Decode[movedPayload](Event{Payload: map[string]any{"unexpected": 1}}); ok {
		t.Fatalf("unknown fields must fail")
	}
	if _, ok := Decode[movedPayload](Event{Payload: 42}); ok {
		t.Fatalf("wrong type must fail")
	}
	if _, ok := Decode[movedPayload](Event{}); ok {
		t.Fatalf("nil payload must fail")
	}
}
