package hashchain

import (
	"encoding/json"
	"errors"
	"testing"

	"rivet.ai/internal/sim/kernel/event"
	"rivet.ai/internal/sim/kernel/model"
	"rivet.ai/internal/sim/kernel/state"
)

type noisePayload struct {
	Level int `json:"level"`
}

func sampleEvents(t *testing.T) []event.Event {
	t.Helper()
	evs := []event.Event{
		{Tick: 4, Ordinal: 0, Type: "NOISE", Payload: noisePayload{Level: 2}, Cause: event.Cause{Kind: event.CauseSystem, ID: "alert"}, Attribution: event.BySystem("alert")},
		{Tick: 4, Ordinal: 1, Type: "NOISE", Payload: noisePayload{Level: 3}, Cause: event.Cause{Kind: event.CauseSystem, ID: "alert"}, Attribution: event.BySystem("alert")},
	}
	for i := range evs {
		id, err := EventID("seed-1", evs[i])
		if err != nil {
			t.Fatalf("event id: %v", err)
		}
		evs[i].ID = id
	}
	return evs
}

func TestGenesisHash(t *testing.T) {
	if len(GenesisHash) != 64 {
		t.Fatalf("len=%d", len(GenesisHash))
	}
	for _, c := range GenesisHash {
		if c != '0' {
			t.Fatalf("genesis hash must be all zeros")
		}
	}
}

func TestEventID_IgnoresAttributionSetOrder(t *testing.T) {
	base := event.Event{Tick: 1, Type: "X", Payload: noisePayload{1}, Attribution: event.Attribution{Kind: event.AttrActor, SourceID: "a", ActorIDs: []string{"b", "a"}}}
	swapped := base
	swapped.Attribution.ActorIDs = []string{"a", "b"}
	id1, err := EventID("w", base)
	if err != nil {
		t.Fatalf("id1: %v", err)
	}
	id2, err := EventID("w", swapped)
	if err != nil {
		t.Fatalf("id2: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("actor id order changed the event id")
	}
	if base.Attribution.ActorIDs[0] != "b" {
		t.Fatalf("EventID mutated the event")
	}

	other := base
	other.Ordinal = 1
	id3, _ := EventID("w", other)
	if id3 == id1 {
		t.Fatalf("ordinal not covered by event id")
	}
	id4, _ := EventID("w2", base)
	if id4 == id1 {
		t.Fatalf("world id not covered by event id")
	}
}

func TestBatchHash_EmptyBatchIsStable(t *testing.T) {
	a, err := BatchHash(nil)
	if err != nil {
		t.Fatalf("nil batch: %v", err)
	}
	b, err := BatchHash([]event.Event{})
	if err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	if a != b {
		t.Fatalf("nil and empty batches hash differently")
	}
}

func TestVerifyBatch_DetectsTamperedPayload(t *testing.T) {
	evs := sampleEvents(t)
	batch, err := BatchHash(evs)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	last := NextLastEventHash(GenesisHash, batch)
	if err := VerifyBatch(evs, GenesisHash, last, 4); err != nil {
		t.Fatalf("untouched batch failed verification: %v", err)
	}
	if err := VerifyEventIDs("seed-1", evs); err != nil {
		t.Fatalf("event ids: %v", err)
	}

	evs[1].Payload = noisePayload{Level: 99}
	err = VerifyBatch(evs, GenesisHash, last, 4)
	var mm *ChainMismatchError
	if !errors.As(err, &mm) || mm.Tick != 4 {
		t.Fatalf("expected chain mismatch at tick 4, got %v", err)
	}
	if err := VerifyEventIDs("seed-1", evs); err == nil {
		t.Fatalf("tampered payload kept its event id")
	}
}

func TestVerifyBatch_AcceptsEventsReadBackAsJSON(t *testing.T) {
	evs := sampleEvents(t)
	batch, _ := BatchHash(evs)
	last := NextLastEventHash("", batch)

	raw, err := json.Marshal(evs)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back []event.Event
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := VerifyBatch(back, GenesisHash, last, 4); err != nil {
		t.Fatalf("decoded events failed verification: %v", err)
	}
}

type flag struct{ On bool }

func (*flag) Kind() model.Kind { return "flag" }
func (f *flag) CloneComponent() model.Component {
	cp := *f
	return &cp
}

type dom struct {
	Heat int `json:"heat"`
}

func (d *dom) CloneDomain() state.Domain {
	cp := *d
	return &cp
}

func TestStateHash_CoversEntitiesDomainAndHeader(t *testing.T) {
	schema, err := model.NewSchema(&flag{})
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	e, _ := schema.NewEntity("e1", "lamp", &flag{On: true})
	s := &state.State{WorldID: "w", Entities: model.NewStore(e), Domain: &dom{Heat: 1}, LastEventHash: GenesisHash}

	base, err := StateHash(s)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	again, _ := StateHash(s.Clone())
	if base != again {
		t.Fatalf("clone hashes differently")
	}

	mutations := map[string]func(*state.State){
		"tick":   func(c *state.State) { c.Tick++ },
		"result": func(c *state.State) { c.Result = "WON" },
		"domain": func(c *state.State) { c.Domain.(*dom).Heat = 2 },
		"component": func(c *state.State) {
			ce, _ := c.Entities.Get("e1")
			f, _ := model.Get[*flag](ce, "flag")
			f.On = false
		},
		"entity": func(c *state.State) { c.Entities.Delete("e1") },
	}
	for name, mut := range mutations {
		c := s.Clone()
		mut(c)
		got, err := StateHash(c)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got == base {
			t.Fatalf("%s change not covered by state hash", name)
		}
	}

	c := s.Clone()
	c.StateHash = "anything"
	if got, _ := StateHash(c); got != base {
		t.Fatalf("StateHash field must not feed back into the digest")
	}
}
