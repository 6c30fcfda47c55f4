package state

import (
	"testing"

	"rivet.ai/internal/sim/kernel/model"
)

type counters struct {
	Heat  int
	Flags map[string]bool
}

func (c *counters) CloneDomain() Domain {
	out := &counters{Heat: c.Heat, Flags: make(map[string]bool, len(c.Flags))}
	for k, v := range c.Flags {
		out.Flags[k] = v
	}
	return out
}

type hp struct{ V int }

func (*hp) Kind() model.Kind { return "hp" }
func (h *hp) CloneComponent() model.Component {
	cp := *h
	return &cp
}

func TestClone_IsolatesMutableParts(t *testing.T) {
	schema, err := model.NewSchema(&hp{})
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	e, err := schema.NewEntity("a", "crew", &hp{V: 10})
	if err != nil {
		t.Fatalf("entity: %v", err)
	}
	cfg := &struct{ MaxHeat int }{MaxHeat: 5}
	orig := &State{
		Tick:     3,
		WorldID:  "seed",
		Entities: model.NewStore(e),
		Domain:   &counters{Heat: 1, Flags: map[string]bool{"pause": true}},
		Config:   cfg,
	}

	cp := orig.Clone()
	cp.Domain.(*counters).Heat = 9
	cp.Domain.(*counters).Flags["pause"] = false
	ce, _ := cp.Entities.Get("a")
	h, _ := model.Get[*hp](ce, "hp")
	h.V = 0
	cp.Result = "WON"

	if orig.Domain.(*counters).Heat != 1 || !orig.Domain.(*counters).Flags["pause"] {
		t.Fatalf("domain shared between clones")
	}
	oe, _ := orig.Entities.Get("a")
	if oh, _ := model.Get[*hp](oe, "hp"); oh.V != 10 {
		t.Fatalf("component shared between clones")
	}
	if orig.Terminal() || !cp.Terminal() {
		t.Fatalf("terminal flags wrong")
	}
	if cp.Config != orig.Config {
		t.Fatalf("config must be shared by reference")
	}
}
