package model

import "testing"

type posComp struct{ X, Y int }

func (*posComp) Kind() Kind { return "pos" }
func (p *posComp) CloneComponent() Component {
	cp := *p
	return &cp
}

type tagsComp struct{ Tags []string }

func (*tagsComp) Kind() Kind { return "tags" }
func (t *tagsComp) CloneComponent() Component {
	return &tagsComp{Tags: append([]string(nil), t.Tags...)}
}

// wrongPos claims the "pos" kind with a different Go type.
type wrongPos struct{}

func (wrongPos) Kind() Kind                  { return "pos" }
func (w wrongPos) CloneComponent() Component { return w }

type unknownComp struct{}

func (unknownComp) Kind() Kind                  { return "mystery" }
func (u unknownComp) CloneComponent() Component { return u }

func testSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := NewSchema(&posComp{}, &tagsComp{})
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	return s
}

func TestSchema_RejectsDuplicateKind(t *testing.T) {
	s := testSchema(t)
	if err := s.Register(&posComp{}); err == nil {
		t.Fatalf("expected duplicate kind error")
	}
	if err := s.Register(nil); err == nil {
		t.Fatalf("expected nil prototype error")
	}
	kinds := s.Kinds()
	if len(kinds) != 2 || kinds[0] != "pos" || kinds[1] != "tags" {
		t.Fatalf("kinds=%v", kinds)
	}
}

func TestSchema_NewEntityValidates(t *testing.T) {
	s := testSchema(t)
	cases := []struct {
		name  string
		id    string
		comps []Component
	}{
		{"empty id", "", nil},
		{"unknown kind", "e1", []Component{unknownComp{}}},
		{"wrong type", "e1", []Component{wrongPos{}}},
		{"nil component", "e1", []Component{nil}},
		{"duplicate kind", "e1", []Component{&posComp{}, &posComp{}}},
	}
	for _, tc := range cases {
		if _, err := s.NewEntity(tc.id, "thing", tc.comps...); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}

	e, err := s.NewEntity("e1", "thing", &posComp{X: 1}, &tagsComp{Tags: []string{"a"}})
	if err != nil {
		t.Fatalf("valid entity: %v", err)
	}
	p, ok := Get[*posComp](e, "pos")
	if !ok || p.X != 1 {
		t.Fatalf("typed get: ok=%v p=%+v", ok, p)
	}
	if _, ok := Get[*tagsComp](e, "pos"); ok {
		t.Fatalf("typed get with wrong type must fail")
	}
	if err := e.Set(wrongPos{}); err == nil {
		t.Fatalf("Set must enforce the schema")
	}
}

func TestStore_ByTypeSortedAndCloneIsolated(t *testing.T) {
	s := testSchema(t)
	mk := func(id, typ string) *Entity {
		e, err := s.NewEntity(id, typ, &posComp{X: len(id)}, &tagsComp{Tags: []string{id}})
		if err != nil {
			t.Fatalf("entity %s: %v", id, err)
		}
		return e
	}
	st := NewStore(mk("guard-b", "guard"), mk("crew-a", "crew"), mk("guard-a", "guard"))

	guards := st.ByType("guard")
	if len(guards) != 2 || guards[0].ID != "guard-a" || guards[1].ID != "guard-b" {
		t.Fatalf("ByType order wrong: %v", guards)
	}
	if _, ok := st.Get("nope"); ok {
		t.Fatalf("missing id must report ok=false")
	}

	cp := st.Clone()
	e, _ := cp.Get("guard-a")
	p, _ := Get[*posComp](e, "pos")
	p.X = 99
	tags, _ := Get[*tagsComp](e, "tags")
	tags.Tags[0] = "mutated"
	cp.Delete("crew-a")

	orig, _ := st.Get("guard-a")
	if op, _ := Get[*posComp](orig, "pos"); op.X != len("guard-a") {
		t.Fatalf("clone shares position component")
	}
	if ot, _ := Get[*tagsComp](orig, "tags"); ot.Tags[0] != "guard-a" {
		t.Fatalf("clone shares tag slice")
	}
	if st.Len() != 3 || cp.Len() != 2 {
		t.Fatalf("len orig=%d clone=%d", st.Len(), cp.Len())
	}
}

func TestView_ComponentIsCopy(t *testing.T) {
	s := testSchema(t)
	e, err := s.NewEntity("e1", "thing", &posComp{X: 5})
	if err != nil {
		t.Fatalf("entity: %v", err)
	}
	v := ViewOf(e)
	p, ok := ViewAs[*posComp](v, "pos")
	if !ok {
		t.Fatalf("view missing pos")
	}
	p.X = 100
	live, _ := Get[*posComp](e, "pos")
	if live.X != 5 {
		t.Fatalf("view leaked live component")
	}
	if v.ID() != "e1" || v.Type() != "thing" || !v.Has("pos") || v.Has("tags") {
		t.Fatalf("view accessors wrong")
	}
}

func TestStore_NilReceiverIsEmpty(t *testing.T) {
	var s *Store
	s.Delete("x")
	if _, ok := s.Get("x"); ok || s.Len() != 0 || s.IDs() != nil {
		t.Fatalf("nil store not empty")
	}
	if s.Clone().Len() != 0 {
		t.Fatalf("clone of nil store not empty")
	}
}
