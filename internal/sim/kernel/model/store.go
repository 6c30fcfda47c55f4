package model

import "sort"

// Store maps entity ids to entities.
type Store struct {
	byID map[string]*Entity
}

func NewStore(entities ...*Entity) *Store {
	s := &Store{byID: make(map[string]*Entity, len(entities))}
	for _, e := range entities {
		s.Put(e)
	}
	return s
}

func (s *Store) Get(id string) (*Entity, bool) {
	if s == nil {
		return nil, false
	}
	e, ok := s.byID[id]
	return e, ok
}

// Put inserts or replaces e. Nil entities are ignored.
func (s *Store) Put(e *Entity) {
	if e == nil {
		return
	}
	if s.byID == nil {
		s.byID = map[string]*Entity{}
	}
	s.byID[e.ID] = e
}

func (s *Store) Delete(id string) {
	if s == nil {
		return
	}
	delete(s.byID, id)
}

func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.byID)
}

// IDs returns every entity id in sorted order.
func (s *Store) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ByType returns the entities of one type, sorted by id.
func (s *Store) ByType(typ string) []*Entity {
	var out []*Entity
	for _, id := range s.IDs() {
		if e := s.byID[id]; e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// All returns every entity sorted by id.
func (s *Store) All() []*Entity {
	ids := s.IDs()
	out := make([]*Entity, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.byID[id])
	}
	return out
}

// Clone deep-copies the store: every entity and every component.
func (s *Store) Clone() *Store {
	if s == nil {
		return NewStore()
	}
	out := &Store{byID: make(map[string]*Entity, len(s.byID))}
	for id, e := range s.byID {
		out.byID[id] = e.Clone()
	}
	return out
}
