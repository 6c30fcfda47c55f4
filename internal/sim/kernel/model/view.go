package model

// View is the read-only face of an entity handed to systems. Component
// lookups return clones, so a system that scribbles on what it reads cannot
// reach the live state.
type View struct {
	e *Entity
}

func ViewOf(e *Entity) View { return View{e: e} }

func (v View) ID() string   { return v.e.ID }
func (v View) Type() string { return v.e.Type }

func (v View) Has(k Kind) bool { return v.e.Has(k) }

func (v View) Kinds() []Kind { return v.e.Kinds() }

func (v View) Component(k Kind) (Component, bool) {
	c, ok := v.e.comps[k]
	if !ok {
		return nil, false
	}
	return c.CloneComponent(), true
}

// ViewAs is the typed accessor for views.
func ViewAs[T Component](v View, k Kind) (T, bool) {
	var zero T
	c, ok := v.Component(k)
	if !ok {
		return zero, false
	}
	t, ok := c.(T)
	return t, ok
}
