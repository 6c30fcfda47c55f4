// Package heist is a compact heist ruleset: a crew works objectives while
// guards patrol and heat climbs. It exercises every kernel contract and backs
// the command line tools.
package heist

import "rivet.ai/internal/sim/kernel/model"

const (
	KindPosition  model.Kind = "heist.position"
	KindGuard     model.Kind = "heist.guard"
	KindCrew      model.Kind = "heist.crew"
	KindObjective model.Kind = "heist.objective"
)

const (
	TypeCrew      = "crew"
	TypeGuard     = "guard"
	TypeObjective = "objective"
)

// Vec is a grid cell, [x, y].
type Vec [2]int

func manhattan(a, b Vec) int {
	return abs(a[0]-b[0]) + abs(a[1]-b[1])
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

type Position struct {
	At Vec `json:"at"`
}

func (*Position) Kind() model.Kind { return KindPosition }
func (p *Position) CloneComponent() model.Component {
	cp := *p
	return &cp
}

type Guard struct {
	Route       []Vec `json:"route"`
	Index       int   `json:"index"`
	Delay       int   `json:"delay"`
	PatrolDelay int   `json:"patrol_delay"`
	Sight       int   `json:"sight"`
}

func (*Guard) Kind() model.Kind { return KindGuard }
func (g *Guard) CloneComponent() model.Component {
	cp := *g
	cp.Route = append([]Vec(nil), g.Route...)
	return &cp
}

type Crew struct {
	Speed     int    `json:"speed"`
	Objective string `json:"objective"`
}

func (*Crew) Kind() model.Kind { return KindCrew }
func (c *Crew) CloneComponent() model.Component {
	cp := *c
	return &cp
}

type Objective struct {
	Progress int  `json:"progress"`
	Work     int  `json:"work"`
	Done     bool `json:"done"`
}

func (*Objective) Kind() model.Kind { return KindObjective }
func (o *Objective) CloneComponent() model.Component {
	cp := *o
	return &cp
}

// NewSchema binds the heist component kinds.
func NewSchema() (*model.Schema, error) {
	return model.NewSchema(&Position{}, &Guard{}, &Crew{}, &Objective{})
}
