package heist

import (
	_ "embed"
	"fmt"

	"rivet.ai/internal/sim/kernel"
	"rivet.ai/internal/sim/pack"
)

//go:embed pack.schema.json
var packSchemaJSON []byte

// Pack is the static description of one heist.
type Pack struct {
	Name           string         `yaml:"name" json:"name"`
	MaxHeat        int            `yaml:"max_heat" json:"max_heat"`
	HeatThresholds []int          `yaml:"heat_thresholds" json:"heat_thresholds,omitempty"`
	SpotHeat       int            `yaml:"spot_heat" json:"spot_heat"`
	CatchLimit     int            `yaml:"catch_limit" json:"catch_limit"`
	Grid           Grid           `yaml:"grid" json:"grid"`
	Crew           []CrewDef      `yaml:"crew" json:"crew,omitempty"`
	Guards         []GuardDef     `yaml:"guards" json:"guards,omitempty"`
	Objectives     []ObjectiveDef `yaml:"objectives" json:"objectives,omitempty"`
	Rules          []RuleDef      `yaml:"rules" json:"rules,omitempty"`
}

type Grid struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

type CrewDef struct {
	ID        string `yaml:"id" json:"id"`
	Pos       Vec    `yaml:"pos" json:"pos"`
	Speed     int    `yaml:"speed" json:"speed"`
	Objective string `yaml:"objective" json:"objective"`
}

type GuardDef struct {
	ID          string `yaml:"id" json:"id"`
	Route       []Vec  `yaml:"route" json:"route,omitempty"`
	PatrolDelay int    `yaml:"patrol_delay" json:"patrol_delay"`
	Sight       int    `yaml:"sight" json:"sight"`
}

type ObjectiveDef struct {
	ID   string `yaml:"id" json:"id"`
	Pos  Vec    `yaml:"pos" json:"pos"`
	Work int    `yaml:"work" json:"work"`
}

// RuleDef is an optional directive: once heat reaches TriggerHeat it fires,
// adds Noise heat, and rests for Cooldown ticks.
type RuleDef struct {
	ID          string `yaml:"id" json:"id"`
	TriggerHeat int    `yaml:"trigger_heat" json:"trigger_heat"`
	Cooldown    int    `yaml:"cooldown" json:"cooldown"`
	Noise       int    `yaml:"noise" json:"noise"`
}

// Config is the run configuration shared by every snapshot of a run: the
// pack plus the rules selected for this run, in selection order.
type Config struct {
	Pack  Pack      `json:"pack"`
	Rules []RuleDef `json:"rules,omitempty"`
}

func (c *Config) rule(id string) (RuleDef, bool) {
	for _, r := range c.Rules {
		if r.ID == id {
			return r, true
		}
	}
	return RuleDef{}, false
}

func configOf(v any) *Config {
	c, _ := v.(*Config)
	return c
}

// PackSchema compiles the embedded pack schema.
func PackSchema() (*pack.Schema, error) {
	return pack.CompileSchema("heist-pack.schema.json", packSchemaJSON)
}

// LoadPack reads, schema-validates and decodes a pack file.
func LoadPack(path string) (*Pack, string, error) {
	doc, err := pack.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	p, err := DecodePack(doc)
	if err != nil {
		return nil, "", err
	}
	return p, doc.Digest, nil
}

func DecodePack(doc pack.Document) (*Pack, error) {
	schema, err := PackSchema()
	if err != nil {
		return nil, err
	}
	var p Pack
	if err := pack.Decode(doc, schema, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate reports the cross-field problems a schema cannot express:
// duplicate ids, positions outside the grid, dangling references and
// threshold ordering.
func (p *Pack) Validate() []kernel.ConfigError {
	var errs []kernel.ConfigError
	add := func(field, msg string, value any, bounds string) {
		errs = append(errs, kernel.ConfigError{Field: field, Message: msg, Value: value, Bounds: bounds})
	}

	if p.MaxHeat < 1 || p.MaxHeat > 10000 {
		add("max_heat", "out of range", p.MaxHeat, "1..10000")
	}
	if p.Grid.Width < 1 || p.Grid.Width > 256 {
		add("grid.width", "out of range", p.Grid.Width, "1..256")
	}
	if p.Grid.Height < 1 || p.Grid.Height > 256 {
		add("grid.height", "out of range", p.Grid.Height, "1..256")
	}
	if p.SpotHeat < 0 {
		add("spot_heat", "must not be negative", p.SpotHeat, ">= 0")
	}
	if p.CatchLimit < 0 {
		add("catch_limit", "must not be negative", p.CatchLimit, ">= 0")
	}
	prev := 0
	for i, t := range p.HeatThresholds {
		field := fmt.Sprintf("heat_thresholds[%d]", i)
		if t <= prev {
			add(field, "thresholds must be positive and strictly ascending", t, fmt.Sprintf("> %d", prev))
		}
		if t >= p.MaxHeat {
			add(field, "threshold not below max_heat", t, fmt.Sprintf("< %d", p.MaxHeat))
		}
		prev = t
	}
	if len(p.Crew) == 0 {
		add("crew", "at least one crew member is required", nil, "")
	}
	if len(p.Objectives) == 0 {
		add("objectives", "at least one objective is required", nil, "")
	}

	ids := map[string]string{}
	claim := func(field, id string) {
		if id == "" {
			add(field, "must not be empty", nil, "")
			return
		}
		if prevField, dup := ids[id]; dup {
			add(field, "duplicate id (first used at "+prevField+")", id, "")
			return
		}
		ids[id] = field
	}
	inGrid := func(field string, v Vec) {
		if v[0] < 0 || v[1] < 0 || v[0] >= p.Grid.Width || v[1] >= p.Grid.Height {
			add(field, "outside the grid", v, fmt.Sprintf("[0,0]..[%d,%d]", p.Grid.Width-1, p.Grid.Height-1))
		}
	}

	objectives := map[string]bool{}
	for i, o := range p.Objectives {
		base := fmt.Sprintf("objectives[%d]", i)
		claim(base+".id", o.ID)
		inGrid(base+".pos", o.Pos)
		if o.Work < 1 {
			add(base+".work", "must be >= 1", o.Work, ">= 1")
		}
		objectives[o.ID] = true
	}
	for i, c := range p.Crew {
		base := fmt.Sprintf("crew[%d]", i)
		claim(base+".id", c.ID)
		inGrid(base+".pos", c.Pos)
		if c.Speed < 1 || c.Speed > 4 {
			add(base+".speed", "out of range", c.Speed, "1..4")
		}
		if !objectives[c.Objective] {
			add(base+".objective", "unknown objective", c.Objective, "")
		}
	}
	for i, g := range p.Guards {
		base := fmt.Sprintf("guards[%d]", i)
		claim(base+".id", g.ID)
		if len(g.Route) == 0 {
			add(base+".route", "must have at least one point", nil, "")
		}
		for j, v := range g.Route {
			inGrid(fmt.Sprintf("%s.route[%d]", base, j), v)
		}
		if g.PatrolDelay < 0 {
			add(base+".patrol_delay", "must not be negative", g.PatrolDelay, ">= 0")
		}
		if g.Sight < 0 {
			add(base+".sight", "must not be negative", g.Sight, ">= 0")
		}
	}
	rules := map[string]bool{}
	for i, r := range p.Rules {
		base := fmt.Sprintf("rules[%d]", i)
		if r.ID == "" {
			add(base+".id", "must not be empty", nil, "")
		} else if rules[r.ID] {
			add(base+".id", "duplicate rule id", r.ID, "")
		}
		rules[r.ID] = true
		if r.Cooldown < 0 {
			add(base+".cooldown", "must not be negative", r.Cooldown, ">= 0")
		}
		if r.TriggerHeat < 0 {
			add(base+".trigger_heat", "must not be negative", r.TriggerHeat, ">= 0")
		}
	}
	return errs
}
