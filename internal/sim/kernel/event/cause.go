package event

type CauseKind string

const (
	CauseSystem    CauseKind = "system"
	CauseRule      CauseKind = "rule"
	CauseActor     CauseKind = "actor"
	CauseScheduled CauseKind = "scheduled"
	CauseWorld     CauseKind = "world"
)

// MaxCauseDepth bounds how many upstream links a cause may carry.
const MaxCauseDepth = 4

// CauseRef is a single link in a causal chain.
type CauseRef struct {
	Kind CauseKind `json:"kind"`
	ID   string    `json:"id,omitempty"`
	Note string    `json:"note,omitempty"`
}

// Cause records why an event happened. Upstream lists the causes that led
// here, nearest first, and never holds more than MaxCauseDepth entries.
type Cause struct {
	Kind     CauseKind  `json:"kind"`
	ID       string     `json:"id,omitempty"`
	Note     string     `json:"note,omitempty"`
	Upstream []CauseRef `json:"upstream,omitempty"`
}

func (c Cause) Ref() CauseRef { return CauseRef{Kind: c.Kind, ID: c.ID, Note: c.Note} }

func (c Cause) IsZero() bool { return c.Kind == "" && c.ID == "" && c.Note == "" && len(c.Upstream) == 0 }

// Because chains parent in front of c's upstream list. Links beyond
// MaxCauseDepth are dropped from the far end.
func (c Cause) Because(parent Cause) Cause {
	up := make([]CauseRef, 0, MaxCauseDepth)
	up = append(up, parent.Ref())
	up = append(up, parent.Upstream...)
	if len(up) > MaxCauseDepth {
		up = up[:MaxCauseDepth]
	}
	out := c
	out.Upstream = up
	return out
}

func (c Cause) Depth() int { return len(c.Upstream) }

// Normalized copies the upstream list and enforces the depth cap.
func (c Cause) Normalized() Cause {
	out := c
	if len(c.Upstream) == 0 {
		out.Upstream = nil
		return out
	}
	n := len(c.Upstream)
	if n > MaxCauseDepth {
		n = MaxCauseDepth
	}
	out.Upstream = append([]CauseRef(nil), c.Upstream[:n]...)
	return out
}

// CauseFrom derives the default cause for an attribution.
func CauseFrom(a Attribution) Cause {
	switch a.Kind {
	case AttrRule:
		return Cause{Kind: CauseRule, ID: a.SourceID}
	case AttrActor:
		return Cause{Kind: CauseActor, ID: a.SourceID}
	default:
		return Cause{Kind: CauseSystem, ID: a.SourceID}
	}
}
