// Package event defines the finalized event record, its attribution and
// cause metadata, and the catalog binding event types to payload types.
package event

import "sort"

// Type is an event type tag such as "GUARD_MOVED".
type Type string

// Event is one finalized entry in a tick batch. ID is empty while the event
// is only a proposal.
type Event struct {
	ID          string      `json:"id"`
	Tick        uint64      `json:"tick"`
	Ordinal     int         `json:"ordinal"`
	Type        Type        `json:"type"`
	Payload     any         `json:"payload"`
	Cause       Cause       `json:"cause"`
	Attribution Attribution `json:"attribution"`
}

type AttributionKind string

const (
	AttrSystem AttributionKind = "system"
	AttrRule   AttributionKind = "rule"
	AttrActor  AttributionKind = "actor"
)

func (k AttributionKind) Valid() bool {
	switch k {
	case AttrSystem, AttrRule, AttrActor:
		return true
	}
	return false
}

// Attribution says who an event is credited to. ActorIDs and TargetIDs are
// sets; Normalized sorts and dedups them before hashing.
type Attribution struct {
	Kind      AttributionKind `json:"kind"`
	SourceID  string          `json:"source_id"`
	ActorIDs  []string        `json:"actor_ids,omitempty"`
	TargetIDs []string        `json:"target_ids,omitempty"`
	Severity  int             `json:"severity,omitempty"`
	ReasonKey string          `json:"reason_key,omitempty"`
}

func BySystem(id string) Attribution { return Attribution{Kind: AttrSystem, SourceID: id} }
func ByRule(id string) Attribution   { return Attribution{Kind: AttrRule, SourceID: id} }

func ByActor(id string, targets ...string) Attribution {
	return Attribution{Kind: AttrActor, SourceID: id, ActorIDs: []string{id}, TargetIDs: targets}
}

// Normalized returns a copy with sorted, deduplicated id lists. A missing or
// unknown kind becomes a system attribution credited to fallbackSystem.
func (a Attribution) Normalized(fallbackSystem string) Attribution {
	out := a
	if !out.Kind.Valid() {
		out.Kind = AttrSystem
		out.SourceID = fallbackSystem
	}
	if out.SourceID == "" {
		out.SourceID = fallbackSystem
	}
	out.ActorIDs = sortedSet(a.ActorIDs)
	out.TargetIDs = sortedSet(a.TargetIDs)
	return out
}

func sortedSet(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := append([]string(nil), in...)
	sort.Strings(out)
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}
