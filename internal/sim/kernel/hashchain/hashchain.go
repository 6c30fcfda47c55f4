// Package hashchain computes the content addresses of a run: event ids,
// per-tick batch hashes, the chained last-event hash and the state hash.
package hashchain

import (
	"fmt"
	"sort"
	"strings"

	"rivet.ai/internal/sim/encoding"
	"rivet.ai/internal/sim/kernel/event"
)

// GenesisHash seeds the chain before the first tick.
var GenesisHash = strings.Repeat("0", 64)

// eventContent is everything an event id commits to. The id itself is not
// part of it.
type eventContent struct {
	WorldID     string            `json:"worldId"`
	Tick        uint64            `json:"tick"`
	Ordinal     int               `json:"ordinal"`
	Type        event.Type        `json:"type"`
	Payload     any               `json:"payload"`
	Cause       event.Cause       `json:"cause"`
	Attribution event.Attribution `json:"attribution"`
}

// EventID returns the sha256 of the canonical event content. Attribution id
// lists are sorted first so set order never changes the id.
func EventID(worldID string, ev event.Event) (string, error) {
	attr := ev.Attribution
	attr.ActorIDs = sortedCopy(attr.ActorIDs)
	attr.TargetIDs = sortedCopy(attr.TargetIDs)
	h, err := encoding.ContentHash(eventContent{
		WorldID:     worldID,
		Tick:        ev.Tick,
		Ordinal:     ev.Ordinal,
		Type:        ev.Type,
		Payload:     ev.Payload,
		Cause:       ev.Cause,
		Attribution: attr,
	})
	if err != nil {
		return "", fmt.Errorf("event %s#%d: %w", ev.Type, ev.Ordinal, err)
	}
	return h, nil
}

// BatchHash hashes one tick's finalized events in ordinal order. An empty
// batch hashes the JSON array "[]".
func BatchHash(events []event.Event) (string, error) {
	if events == nil {
		events = []event.Event{}
	}
	h, err := encoding.ContentHash(events)
	if err != nil {
		return "", fmt.Errorf("batch: %w", err)
	}
	return h, nil
}

// NextLastEventHash extends the chain: sha256(prev || batch) over the hex
// strings. An empty prev is treated as GenesisHash.
func NextLastEventHash(prev, batch string) string {
	if prev == "" {
		prev = GenesisHash
	}
	return encoding.SHA256Hex([]byte(prev + batch))
}

// FailedHash stands in for a hash that could not be computed. It is derived
// from the error text so a broken payload shows up as a divergence instead
// of aborting the tick.
func FailedHash(err error) string {
	return encoding.SHA256Hex([]byte("hash-error:" + err.Error()))
}

func sortedCopy(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
