package hashchain

import (
	"fmt"

	"rivet.ai/internal/sim/kernel/event"
)

// ChainMismatchError reports a recomputed hash that disagrees with the
// recorded one.
type ChainMismatchError struct {
	Tick     uint64
	What     string
	Expected string
	Got      string
}

func (e *ChainMismatchError) Error() string {
	return fmt.Sprintf("%s mismatch at tick %d: expected=%s got=%s", e.What, e.Tick, e.Expected, e.Got)
}

// VerifyBatch recomputes the chain link for one tick's events and compares
// it with the recorded last-event hash.
func VerifyBatch(events []event.Event, prev, expected string, tick uint64) error {
	batch, err := BatchHash(events)
	if err != nil {
		return fmt.Errorf("tick %d: %w", tick, err)
	}
	if got := NextLastEventHash(prev, batch); got != expected {
		return &ChainMismatchError{Tick: tick, What: "last_event_hash", Expected: expected, Got: got}
	}
	return nil
}

// VerifyEventIDs recomputes every event id in a batch.
func VerifyEventIDs(worldID string, events []event.Event) error {
	for _, ev := range events {
		id, err := EventID(worldID, ev)
		if err != nil {
			return err
		}
		if id != ev.ID {
			return &ChainMismatchError{Tick: ev.Tick, What: fmt.Sprintf("event_id[%d]", ev.Ordinal), Expected: ev.ID, Got: id}
		}
	}
	return nil
}
