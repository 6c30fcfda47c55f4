// Package audit re-executes recorded runs and reports the first tick whose
// hashes disagree with the record.
package audit

import (
	"errors"
	"fmt"
	"strconv"

	ticklog "rivet.ai/internal/persistence/log"
	"rivet.ai/internal/sim/kernel"
	"rivet.ai/internal/sim/kernel/hashchain"
	"rivet.ai/internal/sim/kernel/state"
)

// ErrDone is returned by Feed once the configured last tick was verified.
var ErrDone = errors.New("audit: reached last tick")

// DivergenceError names the first recorded value a replay could not reproduce.
type DivergenceError struct {
	Tick  uint64
	Field string
	Want  string
	Got   string
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("divergence at tick %d: %s want=%s got=%s", e.Tick, e.Field, e.Want, e.Got)
}

type Options struct {
	// VerifyFrom skips hash comparison for ticks below it (they are still stepped).
	VerifyFrom uint64
	// ToTick stops after this tick when non-zero.
	ToTick uint64
}

// Auditor steps a kernel alongside a stream of tick log entries.
type Auditor struct {
	k    *kernel.Kernel
	st   *state.State
	opts Options

	checked uint64
}

func New(k *kernel.Kernel, start *state.State, opts Options) *Auditor {
	return &Auditor{k: k, st: start, opts: opts}
}

func (a *Auditor) State() *state.State { return a.st }
func (a *Auditor) Checked() uint64     { return a.checked }

// Feed verifies one entry. Entries older than the current state are skipped
// so a log may be replayed on top of a snapshot.
func (a *Auditor) Feed(e ticklog.TickLogEntry) error {
	if e.Tick < a.st.Tick {
		return nil
	}
	if a.opts.ToTick != 0 && e.Tick > a.opts.ToTick {
		return ErrDone
	}
	if e.Tick != a.st.Tick {
		return &DivergenceError{Tick: e.Tick, Field: "tick", Want: u64(a.st.Tick), Got: u64(e.Tick)}
	}
	if e.WorldID != "" && e.WorldID != a.st.WorldID {
		return &DivergenceError{Tick: e.Tick, Field: "world_id", Want: e.WorldID, Got: a.st.WorldID}
	}

	prev := a.st.LastEventHash
	r := a.k.Step(a.st)
	a.st = r.State

	if e.Tick >= a.opts.VerifyFrom {
		a.checked++
		if err := verifyRecord(a.st.WorldID, e, prev); err != nil {
			return err
		}
		if err := compareStep(e, r); err != nil {
			return err
		}
	}
	if a.opts.ToTick != 0 && e.Tick == a.opts.ToTick {
		return ErrDone
	}
	return nil
}

// verifyRecord checks that the entry is internally consistent: every event
// id and the chain link recompute from the recorded events.
func verifyRecord(worldID string, e ticklog.TickLogEntry, prev string) error {
	var mm *hashchain.ChainMismatchError
	if err := hashchain.VerifyEventIDs(worldID, e.Events); err != nil {
		if errors.As(err, &mm) {
			return &DivergenceError{Tick: e.Tick, Field: "recorded " + mm.What, Want: mm.Expected, Got: mm.Got}
		}
		return fmt.Errorf("tick %d: %w", e.Tick, err)
	}
	if err := hashchain.VerifyBatch(e.Events, prev, e.LastEventHash, e.Tick); err != nil {
		if errors.As(err, &mm) {
			return &DivergenceError{Tick: e.Tick, Field: "recorded " + mm.What, Want: mm.Expected, Got: mm.Got}
		}
		return err
	}
	return nil
}

func compareStep(e ticklog.TickLogEntry, r kernel.StepResult) error {
	if len(e.Events) != len(r.Events) {
		return &DivergenceError{Tick: e.Tick, Field: "event_count", Want: strconv.Itoa(len(e.Events)), Got: strconv.Itoa(len(r.Events))}
	}
	for i := range e.Events {
		if e.Events[i].ID != r.Events[i].ID {
			return &DivergenceError{Tick: e.Tick, Field: fmt.Sprintf("event_id[%d]", i), Want: e.Events[i].ID, Got: r.Events[i].ID}
		}
	}
	checks := []struct {
		field, want, got string
	}{
		{"batch_hash", e.BatchHash, r.BatchHash},
		{"last_event_hash", e.LastEventHash, r.State.LastEventHash},
		{"state_hash", e.StateHash, r.State.StateHash},
		{"result", e.Result, r.State.Result},
	}
	for _, c := range checks {
		if c.want != c.got {
			return &DivergenceError{Tick: e.Tick, Field: c.field, Want: c.want, Got: c.got}
		}
	}
	return nil
}

// Replay verifies a complete slice of entries starting from start.
func Replay(k *kernel.Kernel, start *state.State, entries []ticklog.TickLogEntry) error {
	a := New(k, start, Options{})
	for _, e := range entries {
		if err := a.Feed(e); err != nil {
			if errors.Is(err, ErrDone) {
				return nil
			}
			return err
		}
	}
	return nil
}

// Record is the per-tick fingerprint of a run.
type Record struct {
	Tick          uint64
	BatchHash     string
	LastEventHash string
	StateHash     string
}

func RecordOf(r kernel.StepResult) Record {
	return Record{
		Tick:          r.Tick,
		BatchHash:     r.BatchHash,
		LastEventHash: r.State.LastEventHash,
		StateHash:     r.State.StateHash,
	}
}

// Compare reports the first tick at which two independent runs disagree.
func Compare(a, b []Record) error {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		x, y := a[i], b[i]
		switch {
		case x.Tick != y.Tick:
			return &DivergenceError{Tick: x.Tick, Field: "tick", Want: u64(x.Tick), Got: u64(y.Tick)}
		case x.BatchHash != y.BatchHash:
			return &DivergenceError{Tick: x.Tick, Field: "batch_hash", Want: x.BatchHash, Got: y.BatchHash}
		case x.LastEventHash != y.LastEventHash:
			return &DivergenceError{Tick: x.Tick, Field: "last_event_hash", Want: x.LastEventHash, Got: y.LastEventHash}
		case x.StateHash != y.StateHash:
			return &DivergenceError{Tick: x.Tick, Field: "state_hash", Want: x.StateHash, Got: y.StateHash}
		}
	}
	if len(a) != len(b) {
		var tick uint64
		if n > 0 {
			tick = a[n-1].Tick + 1
		}
		return &DivergenceError{Tick: tick, Field: "length", Want: strconv.Itoa(len(a)), Got: strconv.Itoa(len(b))}
	}
	return nil
}

func u64(v uint64) string { return strconv.FormatUint(v, 10) }
