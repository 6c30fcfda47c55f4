package log

import (
	"path/filepath"
	"testing"

	"rivet.ai/internal/sim/kernel/event"
	"rivet.ai/internal/sim/kernel/hashchain"
)

type stepPayload struct {
	N     int    `json:"n"`
	Label string `json:"label"`
}

func TestTickLogger_RoundTripKeepsChainVerifiable(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)

	prev := hashchain.GenesisHash
	var written []TickLogEntry
	for tick := uint64(0); tick < 5; tick++ {
		evs := []event.Event{}
		for i := 0; i < int(tick%3); i++ {
			ev := event.Event{Tick: tick, Ordinal: i, Type: "STEP", Payload: stepPayload{N: int(tick)*10 + i, Label: "x"}, Attribution: event.BySystem("s"), Cause: event.Cause{Kind: event.CauseSystem, ID: "s"}}
			id, err := hashchain.EventID("w", ev)
			if err != nil {
				t.Fatalf("event id: %v", err)
			}
			ev.ID = id
			evs = append(evs, ev)
		}
		batch, err := hashchain.BatchHash(evs)
		if err != nil {
			t.Fatalf("batch: %v", err)
		}
		last := hashchain.NextLastEventHash(prev, batch)
		entry := TickLogEntry{WorldID: "w", Tick: tick, Events: evs, BatchHash: batch, LastEventHash: last, StateHash: "s"}
		if err := l.WriteTick(entry); err != nil {
			t.Fatalf("write: %v", err)
		}
		written = append(written, entry)
		prev = last
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	var read []TickLogEntry
	if err := ReadTickLog(filepath.Join(dir, "events"), func(e TickLogEntry) error {
		read = append(read, e)
		return nil
	}); err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(read) != len(written) {
		t.Fatalf("read %d entries, wrote %d", len(read), len(written))
	}
	prev = hashchain.GenesisHash
	for i, e := range read {
		if e.Tick != written[i].Tick || e.LastEventHash != written[i].LastEventHash {
			t.Fatalf("entry %d mismatch", i)
		}
		if err := hashchain.VerifyBatch(e.Events, prev, e.LastEventHash, e.Tick); err != nil {
			t.Fatalf("entry %d: %v", i, err)
		}
		if err := hashchain.VerifyEventIDs(e.WorldID, e.Events); err != nil {
			t.Fatalf("entry %d ids: %v", i, err)
		}
		prev = e.LastEventHash
	}
}

func TestReadTickLog_EmptyDir(t *testing.T) {
	if err := ReadTickLog(t.TempDir(), func(TickLogEntry) error { return nil }); err == nil {
		t.Fatalf("expected error for a directory without logs")
	}
}

func TestRunLogger_WritesFile(t *testing.T) {
	dir := t.TempDir()
	l := NewRunLogger(dir)
	if err := l.WriteRun(RunRecord{WorldID: "w", Outcome: "WON", Ticks: 3}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	files, err := ListFiles(filepath.Join(dir, "runs"), "runs")
	if err != nil || len(files) != 1 {
		t.Fatalf("files=%v err=%v", files, err)
	}
}
