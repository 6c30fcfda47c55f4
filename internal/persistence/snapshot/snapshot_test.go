package snapshot

import (
	"errors"
	"path/filepath"
	"testing"

	"rivet.ai/internal/sim/heist"
	"rivet.ai/internal/sim/kernel/hashchain"
)

func TestSnapshot_RoundTripResumesIdentically(t *testing.T) {
	p, _, err := heist.LoadPack(filepath.Join("..", "..", "sim", "heist", "testdata", "vault.yaml"))
	if err != nil {
		t.Fatalf("load pack: %v", err)
	}
	k, err := heist.NewKernel(100)
	if err != nil {
		t.Fatalf("kernel: %v", err)
	}
	s, err := k.InitState(heist.Setup{Pack: p}, "snap-seed")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	mid := k.Simulate(s, 7).Final

	path := PathFor(t.TempDir(), mid.Tick)
	if err := Write(path, mid); err != nil {
		t.Fatalf("write: %v", err)
	}
	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("header: %v", err)
	}
	if h.Tick != 7 || h.StateHash != mid.StateHash || h.Version != Version {
		t.Fatalf("header=%+v", h)
	}

	schema, err := heist.NewSchema()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	restored, err := Read(path, schema)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if restored.StateHash != mid.StateHash || restored.LastEventHash != mid.LastEventHash {
		t.Fatalf("restored hashes differ")
	}

	a := k.Simulate(mid, 10).Final
	b := k.Simulate(restored, 10).Final
	if a.StateHash != b.StateHash || a.LastEventHash != b.LastEventHash {
		t.Fatalf("resumed run diverged from original")
	}
}

func TestSnapshot_RestoreRejectsWrongHash(t *testing.T) {
	p, _, err := heist.LoadPack(filepath.Join("..", "..", "sim", "heist", "testdata", "vault.yaml"))
	if err != nil {
		t.Fatalf("load pack: %v", err)
	}
	k, err := heist.NewKernel(10)
	if err != nil {
		t.Fatalf("kernel: %v", err)
	}
	s, err := k.InitState(heist.Setup{Pack: p}, "seed")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	snap := FromState(s)
	snap.Header.StateHash = hashchain.GenesisHash

	schema, _ := heist.NewSchema()
	_, err = snap.Restore(schema)
	var mm *hashchain.ChainMismatchError
	if !errors.As(err, &mm) {
		t.Fatalf("expected state hash mismatch, got %v", err)
	}

	snap = FromState(s)
	snap.Header.Version = 99
	if _, err := snap.Restore(schema); err == nil {
		t.Fatalf("expected version error")
	}
}
