package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"rivet.ai/internal/sim/kernel/hashchain"
	"rivet.ai/internal/sim/kernel/model"
	"rivet.ai/internal/sim/kernel/state"
)

const Version = 1

type Header struct {
	Version       int    `json:"version"`
	WorldID       string `json:"world_id"`
	Tick          uint64 `json:"tick"`
	StateHash     string `json:"state_hash"`
	LastEventHash string `json:"last_event_hash"`
}

// SnapshotV1 is a full state image. Components, domain and config travel as
// gob interface values; their concrete types must be registered before
// reading (building the ruleset's model.Schema does that for components).
type SnapshotV1 struct {
	Header Header

	Result   string
	Entities []EntityV1
	Domain   state.Domain
	Config   any
}

type EntityV1 struct {
	ID         string
	Type       string
	Components []model.Component
}

// FromState captures s. Components are cloned so the snapshot does not alias
// live state.
func FromState(s *state.State) SnapshotV1 {
	snap := SnapshotV1{
		Header: Header{
			Version:       Version,
			WorldID:       s.WorldID,
			Tick:          s.Tick,
			StateHash:     s.StateHash,
			LastEventHash: s.LastEventHash,
		},
		Result: s.Result,
		Config: s.Config,
	}
	if s.Domain != nil {
		snap.Domain = s.Domain.CloneDomain()
	}
	for _, e := range s.Entities.All() {
		ev := EntityV1{ID: e.ID, Type: e.Type}
		for _, c := range e.Components() {
			ev.Components = append(ev.Components, c.CloneComponent())
		}
		snap.Entities = append(snap.Entities, ev)
	}
	return snap
}

// Restore rebuilds a state through schema and checks that it digests to the
// recorded state hash.
func (snap SnapshotV1) Restore(schema *model.Schema) (*state.State, error) {
	if snap.Header.Version != Version {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	ents := make([]*model.Entity, 0, len(snap.Entities))
	for _, ev := range snap.Entities {
		e, err := schema.NewEntity(ev.ID, ev.Type, ev.Components...)
		if err != nil {
			return nil, fmt.Errorf("restore: %w", err)
		}
		ents = append(ents, e)
	}
	s := &state.State{
		Tick:          snap.Header.Tick,
		WorldID:       snap.Header.WorldID,
		Entities:      model.NewStore(ents...),
		Domain:        snap.Domain,
		Config:        snap.Config,
		LastEventHash: snap.Header.LastEventHash,
		Result:        snap.Result,
	}
	sh, err := hashchain.StateHash(s)
	if err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}
	if sh != snap.Header.StateHash {
		return nil, &hashchain.ChainMismatchError{Tick: s.Tick, What: "state_hash", Expected: snap.Header.StateHash, Got: sh}
	}
	s.StateHash = sh
	return s, nil
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, err := json.Marshal(snap.Header)
	if err != nil {
		_ = enc.Close()
		return err
	}
	if _, err := bw.Write(append(hb, '\n')); err != nil {
		_ = enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		_ = enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Sync()
}

// Write captures s and writes it to path.
func Write(path string, s *state.State) error {
	return WriteSnapshot(path, FromState(s))
}

// Read loads the snapshot at path and restores it through schema.
func Read(path string, schema *model.Schema) (*state.State, error) {
	snap, err := ReadSnapshot(path)
	if err != nil {
		return nil, err
	}
	return snap.Restore(schema)
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The header line is for humans and ReadHeader; gob carries it too.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}

// ReadHeader reads only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("header: %w", err)
	}
	return h, nil
}

// PathFor names the snapshot of a tick under dir.
func PathFor(dir string, tick uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%d.snap.zst", tick))
}
