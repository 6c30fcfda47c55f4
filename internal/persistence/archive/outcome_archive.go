package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rivet.ai/internal/persistence/snapshot"
)

type OutcomeArchiveMeta struct {
	WorldID       string `json:"world_id"`
	Result        string `json:"result"`
	EndTick       uint64 `json:"end_tick"`
	StateHash     string `json:"state_hash"`
	LastEventHash string `json:"last_event_hash"`
	Snapshot      string `json:"snapshot"`
	CreatedAt     string `json:"created_at"`
}

// ArchiveOutcomeSnapshot copies the snapshot of a resolved run into
// `worldDir/archives/<result>_<tick>/`. Snapshots without a result are left alone.
func ArchiveOutcomeSnapshot(worldDir, snapshotPath string, snap snapshot.SnapshotV1) (archivedPath string, archived bool, err error) {
	if snap.Result == "" {
		return "", false, nil
	}
	name := fmt.Sprintf("%s_%d", strings.ToLower(snap.Result), snap.Header.Tick)
	archiveDir := filepath.Join(worldDir, "archives", name)
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", false, err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", false, err
	}

	meta := OutcomeArchiveMeta{
		WorldID:       snap.Header.WorldID,
		Result:        snap.Result,
		EndTick:       snap.Header.Tick,
		StateHash:     snap.Header.StateHash,
		LastEventHash: snap.Header.LastEventHash,
		Snapshot:      filepath.Base(dst),
		CreatedAt:     time.Now().UTC().Format(time.RFC3339Nano),
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return dst, true, err
	}
	if err := os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644); err != nil {
		return dst, true, err
	}
	return dst, true, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
