package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"rivet.ai/internal/persistence/archive"
	"rivet.ai/internal/persistence/indexdb"
	ticklog "rivet.ai/internal/persistence/log"
	"rivet.ai/internal/persistence/snapshot"
	"rivet.ai/internal/sim/heist"
	"rivet.ai/internal/sim/kernel"
	"rivet.ai/internal/sim/tuning"
)

func main() {
	var (
		packPath      = flag.String("pack", "./configs/packs/vault.yaml", "heist pack file")
		seed          = flag.String("seed", "world_1", "run seed (also the world id)")
		ticks         = flag.Int("ticks", 0, "max ticks to simulate (0: tuning tick_budget)")
		dataDir       = flag.String("data", "./data", "runtime data directory")
		tuningPath    = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		rules         = flag.String("rules", "", "comma separated rule ids (default: tuning rules, else all)")
		snapshotEvery = flag.Int("snapshot_every", -1, "snapshot every N ticks (0 disables, -1: tuning value)")
		disableDB     = flag.Bool("disable_db", false, "disable the sqlite replay index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[sim] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", *tuningPath)
		if tune, err = tuning.ApplyEnv(tuning.Defaults()); err != nil {
			logger.Fatalf("tuning: %v", err)
		}
		if err := tune.Validate(); err != nil {
			logger.Fatalf("tuning: %v", err)
		}
	}
	if *snapshotEvery >= 0 {
		tune.SnapshotEveryTicks = *snapshotEvery
	}
	selection := tune.Rules
	if s := strings.TrimSpace(*rules); s != "" {
		selection = splitList(s)
	}

	p, digest, err := heist.LoadPack(*packPath)
	if err != nil {
		fail("load pack", err)
	}
	k, err := heist.NewKernel(tune.TickBudget)
	if err != nil {
		logger.Fatalf("kernel: %v", err)
	}
	st, err := k.InitState(heist.Setup{Pack: p}, *seed, selection...)
	if err != nil {
		fail("init state", err)
	}
	runID := uuid.NewString()
	logger.Printf("run=%s pack=%s digest=%s world=%s state_hash=%s", runID, p.Name, digest, st.WorldID, st.StateHash)

	worldDir := filepath.Join(*dataDir, "worlds", st.WorldID)
	if files, _ := ticklog.ListFiles(filepath.Join(worldDir, "events"), "events"); len(files) > 0 {
		logger.Fatalf("%s already holds a tick log; pick another -seed or -data", worldDir)
	}
	snapDir := filepath.Join(worldDir, "snapshots")
	if err := os.MkdirAll(snapDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}

	var idx *indexdb.SQLiteIndex
	if tune.Index.Enabled && !*disableDB {
		idx, err = indexdb.OpenSQLiteWithLogger(filepath.Join(worldDir, tune.Index.Path), logger)
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		if err := idx.UpsertRun(context.Background(), st.WorldID, p.Name, digest, selection); err != nil {
			logger.Printf("index: upsert run: %v", err)
		}
	}

	tl := ticklog.NewTickLogger(worldDir)
	runs := ticklog.NewRunLogger(worldDir)

	// Snapshot writer.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	var snapGroup errgroup.Group
	snapGroup.Go(func() error {
		var first error
		for snap := range snapCh {
			path := snapshot.PathFor(snapDir, snap.Header.Tick)
			if err := snapshot.WriteSnapshot(path, snap); err != nil {
				logger.Printf("snapshot write: %v", err)
				if first == nil {
					first = err
				}
				continue
			}
			idx.RecordSnapshot(path, snap.Header)
			if archived, ok, err := archive.ArchiveOutcomeSnapshot(worldDir, path, snap); err != nil {
				logger.Printf("archive outcome snapshot: %v", err)
			} else if ok {
				logger.Printf("archived %s", archived)
			}
		}
		return first
	})

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
			logger.Printf("write: %v", err)
		}
	}
	observe := func(r kernel.StepResult) {
		entry := ticklog.EntryFromStep(r)
		keep(tl.WriteTick(entry))
		keep(idx.RecordTick(entry))
		if every := tune.SnapshotEveryTicks; every > 0 && r.State.Tick%uint64(every) == 0 {
			snapCh <- snapshot.FromState(r.State)
		}
	}

	start := st.Tick
	res := k.Simulate(st, *ticks, observe)
	if res.Ticks > 0 && (tune.SnapshotEveryTicks <= 0 || res.Final.Tick%uint64(tune.SnapshotEveryTicks) != 0) {
		snapCh <- snapshot.FromState(res.Final)
	}
	close(snapCh)
	keep(snapGroup.Wait())

	keep(runs.WriteRun(ticklog.RunRecord{
		RunID:         runID,
		WorldID:       res.Final.WorldID,
		PackName:      p.Name,
		PackDigest:    digest,
		Selection:     selection,
		StartTick:     start,
		Ticks:         res.Ticks,
		Outcome:       res.Outcome,
		StateHash:     res.Final.StateHash,
		LastEventHash: res.Final.LastEventHash,
		EventCount:    len(res.Events),
	}))
	keep(tl.Close())
	keep(runs.Close())
	if idx != nil {
		stats := idx.Stats()
		if stats.DropTickTotal > 0 || stats.WriteErrorTotal > 0 {
			logger.Printf("index: dropped=%d write_errors=%d", stats.DropTickTotal, stats.WriteErrorTotal)
		}
		keep(idx.Close())
	}

	fmt.Printf("outcome=%s ticks=%d tick=%d events=%d\n", res.Outcome, res.Ticks, res.Final.Tick, len(res.Events))
	fmt.Printf("state_hash=%s\nlast_event_hash=%s\n", res.Final.StateHash, res.Final.LastEventHash)
	if firstErr != nil {
		os.Exit(1)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// fail prints configuration errors one per line and exits.
func fail(what string, err error) {
	var ve *kernel.ConfigValidationError
	if errors.As(err, &ve) {
		fmt.Fprintf(os.Stderr, "%s: %d config error(s)\n", what, len(ve.Errors))
		for _, ce := range ve.Errors {
			fmt.Fprintln(os.Stderr, "  "+ce.String())
		}
		os.Exit(2)
	}
	fmt.Fprintln(os.Stderr, what+":", err)
	os.Exit(1)
}
