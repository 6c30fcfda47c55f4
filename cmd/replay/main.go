package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ticklog "rivet.ai/internal/persistence/log"
	"rivet.ai/internal/persistence/snapshot"
	"rivet.ai/internal/sim/audit"
	"rivet.ai/internal/sim/heist"
	"rivet.ai/internal/sim/kernel"
	"rivet.ai/internal/sim/kernel/state"
)

func main() {
	var (
		packPath  = flag.String("pack", "./configs/packs/vault.yaml", "heist pack file (ignored with -snapshot)")
		seed      = flag.String("seed", "world_1", "run seed the log was recorded with")
		rules     = flag.String("rules", "", "comma separated rule ids the run used (default: all)")
		eventsDir = flag.String("events", "", "events dir containing events-*.jsonl.zst (default: ./data/worlds/<seed>/events)")
		snapPath  = flag.String("snapshot", "", "path to .snap.zst to start from (optional)")
		fromTick  = flag.Uint64("from_tick", 0, "start verifying from tick (inclusive, optional)")
		toTick    = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
	)
	flag.Parse()

	k, err := heist.NewKernel(0)
	if err != nil {
		fmt.Fprintln(os.Stderr, "kernel:", err)
		os.Exit(1)
	}

	var start *state.State
	if *snapPath != "" {
		start, err = fromSnapshot(*snapPath, *seed)
	} else {
		start, err = fromPack(k, *packPath, *seed, *rules)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	dir := *eventsDir
	if dir == "" {
		dir = filepath.Join("data", "worlds", start.WorldID, "events")
	}

	verifyFrom := *fromTick
	if verifyFrom < start.Tick {
		verifyFrom = start.Tick
	}
	fmt.Printf("replay world=%s start_tick=%d state_hash=%s\n", start.WorldID, start.Tick, start.StateHash)

	a := audit.New(k, start, audit.Options{VerifyFrom: verifyFrom, ToTick: *toTick})
	if err := ticklog.ReadTickLog(dir, a.Feed); err != nil && !errors.Is(err, audit.ErrDone) {
		var de *audit.DivergenceError
		if errors.As(err, &de) {
			fmt.Fprintln(os.Stderr, "replay:", de)
		} else {
			fmt.Fprintln(os.Stderr, "replay:", err)
		}
		os.Exit(1)
	}
	if *toTick != 0 && a.State().Tick <= *toTick {
		fmt.Fprintf(os.Stderr, "replay: log ends at tick %d before to_tick=%d\n", a.State().Tick, *toTick)
		os.Exit(1)
	}

	final := a.State()
	fmt.Printf("replay ok: checked=%d ticks (from tick=%d) tick=%d result=%q\n", a.Checked(), start.Tick, final.Tick, final.Result)
	fmt.Printf("state_hash=%s\nlast_event_hash=%s\n", final.StateHash, final.LastEventHash)
}

func fromSnapshot(path, seed string) (*state.State, error) {
	schema, err := heist.NewSchema()
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	st, err := snapshot.Read(path, schema)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if seed != "" && st.WorldID != seed {
		fmt.Fprintf(os.Stderr, "note: snapshot world=%s overrides -seed=%s\n", st.WorldID, seed)
	}
	return st, nil
}

func fromPack(k *kernel.Kernel, path, seed, rules string) (*state.State, error) {
	p, _, err := heist.LoadPack(path)
	if err != nil {
		return nil, fmt.Errorf("load pack: %w", err)
	}
	var selection []string
	for _, id := range strings.Split(rules, ",") {
		if id = strings.TrimSpace(id); id != "" {
			selection = append(selection, id)
		}
	}
	st, err := k.InitState(heist.Setup{Pack: p}, seed, selection...)
	if err != nil {
		return nil, fmt.Errorf("init state: %w", err)
	}
	return st, nil
}
