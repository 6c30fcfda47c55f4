package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	ticklog "rivet.ai/internal/persistence/log"
	"rivet.ai/internal/persistence/snapshot"
)

// SQLiteIndex is a secondary, queryable copy of the tick log. The JSONL log
// stays the source of truth; the index may drop writes when it falls behind.
type SQLiteIndex struct {
	db     *sql.DB
	logger *log.Logger

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick     atomic.Uint64
	dropSnapshot atomic.Uint64
	writeErrors  atomic.Uint64
}

type Stats struct {
	QueueDepth        int
	QueueCapacity     int
	DropTickTotal     uint64
	DropSnapshotTotal uint64
	WriteErrorTotal   uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqSnapshot
	reqFlush
)

type req struct {
	kind reqKind

	tick     ticklog.TickLogEntry
	snapshot snapshotRow
	done     chan struct{}
}

type snapshotRow struct {
	WorldID       string
	Tick          uint64
	Path          string
	StateHash     string
	LastEventHash string
}

// TickRow is one indexed tick.
type TickRow struct {
	Tick          uint64
	BatchHash     string
	LastEventHash string
	StateHash     string
	EventCount    int
	Result        string
}

// EventRow is one indexed event. Payload is the JSON the event carried.
type EventRow struct {
	Ordinal int
	EventID string
	Type    string
	Payload json.RawMessage
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return OpenSQLiteWithLogger(path, nil)
}

func OpenSQLiteWithLogger(path string, logger *log.Logger) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db:     db,
		logger: logger,
		ch:     make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			world_id TEXT PRIMARY KEY,
			pack_name TEXT NOT NULL,
			pack_digest TEXT NOT NULL,
			selection_json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			world_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			batch_hash TEXT NOT NULL,
			last_event_hash TEXT NOT NULL,
			state_hash TEXT NOT NULL,
			event_count INTEGER NOT NULL,
			result TEXT NOT NULL,
			PRIMARY KEY (world_id, tick)
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			world_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			ordinal INTEGER NOT NULL,
			event_id TEXT NOT NULL,
			type TEXT NOT NULL,
			source_id TEXT NOT NULL,
			payload_json TEXT NOT NULL,
			PRIMARY KEY (world_id, tick, ordinal)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_type_tick ON events(world_id, type, tick);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			world_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			path TEXT NOT NULL,
			state_hash TEXT NOT NULL,
			last_event_hash TEXT NOT NULL,
			PRIMARY KEY (world_id, tick)
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropTickTotal:     s.dropTick.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
		WriteErrorTotal:   s.writeErrors.Load(),
	}
}

// RecordTick queues one tick for indexing. It never blocks the simulation.
func (s *SQLiteIndex) RecordTick(entry ticklog.TickLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTick, tick: entry}:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
		s.dropTick.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, h snapshot.Header) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		WorldID:       h.WorldID,
		Tick:          h.Tick,
		Path:          path,
		StateHash:     h.StateHash,
		LastEventHash: h.LastEventHash,
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

// UpsertRun records which pack and rule selection produced worldID.
func (s *SQLiteIndex) UpsertRun(ctx context.Context, worldID, packName, packDigest string, selection []string) error {
	if s == nil {
		return nil
	}
	if selection == nil {
		selection = []string{}
	}
	sel, err := json.Marshal(selection)
	if err != nil {
		return err
	}
	if err := s.Flush(ctx); err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs(world_id,pack_name,pack_digest,selection_json,updated_at) VALUES(?,?,?,?,?)`,
		worldID, packName, packDigest, string(sel), now)
	return err
}

// Flush waits until every queued write is committed.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqFlush, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TickHashes returns the indexed ticks of worldID in tick order.
func (s *SQLiteIndex) TickHashes(ctx context.Context, worldID string) ([]TickRow, error) {
	if err := s.Flush(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT tick,batch_hash,last_event_hash,state_hash,event_count,result FROM ticks WHERE world_id=? ORDER BY tick`,
		worldID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TickRow
	for rows.Next() {
		var (
			r    TickRow
			tick int64
		)
		if err := rows.Scan(&tick, &r.BatchHash, &r.LastEventHash, &r.StateHash, &r.EventCount, &r.Result); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}

// EventsAt returns the events committed by tick of worldID in ordinal order.
func (s *SQLiteIndex) EventsAt(ctx context.Context, worldID string, tick uint64) ([]EventRow, error) {
	if err := s.Flush(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT ordinal,event_id,type,payload_json FROM events WHERE world_id=? AND tick=? ORDER BY ordinal`,
		worldID, int64(tick))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var (
			r       EventRow
			payload string
		)
		if err := rows.Scan(&r.Ordinal, &r.EventID, &r.Type, &payload); err != nil {
			return nil, err
		}
		r.Payload = json.RawMessage(payload)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) printf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	// Prepared statements (on db; executed within tx).
	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(world_id,tick,batch_hash,last_event_hash,state_hash,event_count,result) VALUES(?,?,?,?,?,?,?)`)
	insertEvent, _ := s.db.Prepare(`INSERT OR REPLACE INTO events(world_id,tick,ordinal,event_id,type,source_id,payload_json) VALUES(?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(world_id,tick,path,state_hash,last_event_hash) VALUES(?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertTick, insertEvent, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			s.writeErrors.Add(1)
			s.printf("index begin: %v", err)
			// If we can't start a tx, we can't do much; sleep a bit.
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.writeErrors.Add(1)
			s.printf("index commit: %v", err)
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func(err error) {
		s.writeErrors.Add(1)
		s.printf("index write: %v", err)
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	writeTick := func(e ticklog.TickLogEntry) error {
		if insertTick == nil || insertEvent == nil {
			return fmt.Errorf("statements not prepared")
		}
		if _, err := tx.Stmt(insertTick).Exec(
			e.WorldID,
			int64(e.Tick),
			e.BatchHash,
			e.LastEventHash,
			e.StateHash,
			len(e.Events),
			e.Result,
		); err != nil {
			return err
		}
		opCount++
		for _, ev := range e.Events {
			payload, err := json.Marshal(ev.Payload)
			if err != nil {
				return fmt.Errorf("tick %d ordinal %d payload: %w", e.Tick, ev.Ordinal, err)
			}
			if _, err := tx.Stmt(insertEvent).Exec(
				e.WorldID,
				int64(e.Tick),
				ev.Ordinal,
				ev.ID,
				string(ev.Type),
				ev.Attribution.SourceID,
				string(payload),
			); err != nil {
				return err
			}
			opCount++
		}
		return nil
	}

	ticker := time.NewTicker(commitMaxWait)
	defer ticker.Stop()

	for {
		select {
		case r, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			if r.kind == reqFlush {
				commit()
				close(r.done)
				continue
			}
			begin()
			if tx == nil {
				continue
			}
			switch r.kind {
			case reqTick:
				if err := writeTick(r.tick); err != nil {
					rollback(err)
					continue
				}
			case reqSnapshot:
				sn := r.snapshot
				if insertSnapshot == nil {
					continue
				}
				if _, err := tx.Stmt(insertSnapshot).Exec(
					sn.WorldID,
					int64(sn.Tick),
					sn.Path,
					sn.StateHash,
					sn.LastEventHash,
				); err != nil {
					rollback(err)
					continue
				}
				opCount++
			}
			if opCount >= commitEvery {
				commit()
			}
		case <-ticker.C:
			if tx != nil && time.Since(lastCommit) >= commitMaxWait {
				commit()
			}
		}
	}
}
