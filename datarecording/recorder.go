// Package datarecording stores the tacts and events of a run in a SQLite
// database so that a run can be inspected after the process exits.
package datarecording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/tactsched/sim/hooking"
	"github.com/sarchlab/tactsched/sim/scheduler"
)

const schema = `
CREATE TABLE IF NOT EXISTS tacts (
	tact       INTEGER PRIMARY KEY,
	backlog    INTEGER NOT NULL,
	stack      INTEGER NOT NULL,
	queue      INTEGER NOT NULL,
	p1_state   TEXT NOT NULL,
	p1_task    TEXT,
	p1_elapsed INTEGER NOT NULL,
	p2_state   TEXT NOT NULL,
	p2_task    TEXT,
	p2_elapsed INTEGER NOT NULL,
	completed  INTEGER NOT NULL,
	done       INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS events (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	tact    INTEGER NOT NULL,
	kind    TEXT NOT NULL,
	task_id TEXT NOT NULL,
	source  TEXT NOT NULL,
	target  TEXT NOT NULL
);
`

// Event kinds stored in the events table.
const (
	KindMoved    = "moved"
	KindRejected = "rejected"
)

type tactEntry struct {
	tact, backlog, stack, queue int64
	p1State, p2State            string
	p1Task, p2Task              sql.NullString
	p1Elapsed, p2Elapsed        int64
	completed                   int64
	done                        bool
}

type eventEntry struct {
	tact           int64
	kind           string
	taskID         string
	source, target string
}

// A Recorder is a hook that buffers tact snapshots and task events and writes
// them to SQLite in batches.
type Recorder struct {
	db        *sql.DB
	path      string
	batchSize int

	tacts  []tactEntry
	events []eventEntry
	err    error
}

// New creates a database file named name + ".sqlite3". An empty name picks a
// unique one. The file must not exist. Buffered entries are flushed when the
// process exits through atexit.
func New(name string) (*Recorder, error) {
	if name == "" {
		name = "tactsched_recording_" + xid.New().String()
	}

	path := name + ".sqlite3"
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("file %s already exists", path)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	r, err := NewWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	r.path = path

	atexit.Register(func() { _ = r.Close() })

	return r, nil
}

// NewWithDB creates a Recorder on an open database.
func NewWithDB(db *sql.DB) (*Recorder, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &Recorder{
		db:        db,
		batchSize: 10000,
	}, nil
}

// WithBatchSize sets how many buffered entries trigger a flush.
func (r *Recorder) WithBatchSize(n int) *Recorder {
	r.batchSize = n
	return r
}

// Path returns the database file, empty if the database was supplied.
func (r *Recorder) Path() string {
	return r.path
}

// DB returns the underlying database.
func (r *Recorder) DB() *sql.DB {
	return r.db
}

// Err returns the first error met while flushing from inside a hook.
func (r *Recorder) Err() error {
	return r.err
}

// Func buffers the event.
func (r *Recorder) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case scheduler.HookPosTaskMoved:
		m := ctx.Item.(scheduler.Move)
		r.events = append(r.events, eventEntry{
			tact: int64(m.Tact), kind: KindMoved,
			taskID: m.Task.ID, source: m.From, target: m.To,
		})
	case scheduler.HookPosCapacityExceeded:
		rej := ctx.Item.(scheduler.Rejection)
		r.events = append(r.events, eventEntry{
			tact: int64(rej.Tact), kind: KindRejected,
			taskID: rej.Task.ID, source: rej.Container, target: rej.Container,
		})
	case scheduler.HookPosTactEnd:
		r.tacts = append(r.tacts, makeTactEntry(ctx.Item.(scheduler.TactReport)))
	default:
		return
	}

	if len(r.tacts)+len(r.events) >= r.batchSize && r.err == nil {
		r.err = r.Flush()
	}
}

func makeTactEntry(report scheduler.TactReport) tactEntry {
	e := tactEntry{
		tact:      int64(report.Tact),
		backlog:   int64(len(report.Backlog)),
		stack:     int64(len(report.Stack)),
		queue:     int64(len(report.Queue)),
		completed: int64(report.Completed),
		done:      report.Done,
	}

	p1, p2 := report.Processors[0], report.Processors[1]
	e.p1State, e.p1Task, e.p1Elapsed = processorColumns(p1)
	e.p2State, e.p2Task, e.p2Elapsed = processorColumns(p2)

	return e
}

func processorColumns(p scheduler.ProcessorStatus) (string, sql.NullString, int64) {
	taskID := sql.NullString{}
	if p.Task != nil {
		taskID = sql.NullString{String: p.Task.ID, Valid: true}
	}

	return string(p.State), taskID, int64(p.Elapsed)
}

// Flush writes all buffered entries in a single transaction.
func (r *Recorder) Flush() error {
	if len(r.tacts) == 0 && len(r.events) == 0 {
		return nil
	}

	if r.db == nil {
		return errors.New("recorder is closed")
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	if err := r.insertAll(tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	r.tacts = nil
	r.events = nil

	return nil
}

func (r *Recorder) insertAll(tx *sql.Tx) error {
	tactStmt, err := tx.Prepare(`INSERT INTO tacts VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer tactStmt.Close()

	for _, e := range r.tacts {
		_, err := tactStmt.Exec(e.tact, e.backlog, e.stack, e.queue,
			e.p1State, e.p1Task, e.p1Elapsed,
			e.p2State, e.p2Task, e.p2Elapsed,
			e.completed, e.done)
		if err != nil {
			return fmt.Errorf("inserting tact %d: %w", e.tact, err)
		}
	}

	eventStmt, err := tx.Prepare(
		`INSERT INTO events (tact, kind, task_id, source, target) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer eventStmt.Close()

	for _, e := range r.events {
		_, err := eventStmt.Exec(e.tact, e.kind, e.taskID, e.source, e.target)
		if err != nil {
			return fmt.Errorf("inserting event of task %s: %w", e.taskID, err)
		}
	}

	return nil
}

// Close flushes and closes the database. The returned error includes any
// flush failure met earlier inside a hook. Calling Close more than once is
// harmless.
func (r *Recorder) Close() error {
	if r.db == nil {
		return nil
	}

	err := errors.Join(r.err, r.Flush(), r.db.Close())
	r.db = nil

	return err
}
