// Package journal keeps a log of template and invoice runs in a key-value database.
// It is informational only: runs never read it back to decide what to build.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/zeptools/gw-invoicer/db/kvdb"
)

const (
	KindTemplate = "template"
	KindInvoice  = "invoice"
)

const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

const (
	DefaultPrefix     = "invoicer"
	DefaultMaxEntries = 100
)

var ErrInvalidRun = errors.New("journal: kind and layer are required")

type Entry struct {
	Kind       string
	Layer      string
	Status     string
	Stage      string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
}

// Duration is zero for unfinished runs
func (e Entry) Duration() time.Duration {
	if e.FinishedAt.IsZero() {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

type Journal struct {
	KV         kvdb.Client
	Prefix     string        // key prefix. DefaultPrefix if empty
	MaxEntries int64         // runs kept in the index. DefaultMaxEntries if <= 0
	Retention  time.Duration // expiration of run records. 0 = keep

	now func() time.Time
}

func New(kv kvdb.Client) *Journal {
	return &Journal{KV: kv, Prefix: DefaultPrefix, MaxEntries: DefaultMaxEntries, now: time.Now}
}

func (j *Journal) prefix() string {
	if j.Prefix == "" {
		return DefaultPrefix
	}
	return j.Prefix
}

func (j *Journal) clock() time.Time {
	if j.now == nil {
		return time.Now()
	}
	return j.now()
}

// Key of the run record, e.g. invoicer:run:invoice:2024-001
func (j *Journal) Key(kind string, layer string) string {
	return j.prefix() + ":run:" + kind + ":" + layer
}

func (j *Journal) indexKey() string {
	return j.prefix() + ":runs"
}

// Start records a new run and moves it to the end of the index.
// A previous record of the same kind and layer is overwritten.
func (j *Journal) Start(ctx context.Context, kind string, layer string) error {
	if kind == "" || layer == "" {
		return ErrInvalidRun
	}
	key := j.Key(kind, layer)
	err := j.KV.SetFieldsExpire(ctx, key, map[string]any{
		"kind":        kind,
		"layer":       layer,
		"status":      StatusRunning,
		"stage":       "",
		"error":       "",
		"started_at":  j.clock().UTC().Format(time.RFC3339Nano),
		"finished_at": "",
	}, j.Retention)
	if err != nil {
		return err
	}
	maxEntries := j.MaxEntries
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return j.KV.MoveToTail(ctx, j.indexKey(), key, maxEntries)
}

// Stage records the stage a run is entering
func (j *Journal) Stage(ctx context.Context, kind string, layer string, stage string) error {
	return j.KV.SetFields(ctx, j.Key(kind, layer), map[string]any{"stage": stage})
}

// Finish marks the run done, or failed with runErr
func (j *Journal) Finish(ctx context.Context, kind string, layer string, runErr error) error {
	fields := map[string]any{
		"status":      StatusDone,
		"finished_at": j.clock().UTC().Format(time.RFC3339Nano),
	}
	if runErr != nil {
		fields["status"] = StatusFailed
		fields["error"] = runErr.Error()
	}
	return j.KV.SetFields(ctx, j.Key(kind, layer), fields)
}

func (j *Journal) Get(ctx context.Context, kind string, layer string) (Entry, bool, error) {
	return j.get(ctx, j.Key(kind, layer))
}

func (j *Journal) get(ctx context.Context, key string) (Entry, bool, error) {
	fields, err := j.KV.GetAllFields(ctx, key)
	if err != nil {
		return Entry{}, false, err
	}
	if len(fields) == 0 {
		return Entry{}, false, nil
	}
	e := Entry{
		Kind:   fields["kind"],
		Layer:  fields["layer"],
		Status: fields["status"],
		Stage:  fields["stage"],
		Error:  fields["error"],
	}
	e.StartedAt, _ = parseTime(fields["started_at"])
	e.FinishedAt, _ = parseTime(fields["finished_at"])
	return e, true, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// List returns the indexed runs, oldest first. Expired records are skipped.
func (j *Journal) List(ctx context.Context) ([]Entry, error) {
	keys, err := j.KV.Range(ctx, j.indexKey(), 0, -1)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		e, found, err := j.get(ctx, key)
		if err != nil {
			return nil, err
		}
		if found {
			entries = append(entries, e)
		}
	}
	return entries, nil
}
