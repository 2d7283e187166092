// Package assemble builds the template layer and invoice layers on the document server
// as explicit, ordered stages.
package assemble

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Stage is one named step of a run. Run may update the shared state for later stages.
type Stage[S any] struct {
	Name string
	Run  func(ctx context.Context, state *S) error
}

// Run identifies a pipeline run in logs and in the journal
type Run struct {
	Kind  string // "template" | "invoice"
	Layer string
}

func (r Run) String() string {
	return r.Kind + " " + r.Layer
}

// Recorder keeps track of runs, e.g. *journal.Journal
type Recorder interface {
	Start(ctx context.Context, kind string, layer string) error
	Stage(ctx context.Context, kind string, layer string, stage string) error
	Finish(ctx context.Context, kind string, layer string, runErr error) error
}

// StageError reports which stage failed
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %q: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// RunStages runs stages in order and stops at the first failure.
// Remote changes made by earlier stages are left in place.
// rec may be nil. Its failures are logged and never fail the run.
func RunStages[S any](ctx context.Context, run Run, stages []Stage[S], state *S, rec Recorder) error {
	began := time.Now()
	log.Printf("[INFO][PIPELINE] %s: %d stages", run, len(stages))
	record(rec != nil, func() error { return rec.Start(ctx, run.Kind, run.Layer) })

	err := runStages(ctx, run, stages, state, rec)

	record(rec != nil, func() error { return rec.Finish(context.WithoutCancel(ctx), run.Kind, run.Layer, err) })
	if err != nil {
		log.Printf("[ERROR][PIPELINE] %s: %v", run, err)
		return err
	}
	log.Printf("[INFO][PIPELINE] %s: done in %s", run, time.Since(began).Round(time.Millisecond))
	return nil
}

func runStages[S any](ctx context.Context, run Run, stages []Stage[S], state *S, rec Recorder) error {
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return &StageError{Stage: stage.Name, Err: err}
		}
		record(rec != nil, func() error { return rec.Stage(ctx, run.Kind, run.Layer, stage.Name) })
		started := time.Now()
		if err := stage.Run(ctx, state); err != nil {
			return &StageError{Stage: stage.Name, Err: err}
		}
		log.Printf("[INFO][PIPELINE] %s: %s (%s)", run, stage.Name, time.Since(started).Round(time.Millisecond))
	}
	return nil
}

func record(enabled bool, op func() error) {
	if !enabled {
		return
	}
	if err := op(); err != nil {
		log.Printf("[WARN][JOURNAL] %v", err)
	}
}
