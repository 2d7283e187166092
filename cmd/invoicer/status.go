package main

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/zeptools/gw-invoicer/journal"
)

func printStatus(w io.Writer, entries []journal.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "no runs recorded")
		return err
	}
	table := tablewriter.NewWriter(w)
	table.Header("Kind", "Layer", "Status", "Stage", "Started", "Duration", "Error")
	for _, e := range entries {
		duration := "-"
		if d := e.Duration(); d > 0 {
			duration = d.Round(time.Millisecond).String()
		}
		started := "-"
		if !e.StartedAt.IsZero() {
			started = e.StartedAt.Local().Format(time.DateTime)
		}
		if err := table.Append(e.Kind, e.Layer, e.Status, e.Stage, started, duration, e.Error); err != nil {
			return err
		}
	}
	return table.Render()
}
