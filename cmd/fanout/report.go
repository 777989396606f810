package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

var (
	bold   = color.New(color.Bold)
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
)

// maxListedFailures caps the failures printed per batch.
const maxListedFailures = 5

func renderReport(w io.Writer, rep *report) {
	_, _ = bold.Fprintln(w, "\nBatches")
	table := tablewriter.NewWriter(w)
	table.Header("Batch", "Queries", "OK", "Failed", "Slowest", "Elapsed")
	var queries, failed int
	for _, b := range rep.Batches {
		queries += b.Queries
		failed += b.Failed
		_ = table.Append(
			b.Name,
			strconv.Itoa(b.Queries),
			green.Sprint(b.Queries-b.Failed),
			failedCell(b.Failed),
			b.Slowest.String(),
			b.Elapsed.Round(time.Millisecond).String(),
		)
	}
	_ = table.Render()

	_, _ = bold.Fprintln(w, "\nWorkers")
	wt := tablewriter.NewWriter(w)
	wt.Header("Worker", "Queries")
	names := make([]string, 0, len(rep.Workers))
	for name := range rep.Workers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_ = wt.Append(name, strconv.Itoa(rep.Workers[name]))
	}
	_ = wt.Render()

	for _, b := range rep.Batches {
		for i, f := range b.Failures {
			if i == maxListedFailures {
				_, _ = fmt.Fprintf(w, "  %s: %d more\n", b.Name, len(b.Failures)-maxListedFailures)
				break
			}
			_, _ = red.Fprintf(w, "  %s %s\n", b.Name, f)
		}
	}

	_, _ = fmt.Fprintf(w, "\nhealth checks: %d accepted, %s shed\n", rep.ChecksOK, yellow.Sprint(rep.ChecksShed))
	_, _ = fmt.Fprintf(w, "queries: %d, failed: %s, total time: %s\n",
		queries, failedCell(failed), rep.TotalElapsed.Round(time.Millisecond))
	if rep.Interrupted {
		_, _ = yellow.Fprintln(w, "interrupted: results are partial")
	}
}

func failedCell(n int) string {
	if n == 0 {
		return green.Sprint(n)
	}
	return red.Sprint(n)
}
