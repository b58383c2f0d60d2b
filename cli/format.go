package cli

// This file contains the plain text rendering of runs and reports.

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/waterpistol/waterpistol/model"
)

const timeLayout = "2006-01-02 15:04:05"

func statusIndicator(record *model.RunRecord) string {
	switch record.Status {
	case model.StatusRunning:
		return "…"
	case model.StatusDone:
		if record.Statistics != nil && record.Statistics.RequestsNOK > 0 {
			return "✗"
		}
		return "✓"
	}
	return "?"
}

func formatParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	return strings.Join(parts, " ")
}

func printSummary(w io.Writer, run model.RunSummary) {
	record := run.Data

	when := "in progress"
	if run.CreationDate != nil {
		when = run.CreationDate.Local().Format(timeLayout)
	}

	fmt.Fprintf(w, "%s  %s  %s  id=%s\n", statusIndicator(record), when, record.Status, run.Name)
	if run.CreationDate == nil {
		state := "orphaned"
		if run.Active {
			state = "active"
		}
		if run.Progress != nil {
			fmt.Fprintf(w, "   Progress: %d users started (%s)\n", *run.Progress, state)
		} else {
			fmt.Fprintf(w, "   Progress: waiting for log (%s)\n", state)
		}
	}
	if stats := record.Statistics; stats != nil {
		fmt.Fprintf(w, "   Simulation: %s (gatling %s)\n", stats.Name, stats.Version)
		fmt.Fprintf(w, "   Requests: %d ok, %d failed\n", stats.RequestsOK, stats.RequestsNOK)
	}
	if len(record.CustomParams) > 0 {
		fmt.Fprintf(w, "   Params: %s\n", formatParams(record.CustomParams))
	}
}

func printRecord(w io.Writer, token string, record *model.RunRecord) {
	fmt.Fprintf(w, "=== Run: %s ===\n", token)
	fmt.Fprintf(w, "Status: %s\n", record.Status)
	if record.Timestamp != nil {
		fmt.Fprintf(w, "Finished: %s\n", record.Timestamp.Local().Format(timeLayout))
	}
	if len(record.CustomParams) > 0 {
		fmt.Fprintf(w, "Params: %s\n", formatParams(record.CustomParams))
	}
	fmt.Fprintln(w)

	if record.Statistics == nil {
		fmt.Fprintln(w, "No statistics available")
		return
	}
	printReport(w, record.Statistics)
}

func printReport(w io.Writer, report *model.Report) {
	fmt.Fprintf(w, "Simulation: %s (gatling %s)\n", report.Name, report.Version)
	fmt.Fprintf(w, "Requests: %d ok, %d failed\n\n", report.RequestsOK, report.RequestsNOK)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "REQUEST\tCOUNT\tMIN\tAVG\tP95\tMAX\tERRORS")
	for _, stat := range report.RequestStats {
		var failed uint64
		for _, e := range stat.Errors {
			failed += e.Count
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
			stat.Name, stat.Count, stat.Min, stat.Avg, stat.P95, stat.Max, failed)
		for _, e := range stat.Errors {
			fmt.Fprintf(tw, "  %s\t%d\t\t\t\t\t\n", e.Name, e.Count)
		}
	}
	tw.Flush()

	if len(report.UserStats) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCENARIO\tUSERS")
	for _, stat := range report.UserStats {
		fmt.Fprintf(tw, "%s\t%d\n", stat.Name, stat.Count)
	}
	tw.Flush()
}
