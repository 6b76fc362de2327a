// Package render formats diagnostic reports for the console.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Upsolver/iceberg-diag/internal/diag"
)

// Renderer writes human-readable diagnostics to an output stream.
type Renderer struct {
	out io.Writer
}

// New creates a Renderer over the given writer.
func New(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

// Databases prints the database names, one per line.
func (r *Renderer) Databases(names []string) {
	fmt.Fprintln(r.out, "Databases:")
	for _, name := range names {
		fmt.Fprintf(r.out, "  %s\n", name)
	}
	fmt.Fprintf(r.out, "Total: %d\n", len(names))
}

// Tables prints the resolved table identifiers, one per line.
func (r *Renderer) Tables(ids []diag.TableIdentifier) {
	fmt.Fprintln(r.out, "Tables:")
	for _, id := range ids {
		fmt.Fprintf(r.out, "  %s\n", id.String())
	}
	fmt.Fprintf(r.out, "Total: %d\n", len(ids))
}

// Reports prints one metric table per diagnostic report, followed by any
// scan warnings.
func (r *Renderer) Reports(reports []diag.DiagnosticReport) {
	for _, report := range reports {
		r.report(report)
	}
}

// Failures prints the per-table failures of a run.
func (r *Renderer) Failures(failures []diag.TableFailure) {
	if len(failures) == 0 {
		return
	}
	fmt.Fprintln(r.out, "Failed tables:")
	for _, f := range failures {
		fmt.Fprintf(r.out, "  %s: %s\n", f.Table.String(), f.Message)
	}
}

func (r *Renderer) report(report diag.DiagnosticReport) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(r.out)
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle(report.Table.String())
	tbl.AppendHeader(table.Row{"Metric", "Before", "After", "Improvement"})

	for _, row := range metricRows(report) {
		tbl.AppendRow(table.Row{row.name, row.before, row.after, row.improvement})
	}

	tbl.Render()

	for _, w := range report.Warnings {
		fmt.Fprintf(r.out, "warning: %s\n", w)
	}
	fmt.Fprintln(r.out)
}

type metricRow struct {
	name        string
	before      string
	after       string
	improvement string
}

func metricRows(report diag.DiagnosticReport) []metricRow {
	m := report.Metrics
	p := report.Projection

	worst, haveWorst := m.WorstPartitionByFileCount()
	wp, haveWorstProj := diag.PartitionProjection{}, false
	if haveWorst {
		wp, haveWorstProj = partitionProjection(p, worst.Partition)
	}

	rows := []metricRow{durationRow("Full Scan Overhead", p.BaselineCost, p.ProjectedCost)}

	if haveWorstProj {
		rows = append(rows, durationRow("Worst Partition Scan Overhead", wp.CurrentCost, wp.ProjectedCost))
	}

	rows = append(rows, countRow("Number of Files", m.FileCount, p.ProjectedFileCount))

	if haveWorstProj {
		rows = append(rows, countRow("Worst Partition Number of Files", worst.FileCount, wp.ProjectedFiles))
	}

	rows = append(rows, sizeRow("Avg File Size", m.AverageFileSize(), projectedAverage(p)))

	// The worst partition by average file size is the one whose files are
	// smallest, not the one with the most files.
	if smallest, ok := m.SmallestAveragePartition(); ok {
		if sp, ok := partitionProjection(p, smallest.Partition); ok {
			rows = append(rows, sizeRow("Worst Partition Avg File Size",
				average(smallest.TotalBytes, smallest.FileCount),
				average(smallest.TotalBytes, sp.ProjectedFiles)))
		}
	}

	rows = append(rows,
		metricRow{name: "Total Table Size", before: formatSize(m.TotalBytes)},
		metricRow{name: "Median File Size", before: formatSize(m.MedianFileSize)},
	)

	if largest, ok := m.LargestPartitionByBytes(); ok {
		rows = append(rows, metricRow{
			name:   "Largest Partition Size",
			before: formatSize(largest.TotalBytes),
		})
	}

	return rows
}

func partitionProjection(p diag.OptimizationProjection, partition string) (diag.PartitionProjection, bool) {
	for _, pp := range p.Partitions {
		if pp.Partition == partition {
			return pp, true
		}
	}
	return diag.PartitionProjection{}, false
}

func projectedAverage(p diag.OptimizationProjection) int64 {
	return average(p.ProjectedTotalBytes, p.ProjectedFileCount)
}

func average(totalBytes, fileCount int64) int64 {
	if fileCount == 0 {
		return 0
	}
	return totalBytes / fileCount
}

func countRow(name string, before, after int64) metricRow {
	return metricRow{
		name:        name,
		before:      fmt.Sprintf("%d", before),
		after:       fmt.Sprintf("%d", after),
		improvement: formatImprovement(float64(before), float64(after)),
	}
}

func sizeRow(name string, before, after int64) metricRow {
	return metricRow{
		name:        name,
		before:      formatSize(before),
		after:       formatSize(after),
		improvement: formatImprovement(float64(after), float64(before)),
	}
}

func durationRow(name string, before, after time.Duration) metricRow {
	return metricRow{
		name:        name,
		before:      formatDuration(before),
		after:       formatDuration(after),
		improvement: formatImprovement(float64(before), float64(after)),
	}
}

func formatSize(bytes int64) string {
	if bytes < 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(bytes))
}

// formatImprovement renders how much larger the improved figure is than the
// baseline, as a percentage. Empty when there is nothing to compare.
func formatImprovement(baseline, improved float64) string {
	if baseline == 0 || improved == 0 {
		return ""
	}
	return fmt.Sprintf("%.2f%%", baseline/improved*100-100)
}

// formatDuration renders a duration as hours, minutes and seconds, dropping
// leading zero components.
func formatDuration(d time.Duration) string {
	totalSeconds := d.Seconds()
	hours := int(totalSeconds) / 3600
	minutes := (int(totalSeconds) % 3600) / 60
	seconds := totalSeconds - float64(hours*3600) - float64(minutes*60)

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, int(seconds))
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, int(seconds))
	default:
		if seconds == 0 {
			return "0s"
		}
		formatted := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", seconds), "0"), ".")
		return formatted + "s"
	}
}
