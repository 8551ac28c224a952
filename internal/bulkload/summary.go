package bulkload

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite"
)

const maxListedErrors = 10

// PrintSummary renders the stats and the first failures as tables.
func PrintSummary(w io.Writer, stats Stats, failures []bulkwrite.ErrorRecord, noColor bool) {
	success := color.New(color.FgGreen, color.Bold)
	failure := color.New(color.FgRed, color.Bold)
	warning := color.New(color.FgYellow)

	if noColor {
		for _, c := range []*color.Color{success, failure, warning} {
			c.DisableColor()
		}
	}

	status := success.Sprint("completed")
	switch {
	case !stats.Completed:
		status = warning.Sprint("interrupted")
	case stats.Failed > 0 || stats.Rejected > 0:
		status = failure.Sprint("completed with errors")
	}

	rate := 0.0
	if seconds := stats.Duration.Seconds(); seconds > 0 {
		rate = float64(stats.Succeeded) / seconds
	}

	table := newTable(w, []string{"Metric", "Value"})
	table.AppendBulk([][]string{
		{"Status", status},
		{"Lines read", strconv.FormatInt(stats.Lines, 10)},
		{"Rejected", countCell(stats.Rejected, warning)},
		{"Enqueued", strconv.FormatInt(stats.Enqueued, 10)},
		{"Committed", success.Sprint(stats.Succeeded)},
		{"Failed", countCell(stats.Failed, failure)},
		{"Duration", stats.Duration.Round(time.Millisecond).String()},
		{"Records/s", fmt.Sprintf("%.1f", rate)},
	})
	table.Render()

	if len(failures) == 0 {
		return
	}

	_, _ = fmt.Fprintln(w)

	errorTable := newTable(w, []string{"Operation", "Type", "Error"})
	for i, record := range failures {
		if i == maxListedErrors {
			errorTable.SetFooter([]string{"", "", fmt.Sprintf("%d more", len(failures)-maxListedErrors)})
			break
		}

		errorTable.Append([]string{
			record.Operation.Kind().String(),
			record.Operation.TargetType(),
			failure.Sprint(record.Err.Error()),
		})
	}
	errorTable.Render()
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	return table
}

func countCell(n int64, highlight *color.Color) string {
	if n == 0 {
		return "0"
	}

	return highlight.Sprint(n)
}
