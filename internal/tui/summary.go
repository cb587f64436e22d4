package tui

import (
	"fmt"
	"strings"
	"time"

	"ga4bq/internal/cache"
	"ga4bq/internal/pipeline"
	"ga4bq/internal/query"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// RenderSummary describes the outcome of a batch: one line per finished job,
// then one line per failure contained in err.
func RenderSummary(results []*pipeline.Result, err error) string {
	var content strings.Builder
	content.WriteString(HeaderStyle.Render("Summary") + "\n")

	for _, res := range results {
		if res.Skipped {
			content.WriteString(WarningStyle.Render("  skipped ") +
				fmt.Sprintf("%s: no rows for %s", res.Job, res.Table) + "\n")
			continue
		}
		line := fmt.Sprintf("%s: %s rows in %d pages to %s", res.Job, humanize.Comma(int64(res.Rows)), res.Pages, res.Table)
		if res.Load != nil {
			line += SubtleItemStyle.Render(fmt.Sprintf(" (%d columns, %s, job %s)",
				res.Load.NumColumns, humanize.Bytes(uint64(res.Load.Bytes)), res.Load.JobID))
		}
		content.WriteString(SuccessStyle.Render("  loaded  ") + line + "\n")
	}

	for _, e := range splitErrors(err) {
		content.WriteString(ErrorStyle.Render("  failed  ") + e.Error() + "\n")
	}
	if len(results) == 0 && err == nil {
		content.WriteString(SubtleItemStyle.Render("  nothing to do") + "\n")
	}
	return content.String()
}

func splitErrors(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}

// RenderHistory lists the last load of every table, relative to now.
func RenderHistory(records []*cache.LoadRecord, now time.Time) string {
	if len(records) == 0 {
		return SubtleItemStyle.Render("No loads recorded yet") + "\n"
	}

	header := []string{"TABLE", "ROWS", "COLUMNS", "SIZE", "LOADED", "JOB"}
	rows := make([][]string, len(records))
	for i, rec := range records {
		rows[i] = []string{
			rec.Table,
			humanize.Comma(int64(rec.Rows)),
			fmt.Sprint(rec.Columns),
			humanize.Bytes(uint64(rec.Bytes)),
			humanize.RelTime(rec.FinishedAt, now, "ago", "from now"),
			rec.JobID,
		}
	}
	return renderTable(header, rows)
}

// RenderQueries lists queries with the warehouse columns they produce.
func RenderQueries(descriptors []*query.Descriptor) string {
	var content strings.Builder
	for _, d := range descriptors {
		mode := "truncate"
		if d.Append {
			mode = "append"
		}
		content.WriteString(HeaderStyle.Render(d.Name) +
			SubtleItemStyle.Render(fmt.Sprintf("  table %s, %s..%s, %s", d.Table, d.StartDate, d.EndDate, mode)) + "\n")

		columns, err := d.Columns()
		if err != nil {
			content.WriteString("  " + ErrorStyle.Render(err.Error()) + "\n")
			continue
		}
		partition, _ := d.PartitionColumn()
		for _, c := range columns {
			line := "  " + c.Name + " " + DataTypeStyle.Render(string(c.Type))
			if c.Name == partition {
				line += SubtleItemStyle.Render(" partition")
			}
			content.WriteString(line + "\n")
		}
		if d.Filter != nil {
			content.WriteString(SubtleItemStyle.Render(fmt.Sprintf("  filter %s %s %q", d.Filter.Field, d.Filter.MatchType, d.Filter.Value)) + "\n")
		}
	}
	return content.String()
}

func renderTable(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	renderRow := func(cells []string, style lipgloss.Style) string {
		rendered := make([]string, len(cells))
		for i, cell := range cells {
			rendered[i] = TableCellStyle.Width(widths[i] + 2).Render(style.Render(cell))
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
	}

	var content strings.Builder
	content.WriteString(renderRow(header, HeaderStyle) + "\n")
	for _, row := range rows {
		content.WriteString(renderRow(row, ItemStyle) + "\n")
	}
	return content.String()
}
