package results

import (
	"fmt"
	"strings"

	"github.com/adam-setup/server/internal/dataset"
)

// renderTruncated renders a table limited to the display bounds, with
// overflow notes for hidden rows and columns.
func renderTruncated(t *dataset.Table) (string, bool) {
	truncated := false
	view := t

	hiddenCols := t.NumColumns() - MaxDisplayColumns
	if hiddenCols > 0 {
		view = view.SelectColumns(MaxDisplayColumns)
		truncated = true
	}
	hiddenRows := t.Len() - MaxDisplayRows
	if hiddenRows > 0 {
		view = view.Head(MaxDisplayRows)
		truncated = true
	}

	var b strings.Builder
	b.WriteString(renderTable(view))
	if hiddenRows > 0 {
		fmt.Fprintf(&b, "\n... +%d more rows", hiddenRows)
	}
	if hiddenCols > 0 {
		fmt.Fprintf(&b, "\n... +%d more columns", hiddenCols)
	}
	return b.String(), truncated
}

// renderTable renders a table as padded monospace text.
func renderTable(t *dataset.Table) string {
	cols := t.Columns()
	if len(cols) == 0 {
		return "(no columns)"
	}

	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = len(c)
	}
	cells := make([][]string, t.Len())
	for r := 0; r < t.Len(); r++ {
		row := t.Row(r)
		cells[r] = make([]string, len(cols))
		for i, c := range cols {
			s := ""
			if !row.Empty(c) {
				s = row.Str(c)
			}
			cells[r][i] = s
			if len(s) > widths[i] {
				widths[i] = len(s)
			}
		}
	}

	var b strings.Builder
	for i, c := range cols {
		if i > 0 {
			b.WriteString(" | ")
		}
		fmt.Fprintf(&b, "%-*s", widths[i], c)
	}
	for r := range cells {
		b.WriteString("\n")
		for i := range cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			fmt.Fprintf(&b, "%-*s", widths[i], cells[r][i])
		}
	}
	return b.String()
}

// FormatSummary renders a processed result as the markdown block given
// to the response model.
func FormatSummary(pr *Processed) string {
	var b strings.Builder
	writeSummary(&b, pr, 0)
	return strings.TrimRight(b.String(), "\n")
}

func writeSummary(b *strings.Builder, pr *Processed, depth int) {
	heading := strings.Repeat("#", depth+2)
	fmt.Fprintf(b, "%s Result: %s\n", heading, pr.Label)
	fmt.Fprintf(b, "Status: %s\n", pr.Status)

	switch pr.Status {
	case StatusError:
		fmt.Fprintf(b, "Error: %s\n", pr.ErrorDetails)
	case StatusEmpty:
		b.WriteString("The query returned no matching rows.\n")
	default:
		if len(pr.Items) == 0 {
			fmt.Fprintf(b, "Rows: %d, Columns: %d\n", pr.TotalRows, pr.TotalColumns)
			if pr.Display != "" {
				fmt.Fprintf(b, "```\n%s\n```\n", pr.Display)
			}
		}
	}

	if pr.UploadNote != "" {
		fmt.Fprintf(b, "Note: %s\n", pr.UploadNote)
	}
	if depth == 0 {
		for _, l := range pr.Links {
			fmt.Fprintf(b, "Download: [%s](%s)\n", l.Label, l.URL)
		}
	}

	for _, item := range pr.Items {
		b.WriteString("\n")
		writeSummary(b, item, depth+1)
	}
}
