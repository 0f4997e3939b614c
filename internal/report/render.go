package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Render writes the result table as an aligned text table: a title line, a
// header row, and one row per group.
func Render(w io.Writer, title string, columns []string, rows [][]string) {
	fmt.Fprintf(w, "\n%s\n%s\n", title, strings.Repeat("-", len(title)))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(columns, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}
