package usage

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"poi-harvest/internal/poi_harvest/model"
)

// PrintSummary renders the final report as console tables.
func PrintSummary(w io.Writer, rep model.UsageReport, totalEntities int) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Harvest summary")
	t.AppendRows([]table.Row{
		{"Total entities", totalEntities},
		{"Total API calls", rep.TotalCalls},
		{"Total errors", rep.ErrorCount},
		{"Duration", fmt.Sprintf("%.1fs", rep.Duration)},
	})
	t.Render()

	if len(rep.CallsByPartition) == 0 {
		return
	}
	parts := make([]string, 0, len(rep.CallsByPartition))
	for p := range rep.CallsByPartition {
		parts = append(parts, p)
	}
	sort.Strings(parts)

	pt := table.NewWriter()
	pt.SetOutputMirror(w)
	pt.SetStyle(table.StyleLight)
	pt.AppendHeader(table.Row{"Partition", "Calls", "Errors"})
	errs := make(map[string]int)
	for _, e := range rep.Errors {
		errs[e.Partition]++
	}
	for _, p := range parts {
		pt.AppendRow(table.Row{p, rep.CallsByPartition[p], errs[p]})
	}
	pt.Render()
}
