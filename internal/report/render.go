package report

import (
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Render writes the report as tables: a summary, one table per non-empty
// bucket and the compiler diagnostics.
func Render(w io.Writer, r *RunReport) {
	summary := newTable(w)
	summary.SetTitle("Run %s", r.RunID)
	summary.AppendHeader(table.Row{"Bucket", "Count"})
	summary.AppendRow(table.Row{"Bundled", len(r.Bundled)})
	summary.AppendRow(table.Row{"Refreshed, not bundled", len(r.RefreshedNotBundled)})
	summary.AppendRow(table.Row{"Failed", len(r.Failed)})
	if len(r.DeliveryFailures) > 0 {
		summary.AppendRow(table.Row{"Delivery failures", len(r.DeliveryFailures)})
	}
	summary.AppendFooter(table.Row{"Total", r.Total})
	summary.Render()

	renderBucket(w, "Bundled", r.Bundled, false)
	renderBucket(w, "Refreshed, not bundled", r.RefreshedNotBundled, true)
	renderBucket(w, "Failed", r.Failed, true)
	renderBucket(w, "Delivery failures", r.DeliveryFailures, true)

	if len(r.Diagnostics) == 0 {
		return
	}
	libs := make([]string, 0, len(r.Diagnostics))
	for lib := range r.Diagnostics {
		libs = append(libs, lib)
	}
	sort.Strings(libs)

	diag := newTable(w)
	diag.SetTitle("Compiler diagnostics")
	diag.AppendHeader(table.Row{"Library", "Info", "Warning", "Error"})
	for _, lib := range libs {
		s := r.Diagnostics[lib]
		diag.AppendRow(table.Row{lib, s.Info, s.Warning, s.Error})
	}
	diag.Render()
}

func renderBucket(w io.Writer, title string, entries []Entry, withReason bool) {
	if len(entries) == 0 {
		return
	}
	t := newTable(w)
	t.SetTitle("%s (%d)", title, len(entries))
	if withReason {
		t.AppendHeader(table.Row{"Artifact", "State", "Reason"})
	} else {
		t.AppendHeader(table.Row{"Artifact", "State", "Output"})
	}
	for _, e := range entries {
		last := e.BundlePath
		if withReason {
			last = e.Reason
		}
		t.AppendRow(table.Row{e.Name, e.State, last})
	}
	t.Render()
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	style := table.StyleLight
	style.Options.DrawBorder = false
	t.SetStyle(style)
	return t
}
