package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/flotilla-vm/flotilla/internal/compiler"
)

// TableFormatter formats plans as human-readable tables.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool
}

// FormatPlan formats a single plan as a table row.
func (f *TableFormatter) FormatPlan(plan *compiler.NodePlan) (string, error) {
	return f.FormatPlanList([]*compiler.NodePlan{plan})
}

// FormatPlanList formats a list of plans as a table, one node per row.
func (f *TableFormatter) FormatPlanList(plans []*compiler.NodePlan) (string, error) {
	if len(plans) == 0 {
		return "No nodes defined\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "NAME\tBOX\tHOSTNAME\tOPS")
	}

	for _, plan := range plans {
		box := "-"
		hostname := "-"
		for _, op := range plan.Ops {
			switch op.Kind {
			case compiler.KindSetBox:
				if s, ok := op.Value.(string); ok {
					box = s
				}
			case compiler.KindSetHostname:
				if s, ok := op.Value.(string); ok && s != "" {
					hostname = s
				}
			}
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", plan.Name, box, hostname, len(plan.Ops))
	}

	_ = w.Flush()
	return buf.String(), nil
}
