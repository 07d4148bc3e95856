package output

import (
	"encoding/json"
	"fmt"

	"github.com/flotilla-vm/flotilla/internal/compiler"
)

// JSONFormatter formats plans as JSON.
type JSONFormatter struct{}

// FormatPlan formats a single plan as JSON.
func (f *JSONFormatter) FormatPlan(plan *compiler.NodePlan) (string, error) {
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal plan to JSON: %w", err)
	}

	return string(data) + "\n", nil
}

// FormatPlanList formats a list of plans as a JSON array.
func (f *JSONFormatter) FormatPlanList(plans []*compiler.NodePlan) (string, error) {
	if len(plans) == 0 {
		return "[]\n", nil
	}

	data, err := json.MarshalIndent(plans, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal plans to JSON: %w", err)
	}

	return string(data) + "\n", nil
}
