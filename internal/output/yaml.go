package output

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/flotilla-vm/flotilla/internal/compiler"
)

// YAMLFormatter formats plans as YAML.
type YAMLFormatter struct{}

// FormatPlan formats a single plan as YAML.
func (f *YAMLFormatter) FormatPlan(plan *compiler.NodePlan) (string, error) {
	data, err := yaml.Marshal(plan)
	if err != nil {
		return "", fmt.Errorf("failed to marshal plan to YAML: %w", err)
	}

	return string(data), nil
}

// FormatPlanList formats a list of plans as a YAML stream, one document
// per node, in fleet order.
func (f *YAMLFormatter) FormatPlanList(plans []*compiler.NodePlan) (string, error) {
	if len(plans) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	for i, plan := range plans {
		data, err := yaml.Marshal(plan)
		if err != nil {
			return "", fmt.Errorf("failed to marshal plan %s to YAML: %w", plan.Name, err)
		}

		if i > 0 {
			buf.WriteString("---\n")
		}
		buf.Write(data)
	}

	return buf.String(), nil
}
