package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/apmoronez/dogbot/internal/model"
	"gopkg.in/yaml.v3"
)

const (
	outputJSON = "json"
	outputYAML = "yaml"
)

func validateOutput(format string) error {
	switch format {
	case outputJSON, outputYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want json or yaml)", format)
	}
}

// render writes v to w in the selected format
func render(w io.Writer, format string, v interface{}) error {
	if format == outputYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseAssignments turns field=value arguments into a patch. The literal
// null clears a field.
func parseAssignments(args []string) (model.Patch, error) {
	patch := make(model.Patch, len(args))
	for _, arg := range args {
		field, value, ok := strings.Cut(arg, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("expected field=value, got %q", arg)
		}
		if value == "null" {
			patch[field] = nil
			continue
		}
		patch[field] = value
	}
	return patch, nil
}

func parseFilters(args []string) ([]model.Filter, error) {
	filters := make([]model.Filter, 0, len(args))
	for _, arg := range args {
		field, value, ok := strings.Cut(arg, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("expected field=value, got %q", arg)
		}
		filters = append(filters, model.Filter{Field: field, Value: value})
	}
	return filters, nil
}
