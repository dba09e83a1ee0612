package eval

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LoadCases reads an evaluation query set from a JSON array file. Cases
// without an id get one derived from their position.
func LoadCases(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cases: %w", err)
	}
	var cases []Case
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("parse cases %s: %w", path, err)
	}
	for i := range cases {
		if cases[i].Query == "" {
			return nil, fmt.Errorf("case %d has no query", i)
		}
		if cases[i].ID == "" {
			cases[i].ID = fmt.Sprintf("case-%d", i+1)
		}
	}
	return cases, nil
}

// SaveReport writes a report as indented JSON, creating parent directories
// as needed.
func SaveReport(path string, report *Report) error {
	if report == nil {
		return fmt.Errorf("report is nil")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
