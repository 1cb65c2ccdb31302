package matchers

import (
	"encoding/json"
	"fmt"
	"os"
)

type reportPackage struct {
	Ecosystem  string `json:"ecosystem"`
	Name       string `json:"name"`
	Version    string `json:"version"`
	SourcePath string `json:"source_path"`
	Parser     string `json:"parser"`
	Superseded bool   `json:"superseded"`
}

type reportError struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
	Kind   string `json:"kind"`
	Parser string `json:"parser"`
}

type report struct {
	Packages []reportPackage `json:"packages"`
	Errors   []reportError   `json:"errors"`
}

// readReport accepts the JSON report as a string, a byte slice or the path
// of a file holding it.
func readReport(actual interface{}) (report, error) {
	var content []byte
	switch value := actual.(type) {
	case []byte:
		content = value
	case string:
		content = []byte(value)
		if info, statErr := os.Stat(value); statErr == nil && info.Mode().IsRegular() {
			file, err := os.ReadFile(value)
			if err != nil {
				return report{}, err
			}

			content = file
		}
	case fmt.Stringer:
		content = []byte(value.String())
	default:
		return report{}, fmt.Errorf("actual must be a <string>, <[]byte> or <fmt.Stringer>, received %#v", actual)
	}

	var r report
	err := json.Unmarshal(content, &r)
	if err != nil {
		return report{}, fmt.Errorf("actual is not a JSON report: %w", err)
	}

	return r, nil
}
