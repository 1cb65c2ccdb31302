package matchers

import (
	"fmt"

	"github.com/onsi/gomega/types"
)

// HaveScanError succeeds when the JSON report records an error of the given
// kind against the root-relative path.
func HaveScanError(path, kind string) types.GomegaMatcher {
	return &haveScanErrorMatcher{
		path: path,
		kind: kind,
	}
}

type haveScanErrorMatcher struct {
	path   string
	kind   string
	errors []reportError
}

func (m *haveScanErrorMatcher) Match(actual interface{}) (bool, error) {
	r, err := readReport(actual)
	if err != nil {
		return false, err
	}

	m.errors = r.Errors
	for _, e := range r.Errors {
		if e.Path == m.path && e.Kind == m.kind {
			return true, nil
		}
	}

	return false, nil
}

func (m *haveScanErrorMatcher) FailureMessage(actual interface{}) string {
	return fmt.Sprintf("Expected report errors\n\t%#v\nto contain a %s error for\n\t%s", m.errors, m.kind, m.path)
}

func (m *haveScanErrorMatcher) NegatedFailureMessage(actual interface{}) string {
	return fmt.Sprintf("Expected report errors\n\t%#v\nnot to contain a %s error for\n\t%s", m.errors, m.kind, m.path)
}
