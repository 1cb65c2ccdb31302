package matchers

import (
	"fmt"

	"github.com/onsi/gomega"
	"github.com/onsi/gomega/types"
)

// ContainPackage succeeds when the JSON report lists a package of the given
// ecosystem and name whose version matches the expected value, either a
// string or a matcher. Superseded records are ignored.
func ContainPackage(ecosystem, name string, version interface{}) types.GomegaMatcher {
	return &containPackageMatcher{
		ecosystem: ecosystem,
		name:      name,
		version:   version,
	}
}

type containPackageMatcher struct {
	ecosystem     string
	name          string
	version       interface{}
	failedMatcher types.GomegaMatcher
	foundVersions []string
}

func (m *containPackageMatcher) Match(actual interface{}) (bool, error) {
	matcher, ok := m.version.(types.GomegaMatcher)
	if !ok {
		str, ok := m.version.(string)
		if !ok {
			return false, fmt.Errorf("version must be a <string> or matcher, received %#v", m.version)
		}

		matcher = gomega.Equal(str)
	}

	r, err := readReport(actual)
	if err != nil {
		return false, err
	}

	m.failedMatcher = m
	m.foundVersions = nil

	for _, p := range r.Packages {
		if p.Ecosystem != m.ecosystem || p.Name != m.name || p.Superseded {
			continue
		}

		m.foundVersions = append(m.foundVersions, p.Version)

		match, err := matcher.Match(p.Version)
		if err != nil {
			return false, err
		}

		if match {
			return true, nil
		}

		m.failedMatcher = matcher
	}

	return false, nil
}

func (m *containPackageMatcher) FailureMessage(actual interface{}) string {
	if _, ok := m.failedMatcher.(*containPackageMatcher); ok {
		return fmt.Sprintf("Expected report\nto contain package\n\t%s/%s", m.ecosystem, m.name)
	}

	return fmt.Sprintf("Expected %s/%s with versions %v\n%s", m.ecosystem, m.name, m.foundVersions, m.failedMatcher.FailureMessage(m.foundVersions[len(m.foundVersions)-1]))
}

func (m *containPackageMatcher) NegatedFailureMessage(actual interface{}) string {
	return fmt.Sprintf("Expected report\nnot to contain package\n\t%s/%s matching %#v", m.ecosystem, m.name, m.version)
}
