package timetracker

import (
	"fmt"
	"regexp"
	"strings"
)

// IssueFilter holds an ordered set of full-match patterns over issue
// keys. A nil or empty filter matches nothing.
type IssueFilter struct {
	patterns []*regexp.Regexp
}

// CompileIssueFilter anchors every expression so a pattern has to match
// the whole issue key, not a substring of it. Blank expressions are
// skipped; an invalid expression fails the whole compile.
func CompileIssueFilter(exprs []string) (*IssueFilter, error) {
	f := &IssueFilter{}
	for _, expr := range exprs {
		expr = strings.TrimSpace(expr)
		if expr == "" {
			continue
		}
		re, err := regexp.Compile(`\A(?:` + expr + `)\z`)
		if err != nil {
			return nil, fmt.Errorf("%w: issue pattern %q: %v", ErrValidation, expr, err)
		}
		f.patterns = append(f.patterns, re)
	}
	return f, nil
}

// MustCompileIssueFilter is for fixed pattern sets in wiring and tests.
func MustCompileIssueFilter(exprs ...string) *IssueFilter {
	f, err := CompileIssueFilter(exprs)
	if err != nil {
		panic(err)
	}
	return f
}

// Matches reports whether any pattern matches the whole key, checking in
// order and stopping at the first hit.
func (f *IssueFilter) Matches(issueKey string) bool {
	if f == nil {
		return false
	}
	for _, re := range f.patterns {
		if re.MatchString(issueKey) {
			return true
		}
	}
	return false
}

// Empty reports whether the filter has no patterns at all.
func (f *IssueFilter) Empty() bool {
	return f == nil || len(f.patterns) == 0
}
