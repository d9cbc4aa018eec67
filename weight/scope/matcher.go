package scope

import (
	"fmt"
	"regexp"

	"github.com/karma-hep/trigweight/weight"
)

// PathNameMatcher decides whether a trigger path name belongs to a selection.
type PathNameMatcher interface {
	Matches(name string) bool
	String() string
}

// regexpMatcher matches path names case-insensitively against a regular expression.
type regexpMatcher struct {
	pattern string
	re      *regexp.Regexp
}

// CompilePattern compiles a case-insensitive path-name pattern.
func CompilePattern(pattern string) (PathNameMatcher, error) {
	if pattern == "" {
		return nil, fmt.Errorf("%w: empty path pattern", weight.ErrConfiguration)
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: path pattern %q: %v", weight.ErrConfiguration, pattern, err)
	}
	return &regexpMatcher{pattern: pattern, re: re}, nil
}

func (m *regexpMatcher) Matches(name string) bool { return m.re.MatchString(name) }

func (m *regexpMatcher) String() string { return m.pattern }
