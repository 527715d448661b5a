package config

import "regexp"

// regexpMatcher wraps a compiled pattern that matches everything when the
// source pattern was empty, so a Matcher field left blank in the JSON
// config behaves as a wildcard without a special case at every call site.
type regexpMatcher struct {
	re *regexp.Regexp
}

func newRegexpMatcher(pattern string) (*regexpMatcher, error) {
	if pattern == "" {
		return &regexpMatcher{}, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &regexpMatcher{re: re}, nil
}

func (m *regexpMatcher) Match(s string) bool {
	if m.re == nil {
		return true
	}
	return m.re.MatchString(s)
}
