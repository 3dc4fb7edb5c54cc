// Package bundle recognises project bundle directories by name.
package bundle

import (
	"fmt"
	"regexp"
	"strings"

	"mvdan.cc/sh/v3/pattern"
)

// DefaultPattern matches Xcode project bundles.
const DefaultPattern = "*.xcodeproj"

// Matcher tests directory base names against a shell-style glob.
// The glob supports "*", "?", "[...]" and "[!...]".
type Matcher struct {
	glob string
	rx   *regexp.Regexp
}

// Compile parses glob into a Matcher. The glob applies to a single path
// element, so it must not be empty or contain a separator.
func Compile(glob string) (*Matcher, error) {
	if glob == "" {
		return nil, fmt.Errorf("empty bundle pattern")
	}
	if strings.ContainsRune(glob, '/') {
		return nil, fmt.Errorf("bundle pattern %q must not contain '/'", glob)
	}
	expr, err := pattern.Regexp(glob, pattern.Filenames)
	if err != nil {
		return nil, fmt.Errorf("parsing bundle pattern %q: %w", glob, err)
	}
	rx, err := regexp.Compile("^(?:" + expr + ")$")
	if err != nil {
		return nil, fmt.Errorf("compiling bundle pattern %q: %w", glob, err)
	}
	return &Matcher{glob: glob, rx: rx}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(glob string) *Matcher {
	m, err := Compile(glob)
	if err != nil {
		panic(err)
	}
	return m
}

// Match reports whether name, a single directory name, is a bundle.
func (m *Matcher) Match(name string) bool {
	return m.rx.MatchString(name)
}

// String returns the original glob.
func (m *Matcher) String() string {
	return m.glob
}
