package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// Matcher decides which changed paths are ignored.
type Matcher struct {
	patterns []glob.Glob
}

func NewMatcher(ignoreList []string) (*Matcher, error) {
	m := &Matcher{}

	for _, pattern := range ignoreList {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" || strings.HasPrefix(pattern, "#") {
			continue
		}

		g, err := glob.Compile(filepath.ToSlash(pattern), '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		m.patterns = append(m.patterns, g)
	}

	return m, nil
}

// Ignored reports whether path, or any of its components, matches an
// ignore pattern.
func (m *Matcher) Ignored(path string) bool {
	if m == nil || len(m.patterns) == 0 {
		return false
	}

	normalized := filepath.ToSlash(path)
	parts := strings.Split(normalized, "/")

	for _, pattern := range m.patterns {
		if pattern.Match(normalized) {
			return true
		}

		for _, part := range parts {
			if part != "" && pattern.Match(part) {
				return true
			}
		}
	}

	return false
}
