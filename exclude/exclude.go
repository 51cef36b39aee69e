// Package exclude decides which source paths stay out of a sync.
package exclude

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar"
	"github.com/pkg/errors"
)

// Matcher holds a validated set of glob patterns. The zero value excludes
// nothing.
type Matcher struct {
	patterns []string
}

// New validates every pattern up front so a typo fails the run before
// anything is touched.
func New(patterns []string) (*Matcher, error) {
	m := &Matcher{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		p = filepath.ToSlash(p)
		// doublestar only reports a bad pattern when matching reaches it;
		// path.Match checks the whole pattern.
		if _, err := path.Match(p, ""); err != nil {
			return nil, errors.Wrapf(err, "invalid exclude pattern %q", p)
		}
		m.patterns = append(m.patterns, p)
	}
	return m, nil
}

// Patterns returns the normalized patterns.
func (m *Matcher) Patterns() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.patterns))
	copy(out, m.patterns)
	return out
}

// Match reports whether rel itself matches, by full relative path or by base
// name. Ancestors are not consulted; use Excluded for that.
func (m *Matcher) Match(rel string) bool {
	if m == nil || len(m.patterns) == 0 {
		return false
	}
	rel = normalize(rel)
	if rel == "" {
		return false
	}
	base := path.Base(rel)
	for _, p := range m.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(p, base); ok {
			return true
		}
	}
	return false
}

// Excluded reports whether rel or any of its ancestor directories matches.
// A file under an excluded directory is excluded even when the walk that
// produced it never descended there.
func (m *Matcher) Excluded(rel string) bool {
	rel = normalize(rel)
	for rel != "" && rel != "." {
		if m.Match(rel) {
			return true
		}
		parent := path.Dir(rel)
		if parent == rel {
			break
		}
		rel = parent
	}
	return false
}

// Partition splits files into kept and excluded sets. Every input lands in
// exactly one of them, in input order.
func (m *Matcher) Partition(files []string) (kept, excluded []string) {
	kept = make([]string, 0, len(files))
	excluded = make([]string, 0)
	for _, f := range files {
		if m.Excluded(f) {
			excluded = append(excluded, f)
		} else {
			kept = append(kept, f)
		}
	}
	return kept, excluded
}

func normalize(rel string) string {
	rel = filepath.ToSlash(rel)
	rel = strings.TrimPrefix(rel, "./")
	rel = strings.Trim(rel, "/")
	if rel == "" {
		return ""
	}
	return path.Clean(rel)
}
