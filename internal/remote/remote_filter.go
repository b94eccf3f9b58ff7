package remote

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Filter drops remote files whose path matches any exclude glob.
// Globs use doublestar syntax and are matched against the path without its leading slash.
type Filter struct {
	patterns []string
}

func NewFilter(patterns []string) (*Filter, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	return &Filter{patterns: patterns}, nil
}

// Excluded reports whether path matches one of the exclude globs
func (f *Filter) Excluded(path string) bool {
	if f == nil {
		return false
	}
	path = strings.TrimPrefix(path, "/")
	for _, p := range f.patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}

// Apply returns the files that are not excluded, preserving order
func (f *Filter) Apply(files []*RemoteFile) []*RemoteFile {
	if f == nil || len(f.patterns) == 0 {
		return files
	}

	kept := files[:0:0]
	for _, file := range files {
		if !f.Excluded(file.Path) {
			kept = append(kept, file)
		}
	}
	return kept
}
