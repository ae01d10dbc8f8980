package contextfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Set is the persisted list of context file paths attached to queries.
// Stored as JSON under the periscope home directory.
type Set struct {
	path  string
	Paths []string `json:"paths"`
}

// LoadSet reads the context set from file, returning an empty set when the
// file does not exist yet.
func LoadSet(file string) (*Set, error) {
	s := &Set{path: file}
	data, err := os.ReadFile(file)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read context set: %w", err)
	}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse context set: %w", err)
	}
	s.path = file
	return s, nil
}

// Save writes the set back to its file.
func (s *Set) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create context dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}

// Add expands a doublestar pattern relative to root and adds every matching
// regular file. A pattern without meta characters is treated as a literal
// path. Returns the paths newly added.
func (s *Set) Add(root, pattern string) ([]string, error) {
	var matches []string
	if !hasMeta(pattern) {
		matches = []string{pattern}
	} else {
		var err error
		matches, err = doublestar.Glob(os.DirFS(root), pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
	}

	existing := make(map[string]bool, len(s.Paths))
	for _, p := range s.Paths {
		existing[p] = true
	}

	var added []string
	for _, m := range matches {
		abs := m
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(root, m)
		}
		info, err := os.Stat(abs)
		if err != nil || info.IsDir() {
			continue
		}
		if !existing[abs] {
			existing[abs] = true
			s.Paths = append(s.Paths, abs)
			added = append(added, abs)
		}
	}
	sort.Strings(s.Paths)
	return added, nil
}

// Remove drops a path from the set. Returns false when the path was not
// present.
func (s *Set) Remove(path string) bool {
	for i, p := range s.Paths {
		if p == path {
			s.Paths = append(s.Paths[:i], s.Paths[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports whether path is in the set.
func (s *Set) Contains(path string) bool {
	for _, p := range s.Paths {
		if p == path {
			return true
		}
	}
	return false
}

func hasMeta(pattern string) bool {
	for _, r := range pattern {
		switch r {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}
