// Package ignore matches paths against gitignore-style exclude files.
package ignore

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DefaultFiles are the exclude files read from the root of an indexed tree.
var DefaultFiles = []string{".locketignore", ".gitignore"}

// AlwaysPatterns are excluded whatever the exclude files say.
var AlwaysPatterns = []string{".git/"}

// FallbackPatterns apply when none of the exclude files exist.
var FallbackPatterns = []string{".git/", "node_modules/", "vendor/"}

type rule struct {
	glob     string
	dirOnly  bool
	anchored bool
}

// Matcher decides whether a path below the root is excluded. Negated
// patterns are not supported and are skipped.
type Matcher struct {
	rules []rule
}

// New compiles patterns written in gitignore syntax.
func New(patterns []string) (*Matcher, error) {
	m := &Matcher{}
	seen := make(map[string]bool)
	for _, p := range patterns {
		r, ok := parseLine(p)
		if !ok {
			continue
		}
		if _, err := path.Match(r.glob, ""); err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", p, err)
		}
		key := fmt.Sprintf("%s|%t|%t", r.glob, r.dirOnly, r.anchored)
		if seen[key] {
			continue
		}
		seen[key] = true
		m.rules = append(m.rules, r)
	}
	return m, nil
}

// Load reads each of files from root and compiles their patterns after
// AlwaysPatterns. When no file exists the fallback patterns are used
// instead of the file contents.
func Load(root string, files []string, fallback []string) (*Matcher, error) {
	patterns := append([]string(nil), AlwaysPatterns...)
	found := false
	for _, name := range files {
		lines, err := readLines(filepath.Join(root, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, lines...)
		found = true
	}
	if !found {
		patterns = append(patterns, fallback...)
	}
	return New(patterns)
}

// Match reports whether rel, a slash-separated path relative to the root,
// is excluded. Callers walking a tree should skip excluded directories,
// since only the final element is tested for unanchored patterns.
func (m *Matcher) Match(rel string, isDir bool) bool {
	rel = strings.TrimPrefix(filepath.ToSlash(rel), "./")
	base := path.Base(rel)
	for _, r := range m.rules {
		if r.dirOnly && !isDir {
			continue
		}
		target := base
		if r.anchored {
			target = rel
		}
		if ok, _ := path.Match(r.glob, target); ok {
			return true
		}
	}
	return false
}

// Len returns the number of compiled patterns.
func (m *Matcher) Len() int {
	return len(m.rules)
}

func readLines(name string) ([]string, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return lines, nil
}

// parseLine turns one line into a rule. Blank lines, comments and
// negations yield false.
func parseLine(line string) (rule, bool) {
	line = strings.TrimRight(line, " \t\r")
	if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
		return rule{}, false
	}

	var r rule
	if strings.HasSuffix(line, "/") {
		r.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	line = strings.TrimPrefix(line, "**/")
	if strings.Contains(line, "/") {
		r.anchored = true
		line = strings.TrimPrefix(line, "/")
	}
	if line == "" {
		return rule{}, false
	}
	r.glob = line
	return r, true
}
