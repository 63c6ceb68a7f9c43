package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/locket-ai/locket/internal/ignore"
	"go.uber.org/zap"
)

// maxFileSize bounds the files picked up by a directory walk.
const maxFileSize = 4 << 20

var textExtensions = map[string]bool{
	".txt": true, ".text": true, ".md": true, ".markdown": true, ".rst": true,
}

// treeResult reports a directory indexing run.
type treeResult struct {
	Indexed []string `json:"indexed"`
	Skipped []string `json:"skipped"`
}

// indexTree indexes every text file below root that the exclude files do
// not match. Files are stored under their slash-separated path relative to
// root; a file already stored under that name keeps its id.
func (a *app) indexTree(ctx context.Context, root string) (*treeResult, error) {
	matcher, err := ignore.Load(root, ignore.DefaultFiles, ignore.FallbackPatterns)
	if err != nil {
		return nil, err
	}

	existing, err := a.store.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]int64, len(existing))
	for _, r := range existing {
		ids[r.Filename] = r.ID
	}

	res := &treeResult{Indexed: []string{}, Skipped: []string{}}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if matcher.Match(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !textExtensions[strings.ToLower(filepath.Ext(rel))] {
			return nil
		}

		content, reason := readTextFile(path)
		if reason != "" {
			a.logger.Debug(ctx, "skipped file", zap.String("path", rel), zap.String("reason", reason))
			res.Skipped = append(res.Skipped, rel)
			return nil
		}
		if _, err := a.index(ctx, ids[rel], rel, content); err != nil {
			a.logger.Warn(ctx, "indexing file failed", zap.String("path", rel), zap.Error(err))
			res.Skipped = append(res.Skipped, rel)
			return nil
		}
		res.Indexed = append(res.Indexed, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return res, nil
}

// readTextFile returns the file contents, or a reason it is not indexable.
func readTextFile(path string) (string, string) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err.Error()
	}
	if info.Size() > maxFileSize {
		return "", "too large"
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err.Error()
	}
	if !utf8.Valid(b) {
		return "", "not utf-8"
	}
	if strings.TrimSpace(string(b)) == "" {
		return "", "empty"
	}
	return string(b), ""
}
