package docstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/locket-ai/locket/internal/logging"
	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

var collectionDirPattern = regexp.MustCompile(`^[a-f0-9]{8}$`)

// openPersistent loads the database at path. A collection directory that
// holds documents but lost its metadata file makes chromem refuse the whole
// database, so such directories are moved to .quarantine and loading is
// retried once.
func openPersistent(path string, compress bool, logger *logging.Logger) (*chromem.DB, error) {
	db, err := chromem.NewPersistentDB(path, compress)
	if err == nil {
		return db, nil
	}
	if !strings.Contains(err.Error(), "collection metadata file not found") {
		return nil, err
	}

	ctx := context.Background()
	broken, findErr := findBrokenCollections(path)
	if findErr != nil || len(broken) == 0 {
		return nil, err
	}

	quarantine := filepath.Join(path, ".quarantine")
	if mkErr := os.MkdirAll(quarantine, 0o700); mkErr != nil {
		return nil, fmt.Errorf("creating quarantine directory: %w", mkErr)
	}
	for _, name := range broken {
		if rnErr := os.Rename(filepath.Join(path, name), filepath.Join(quarantine, name)); rnErr != nil {
			logger.Error(ctx, "quarantining collection failed", zap.String("collection_dir", name), zap.Error(rnErr))
			continue
		}
		logger.Warn(ctx, "quarantined collection without metadata", zap.String("collection_dir", name))
	}

	return chromem.NewPersistentDB(path, compress)
}

// findBrokenCollections lists collection directories with document files
// but no metadata file.
func findBrokenCollections(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading store directory: %w", err)
	}

	var broken []string
	for _, e := range entries {
		if !e.IsDir() || !collectionDirPattern.MatchString(e.Name()) {
			continue
		}
		dir := filepath.Join(path, e.Name())
		if exists(filepath.Join(dir, "00000000.gob")) || exists(filepath.Join(dir, "00000000.gob.gz")) {
			continue
		}
		files, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, f := range files {
			if !f.IsDir() && strings.Contains(f.Name(), ".gob") {
				broken = append(broken, e.Name())
				break
			}
		}
	}
	return broken, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
