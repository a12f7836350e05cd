package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/xaenox/relay-bot/internal/models"
)

// FileSink stores each bucket as a JSON array in `<dir>/<label>-<date>.json`.
type FileSink struct {
	fs  afero.Fs
	dir string
}

// NewFileSink creates dir if needed.
func NewFileSink(fs afero.Fs, dir string) (*FileSink, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating log directory %s: %w", dir, err)
	}
	return &FileSink{fs: fs, dir: dir}, nil
}

// Path returns the file that holds key.
func (s *FileSink) Path(key models.BucketKey) string {
	key.Label = sanitizeLabel(key.Label)
	return filepath.Join(s.dir, key.Filename())
}

// Append reads the stored array (a missing file counts as empty), adds
// records and rewrites the file through a temporary file and rename.
func (s *FileSink) Append(ctx context.Context, key models.BucketKey, records []models.MessageRecord) error {
	existing, err := s.Records(ctx, key)
	if err != nil {
		return err
	}

	all := append(existing, records...)
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding %s: %w", key.Filename(), err)
	}

	path := s.Path(key)
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("error writing %s: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("error replacing %s: %w", path, err)
	}
	return nil
}

func (s *FileSink) Records(ctx context.Context, key models.BucketKey) ([]models.MessageRecord, error) {
	path := s.Path(key)
	data, err := afero.ReadFile(s.fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return []models.MessageRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}

	var records []models.MessageRecord
	if len(strings.TrimSpace(string(data))) == 0 {
		return []models.MessageRecord{}, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("error decoding %s: %w", path, err)
	}
	return records, nil
}

func (s *FileSink) Close() error {
	return nil
}

var labelReplacer = strings.NewReplacer("/", "_", "\\", "_", "\x00", "")

func sanitizeLabel(label string) string {
	label = labelReplacer.Replace(label)
	if label == "" || label == "." || label == ".." {
		return "_"
	}
	return label
}
