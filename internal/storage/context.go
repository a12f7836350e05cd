package storage

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
)

// ContextFile reads the model context document from disk on every Load, so
// edits take effect without a restart.
type ContextFile struct {
	fs   afero.Fs
	path string
}

func NewContextFile(fs afero.Fs, path string) *ContextFile {
	return &ContextFile{fs: fs, path: path}
}

func (c *ContextFile) Load(ctx context.Context) (string, error) {
	data, err := afero.ReadFile(c.fs, c.path)
	if err != nil {
		return "", fmt.Errorf("error reading context file %s: %w", c.path, err)
	}
	return string(data), nil
}
