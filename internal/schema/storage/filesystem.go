package storage

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aevon-lab/trackgate/internal/schema"
)

// FileSystemSource implements schema.Source using the local file system.
// Path may name a single catalog file or a directory; directories are walked
// recursively and every *.yaml, *.yml and *.json file is read in lexical order.
type FileSystemSource struct {
	path string
}

// NewFileSystemSource creates a new file system backed source.
func NewFileSystemSource(path string) *FileSystemSource {
	return &FileSystemSource{
		path: path,
	}
}

// Documents reads the catalog files.
func (s *FileSystemSource) Documents(ctx context.Context) ([]schema.Document, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("schema path %q: %w", s.path, err)
	}

	if !info.IsDir() {
		doc, ok, err := readDocument(s.path)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("schema file %q has unsupported extension", s.path)
		}
		return []schema.Document{doc}, nil
	}

	var docs []schema.Document
	err = filepath.WalkDir(s.path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		doc, ok, err := readDocument(path)
		if err != nil {
			return err
		}
		if !ok {
			slog.Debug("Skipping non-catalog file", "path", path)
			return nil
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("no catalog files found in %q", s.path)
	}
	return docs, nil
}

// readDocument reads one file; ok is false when the extension is not a catalog format.
func readDocument(path string) (schema.Document, bool, error) {
	format, ok := formatFor(path)
	if !ok {
		return schema.Document{}, false, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return schema.Document{}, false, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return schema.Document{Name: path, Format: format, Content: content}, true, nil
}

func formatFor(path string) (schema.Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return schema.FormatYaml, true
	case ".json":
		return schema.FormatJSON, true
	default:
		return "", false
	}
}
