package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aevon-lab/trackgate/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFileSystemSource_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b_orders.yaml"), "version: 1")
	writeFile(t, filepath.Join(dir, "a_users.yml"), "version: 1")
	writeFile(t, filepath.Join(dir, "nested", "c_pages.json"), `{"version": 1}`)
	writeFile(t, filepath.Join(dir, "README.md"), "# catalog")

	docs, err := NewFileSystemSource(dir).Documents(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 3)

	assert.Equal(t, filepath.Join(dir, "a_users.yml"), docs[0].Name)
	assert.Equal(t, schema.FormatYaml, docs[0].Format)
	assert.Equal(t, filepath.Join(dir, "b_orders.yaml"), docs[1].Name)
	assert.Equal(t, filepath.Join(dir, "nested", "c_pages.json"), docs[2].Name)
	assert.Equal(t, schema.FormatJSON, docs[2].Format)
	assert.Equal(t, `{"version": 1}`, string(docs[2].Content))
}

func TestFileSystemSource_SingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.yaml")
	writeFile(t, path, "version: 1")

	docs, err := NewFileSystemSource(path).Documents(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, schema.ComputeFingerprint([]byte("version: 1")), docs[0].Fingerprint())
}

func TestFileSystemSource_Errors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "notes.txt"), "hello")

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"missing path", filepath.Join(dir, "nope"), "schema path"},
		{"unsupported single file", filepath.Join(dir, "notes.txt"), "unsupported extension"},
		{"directory without catalogs", dir, "no catalog files found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFileSystemSource(tt.path).Documents(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMemorySource(t *testing.T) {
	src := NewMemorySource(schema.Document{Name: "one", Format: schema.FormatYaml, Content: []byte("a")})
	src.Add(schema.Document{Name: "two", Format: schema.FormatJSON, Content: []byte("b")})

	docs, err := src.Documents(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "one", docs[0].Name)
	assert.Equal(t, "two", docs[1].Name)

	docs[0].Content[0] = 'z'
	again, err := src.Documents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", string(again[0].Content))
}
