package cli

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestIngestCmd_Flags(t *testing.T) {
	assert.Equal(t, "ingest <path>...", ingestCmd.Use)
	require.NotNil(t, ingestCmd.Flags().Lookup("json"))
	workers := ingestCmd.Flags().Lookup("workers")
	require.NotNil(t, workers)
	assert.Equal(t, "w", workers.Shorthand)
}

func TestIngestCmd_RequiresPath(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := run(t, "ingest")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestIngestCmd_FilesAndDirectories(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a1.txt":          "Assignment 1 submitted to Dr. X",
		"nested/b.txt":    "Receipt total 12.50",
		".hidden/skip.md": "ignored",
	})
	single := filepath.Join(t.TempDir(), "single.txt")
	require.NoError(t, os.WriteFile(single, []byte("one"), 0o644))

	out, err := run(t, "ingest", "--workers", "2", dir, single)

	require.NoError(t, err)
	assert.Contains(t, out, "Uploaded 3 files.")

	var names []string
	for _, req := range env.ingest.requests {
		assert.Equal(t, "alice", req.OwnerID)
		names = append(names, req.Filename)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"a1.txt", "b.txt", "single.txt"}, names)
}

func TestIngestCmd_EnrichmentFailureIsReported(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	env.ingest.failFor = "scan.png"

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"scan.png": "\x89PNG"})

	out, err := run(t, "ingest", dir)

	require.NoError(t, err, "stored files are not command errors")
	assert.Contains(t, out, "enrichment failed at extracting")
}

func TestIngestCmd_UploadErrors(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	env.ingest.err = errors.New("blob store offline")

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.txt": "x", "b.txt": "y"})

	out, err := run(t, "ingest", dir)

	require.Error(t, err)
	assert.Equal(t, "2 of 2 files could not be uploaded", err.Error())
	assert.Contains(t, out, "blob store offline")
}

func TestIngestCmd_MissingPath(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := run(t, "ingest", filepath.Join(t.TempDir(), "nope.txt"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "stat")
	assert.Empty(t, env.ingest.requests)
}

func TestIngestCmd_JSON(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	out, err := run(t, "ingest", "--json", path)
	require.NoError(t, err)

	var outcomes []ingestOutcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcomes))
	require.Len(t, outcomes, 1)
	assert.Equal(t, path, outcomes[0].Path)
	require.NotNil(t, outcomes[0].Result)
	assert.EqualValues(t, "1", outcomes[0].Result.FileID)
}

func TestIngestCmd_EmptyDirectory(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := run(t, "ingest", t.TempDir())

	require.NoError(t, err)
	assert.Contains(t, out, "No files to ingest.")
}
