package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadJSONLDocuments_ParsesOneDocumentPerLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docs.jsonl")
	content := "{\"id\":\"1\",\"title\":\"สวัสดี\"}\n\n{\"id\":\"2\",\"title\":\"hello\"}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	docs, err := readJSONLDocuments(path)

	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "1", docs[0]["id"])
	assert.Equal(t, "2", docs[1]["id"])
}

func TestReadJSONLDocuments_ReportsLineNumberOnMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docs.jsonl")
	content := "{\"id\":\"1\"}\n{not json}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := readJSONLDocuments(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestDocumentsCmd_RequiresExactlyOneArg(t *testing.T) {
	cmd := newDocumentsCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()

	assert.Error(t, err)
}

func TestDocumentsCmd_IndexesDocumentsFromFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("THAI_TOKENIZER_STORE_PATH", filepath.Join(dir, "store.db"))
	t.Setenv("THAI_TOKENIZER_SEARCH_ENGINE_URL", "http://127.0.0.1:1")

	path := filepath.Join(dir, "docs.jsonl")
	content := "{\"id\":\"1\",\"title\":\"hello world\"}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cmd := newDocumentsCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "total=1")
}
