package ingest_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsage/docsage/pkg/ingest"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestExtractFile_Txt(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", "  Photosynthesis converts light into chemical energy.\n")

	records, err := ingest.ExtractFile(path)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "Photosynthesis converts light into chemical energy.", records[0].Text)
	assert.Equal(t, "notes.txt", records[0].SourceFile)
	assert.Nil(t, records[0].PageNumber)
}

func TestExtractFile_EmptyTxt(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "empty.txt", "   \n\t\n")

	records, err := ingest.ExtractFile(path)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestExtractFile_InvalidUTF8(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "binary.txt")
	require.NoError(t, os.WriteFile(path, []byte{'o', 'k', 0xff, 0xfe, '!'}, 0644))

	records, err := ingest.ExtractFile(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Contains(t, records[0].Text, "ok")
	assert.Contains(t, records[0].Text, "�")
}

func TestExtractFile_UnsupportedType(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "data.csv", "a,b,c")

	_, err := ingest.ExtractFile(path)
	require.Error(t, err)

	var unsupported *ingest.UnsupportedTypeError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, ".csv", unsupported.Ext)
}

func TestIsImage(t *testing.T) {
	assert.True(t, ingest.IsImage("chart.png"))
	assert.True(t, ingest.IsImage("photo.JPG"))
	assert.True(t, ingest.IsImage("scan.jpeg"))
	assert.True(t, ingest.IsImage("sticker.webp"))
	assert.False(t, ingest.IsImage("paper.pdf"))
	assert.False(t, ingest.IsImage("notes.txt"))
}

func TestExtractBatch(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.txt", "Useful content.")
	empty := writeFile(t, dir, "empty.txt", "")
	unsupported := writeFile(t, dir, "table.csv", "a,b")

	records, warnings := ingest.ExtractBatch([]string{good, empty, unsupported})

	require.Len(t, records, 1)
	assert.Equal(t, "Useful content.", records[0].Text)

	require.Len(t, warnings, 2)
	assert.Equal(t, "No text extracted from empty.txt.", warnings[0])
	assert.Contains(t, warnings[1], "table.csv")
	assert.Contains(t, warnings[1], "unsupported file type")
}
