package fetcher

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeArchive builds a zip at path with the given name->content entries.
// Names ending in "/" become directories.
func writeArchive(t *testing.T, path string, entries map[string]string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	for name, content := range entries {
		if name[len(name)-1] == '/' {
			_, err := w.Create(name)
			require.NoError(t, err)
			continue
		}
		ew, err := w.Create(name)
		require.NoError(t, err)
		_, err = ew.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}

func TestExtractZIPShapefileLayer(t *testing.T) {
	// Shaped like an INEGI boundary download: shapefile sidecars under a
	// nested directory.
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "mun2023gw.zip")
	writeArchive(t, zipPath, map[string]string{
		"conjunto_de_datos/":             "",
		"conjunto_de_datos/mun2023gw.shp": "shp-bytes",
		"conjunto_de_datos/mun2023gw.dbf": "dbf-bytes",
		"conjunto_de_datos/mun2023gw.shx": "shx-bytes",
	})

	dest := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(dest, 0o755))

	files, err := ExtractZIP(zipPath, dest)
	require.NoError(t, err)
	assert.Len(t, files, 3)

	data, err := os.ReadFile(filepath.Join(dest, "conjunto_de_datos", "mun2023gw.dbf"))
	require.NoError(t, err)
	assert.Equal(t, "dbf-bytes", string(data))
}

func TestExtractZIPRejectsEscapingEntry(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil.zip")
	writeArchive(t, zipPath, map[string]string{
		"../outside.shp": "nope",
	})

	dest := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(dest, 0o755))

	_, err := ExtractZIP(zipPath, dest)
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "outside.shp"))
}

func TestExtractZIPOpenError(t *testing.T) {
	_, err := ExtractZIP(filepath.Join(t.TempDir(), "missing.zip"), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip: open")
}
