package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractZIP unpacks an archive into destDir and returns the extracted file
// paths. INEGI ships each boundary layer as one archive holding the
// shapefile sidecars (.shp/.dbf/.shx/.prj). Entries that would escape
// destDir are rejected.
func ExtractZIP(zipPath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		if r != nil {
			r.Close() //nolint:errcheck
		}
		return nil, eris.Wrapf(err, "zip: open %s", zipPath)
	}
	defer r.Close() //nolint:errcheck

	var extracted []string
	for _, entry := range r.File {
		dest := filepath.Join(destDir, entry.Name)
		if !strings.HasPrefix(filepath.Clean(dest), filepath.Clean(destDir)+string(os.PathSeparator)) {
			return nil, eris.Errorf("zip: entry %q escapes the extraction directory", entry.Name)
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return nil, eris.Wrapf(err, "zip: create directory %s", dest)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return nil, eris.Wrapf(err, "zip: create parent directory for %s", dest)
		}
		if err := extractEntry(entry, dest); err != nil {
			return nil, err
		}
		extracted = append(extracted, dest)
	}
	return extracted, nil
}

func extractEntry(entry *zip.File, dest string) error {
	rc, err := entry.Open()
	if err != nil {
		return eris.Wrapf(err, "zip: open entry %s", entry.Name)
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(dest)
	if err != nil {
		return eris.Wrapf(err, "zip: create %s", dest)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close() //nolint:errcheck
		return eris.Wrapf(err, "zip: write %s", dest)
	}
	return eris.Wrapf(out.Close(), "zip: close %s", dest)
}
