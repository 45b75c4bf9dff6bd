// Package fetcher acquires the pipeline's raw inputs. Remote inputs come
// down through a retrying, rate-limited HTTP client that supports
// conditional re-download, and the decode helpers cover the three formats
// the sources arrive in: scraper CSV exports, SESNSP XLSX workbooks, and
// zipped INEGI shapefiles.
package fetcher

import "context"

// Fetcher downloads a remote input to a local file.
type Fetcher interface {
	// Fetch downloads url into path. A non-empty etag is sent as
	// If-None-Match: when the server reports the entity unchanged the
	// download is skipped and fetched is false. Returns the entity tag the
	// server advertised, for the caller to persist alongside the file.
	Fetch(ctx context.Context, url, path, etag string) (newETag string, fetched bool, err error)
}
