// Package fetcher downloads yearly archives from the CVM open-data portal and
// exposes their CSV entries as decoded, chunked row streams.
package fetcher

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
)

// ErrNotFound is returned when the origin answers 404 for a (dataset, year)
// archive. Callers treat it as a skipped year, not a failure.
var ErrNotFound = eris.New("fetcher: archive not found")

// Fetcher retrieves archives over HTTP.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadArchive fetches the URL and buffers the whole response in
	// memory. Returns ErrNotFound for a 404.
	DownloadArchive(ctx context.Context, url string) ([]byte, error)
}
