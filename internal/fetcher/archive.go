package fetcher

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Encoding names the text encodings the CVM portal publishes CSVs in.
type Encoding int

const (
	// EncodingLatin1 decodes ISO 8859-1 strictly. Used by the financial
	// statement and securities-movement archives.
	EncodingLatin1 Encoding = iota
	// EncodingUTF8 reads bytes as UTF-8 and falls back to Latin-1 for the
	// whole entry when the payload is not valid UTF-8. Used by the filing
	// index and registry archives, whose encoding drifted across years.
	EncodingUTF8
)

// Archive is a ZIP archive held in memory.
type Archive struct {
	reader *zip.Reader
}

// Entry is one file inside an archive.
type Entry struct {
	file *zip.File
}

// OpenArchive opens a ZIP archive from a byte buffer.
func OpenArchive(data []byte) (*Archive, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, eris.Wrap(err, "archive: open zip")
	}
	return &Archive{reader: r}, nil
}

// Entries returns the entries whose name ends with suffix, in the archive's
// directory order. An empty suffix matches every file entry.
func (a *Archive) Entries(suffix string) []Entry {
	var entries []Entry
	for _, f := range a.reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if suffix == "" || strings.HasSuffix(f.Name, suffix) {
			entries = append(entries, Entry{file: f})
		}
	}
	return entries
}

// Entry returns the entry with the exact name, if present.
func (a *Archive) Entry(name string) (Entry, bool) {
	for _, f := range a.reader.File {
		if f.Name == name {
			return Entry{file: f}, true
		}
	}
	return Entry{}, false
}

// Name returns the entry's file name within the archive.
func (e Entry) Name() string {
	return e.file.Name
}

// Text opens the entry as a decoded text stream. Decoding is strict: an
// undecodable byte surfaces as a read error, which callers count against
// the entry rather than the run.
func (e Entry) Text(enc Encoding) (io.ReadCloser, error) {
	rc, err := e.file.Open()
	if err != nil {
		return nil, eris.Wrapf(err, "archive: open entry %s", e.file.Name)
	}

	switch enc {
	case EncodingLatin1:
		dec := charmap.ISO8859_1.NewDecoder()
		return &decodedReader{r: transform.NewReader(rc, dec), c: rc}, nil
	case EncodingUTF8:
		// UTF-8 payloads pass through; if the entry turns out not to be
		// valid UTF-8, re-open it as Latin-1.
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, eris.Wrapf(err, "archive: read entry %s", e.file.Name)
		}
		if !utf8.Valid(data) {
			dec := charmap.ISO8859_1.NewDecoder()
			decoded, _, err := transform.Bytes(dec, data)
			if err != nil {
				return nil, eris.Wrapf(err, "archive: decode entry %s", e.file.Name)
			}
			data = decoded
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	default:
		_ = rc.Close()
		return nil, eris.Errorf("archive: unknown encoding %d", enc)
	}
}

// decodedReader pairs a transforming reader with the underlying closer.
type decodedReader struct {
	r io.Reader
	c io.Closer
}

func (d *decodedReader) Read(p []byte) (int, error) { return d.r.Read(p) }
func (d *decodedReader) Close() error               { return d.c.Close() }
