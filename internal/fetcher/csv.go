package fetcher

import (
	"context"
	"encoding/csv"
	"errors"
	"io"

	"github.com/rotisserie/eris"
)

// CSVOptions configures the chunked CSV reader. The portal's CSVs are
// semicolon-delimited with a single header row.
type CSVOptions struct {
	Delimiter rune // default ';'
	ChunkSize int  // rows per chunk, default 10000
}

// Chunk is one batch of parsed rows plus the ordinal of its first row
// (0-based, counted from the first data row).
type Chunk struct {
	Header []string
	Rows   [][]string
	Offset int
}

// ReadChunks streams the CSV in row chunks, invoking fn for each chunk.
// Rows are delivered in source order. A malformed row is skipped and
// counted; the returned int is the number of rows read (valid and skipped).
// fn returning an error aborts the stream.
func ReadChunks(ctx context.Context, r io.Reader, opts CSVOptions, fn func(Chunk) error) (int, error) {
	if opts.Delimiter == 0 {
		opts.Delimiter = ';'
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 10000
	}

	reader := csv.NewReader(r)
	reader.Comma = opts.Delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // column count drifts across years

	header, err := reader.Read()
	if err != nil {
		return 0, eris.Wrap(err, "csv: read header")
	}

	var (
		rows   = make([][]string, 0, opts.ChunkSize)
		read   int
		offset int
	)

	flush := func() error {
		if len(rows) == 0 {
			return nil
		}
		chunk := Chunk{Header: header, Rows: rows, Offset: offset}
		offset += len(rows)
		rows = make([][]string, 0, opts.ChunkSize)
		return fn(chunk)
	}

	for {
		if err := ctx.Err(); err != nil {
			return read, eris.Wrap(err, "csv: context cancelled")
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			// Quoting failure on a single row; the reader resumes on the next.
			read++
			continue
		}
		if err != nil {
			// I/O or decode failure aborts the entry.
			return read, eris.Wrap(err, "csv: read row")
		}

		read++
		rows = append(rows, record)

		if len(rows) >= opts.ChunkSize {
			if err := flush(); err != nil {
				return read, err
			}
		}
	}

	if err := flush(); err != nil {
		return read, err
	}

	return read, nil
}
