// Package fetcher opens local or remote tabular data and streams its rows.
package fetcher

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures StreamCSV.
type CSVOptions struct {
	Delimiter rune     // default ','
	Comment   rune     // 0 disables comments
	Required  []string // header columns that must be present, matched case-insensitively
}

// Row is one data row keyed by its header.
type Row struct {
	Line   int
	fields []string
	index  map[string]int
}

// Get returns the trimmed value for a column, or "" if the row lacks it.
func (r Row) Get(column string) string {
	i, ok := r.index[strings.ToLower(column)]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return r.fields[i]
}

// StreamCSV reads a headed CSV and sends each data row on the returned
// channel. Both channels close when the input is exhausted or the first
// error is reported.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan Row, <-chan error) {
	rowCh := make(chan Row, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		reader.Comment = opts.Comment
		reader.FieldsPerRecord = -1
		reader.TrimLeadingSpace = true

		header, err := reader.Read()
		if err == io.EOF {
			errCh <- eris.New("csv: empty input")
			return
		}
		if err != nil {
			errCh <- eris.Wrap(err, "csv: read header")
			return
		}

		index := make(map[string]int, len(header))
		for i, h := range header {
			index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
		}
		for _, col := range opts.Required {
			if _, ok := index[strings.ToLower(col)]; !ok {
				errCh <- eris.Errorf("csv: missing required column %q", col)
				return
			}
		}

		for line := 2; ; line++ {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrapf(err, "csv: read line %d", line)
				return
			}
			for i := range record {
				record[i] = strings.TrimSpace(record[i])
			}

			select {
			case rowCh <- Row{Line: line, fields: record, index: index}:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}
