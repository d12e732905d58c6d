package export

import (
	"context"
	"io"
	"strings"

	"github.com/Rana718/seedbench/internal/model"
)

// CSVEncoder writes delimited text, one line per row. Every field is wrapped
// in Quote when it is set; a nil value is written as an empty unquoted field.
type CSVEncoder struct {
	Delimiter string
	Quote     string
	Header    bool
	Gzip      bool
}

func NewCSVEncoder() *CSVEncoder {
	return &CSVEncoder{Delimiter: ",", Header: true}
}

func (e *CSVEncoder) Extension() string {
	if e.Gzip {
		return ".csv.gz"
	}
	return ".csv"
}

func (e *CSVEncoder) Encode(ctx context.Context, w io.Writer, src RowSource, rows int64) (int64, error) {
	out, closeGzip := gzipWriter(w, e.Gzip)
	delim := e.Delimiter
	if delim == "" {
		delim = ","
	}

	var written int64
	var line []byte
	if e.Header {
		cols := src.Columns()
		for i, c := range cols {
			if i > 0 {
				line = append(line, delim...)
			}
			line = append(line, c.Name...)
		}
		line = append(line, '\n')
		if _, err := out.Write(line); err != nil {
			return 0, &model.IOError{Row: 0, Err: err}
		}
	}

	for written < rows {
		row, err := nextRow(ctx, src, written)
		if err != nil {
			closeGzip()
			return written, err
		}
		line = line[:0]
		for i, v := range row {
			if i > 0 {
				line = append(line, delim...)
			}
			line = e.appendField(line, v)
		}
		line = append(line, '\n')
		if _, err := out.Write(line); err != nil {
			return written, &model.IOError{Row: written, Err: err}
		}
		written++
	}
	if err := closeGzip(); err != nil {
		return written, &model.IOError{Row: written, Err: err}
	}
	return written, nil
}

func (e *CSVEncoder) appendField(line []byte, v any) []byte {
	if v == nil {
		return line
	}
	s := FormatValue(v)
	if e.Quote == "" {
		return append(line, s...)
	}
	line = append(line, e.Quote...)
	line = append(line, strings.ReplaceAll(s, e.Quote, e.Quote+e.Quote)...)
	return append(line, e.Quote...)
}
