package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/Rana718/seedbench/internal/model"
	"github.com/hamba/avro/v2/ocf"
)

const avroNamespace = "seedbench"

// DefaultAvroBlockRows is the number of records per container block.
const DefaultAvroBlockRows = 100

// AvroEncoder writes an Avro object container file with one string field
// per visible column.
type AvroEncoder struct {
	Gzip bool
	// Codec compresses container blocks: null, deflate, snappy or zstandard.
	Codec string
	// Name is the record name; the table name is used when empty.
	Name string
	// BlockRows is the number of records buffered per container block.
	// Records reach w only when their block is flushed, so an IOError
	// reports the last row of the last flushed block.
	BlockRows int
}

func (e *AvroEncoder) Extension() string {
	if e.Gzip {
		return ".avro.gz"
	}
	return ".avro"
}

var avroInvalid = regexp.MustCompile(`[^A-Za-z0-9_]`)

// avroName turns s into a valid Avro name.
func avroName(s string) string {
	s = avroInvalid.ReplaceAllString(s, "_")
	if s == "" || (s[0] >= '0' && s[0] <= '9') {
		s = "_" + s
	}
	return s
}

type avroField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type avroRecord struct {
	Type      string      `json:"type"`
	Name      string      `json:"name"`
	Namespace string      `json:"namespace"`
	Fields    []avroField `json:"fields"`
}

// RecordSchema renders the Avro schema for cols and returns the field name
// of each column.
func RecordSchema(name string, cols []model.Column) (string, []string, error) {
	rec := avroRecord{Type: "record", Name: avroName(name), Namespace: avroNamespace}
	fields := make([]string, len(cols))
	seen := make(map[string]bool, len(cols))
	for i, c := range cols {
		f := avroName(c.Name)
		for n := 2; seen[f]; n++ {
			f = avroName(c.Name) + "_" + strconv.Itoa(n)
		}
		seen[f] = true
		fields[i] = f
		rec.Fields = append(rec.Fields, avroField{Name: f, Type: "string"})
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return "", nil, err
	}
	return string(b), fields, nil
}

func (e *AvroEncoder) Encode(ctx context.Context, w io.Writer, src RowSource, rows int64) (int64, error) {
	name := e.Name
	if name == "" {
		name = "GenericRecord"
	}
	schema, fields, err := RecordSchema(name, src.Columns())
	if err != nil {
		return 0, fmt.Errorf("failed to build avro schema: %w", err)
	}

	out, closeGzip := gzipWriter(w, e.Gzip)
	block := e.BlockRows
	if block <= 0 {
		block = DefaultAvroBlockRows
	}
	opts := []ocf.EncoderFunc{ocf.WithBlockLength(block)}
	if e.Codec != "" {
		opts = append(opts, ocf.WithCodec(ocf.CodecName(e.Codec)))
	}
	enc, err := ocf.NewEncoder(schema, out, opts...)
	if err != nil {
		return 0, model.ErrConfiguration("invalid avro encoder settings: %v", err)
	}

	var written, flushed int64
	record := make(map[string]any, len(fields))
	for written < rows {
		row, err := nextRow(ctx, src, written)
		if err != nil {
			closeGzip()
			return flushed, err
		}
		for i, v := range row {
			record[fields[i]] = FormatValue(v)
		}
		if err := enc.Encode(record); err != nil {
			return flushed, &model.IOError{Row: flushed, Err: err}
		}
		written++
		if written%int64(block) == 0 {
			if err := enc.Flush(); err != nil {
				return flushed, &model.IOError{Row: flushed, Err: err}
			}
			flushed = written
		}
	}
	if err := enc.Close(); err != nil {
		return flushed, &model.IOError{Row: flushed, Err: err}
	}
	if err := closeGzip(); err != nil {
		return written, &model.IOError{Row: written, Err: err}
	}
	return written, nil
}
