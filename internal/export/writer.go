package export

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Rana718/seedbench/internal/generator"
	"github.com/Rana718/seedbench/internal/model"
	"github.com/schollz/progressbar/v3"
)

// Writer exports tables to one file each under Dir.
type Writer struct {
	Dir     string
	Encoder Encoder
	Factory *generator.Factory
	// Progress receives a progress bar over all rows; nil disables it.
	Progress io.Writer
	Logger   *slog.Logger
}

// FileName is the output file of table for enc, e.g. "public.orders.csv.gz".
func FileName(table *model.Table, enc Encoder) string {
	return table.QualifiedName().String() + enc.Extension()
}

// WriteTables writes tables in the given order and returns the paths written.
// A fresh generator pass is built for every table.
func (w *Writer) WriteTables(ctx context.Context, tables []*model.Table) ([]string, error) {
	logger := w.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	var total int64
	counts := make([]int64, len(tables))
	for i, t := range tables {
		n, err := t.Rows()
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", t.QualifiedName(), err)
		}
		counts[i] = n
		total += n
	}

	var bar *progressbar.ProgressBar
	if w.Progress != nil {
		bar = progressbar.NewOptions64(total,
			progressbar.OptionSetWriter(w.Progress),
			progressbar.OptionSetDescription("exporting"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(100*time.Millisecond),
		)
	}

	paths := make([]string, 0, len(tables))
	for i, t := range tables {
		path := filepath.Join(w.Dir, FileName(t, w.Encoder))
		start := time.Now()
		n, err := w.writeTable(ctx, path, t, counts[i], bar)
		if err != nil {
			return paths, fmt.Errorf("table %s: %w", t.QualifiedName(), err)
		}
		logger.Info("exported table", "table", t.QualifiedName().String(), "rows", n,
			"path", path, "elapsed", time.Since(start).Round(time.Millisecond))
		paths = append(paths, path)
	}
	if bar != nil {
		_ = bar.Finish()
	}
	return paths, nil
}

func (w *Writer) writeTable(ctx context.Context, path string, t *model.Table, rows int64, bar *progressbar.ProgressBar) (int64, error) {
	pass, err := w.Factory.NewPass(t)
	if err != nil {
		return 0, err
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	buf := bufio.NewWriterSize(f, 64*1024)
	var src RowSource = pass
	if bar != nil {
		src = &progressSource{RowSource: pass, bar: bar}
	}
	n, err := w.Encoder.Encode(ctx, buf, src, rows)
	if err != nil {
		return n, err
	}
	if err := buf.Flush(); err != nil {
		return n, &model.IOError{Row: n, Err: err}
	}
	if err := f.Close(); err != nil {
		return n, &model.IOError{Row: n, Err: err}
	}
	return n, nil
}

type progressSource struct {
	RowSource
	bar *progressbar.ProgressBar
}

func (p *progressSource) Next(ctx context.Context) ([]any, error) {
	row, err := p.RowSource.Next(ctx)
	if err == nil {
		_ = p.bar.Add(1)
	}
	return row, err
}
