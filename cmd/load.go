package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/Rana718/seedbench/internal/ingest"
	"github.com/Rana718/seedbench/internal/loader"
	"github.com/Rana718/seedbench/internal/types"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/klauspost/compress/gzip"
	"github.com/spf13/cobra"
)

var (
	loadConflict     = newEnumFlag("", "none", "do-nothing", "upsert")
	loadTransient    = newEnumFlag("", "ignore", "log", "rethrow")
	loadNonTransient = newEnumFlag("", "ignore", "log", "rethrow")
)

var loadCmd = &cobra.Command{
	Use:   "load <batch|array|singleton> <table>",
	Short: "Bulk load delimited text into a table",
	Long: `
Read a header line and delimited rows from a file or stdin and insert them in
chunks. The header must have one field per table column; when the fields name
the columns, rows are inserted in header order.

Strategies:
  batch      one statement per row, sent as a single batch per chunk
  array      one statement per chunk with one array parameter per column
             (CockroachDB and PostgreSQL only)
  singleton  one statement and round-trip per row

Examples:
  seedbench load batch orders --file export/public.orders.csv
  seedbench export csv orders --out - | seedbench load array orders
  seedbench load batch orders --file orders.csv.gz --on-conflict do-nothing --non-transient log`,
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"batch", "array", "singleton"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		kind, err := loader.ParseKind(args[0])
		if err != nil {
			return err
		}
		name, err := s.tableName(args[1])
		if err != nil {
			return err
		}
		conflict, err := types.ParseConflictPolicy(enumOr(loadConflict, s.cfg.Load.OnConflict))
		if err != nil {
			return err
		}
		policy, err := loadPolicy(s)
		if err != nil {
			return err
		}

		l, err := loader.New(ctx, loader.Options{
			Kind:     kind,
			Table:    name,
			Conflict: conflict,
			Policy:   policy,
			Logger:   s.logger,
		}, s.adapter, s.adapter)
		if err != nil {
			return err
		}

		file, _ := cmd.Flags().GetString("file")
		in, err := openInput(file)
		if err != nil {
			return err
		}
		defer in.Close()

		chunk := s.cfg.Load.ChunkSize
		if cmd.Flags().Changed("chunk") {
			chunk, _ = cmd.Flags().GetInt("chunk")
		}
		r := &ingest.Reader{
			ChunkSize:     chunk,
			Delimiter:     stringFlag(cmd, "delimiter", s.cfg.Load.Delimiter),
			Quote:         stringFlag(cmd, "quote", s.cfg.Load.Quote),
			QueueSize:     s.cfg.Load.QueueSize,
			HeaderTimeout: s.cfg.Load.HeaderTimeout,
			StallTimeout:  s.cfg.Load.StallTimeout,
			Logger:        s.logger,
		}

		color.Cyan("🚚 Loading %s with %s inserts (chunk %d)", name, kind, r.ChunkSize)
		res, err := r.Read(ctx, in, l)
		if err != nil {
			return fmt.Errorf("load into %s stopped after %s rows: %w", name, humanize.Comma(res.Applied), err)
		}
		rate := float64(res.Consumed) / max(res.Elapsed.Seconds(), 1e-9)
		success("Loaded %s of %s rows into %s in %s chunks (%s rows/s)",
			humanize.Comma(res.Applied), humanize.Comma(res.Consumed), name,
			humanize.Comma(int64(res.Chunks)), humanize.Comma(int64(rate)))
		if skipped := res.Consumed - res.Applied; skipped > 0 {
			color.Yellow("⚠️  %s rows were not applied (conflicts or ignored failures)", humanize.Comma(skipped))
		}
		return nil
	},
}

func enumOr(f *enumFlag, def string) string {
	if f.value != "" {
		return f.value
	}
	return def
}

func loadPolicy(s *session) (*loader.ErrorPolicy, error) {
	policy, err := s.cfg.ErrorPolicy()
	if err != nil {
		return nil, err
	}
	if loadTransient.value != "" {
		h, err := loader.ParseHandler(loadTransient.value)
		if err != nil {
			return nil, err
		}
		policy.SetTransient(h)
	}
	if loadNonTransient.value != "" {
		h, err := loader.ParseHandler(loadNonTransient.value)
		if err != nil {
			return nil, err
		}
		policy.SetNonTransient(h)
	}
	return policy, nil
}

// openInput opens path, or stdin for "" and "-". Files ending in .gz are
// decompressed.
func openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return os.Stdin, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read gzip header of %s: %w", path, err)
	}
	return &gzipFile{Reader: zr, file: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipFile) Close() error {
	g.Reader.Close()
	return g.file.Close()
}

func init() {
	loadCmd.Flags().StringP("file", "f", "", "Input file, - or empty for stdin")
	loadCmd.Flags().Int("chunk", 0, "Rows per chunk (default from config)")
	loadCmd.Flags().String("delimiter", ",", "Field delimiter")
	loadCmd.Flags().String("quote", "", `Quote string of quoted fields, e.g. '"'`)
	loadCmd.Flags().Var(loadConflict, "on-conflict", "Conflict policy: none, do-nothing or upsert")
	loadCmd.Flags().Var(loadTransient, "transient", "Transient failures: ignore, log or rethrow")
	loadCmd.Flags().Var(loadNonTransient, "non-transient", "Non-transient failures: ignore, log or rethrow")

	rootCmd.AddCommand(loadCmd)
}
