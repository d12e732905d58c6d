package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Rana718/seedbench/internal/config"
	"github.com/Rana718/seedbench/internal/export"
	"github.com/Rana718/seedbench/internal/model"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	exportCodec = newEnumFlag("", "null", "deflate", "snappy", "zstandard")
	exportAllAs = newEnumFlag("csv", "csv", "avro")
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Stream generated rows to CSV, Avro or SQLite",
	Long: `
Generate rows for one table or a whole schema and stream them to files.

Examples:
  seedbench export csv orders --rows 10k --out orders.csv
  seedbench export avro public.orders --gzip
  seedbench export all public --dir export --format csv
  seedbench export sqlite public --out bench.db`,
}

var exportCSVCmd = &cobra.Command{
	Use:   "csv <table>",
	Short: "Export one table as delimited text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return exportOne(cmd, args[0], func(cfg *config.Config) export.Encoder {
			return csvEncoder(cmd, cfg)
		})
	},
}

var exportAvroCmd = &cobra.Command{
	Use:   "avro <table>",
	Short: "Export one table as an Avro object container file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return exportOne(cmd, args[0], func(cfg *config.Config) export.Encoder {
			return avroEncoder(cmd, cfg)
		})
	},
}

var exportAllCmd = &cobra.Command{
	Use:   "all [schema]",
	Short: "Export every table of a schema, one file per table",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		var enc export.Encoder = csvEncoder(cmd, s.cfg)
		if exportAllAs.value == "avro" {
			enc = avroEncoder(cmd, s.cfg)
		}
		tables, err := exportTables(ctx, cmd, s, args)
		if err != nil {
			return err
		}

		dir := s.cfg.Export.Dir
		if cmd.Flags().Changed("dir") {
			dir, _ = cmd.Flags().GetString("dir")
		}
		w := &export.Writer{Dir: dir, Encoder: enc, Factory: s.factory(), Logger: s.logger}
		if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
			w.Progress = os.Stderr
		}

		start := time.Now()
		paths, err := w.WriteTables(ctx, tables)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr)
		for _, p := range paths {
			fmt.Println(p)
		}
		success("Exported %d tables in %s", len(paths), time.Since(start).Round(time.Millisecond))
		return nil
	},
}

var exportSQLiteCmd = &cobra.Command{
	Use:   "sqlite [schema]",
	Short: "Write generated rows of every table into a SQLite file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		tables, err := exportTables(ctx, cmd, s, args)
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("out")
		if out == "" || out == "-" {
			out = filepath.Join(s.cfg.Export.Dir, "seedbench.db")
		}

		written, err := export.WriteSQLite(ctx, out, tables, s.factory())
		if err != nil {
			return err
		}
		var total int64
		for _, t := range tables {
			n := written[t.QualifiedName()]
			total += n
			fmt.Printf("%-40s %s rows\n", t.QualifiedName(), humanize.Comma(n))
		}
		success("Wrote %s rows to %s", humanize.Comma(total), out)
		return nil
	},
}

// exportTables builds the schema graph and returns its tables parents first,
// with --rows applied to each.
func exportTables(ctx context.Context, cmd *cobra.Command, s *session, args []string) ([]*model.Table, error) {
	repo, err := s.repository()
	if err != nil {
		return nil, err
	}
	match, _ := cmd.Flags().GetStringSlice("match")
	g, err := repo.Graph(ctx, s.schemaArg(args), tableFilter(match))
	if err != nil {
		return nil, err
	}
	tables, err := g.TopologicalSort(false)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, model.ErrConfiguration("no tables found in schema %s", s.schemaArg(args))
	}
	if err := applyRows(cmd, tables...); err != nil {
		return nil, err
	}
	return tables, nil
}

func applyRows(cmd *cobra.Command, tables ...*model.Table) error {
	if !cmd.Flags().Changed("rows") {
		return nil
	}
	rows, _ := cmd.Flags().GetString("rows")
	if _, err := model.ParseRowCount(rows); err != nil {
		return err
	}
	for _, t := range tables {
		t.Count = rows
	}
	return nil
}

func exportOne(cmd *cobra.Command, arg string, newEncoder func(*config.Config) export.Encoder) error {
	ctx := context.Background()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	name, err := s.tableName(arg)
	if err != nil {
		return err
	}
	repo, err := s.repository()
	if err != nil {
		return err
	}
	table, err := s.table(ctx, repo, name)
	if err != nil {
		return err
	}
	if err := applyRows(cmd, table); err != nil {
		return err
	}

	enc := newEncoder(s.cfg)
	out, _ := cmd.Flags().GetString("out")
	var dst io.Writer = os.Stdout
	if out == "" {
		out = filepath.Join(s.cfg.Export.Dir, export.FileName(table, enc))
	}
	var file *os.File
	if out != "-" {
		if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", out, err)
		}
		file, err = os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", out, err)
		}
		defer file.Close()
		dst = file
	}

	buf := bufio.NewWriterSize(dst, 64*1024)
	start := time.Now()
	n, err := export.Generate(ctx, buf, enc, s.factory(), table)
	if err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return &model.IOError{Row: n, Err: err}
	}
	if file != nil {
		if err := file.Close(); err != nil {
			return &model.IOError{Row: n, Err: err}
		}
		color.Green("✅ Exported %s rows of %s to %s in %s", humanize.Comma(n), name, out,
			time.Since(start).Round(time.Millisecond))
	}
	return nil
}

func csvEncoder(cmd *cobra.Command, cfg *config.Config) *export.CSVEncoder {
	enc := export.NewCSVEncoder()
	enc.Delimiter = stringFlag(cmd, "delimiter", cfg.Export.Delimiter)
	enc.Quote = stringFlag(cmd, "quote", cfg.Export.Quote)
	enc.Header = cfg.Export.Header
	if cmd.Flags().Changed("header") {
		enc.Header, _ = cmd.Flags().GetBool("header")
	}
	enc.Gzip = gzipFlag(cmd, cfg)
	return enc
}

func avroEncoder(cmd *cobra.Command, cfg *config.Config) *export.AvroEncoder {
	codec := cfg.Export.Codec
	if exportCodec.value != "" {
		codec = exportCodec.value
	}
	return &export.AvroEncoder{Gzip: gzipFlag(cmd, cfg), Codec: codec}
}

func gzipFlag(cmd *cobra.Command, cfg *config.Config) bool {
	if cmd.Flags().Changed("gzip") {
		v, _ := cmd.Flags().GetBool("gzip")
		return v
	}
	return cfg.Export.Gzip
}

// stringFlag returns the flag value when it was given on the command line,
// def otherwise.
func stringFlag(cmd *cobra.Command, name, def string) string {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	return def
}

func init() {
	pf := exportCmd.PersistentFlags()
	pf.String("rows", "", "Row count for every exported table, e.g. 500, 10k, 1.5m")
	pf.StringP("out", "o", "", "Output file, - for stdout")
	pf.Bool("gzip", false, "Gzip the output")
	pf.String("delimiter", ",", "CSV field delimiter")
	pf.String("quote", "", "CSV quote string, empty for none")
	pf.Bool("header", true, "Write a CSV header line")
	pf.Var(exportCodec, "codec", "Avro block codec: null, deflate, snappy or zstandard")
	pf.StringSlice("match", nil, "Only tables matching these patterns")

	exportAllCmd.Flags().String("dir", "", "Output directory (default from config)")
	exportAllCmd.Flags().Var(exportAllAs, "format", "File format: csv or avro")
	exportAllCmd.Flags().BoolP("quiet", "q", false, "Hide the progress bar")

	exportCmd.AddCommand(exportCSVCmd, exportAvroCmd, exportAllCmd, exportSQLiteCmd)
	rootCmd.AddCommand(exportCmd)
}
