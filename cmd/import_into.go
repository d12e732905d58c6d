package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/Rana718/seedbench/internal/export"
	"github.com/spf13/cobra"
)

var importFormat = newEnumFlag("csv", "csv", "avro", "delimited")

var importIntoCmd = &cobra.Command{
	Use:   "import-into <table>",
	Short: "Print an IMPORT INTO statement for exported files",
	Long: `
Render a CockroachDB IMPORT INTO statement that loads previously exported
files into a table. The statement is printed, not executed.

Examples:
  seedbench import-into orders --path 'nodelocal://1/public.orders.csv'
  seedbench import-into orders --path s3://bucket/a.csv --path s3://bucket/b.csv \
    --option delimiter='|' --option skip=1 --option detached`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		name, err := s.tableName(args[0])
		if err != nil {
			return err
		}
		repo, err := s.repository()
		if err != nil {
			return err
		}
		table, err := repo.Table(ctx, name)
		if err != nil {
			return err
		}

		paths, _ := cmd.Flags().GetStringSlice("path")
		raw, _ := cmd.Flags().GetStringArray("option")
		stmt, err := export.NewImportInto(table, export.ImportFormat(strings.ToUpper(importFormat.value)), paths, parseOptions(raw))
		if err != nil {
			return err
		}
		fmt.Println(stmt.String())
		return nil
	},
}

// parseOptions splits key=value pairs; a bare key becomes export.BlankOption.
func parseOptions(raw []string) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	opts := make(map[string]string, len(raw))
	for _, kv := range raw {
		k, v, found := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !found {
			v = export.BlankOption
		}
		opts[k] = strings.Trim(strings.TrimSpace(v), `'`)
	}
	return opts
}

func init() {
	importIntoCmd.Flags().Var(importFormat, "format", "Data format: csv, avro or delimited")
	importIntoCmd.Flags().StringSlice("path", nil, "File URL to import, repeatable")
	importIntoCmd.Flags().StringArray("option", nil, "IMPORT option as key=value, or a bare key")
	importIntoCmd.MarkFlagRequired("path")

	rootCmd.AddCommand(importIntoCmd)
}
