package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Rana718/seedbench/internal/config"
	"github.com/Rana718/seedbench/internal/schema"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [schema]",
	Short: "Write the generated table models as YAML",
	Long: `
Write the table models seedbench derives from the catalog, in insert order,
as a YAML document. Edit the document and point schema.overrides in the
config file at it to change row counts and column generators.`,
	Args: cobra.MaximumNArgs(1),
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
		var w io.Writer = os.Stdout
		if out != "" && out != "-" {
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			defer f.Close()
			w = f
		}
		if err := schema.DumpYAML(w, tables); err != nil {
			return err
		}
		if out != "" && out != "-" {
			success("Wrote %d table models to %s", len(tables), out)
		}
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default " + config.FileName,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Default().WriteFile(config.FileName); err != nil {
			return err
		}
		success("Created %s", config.FileName)
		color.Cyan("💡 Set DATABASE_URL in the environment or a .env file")
		return nil
	},
}

func init() {
	dumpCmd.Flags().StringP("out", "o", "", "Output file (default stdout)")
	dumpCmd.Flags().String("rows", "", "Row count written for every table")
	dumpCmd.Flags().StringSlice("match", nil, "Only tables matching these patterns")

	rootCmd.AddCommand(dumpCmd, initCmd)
}
