package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/Rana718/seedbench/internal/model"
	"github.com/Rana718/seedbench/internal/schema"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var schemasCmd = &cobra.Command{
	Use:   "schemas",
	Short: "List schemas",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		schemas, err := s.adapter.ListSchemas(ctx)
		if err != nil {
			return fmt.Errorf("failed to list schemas: %w", err)
		}
		for _, name := range schemas {
			fmt.Println(name)
		}
		return nil
	},
}

var tablesCmd = &cobra.Command{
	Use:   "tables [schema]",
	Short: "List tables",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		match, _ := cmd.Flags().GetStringSlice("match")
		tables, err := schema.ListTables(ctx, s.adapter, s.schemaArg(args), tableFilter(match))
		if err != nil {
			return fmt.Errorf("failed to list tables: %w", err)
		}
		if len(tables) == 0 {
			color.Yellow("⚠️  No tables found")
			return nil
		}
		for _, t := range tables {
			fmt.Printf("%s.%s\n", t.Schema, t.Name)
		}
		return nil
	},
}

var columnsCmd = &cobra.Command{
	Use:   "columns <table>",
	Short: "Show the generator chosen for every column of a table",
	Args:  cobra.ExactArgs(1),
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
		table, err := s.table(ctx, repo, name)
		if err != nil {
			return err
		}

		color.Cyan("📋 %s (count %s)", name, table.Count)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "COLUMN\tTYPE\tGENERATOR")
		fmt.Fprintln(w, "------\t----\t---------")
		for _, c := range table.Columns {
			fmt.Fprintf(w, "%s\t%s\t%s\n", color.CyanString(c.Name), c.TypeName, describeColumn(c))
		}
		return w.Flush()
	},
}

func describeColumn(c model.Column) string {
	switch {
	case c.Hidden:
		return "(hidden)"
	case c.Range != nil:
		return fmt.Sprintf("%s range %s..%s", c.Range.Kind, c.Range.From, c.Range.To)
	case c.Identity != nil:
		return "identity " + string(c.Identity.Kind)
	case c.Constant != nil && *c.Constant != "":
		return "constant " + *c.Constant
	case c.Expression != "":
		return c.Expression
	case c.ValueSet != nil:
		return fmt.Sprintf("one of %d values", len(c.ValueSet.Values))
	default:
		return color.YellowString("(unresolved foreign key)")
	}
}

var keysCmd = &cobra.Command{
	Use:   "keys <table>",
	Short: "Show primary and foreign keys of a table",
	Args:  cobra.ExactArgs(1),
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
		pks, err := s.adapter.ListPrimaryKeys(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to list primary keys: %w", err)
		}
		fks, err := s.adapter.ListForeignKeys(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to list foreign keys: %w", err)
		}

		keys := make([]string, len(pks))
		for i, pk := range pks {
			keys[i] = pk.Column
		}
		color.Cyan("🔑 primary key: (%s)", strings.Join(keys, ", "))

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "CONSTRAINT\tCOLUMN\tREFERENCES")
		for _, fk := range fks {
			fmt.Fprintf(w, "%s\t%s\t%s.%s(%s)\n", fk.Name, fk.Column, fk.ReferencedSchema, fk.ReferencedTable, fk.ReferencedColumn)
		}
		return w.Flush()
	},
}

var orderCmd = &cobra.Command{
	Use:   "order [schema]",
	Short: "Print tables in foreign key insert order",
	Long: `
Print the tables of a schema so that every referenced table comes before the
tables referencing it. With --inverse the order is suitable for deletes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		inverse, _ := cmd.Flags().GetBool("inverse")
		match, _ := cmd.Flags().GetStringSlice("match")
		repo, err := s.repository()
		if err != nil {
			return err
		}
		g, err := repo.Graph(ctx, s.schemaArg(args), tableFilter(match))
		if err != nil {
			return err
		}
		ordered, err := g.TopologicalSort(inverse)
		if err != nil {
			return err
		}
		for i, t := range ordered {
			fmt.Printf("%3d  %s\n", i+1, t.QualifiedName())
		}
		return nil
	},
}

var showCreateCmd = &cobra.Command{
	Use:   "show-create <table>",
	Short: "Print the CREATE TABLE statement of a table",
	Args:  cobra.ExactArgs(1),
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
		ddl, err := s.adapter.ShowCreateTable(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to show create table: %w", err)
		}
		fmt.Println(ddl)
		return nil
	},
}

func init() {
	tablesCmd.Flags().StringSlice("match", nil, "Only tables matching these patterns")
	orderCmd.Flags().Bool("inverse", false, "Referencing tables first")
	orderCmd.Flags().StringSlice("match", nil, "Only tables matching these patterns")

	rootCmd.AddCommand(schemasCmd, tablesCmd, columnsCmd, keysCmd, orderCmd, showCreateCmd)
}
