package cmd

import (
	"fmt"

	"github.com/Rana718/seedbench/internal/config"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	Version = "0.4.0"
)

func showBanner() {
	greenColor := color.New(color.FgGreen, color.Bold)

	banner := []string{
		"╔══════════════════════════════════════════════╗",
		"║   ┌─┐┌─┐┌─┐┌┬┐┌┐ ┌─┐┌┐┌┌─┐┬ ┬                  ║",
		"║   └─┐├┤ ├┤  ││├┴┐├┤ ││││  ├─┤                  ║",
		"║   └─┘└─┘└─┘─┴┘└─┘└─┘┘└┘└─┘┴ ┴                  ║",
		"║                                              ║",
		"║   🌱 Synthetic data for CockroachDB & co. 🌱  ║",
		"╚══════════════════════════════════════════════╝",
	}

	for _, line := range banner {
		greenColor.Println(line)
	}

	fmt.Print("                ")
	color.New(color.FgCyan, color.Bold).Print("Version: ")
	color.New(color.FgYellow, color.Bold).Printf("%s\n", Version)
}

var rootCmd = &cobra.Command{
	Use:   "seedbench",
	Short: "Generate, export and bulk load synthetic table data",
	Long: `
seedbench introspects a live database schema, generates rows that respect
column types and foreign keys, and streams them as CSV or Avro files, as
IMPORT INTO statements, or straight back into the database.

Database Support:
- CockroachDB and PostgreSQL (row ids, array inserts, IMPORT INTO)
- MySQL
- SQLite`,
	SilenceUsage:  true,
	SilenceErrors: true,

	Run: func(cmd *cobra.Command, args []string) {
		showVersion, _ := cmd.Flags().GetBool("version")
		if showVersion {
			fmt.Printf("seedbench version %s\n", Version)
			return
		}
		showBanner()
		fmt.Println()
		cmd.Help()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./"+config.FileName+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "V", false, "Log per-chunk and per-table progress")
	rootCmd.Flags().BoolP("version", "v", false, "Show CLI version")
}

func initConfig() {
	if err := godotenv.Load(); err != nil {
		godotenv.Load(".env.local")
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("json")
		viper.SetConfigName("seedbench.config")
	}

	viper.SetEnvPrefix("SEEDBENCH")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil && cfgFile != "" {
		color.Yellow("⚠️  Could not read config %s: %v", cfgFile, err)
	}
}
