package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/patrickcap/exploronomics/config"
	"github.com/patrickcap/exploronomics/countries"
	"github.com/patrickcap/exploronomics/database"
	"github.com/patrickcap/exploronomics/errors"
	"github.com/patrickcap/exploronomics/indicators"
	"github.com/patrickcap/exploronomics/logging"
	"github.com/patrickcap/exploronomics/seed"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// cfg is populated by the root command before any subcommand runs
var cfg *config.Config

// newRootCmd builds the command tree. Tests build a fresh tree per run so
// flag state does not leak between invocations.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "exploronomics",
		Short: "Exploronomics - country statistics and world economic indicators",
		Long: `Exploronomics maintains the country statistics store and prepares the
World Bank economic indicators CSV used by the exploserve API.`,
		Version:           fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}

	rootCmd.PersistentFlags().String("config", "", "config file (default is ./exploronomics.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable verbose output")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-error output")

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the country store and its countries table",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert country records into the store",
		Long: `Insert country records into the countries table as a single batch.

Without --records the built-in list is used. The table must already exist;
run 'exploronomics init' first. Either every record is stored or none are.`,
		Args: cobra.NoArgs,
		RunE: runSeed,
	}

	formatCmd := &cobra.Command{
		Use:   "format",
		Short: "Rescale GDP to billions and round the indicators CSV",
		Long: `Read the World Bank indicators CSV, convert "GDP (current US$)" rows to
billions, round every year column to three decimals and write the result.`,
		Args: cobra.NoArgs,
		RunE: runFormat,
	}

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Show integrity and size information for the country store",
		Args:  cobra.NoArgs,
		RunE:  runInfo,
	}

	for _, cmd := range []*cobra.Command{initCmd, seedCmd, infoCmd} {
		cmd.Flags().String("db", "", "path to the country store (default from config)")
	}

	seedCmd.Flags().String("records", "", "YAML or JSON file with the records to insert")
	seedCmd.Flags().Bool("backup", false, "back up the store before seeding")
	seedCmd.Flags().Int("max-backups", 0, "number of backups to keep (default from config)")

	formatCmd.Flags().String("input", "", "CSV to read (default from config)")
	formatCmd.Flags().String("output", "", "CSV to write (default from config)")

	rootCmd.AddCommand(initCmd, seedCmd, formatCmd, infoCmd)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errors.UserFriendlyMessage(err))

		if suggestion := errors.Suggestion(err); suggestion != "" {
			fmt.Fprintf(os.Stderr, "Suggestion: %s\n", suggestion)
		}

		os.Exit(errors.ExitCode(err))
	}
}

// setup loads configuration and installs the logger for the run
func setup(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	quiet, _ := cmd.Flags().GetBool("quiet")

	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = loaded

	level, _ := logging.ParseLevel(cfg.Logging.Level)
	if verbose {
		level = logging.DEBUG
	} else if quiet {
		level = logging.WARN
	}

	logger := logging.NewLoggerWithWriter(level, cmd.ErrOrStderr())
	if cfg.Logging.File != "" {
		if err := logger.SetFile(cfg.Logging.File); err != nil {
			logger.Warn("cli", "Failed to set up file logging", map[string]interface{}{"error": err.Error()})
		}
	}
	logging.SetLogger(logger)
	return nil
}

// stringFlag returns the flag value when it was given, otherwise fallback
func stringFlag(cmd *cobra.Command, name, fallback string) string {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	return fallback
}

// runLogged wraps a command body with run start and end logging
func runLogged(cmd *cobra.Command, target string, fn func(rl *logging.RunLogger) error) error {
	rl := logging.NewRunLogger(logging.GetLogger(), cmd.Name(), logging.GenerateRunID())
	rl.LogRunStart(target)
	err := fn(rl)
	rl.LogRunEnd(err)
	return err
}

func runInit(cmd *cobra.Command, args []string) error {
	dbPath := stringFlag(cmd, "db", cfg.Database.Path)

	return runLogged(cmd, dbPath, func(rl *logging.RunLogger) error {
		ctx := cmd.Context()

		db, err := database.Create(ctx, dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := countries.CreateSchema(ctx, db); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Country store ready at %s\n", dbPath)
		return nil
	})
}

func runSeed(cmd *cobra.Command, args []string) error {
	dbPath := stringFlag(cmd, "db", cfg.Database.Path)
	recordsFile := stringFlag(cmd, "records", cfg.Seed.RecordsFile)

	backup := cfg.Seed.Backup
	if cmd.Flags().Changed("backup") {
		backup, _ = cmd.Flags().GetBool("backup")
	}
	maxBackups := cfg.Seed.MaxBackups
	if cmd.Flags().Changed("max-backups") {
		maxBackups, _ = cmd.Flags().GetInt("max-backups")
	}
	if maxBackups < 0 {
		return errors.NewInvalidInputError("--max-backups must not be negative")
	}

	return runLogged(cmd, dbPath, func(rl *logging.RunLogger) error {
		ctx := cmd.Context()

		rl.LogPhase("records", "Loading country records")
		records := seed.DefaultRecords()
		if recordsFile != "" {
			var err error
			if records, err = seed.LoadRecordsFile(recordsFile); err != nil {
				return err
			}
		}

		rl.LogPhase("insert", "Inserting country records")
		result, err := seed.Run(ctx, seed.Options{
			DBPath:     dbPath,
			Records:    records,
			Backup:     backup,
			MaxBackups: maxBackups,
		})
		if err != nil {
			return err
		}

		// Seeding is silent on stdout; progress goes to the stderr logger
		if result.BackupPath != "" {
			logging.Info("seed", fmt.Sprintf("Backup written to %s", result.BackupPath))
		}
		logging.Info("seed", fmt.Sprintf("Inserted %d countries into %s", result.Inserted, dbPath),
			map[string]interface{}{"inserted": result.Inserted})
		return nil
	})
}

func runFormat(cmd *cobra.Command, args []string) error {
	input := stringFlag(cmd, "input", cfg.Format.InputFile)
	output := stringFlag(cmd, "output", cfg.Format.OutputFile)

	return runLogged(cmd, input, func(rl *logging.RunLogger) error {
		if _, err := indicators.FormatFile(input, output); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), indicators.SavedMessage(output))
		return nil
	})
}

func runInfo(cmd *cobra.Command, args []string) error {
	dbPath := stringFlag(cmd, "db", cfg.Database.Path)

	if err := database.VerifyDatabaseIntegrity(dbPath); err != nil {
		return err
	}

	info, err := database.GetDatabaseInfo(dbPath)
	if err != nil {
		return err
	}

	printInfo(cmd.OutOrStdout(), dbPath, info)
	return nil
}

func printInfo(w io.Writer, dbPath string, info map[string]interface{}) {
	fmt.Fprintf(w, "Database: %s\n", dbPath)

	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %v\n", k, info[k])
	}
}
