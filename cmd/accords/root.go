package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arthur-debert/accords/accords"
	"github.com/arthur-debert/accords/accords/store"
)

// Configuration keys. Flags use the same names; environment variables are
// the upper-cased key with the ACCORDS_ prefix and dashes as underscores.
const (
	keyDataset    = "dataset"
	keyJSONL      = "jsonl"
	keyTable      = "table"
	keyCacheDir   = "cache-dir"
	keyRefresh    = "refresh"
	keyThreads    = "threads"
	keyFormat     = "format"
	keyLogLevel   = "log-level"
	keyLogQueries = "log-queries"
)

// CLI is the viper-driven command tree.
type CLI struct {
	viperInst *viper.Viper
	rootCmd   *cobra.Command
	stdout    io.Writer
	stderr    io.Writer
	logs      *loggers
}

// NewCLI builds the command tree and reads the configuration sources.
func NewCLI() *CLI {
	return newCLI(os.Stdout, os.Stderr)
}

func newCLI(stdout, stderr io.Writer) *CLI {
	cli := &CLI{
		viperInst: viper.New(),
		stdout:    stdout,
		stderr:    stderr,
	}
	cli.setupViperConfig()
	cli.createRootCommand()
	cli.addCommands()
	return cli
}

// setupViperConfig configures Viper with environment variables and config files
func (cli *CLI) setupViperConfig() {
	v := cli.viperInst

	// ACCORDS_CONFIG names a config file explicitly
	if configFile := os.Getenv("ACCORDS_CONFIG"); configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("accords")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.accords")
		v.AddConfigPath("/etc/accords")
	}

	v.SetEnvPrefix("ACCORDS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(keyDataset, accords.DefaultDatasetURL)
	v.SetDefault(keyTable, accords.DefaultTable)
	v.SetDefault(keyCacheDir, store.DefaultCacheDir())
	v.SetDefault(keyFormat, "table")
	v.SetDefault(keyLogLevel, "warn")

	// Read config file if it exists (ignore errors)
	_ = v.ReadInConfig()
}

func (cli *CLI) createRootCommand() {
	cli.rootCmd = &cobra.Command{
		Use:   "accords",
		Short: "Explore French company agreements on sustainable mobility",
		Long: `accords loads the agreements dataset into an embedded DuckDB table and
lets you filter, page, aggregate and serve it.

Configuration Sources (in order of precedence):
1. Command line flags
2. Environment variables (ACCORDS_*)
3. Configuration file
4. Defaults

Configuration File Discovery:
  ACCORDS_CONFIG=/path/to/config.yaml   # Custom config file path
  ./accords.yaml                        # Current directory
  ~/.accords/accords.yaml               # User directory
  /etc/accords/accords.yaml             # System directory

Examples:
  # Mobility agreements in transport, in Île-de-France
  accords query --sector Transport --mobility --idf

  # Statistics over a local export
  accords --jsonl agreements.jsonl stats --search vélo

  # Serve the HTTP API
  accords serve --addr :8080`,

		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.viperInst.BindPFlags(cmd.Flags()); err != nil {
				return NewConfigError("read flags", err.Error(), CommonSuggestions.RunHelp)
			}
			if err := cli.validateGlobals(); err != nil {
				return err
			}
			logs, err := initLogging(
				filepath.Join(cli.viperInst.GetString(keyCacheDir), "logs"),
				cli.viperInst.GetString(keyLogLevel),
				cli.viperInst.GetBool(keyLogQueries),
				cli.stdout)
			if err != nil {
				return NewConfigError("initialize logging", err.Error(), CommonSuggestions.CheckConfig)
			}
			cli.logs = logs
			return nil
		},
	}
	cli.rootCmd.SetOut(cli.stdout)
	cli.rootCmd.SetErr(cli.stderr)
	cli.addGlobalFlags()
}

// addGlobalFlags adds persistent flags that apply to all commands
func (cli *CLI) addGlobalFlags() {
	flags := cli.rootCmd.PersistentFlags()

	flags.String(keyDataset, accords.DefaultDatasetURL, "Parquet dataset: URL, file:// URL or path")
	flags.String(keyJSONL, "", "Line-delimited JSON file used instead of --dataset")
	flags.String(keyTable, accords.DefaultTable, "Table name the dataset is loaded into")
	flags.String(keyCacheDir, store.DefaultCacheDir(), "Directory for downloaded datasets and logs")
	flags.Bool(keyRefresh, false, "Download the dataset again even when cached")
	flags.Int(keyThreads, 0, "DuckDB worker threads (0 keeps the engine default)")

	flags.StringP(keyFormat, "f", "table", "Output format (table|json|yaml)")
	flags.String(keyLogLevel, "warn", "Log level (debug|info|warn|error)")
	flags.Bool(keyLogQueries, false, "Also print every SQL statement to stdout")

	for _, key := range []string{keyDataset, keyJSONL, keyTable, keyCacheDir, keyRefresh, keyThreads, keyFormat, keyLogLevel, keyLogQueries} {
		_ = cli.viperInst.BindPFlag(key, flags.Lookup(key))
	}
}

func (cli *CLI) validateGlobals() error {
	switch f := cli.viperInst.GetString(keyFormat); f {
	case "table", "json", "yaml":
	default:
		return NewValidationError("read flags", "format", f, "Use one of: table, json, yaml")
	}
	if _, ok := logLevelMap[strings.ToLower(cli.viperInst.GetString(keyLogLevel))]; !ok {
		return NewValidationError("read flags", "log level", cli.viperInst.GetString(keyLogLevel),
			"Use one of: debug, info, warn, error")
	}
	return nil
}

func (cli *CLI) addCommands() {
	cli.addQueryCommand()
	cli.addStatsCommand()
	cli.addExplainCommand()
	cli.addInspectCommand()
	cli.addImportCommand()
	cli.addServeCommand()
}

// Execute runs the command line in os.Args.
func (cli *CLI) Execute() error {
	defer func() { _ = cli.logs.Close() }()
	return cli.rootCmd.Execute()
}

// run executes the command tree with explicit arguments.
func (cli *CLI) run(args ...string) error {
	cli.rootCmd.SetArgs(args)
	return cli.Execute()
}
