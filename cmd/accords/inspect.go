package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/accords/accords"
	"github.com/arthur-debert/accords/accords/session"
	"github.com/arthur-debert/accords/accords/store"
)

// requiredColumns are the columns the explorer filters on.
var requiredColumns = []string{
	accords.ColID,
	accords.ColOrganization,
	accords.ColTitle,
	accords.ColSector,
	accords.ColMeasure,
	accords.ColExcerpt,
	accords.ColMobility,
	accords.ColRegion,
	accords.ColEPCI,
	accords.ColCommune,
}

type inspectOutput struct {
	store.ParquetInfo
	Missing []string `json:"missing"`
}

func (cli *CLI) addInspectCommand() {
	cmd := &cobra.Command{
		Use:   "inspect [source]",
		Short: "Show the schema and row count of a parquet dataset",
		Long: `Resolve a parquet source (downloading it into the cache when it is a URL)
and print its columns and row count without loading it. Defaults to --dataset.

Examples:
  accords inspect
  accords inspect ./agreements.parquet --format json`,

		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := cli.viperInst
			source := v.GetString(keyDataset)
			if len(args) == 1 {
				source = args[0]
			}

			fetcher := store.NewFetcher(store.FetcherOptions{
				CacheDir: v.GetString(keyCacheDir),
				Refresh:  v.GetBool(keyRefresh),
				Logger:   cli.logs.main,
			})
			path, err := fetcher.Fetch(cmd.Context(), source)
			if err != nil {
				return WrapError("inspect the dataset", err, CommonSuggestions.CheckDataset)
			}
			info, err := store.ProbeParquet(path)
			if err != nil {
				return WrapError("inspect the dataset", &accords.LoadError{Table: "-", Source: source, Underlying: err})
			}
			out := inspectOutput{ParquetInfo: info, Missing: info.Missing(requiredColumns...)}
			if out.Missing == nil {
				out.Missing = []string{}
			}

			return NewOutputFormatter(v.GetString(keyFormat), cli.stdout).Write(out, func(w *tabwriter.Writer) error {
				fmt.Fprintf(w, "Path\t%s\n", out.Path)
				fmt.Fprintf(w, "Size\t%s\n", humanize.Bytes(uint64(out.Size)))
				fmt.Fprintf(w, "Rows\t%s\n", humanize.Comma(out.Rows))
				fmt.Fprintf(w, "Columns\t%d\n", len(out.Columns))
				for _, c := range out.Columns {
					fmt.Fprintf(w, "  %s\n", c)
				}
				if len(out.Missing) > 0 {
					fmt.Fprintf(w, "Missing\t%s\n", strings.Join(out.Missing, ", "))
				}
				return nil
			})
		},
	}

	cli.rootCmd.AddCommand(cmd)
}

type importOutput struct {
	session.Dataset
	Sectors   int `json:"sectors"`
	Locations int `json:"locations"`
}

func (cli *CLI) addImportCommand() {
	cmd := &cobra.Command{
		Use:   "import <file.jsonl>",
		Short: "Check that a line-delimited JSON file loads as a dataset",
		Long: `Validate a line-delimited JSON file, load it into the engine and report
what the explorer sees: record count, columns, sectors and places. Use the
same file with --jsonl to query it.

Examples:
  accords import export.jsonl
  accords --jsonl export.jsonl query --mobility`,

		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			content, err := os.ReadFile(path)
			if err != nil {
				return NewValidationError("import", "file", path, CommonSuggestions.CheckJSONL)
			}
			if _, err := store.ValidateJSONL(string(content)); err != nil {
				return WrapError("import", err)
			}

			s, err := cli.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Shutdown() }()

			e := session.NewExplorer(s, session.Options{
				Table:  cli.viperInst.GetString(keyTable),
				Logger: cli.logs.main,
			})
			defer e.Close()

			ds, err := e.LoadLocal(cmd.Context(), filepath.Base(path), string(content))
			if err != nil {
				return WrapError("import", err)
			}
			out := importOutput{Dataset: ds, Sectors: len(e.Sectors()), Locations: len(e.LocationOptions())}

			return NewOutputFormatter(cli.viperInst.GetString(keyFormat), cli.stdout).Write(out, func(w *tabwriter.Writer) error {
				fmt.Fprintln(w, describeDataset(ds))
				fmt.Fprintf(w, "Columns\t%d\n", len(ds.Columns))
				fmt.Fprintf(w, "Sectors\t%d\n", out.Sectors)
				fmt.Fprintf(w, "Places\t%d\n", out.Locations)
				return nil
			})
		},
	}

	cli.rootCmd.AddCommand(cmd)
}
