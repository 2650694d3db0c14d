package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/accords/accords"
	"github.com/arthur-debert/accords/accords/aggregate"
	"github.com/arthur-debert/accords/accords/page"
	"github.com/arthur-debert/accords/accords/query"
	"github.com/arthur-debert/accords/accords/session"
)

type queryOutput struct {
	Rows      []accords.Agreement `json:"rows"`
	Page      page.Info           `json:"page"`
	Counter   string              `json:"counter"`
	Predicate string              `json:"predicate"`
}

func (cli *CLI) addQueryCommand() {
	var (
		filters  filterFlags
		pageNum  int
		pageSize int
		all      bool
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "List the agreements matching the filters",
		Long: `Load the dataset, apply the filters and print one page of results.

Examples:
  accords query --sector Transport --mobility
  accords query --search "vélo" --location "Commune:Paris" --page 2
  accords query --measure forfait --all --format json`,

		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := filters.state("query")
			if err != nil {
				return err
			}
			if pageSize <= 0 {
				return NewValidationError("query", "page size", fmt.Sprint(pageSize), CommonSuggestions.CheckPage)
			}

			e, _, closeFn, err := cli.openExplorer(cmd.Context(), session.Options{PageSize: pageSize})
			if err != nil {
				return err
			}
			defer closeFn()

			sess, err := e.NewSession()
			if err != nil {
				return WrapError("query", err)
			}
			sess.SetFilters(st)
			rs, err := sess.Run(cmd.Context())
			if err != nil {
				return WrapError("query", err, CommonSuggestions.TryExplain)
			}

			out := queryOutput{Predicate: rs.Predicate}
			if all {
				out.Rows = rs.Rows
				out.Page = page.Describe(1, len(rs.Rows), max(len(rs.Rows), 1))
			} else {
				out.Rows, out.Page, err = sess.PageAt(pageNum)
				if err != nil {
					return WrapError("query", err)
				}
			}
			out.Counter = out.Page.String()

			return NewOutputFormatter(cli.viperInst.GetString(keyFormat), cli.stdout).Write(out, func(w *tabwriter.Writer) error {
				return writeRows(w, out)
			})
		},
	}

	filters.register(cmd)
	cmd.Flags().IntVarP(&pageNum, "page", "p", 1, "Page to print")
	cmd.Flags().IntVar(&pageSize, "page-size", page.DefaultSize, "Rows per page")
	cmd.Flags().BoolVar(&all, "all", false, "Print every matching row")

	cli.rootCmd.AddCommand(cmd)
}

func writeRows(w *tabwriter.Writer, out queryOutput) error {
	fmt.Fprintln(w, "ID\tSECTOR\tORGANIZATION\tCOMMUNE\tDATE\tMOBILITY\tMEASURE")
	for _, a := range out.Rows {
		mobility := ""
		if a.IsMobility() {
			mobility = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			a.ID,
			truncate(a.Sector, 24),
			truncate(a.Organization, 32),
			a.Commune(),
			a.ReferenceDate(),
			mobility,
			truncate(a.Measure, 48))
	}
	_, err := fmt.Fprintf(w, "\n%s (page %d of %d)\n", out.Counter, out.Page.Page, out.Page.Pages)
	return err
}

func (cli *CLI) addStatsCommand() {
	var filters filterFlags

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the agreements matching the filters",
		Long: `Print the statistics of the filtered agreements: top measures, monthly
deposits, regions, departments, EPCIs, keywords and the mobility split.

Examples:
  accords stats --idf
  accords stats --sector Banque --format yaml`,

		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := filters.state("compute statistics")
			if err != nil {
				return err
			}

			e, _, closeFn, err := cli.openExplorer(cmd.Context(), session.Options{})
			if err != nil {
				return err
			}
			defer closeFn()

			sess, err := e.NewSession()
			if err != nil {
				return WrapError("compute statistics", err)
			}
			sess.SetFilters(st)
			if _, err := sess.Run(cmd.Context()); err != nil {
				return WrapError("compute statistics", err, CommonSuggestions.TryExplain)
			}
			stats := sess.Stats()

			return NewOutputFormatter(cli.viperInst.GetString(keyFormat), cli.stdout).Write(stats, func(w *tabwriter.Writer) error {
				return writeStats(w, stats)
			})
		},
	}

	filters.register(cmd)
	cli.rootCmd.AddCommand(cmd)
}

func writeStats(w *tabwriter.Writer, s aggregate.Stats) error {
	fmt.Fprintf(w, "Agreements\t%s\n", humanize.Comma(int64(s.Total)))
	fmt.Fprintf(w, "Sustainable mobility\t%s\n", humanize.Comma(int64(s.Mobility.Mobility)))
	fmt.Fprintf(w, "Other\t%s\n", humanize.Comma(int64(s.Mobility.Other)))

	sections := []struct {
		title  string
		counts []aggregate.Count
	}{
		{"Top measures", s.TopMeasures},
		{"Monthly", s.Monthly},
		{"Regions", s.Regions},
		{"Departments", s.Departments},
		{"EPCI", s.EPCIs},
		{"Keywords", s.Keywords},
	}
	for _, sec := range sections {
		if len(sec.counts) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", strings.ToUpper(sec.title))
		for _, c := range sec.counts {
			fmt.Fprintf(w, "  %s\t%s\n", truncate(c.Label, 60), humanize.Comma(int64(c.Count)))
		}
	}
	return nil
}

type explainOutput struct {
	Predicate string        `json:"predicate"`
	Statement string        `json:"statement"`
	Args      []interface{} `json:"args"`
}

func (cli *CLI) addExplainCommand() {
	var filters filterFlags

	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Print the SQL the filters compose to",
		Long: `Print the rendered predicate and the parameterized statement for the
filters, without loading any data.

Examples:
  accords explain --sector Transport --location "Région:Île-de-France"`,

		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := filters.state("explain")
			if err != nil {
				return err
			}

			table := cli.viperInst.GetString(keyTable)
			if !query.ValidIdentifier(table) {
				return NewValidationError("explain", "table", table, "Use letters, digits and underscores")
			}
			c := query.New(table)
			predicate, err := c.Render(st)
			if err != nil {
				return WrapError("explain", err)
			}
			stmt, stmtArgs, err := c.Select(st)
			if err != nil {
				return WrapError("explain", err)
			}
			out := explainOutput{Predicate: predicate, Statement: stmt, Args: stmtArgs}
			if out.Args == nil {
				out.Args = []interface{}{}
			}

			return NewOutputFormatter(cli.viperInst.GetString(keyFormat), cli.stdout).Write(out, func(w *tabwriter.Writer) error {
				fmt.Fprintf(w, "WHERE %s\n\n", out.Predicate)
				fmt.Fprintln(w, out.Statement)
				for i, a := range out.Args {
					fmt.Fprintf(w, "  $%d\t%v\n", i+1, a)
				}
				return nil
			})
		},
	}

	filters.register(cmd)
	cli.rootCmd.AddCommand(cmd)
}
