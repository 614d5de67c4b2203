// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/hnscrape/internal/sink"
	"github.com/pdiddy/hnscrape/pkg/types"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the stored records of a run to stdout",
	Long: `Export reads one run from the SQLite store (the latest by default) and
writes its records to stdout, as CSV in the same layout as the scrape output
or as JSON with the page each record came from.`,
	RunE: runExport,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List the runs held in the SQLite store",
	RunE:  runRuns,
}

func init() {
	exportCmd.Flags().String("run", "", "output id of the run to export (default: latest)")
	exportCmd.Flags().Bool("json", false, "write records as JSON")
	runsCmd.Flags().Bool("json", false, "write runs as JSON")

	for _, c := range []*cobra.Command{exportCmd, runsCmd} {
		c.Flags().String("db", types.DefaultDBFile, "SQLite database to read")
		rootCmd.AddCommand(c)
	}
}

// openExistingStore opens the store at the configured path. Unlike
// scrape, reading never creates a database.
func openExistingStore(cmd *cobra.Command) (*sink.Store, error) {
	path := viper.GetString(keyDBPath)
	if cmd.Flags().Changed("db") {
		path, _ = cmd.Flags().GetString("db")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("no store at %s: %w", path, err)
	}
	return sink.OpenStore(path)
}

func runExport(cmd *cobra.Command, args []string) error {
	store, err := openExistingStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	outputID, _ := cmd.Flags().GetString("run")
	var run sink.StoredRun
	if outputID == "" {
		run, err = store.LatestRun(ctx)
	} else {
		run, err = store.Run(ctx, outputID)
	}
	if err != nil {
		return err
	}

	records, err := store.Records(ctx, run.ID)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return writeRecords(cmd.OutOrStdout(), records, jsonOutput)
}

func writeRecords(w io.Writer, records []sink.StoredRecord, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if records == nil {
			records = []sink.StoredRecord{}
		}
		return enc.Encode(records)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(types.Columns); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(r.Row()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func runRuns(cmd *cobra.Command, args []string) error {
	store, err := openExistingStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs(cmd.Context())
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return writeRuns(cmd.OutOrStdout(), runs, jsonOutput)
}

func writeRuns(w io.Writer, runs []sink.StoredRun, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if runs == nil {
			runs = []sink.StoredRun{}
		}
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs stored.")
		return nil
	}

	fmt.Fprintf(w, "%-4s  %-20s  %-20s  %-5s  %-6s  %-7s  %s\n",
		"ID", "Output", "Started", "Pages", "Failed", "Records", "Dropped")
	for _, r := range runs {
		fmt.Fprintf(w, "%-4d  %-20s  %-20s  %-5d  %-6d  %-7d  %d\n",
			r.ID, r.OutputID, r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.PagesFetched, r.PagesFailed, r.Records, r.Dropped)
	}
	fmt.Fprintf(w, "\n%d runs\n", len(runs))
	return nil
}
