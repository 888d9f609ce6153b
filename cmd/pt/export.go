package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/papertools/internal/storage"
)

var (
	exportOutput string
	importBatch  int
)

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to this file instead of stdout")
	importCmd.Flags().IntVar(&importBatch, "batch", storage.DefaultImportBatch, "Records per write transaction")
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored records as JSONL",
	Long:  `Write every stored record as one JSON object per line, in id order.`,
	RunE:  runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)
	defer db.Close()

	out := os.Stdout
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			exitWithError(ExitError, "creating %s: %v", exportOutput, err)
		}
		defer f.Close()
		out = f
	}

	n, err := storage.WriteJSONL(out, db.Records.Values())
	exitOnError(err, "exporting")

	if exportOutput != "" {
		if humanOutput {
			fmt.Printf("Exported %d records to %s\n", n, exportOutput)
		} else {
			outputJSON(StatusResponse{Status: "exported", Path: exportOutput, Count: n})
		}
	}
	return nil
}

var importCmd = &cobra.Command{
	Use:   "import <file.jsonl>",
	Short: "Import records from JSONL",
	Long: `Read INSPIRE records, one JSON object per line, into the record
collection. Existing records with the same id are replaced. Requires
--writable.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		exitWithError(ExitError, "opening %s: %v", path, err)
	}
	defer f.Close()

	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)
	defer db.Close()

	n, err := storage.ImportJSONL(f, db.Records, importBatch)
	if err != nil {
		exitOnError(fmt.Errorf("after %d records: %w", n, err), "importing "+path)
	}

	if humanOutput {
		fmt.Printf("Imported %d records from %s\n", n, path)
		return nil
	}
	outputJSON(StatusResponse{Status: "imported", Path: path, Count: n})
	return nil
}
