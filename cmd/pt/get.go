package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/papertools/internal/reference"
)

var getRemote bool

func init() {
	rootCmd.AddCommand(getCmd)

	getCmd.Flags().BoolVarP(&getRemote, "remote", "r", false, "Fetch from INSPIRE when not in the store (stored when --writable)")
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one record",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	id := args[0]
	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)
	defer db.Close()

	rec, err := db.Records.Get(id)
	if err != nil && getRemote {
		rec, err = newClient(cfg).GetOne(context.Background(), id)
		if err == nil && !db.ReadOnly() {
			err = db.Records.Set(id, rec)
		}
	}
	exitOnError(err, "getting record "+id)

	if humanOutput {
		printRecordHuman(rec)
	} else {
		outputJSON(rec)
	}
	return nil
}

func printRecordHuman(rec *reference.Record) {
	s := summarize(rec)
	fmt.Printf("%s\n", truncateString(s.Title, DetailTitleMaxLen))
	fmt.Printf("  INSPIRE id: %s\n", rec.ID)
	if len(rec.Metadata.TexKeys) > 0 {
		fmt.Printf("  Texkeys: %s\n", strings.Join(rec.Metadata.TexKeys, ", "))
	}
	fmt.Printf("  Authors: %s\n", formatAuthorsShort(s.Authors, 10))
	if s.Year != 0 {
		fmt.Printf("  Year: %d\n", s.Year)
	}
	fmt.Printf("  Citations: %d\n", s.Citations)
	fmt.Printf("  References: %d\n", len(reference.ReferenceIDs(rec)))
	if abstract := rec.Abstract(); abstract != "" {
		fmt.Printf("\n  %s\n", wrapText(abstract, DetailTextWrapWidth, "  "))
	}
}
