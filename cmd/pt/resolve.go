package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/papertools/internal/inspire"
	"github.com/matsen/papertools/internal/pdf"
)

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.AddCommand(resolveTexKeyCmd)
	resolveCmd.AddCommand(resolveAuthorCmd)
	resolveCmd.AddCommand(resolvePDFCmd)

	resolvePDFCmd.Flags().IntVar(&resolvePages, "pages", pdf.DefaultMaxPages, "Leading pages to scan for identifiers")
}

var resolvePages int

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Look up INSPIRE record ids",
}

// ResolveResponse is the response for resolve commands.
type ResolveResponse struct {
	IDs       map[string]string `json:"ids,omitempty"` // texkey -> id
	Records   []string          `json:"records,omitempty"`
	Unmatched []string          `json:"unmatched,omitempty"`
	Total     int               `json:"total"`
}

var resolveTexKeyCmd = &cobra.Command{
	Use:   "texkey <key...>",
	Short: "Map texkeys (e.g. Maldacena:1997re) to record ids",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runResolveTexKey,
}

func runResolveTexKey(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	ids, err := newClient(cfg).GetIDsByTexKey(context.Background(), args, pageSize(cfg, inspire.DefaultTexKeyPageSize))
	exitOnError(err, "resolving texkeys")

	resp := ResolveResponse{IDs: make(map[string]string)}
	for _, k := range args {
		if id, ok := ids[k]; ok {
			resp.IDs[k] = id
		} else {
			resp.Unmatched = append(resp.Unmatched, k)
		}
	}
	resp.Total = len(resp.IDs)

	if humanOutput {
		for _, k := range args {
			if id, ok := resp.IDs[k]; ok {
				fmt.Printf("%s\t%s\n", k, id)
			} else {
				fmt.Printf("%s\t(not found)\n", k)
			}
		}
		return nil
	}
	outputJSON(resp)
	return nil
}

var resolveAuthorCmd = &cobra.Command{
	Use:   "author <full name>",
	Short: "List the record ids of an author",
	Long: `List every record id whose author list contains the given full
name, as INSPIRE matches authors.full_name.`,
	Args: cobra.ExactArgs(1),
	RunE: runResolveAuthor,
}

func runResolveAuthor(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	ids, err := newClient(cfg).GetIDsByAuthor(context.Background(), args[0], pageSize(cfg, inspire.DefaultAuthorPageSize))
	exitOnError(err, "resolving author")

	if humanOutput {
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	}
	outputJSON(ResolveResponse{Records: ids, Total: len(ids)})
	return nil
}

var resolvePDFCmd = &cobra.Command{
	Use:   "pdf <file.pdf...>",
	Short: "Find the record ids of local PDF files",
	Long: `Scan each PDF for an arXiv stamp or a DOI and look the paper up on
INSPIRE. The arXiv number is tried first.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResolvePDF,
}

// PDFMatch is one resolved PDF.
type PDFMatch struct {
	File string `json:"file"`
	pdf.Identifiers
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

func runResolvePDF(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	client := newClient(cfg)
	ctx := context.Background()

	matches := make([]PDFMatch, 0, len(args))
	for _, path := range args {
		m := PDFMatch{File: path}
		ids, err := pdf.Extract(path, resolvePages)
		switch {
		case err != nil:
			m.Error = err.Error()
		case ids.Empty():
			m.Error = "no arXiv number or DOI found"
		default:
			m.Identifiers = ids
			m.ID, err = resolveIdentifiers(ctx, client, ids)
			if err != nil {
				m.Error = err.Error()
			}
		}
		matches = append(matches, m)
	}

	if humanOutput {
		for _, m := range matches {
			if m.ID != "" {
				fmt.Printf("%s\t%s\n", m.File, m.ID)
			} else {
				fmt.Printf("%s\t(%s)\n", m.File, m.Error)
			}
		}
		return nil
	}
	outputJSON(matches)
	return nil
}

// resolveIdentifiers looks up the arXiv number, then the DOI. Only a
// not-found answer falls through to the DOI.
func resolveIdentifiers(ctx context.Context, client *inspire.Client, ids pdf.Identifiers) (string, error) {
	if ids.ArXiv != "" {
		id, err := client.GetIDByArXiv(ctx, ids.ArXiv)
		if err == nil || !inspire.IsNotFound(err) || ids.DOI == "" {
			return id, err
		}
	}
	return client.GetIDByDOI(ctx, ids.DOI)
}
