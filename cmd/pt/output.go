package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/matsen/papertools/internal/embedding"
	"github.com/matsen/papertools/internal/inspire"
	"github.com/matsen/papertools/internal/reference"
	"github.com/matsen/papertools/internal/semantic"
	"github.com/matsen/papertools/internal/storage"
)

// Constants for output formatting.
const (
	DefaultListLimit = 50  // Default limit for list/find commands
	DefaultVizLimit  = 500 // Most cited records drawn by viz

	SearchTitleMaxLen = 70 // Used in search result summaries
	ListTitleMaxLen   = 60 // Used in list command output
	DetailTitleMaxLen = 70 // Used in get command detail view

	DetailTextWrapWidth = 68
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// openClosers holds the stores opened by the running command. os.Exit skips
// deferred calls, so exit closes them first; a badger store left open
// cannot be reopened read-only until a writer replays its log.
var openClosers []io.Closer

// closeOnExit registers c to be closed before the process exits.
func closeOnExit(c io.Closer) {
	openClosers = append(openClosers, c)
}

// releaseOnExit closes registered stores, newest first.
func releaseOnExit() {
	for i := len(openClosers) - 1; i >= 0; i-- {
		if err := openClosers[i].Close(); err != nil {
			slog.Warn("closing store", "error", err)
		}
	}
	openClosers = nil
}

// exit releases open stores and terminates the process with code.
func exit(code int) {
	releaseOnExit()
	os.Exit(code)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	exit(code)
}

// exitOnError exits with the code matching err, prefixing the message with
// what was being done.
func exitOnError(err error, doing string) {
	if err == nil {
		return
	}
	code := exitCode(err)
	if code == ExitReadOnly {
		exitWithError(code, "%s: %v\n\nRerun with --writable to modify the store.", doing, err)
	}
	exitWithError(code, "%s: %v", doing, err)
}

// exitCode maps the error taxonomy onto process exit codes.
func exitCode(err error) int {
	switch {
	case errors.Is(err, storage.ErrReadOnly):
		return ExitReadOnly
	case errors.Is(err, storage.ErrLocked):
		return ExitStoreBusy
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, inspire.ErrNotFound),
		errors.Is(err, semantic.ErrRecordNotFound):
		return ExitNotFound
	case errors.Is(err, storage.ErrCorruptValue), errors.Is(err, storage.ErrStoreFull),
		errors.Is(err, embedding.ErrEmptyInput):
		return ExitDataError
	case errors.Is(err, inspire.ErrTransport), errors.Is(err, inspire.ErrRateLimited),
		errors.Is(err, inspire.ErrMalformedResponse), errors.Is(err, inspire.ErrPaginationDivergence):
		return ExitRemoteError
	}
	var apiErr *inspire.APIError
	if errors.As(err, &apiErr) {
		return ExitRemoteError
	}
	return ExitError
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
	Count  int    `json:"count,omitempty"`
}

// RecordSummary is the short form of a record used in listings.
type RecordSummary struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Authors   []string `json:"authors"`
	Year      int      `json:"year,omitempty"`
	Citations int      `json:"citation_count"`
	Score     *float32 `json:"score,omitempty"`
	Abstract  string   `json:"abstract,omitempty"`
}

func summarize(rec *reference.Record) RecordSummary {
	s := RecordSummary{
		ID:        rec.ID,
		Title:     rec.Title(),
		Authors:   rec.AuthorNames(),
		Citations: rec.Metadata.CitationCount,
	}
	if t, err := rec.CreatedTime(); err == nil {
		s.Year = t.Year()
	}
	return s
}

// printSummariesHuman prints record summaries as a numbered list.
func printSummariesHuman(results []RecordSummary) {
	for i, r := range results {
		if r.Score != nil {
			fmt.Printf("%d. [%.2f] %s\n", i+1, *r.Score, r.ID)
		} else {
			fmt.Printf("%d. %s\n", i+1, r.ID)
		}
		fmt.Printf("   %s\n", truncateString(r.Title, SearchTitleMaxLen))
		fmt.Printf("   %s (%d), %s citations\n\n", formatAuthorsShort(r.Authors, 3), r.Year, humanize.Comma(int64(r.Citations)))
	}
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// wrapText wraps text to the specified width with indentation on subsequent lines.
func wrapText(text string, width int, indent string) string {
	if len(text) <= width {
		return text
	}

	var lines []string
	var currentLine strings.Builder
	for _, word := range strings.Fields(text) {
		switch {
		case currentLine.Len() == 0:
			currentLine.WriteString(word)
		case currentLine.Len()+1+len(word) <= width:
			currentLine.WriteString(" ")
			currentLine.WriteString(word)
		default:
			lines = append(lines, currentLine.String())
			currentLine.Reset()
			currentLine.WriteString(word)
		}
	}
	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}
	return strings.Join(lines, "\n"+indent)
}

// formatAuthorShort reduces an INSPIRE "Last, First" name to "Last F".
func formatAuthorShort(name string) string {
	last, first, ok := strings.Cut(name, ",")
	first = strings.TrimSpace(first)
	if !ok || first == "" {
		return strings.TrimSpace(last)
	}
	return strings.TrimSpace(last) + " " + first[:1]
}

// formatAuthorsShort formats authors with abbreviation and "et al." for more than maxCount.
func formatAuthorsShort(authors []string, maxCount int) string {
	if len(authors) == 0 {
		return ""
	}

	var names []string
	for i, a := range authors {
		if i >= maxCount {
			names = append(names, "et al.")
			break
		}
		names = append(names, formatAuthorShort(a))
	}
	return strings.Join(names, ", ")
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}

// printProgress prints a progress bar to stderr.
func printProgress(current, total int) {
	if total == 0 {
		return
	}
	pct := float64(current) / float64(total) * 100
	const barWidth = 30
	filled := barWidth * current / total
	bar := strings.Repeat("=", filled)
	if filled < barWidth {
		bar += ">" + strings.Repeat(" ", barWidth-filled-1)
	}
	fmt.Fprintf(os.Stderr, "\r[%s] %d/%d (%.0f%%)", bar, current, total, pct)
}

// clearProgress erases the progress line.
func clearProgress() {
	fmt.Fprintf(os.Stderr, "\r%s\r", strings.Repeat(" ", 60))
}
