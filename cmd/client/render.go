package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/openmined/dropsearch/internal/searchsdk"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderResults(w io.Writer, phrase string, results []*searchsdk.Result) error {
	var sb strings.Builder

	if len(results) == 0 {
		fmt.Fprintf(&sb, "%s\n", gray.Render(fmt.Sprintf("No files contain %q", phrase)))
		_, err := io.WriteString(w, sb.String())
		return err
	}

	fmt.Fprintf(&sb, "%s\n\n", titleStyle.Render(fmt.Sprintf("%d result(s) for %q", len(results), phrase)))
	for _, r := range results {
		fmt.Fprintf(&sb, "  %s  %s\n", cyan.Render(r.Name), gray.Render(r.Path))
		fmt.Fprintf(&sb, "  %s\n\n", linkStyle.Render(r.Link))
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func renderReport(w io.Writer, r *searchsdk.SyncReport) error {
	var sb strings.Builder

	row := func(label, value string) {
		fmt.Fprintf(&sb, "%s %s\n", labelStyle.Render(label), value)
	}

	row("pass", r.PassID)
	row("finished", fmt.Sprintf("%s (took %s)", humanize.Time(r.FinishedAt), r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond)))
	row("indexed", fmt.Sprintf("%d (listed %d, excluded %d)", r.Indexed, r.Listed, r.Excluded))
	row("changes", fmt.Sprintf("+%d -%d =%d", r.Added, r.Removed, r.Unchanged))
	row("fetched", humanize.IBytes(uint64(r.FetchedBytes)))
	if r.ExtractFailed > 0 {
		row("extract failed", fmt.Sprintf("%d (indexed without text)", r.ExtractFailed))
	}
	if r.Error != "" {
		row("error", errorStyle.Render(r.Error))
	}

	_, err := io.WriteString(w, sb.String())
	return err
}
