package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"

	"devprobe/internal/detect"
	"devprobe/internal/tui"
)

func writeJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}

// printReport writes one row per detected tool.
func printReport(out io.Writer, report *detect.Report) {
	w := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tTOOL\tSTATUS\tVERSION\tPATH\tNOTE")
	for _, cat := range report.Categories {
		for _, res := range cat.Results {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				cat.Name,
				res.Tool,
				tui.ResultStatus(res),
				tui.NonEmptyOrDash(res.Version),
				tui.NonEmptyOrDash(res.InstallPath),
				resultNote(res),
			)
		}
	}
	w.Flush()
}

func resultNote(res detect.Result) string {
	var notes []string
	if res.Essential && !res.Found {
		notes = append(notes, "essential")
	}
	if res.BelowMinimum {
		notes = append(notes, "below minimum")
	}
	if !res.Found && res.Error != "" {
		notes = append(notes, tui.TruncateWithEllipsis(res.Error, 60))
	}
	return tui.NonEmptyOrDash(strings.Join(notes, "; "))
}

// printSummary writes the totals line and lists missing essentials.
func printSummary(out io.Writer, report *detect.Report) {
	s := report.Summary
	fmt.Fprintf(out, "\n%d of %d tools found across %d categories (%.0f%%) in %s\n",
		s.TotalFound, s.TotalChecked, s.Categories, s.SuccessRate, tui.FormatElapsed(s.DetectionTime))
	if s.BelowMinimum > 0 {
		fmt.Fprintf(out, "%d tools are below their minimum version\n", s.BelowMinimum)
	}
	if missing := report.MissingEssentials(); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, res := range missing {
			names[i] = res.Tool
		}
		fmt.Fprintf(out, "Missing essential tools: %s\n", joinComma(names))
	}
}

func joinComma(items []string) string {
	return strings.Join(items, ", ")
}
