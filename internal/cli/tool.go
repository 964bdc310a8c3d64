package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"devprobe/internal/detect"
	"devprobe/internal/tui"
)

func newToolCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tool <name>",
		Short: "Detect a single tool",
		Long:  "Detect a single tool. Results are cached in memory only, so every invocation probes the host.",
		Args:  cobra.ExactArgs(1),
		RunE:  runTool,
	}
}

func runTool(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	eng, err := newEngine(cmd, false)
	if err != nil {
		return err
	}
	defer eng.Close()

	res, err := eng.detector.DetectTool(ctx, args[0])
	if err != nil {
		return err
	}

	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	printResult(cmd, res)
	return nil
}

func printResult(cmd *cobra.Command, res detect.Result) {
	out := cmd.OutOrStdout()
	status := tui.ResultStatus(res)
	fmt.Fprintf(out, "Tool:      %s\n", res.Tool)
	fmt.Fprintf(out, "Category:  %s\n", res.Category)
	fmt.Fprintf(out, "Status:    %s\n", tui.StatusStyle(status).Render(status))
	fmt.Fprintf(out, "Version:   %s\n", tui.NonEmptyOrDash(res.Version))
	fmt.Fprintf(out, "Path:      %s\n", tui.NonEmptyOrDash(res.InstallPath))
	fmt.Fprintf(out, "Method:    %s\n", tui.NonEmptyOrDash(string(res.Method)))
	if res.Essential {
		fmt.Fprintln(out, "Essential: yes")
	}
	if res.Error != "" {
		fmt.Fprintf(out, "Error:     %s\n", res.Error)
	}
}
