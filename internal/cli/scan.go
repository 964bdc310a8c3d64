package cli

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"devprobe/internal/detect"
	"devprobe/internal/tui"
)

var (
	scanStrict bool
	scanPick   bool
)

// errEssentialMissing is returned by scan --strict.
var errEssentialMissing = errors.New("essential tools missing")

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [category...]",
		Short: "Detect tools in every or the named categories",
		RunE:  runScan,
	}
	cmd.Flags().BoolVar(&scanStrict, "strict", false, "Exit non-zero when an essential tool is missing")
	cmd.Flags().BoolVar(&scanPick, "pick", false, "Choose categories interactively before scanning")
	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	mode := tui.DetectMode(cmd.OutOrStdout(), noProgress, outputJSON)
	eng, err := newEngine(cmd, mode == tui.ModeTUI)
	if err != nil {
		return err
	}
	defer eng.Close()

	categories := args
	if scanPick {
		if mode != tui.ModeTUI {
			return errors.New("--pick needs an interactive terminal")
		}
		planned, err := eng.detector.Plan(nil)
		if err != nil {
			return err
		}
		picked, err := tui.RunCategoryPicker(cmd.InOrStdin(), cmd.OutOrStdout(), planned, args)
		if err != nil {
			return err
		}
		if picked.Cancelled || len(picked.Categories) == 0 {
			return nil
		}
		categories = picked.Categories
	}

	report, err := scanWithMode(ctx, cmd, eng.detector, categories, mode)
	if err != nil {
		return err
	}

	if mode != tui.ModeJSON {
		if mode == tui.ModePlain {
			printReport(cmd.OutOrStdout(), report)
		}
		printSummary(cmd.OutOrStdout(), report)
	}
	return strictCheck(report)
}

func scanWithMode(ctx context.Context, cmd *cobra.Command, det *detect.Detector, categories []string, mode tui.OutputMode) (*detect.Report, error) {
	switch mode {
	case tui.ModeJSON:
		report, err := det.DetectTools(ctx, categories, nil)
		if err != nil {
			return nil, err
		}
		return report, writeJSON(cmd.OutOrStdout(), report)

	case tui.ModeTUI:
		planned, err := det.Plan(categories)
		if err != nil {
			return nil, err
		}
		var report *detect.Report
		model := tui.NewScanModel("Scanning developer tools", planned)
		err = tui.RunWithWork(ctx, cmd.OutOrStdout(), model, func(ctx context.Context, send func(tea.Msg)) error {
			var scanErr error
			report, scanErr = det.DetectTools(ctx, categories, tui.NewScanReporter(send).Handle)
			return scanErr
		})
		if err != nil {
			return nil, err
		}
		return report, nil

	default:
		// The status line is only drawn when stderr can redraw in place.
		if !tui.IsTerminal(cmd.ErrOrStderr()) {
			return det.DetectTools(ctx, categories, nil)
		}
		status := tui.NewStatusWriter(cmd.ErrOrStderr())
		report, err := det.DetectTools(ctx, categories, tui.NewPlainReporter(status).Handle)
		status.Stop()
		return report, err
	}
}

func strictCheck(report *detect.Report) error {
	if !scanStrict {
		return nil
	}
	if missing := report.MissingEssentials(); len(missing) > 0 {
		return fmt.Errorf("%w: %d", errEssentialMissing, len(missing))
	}
	return nil
}
