package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"devprobe/internal/config"
	"devprobe/internal/detect"
	"devprobe/internal/paths"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, rules and essential tools",
		RunE:  runDoctor,
	}
}

type healthCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warning", "error"
	Summary string `json:"summary"`
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, cfgErr := loadSettings()

	var checks []healthCheck
	checks = append(checks, checkConfig(st.cfg, cfgErr))
	if cfgErr != nil || st.cfg.Err() != nil {
		// Can't build a detector from an invalid config.
		return writeDoctorResult(cmd, st.paths.Root, checks)
	}

	eng, err := newEngine(cmd, false)
	if err != nil {
		checks = append(checks, healthCheck{Name: "Rules", Status: "error", Summary: err.Error()})
		return writeDoctorResult(cmd, st.paths.Root, checks)
	}
	defer eng.Close()

	checks = append(checks, checkRules(eng.rulesDir(), eng.detector.Registry()))

	info := eng.detector.SystemInfo(ctx)
	checks = append(checks, healthCheck{Name: "System", Status: "ok", Summary: info.Summary()})

	report, err := eng.detector.DetectTools(ctx, nil, nil)
	if err != nil {
		return err
	}
	checks = append(checks, checkEssentials(report))

	return writeDoctorResult(cmd, st.paths.Root, checks)
}

func checkConfig(cfg config.Config, cfgErr error) healthCheck {
	if cfgErr != nil {
		return healthCheck{Name: "Config", Status: "error", Summary: cfgErr.Error()}
	}

	var warnings, errors int
	for _, v := range cfg.Validate() {
		switch v.Level {
		case "warning":
			warnings++
		case "error":
			errors++
		}
	}

	summary := fmt.Sprintf("timeout %s, cache ttl %s", cfg.Detection.DefaultTimeout, cfg.Cache.ResultTTL)
	if errors > 0 {
		return healthCheck{Name: "Config", Status: "error", Summary: fmt.Sprintf("%s; %d errors", summary, errors)}
	}
	if warnings > 0 {
		return healthCheck{Name: "Config", Status: "warning", Summary: fmt.Sprintf("%s; %d warnings", summary, warnings)}
	}
	return healthCheck{Name: "Config", Status: "ok", Summary: summary}
}

func checkRules(dir string, registry *detect.Registry) healthCheck {
	summary := fmt.Sprintf("%d categories, %d rules", len(registry.CategoryNames()), len(registry.Rules()))
	exists, err := paths.DirExists(dir)
	if err != nil {
		return healthCheck{Name: "Rules", Status: "warning", Summary: fmt.Sprintf("%s; %v", summary, err)}
	}
	if exists {
		summary += "; user rules from " + dir
	}
	return healthCheck{Name: "Rules", Status: "ok", Summary: summary}
}

func checkEssentials(report *detect.Report) healthCheck {
	missing := report.MissingEssentials()
	if len(missing) == 0 {
		return healthCheck{
			Name:    "Essentials",
			Status:  "ok",
			Summary: fmt.Sprintf("%d of %d tools found", report.Summary.TotalFound, report.Summary.TotalChecked),
		}
	}
	names := make([]string, len(missing))
	for i, res := range missing {
		names[i] = res.Tool
	}
	return healthCheck{Name: "Essentials", Status: "error", Summary: "missing " + joinComma(names)}
}

func writeDoctorResult(cmd *cobra.Command, root string, checks []healthCheck) error {
	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), checks)
	}

	bold := lipgloss.NewStyle().Bold(true).Inline(true)
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Inline(true)
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Inline(true)
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Inline(true)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, bold.Render("DEVPROBE HEALTH:")+" "+root)

	for _, c := range checks {
		var statusStr string
		switch c.Status {
		case "ok":
			statusStr = green.Render("OK")
		case "warning":
			statusStr = yellow.Render("WARN")
		case "error":
			statusStr = red.Render("ERROR")
		}
		fmt.Fprintf(out, "  %-12s %s    %s\n", c.Name+":", statusStr, c.Summary)
	}

	return nil
}
