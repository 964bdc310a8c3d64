package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"devprobe/internal/detect"
	"devprobe/internal/sysinfo"
	"devprobe/internal/tui"
)

var rulesPlatform string

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules [category...]",
		Short: "List detection rules and the strategy used on a platform",
		RunE:  runRules,
	}
	cmd.Flags().StringVar(&rulesPlatform, "platform", "", "Platform to resolve strategies for (windows, macos, linux)")
	return cmd
}

// ruleView is one rule resolved for a platform.
type ruleView struct {
	Category       string           `json:"category"`
	Tool           string           `json:"tool"`
	Description    string           `json:"description,omitempty"`
	Essential      bool             `json:"essential"`
	MinimumVersion string           `json:"minimum_version,omitempty"`
	Supported      bool             `json:"supported"`
	Strategy       *detect.Strategy `json:"strategy,omitempty"`
}

func runRules(cmd *cobra.Command, args []string) error {
	st, err := loadSettings()
	if err != nil {
		return err
	}
	registry, err := detect.LoadRegistry(st.rulesDir())
	if err != nil {
		return err
	}

	platform := sysinfo.Current()
	if st.cfg.Detection.Platform != "" {
		if platform, err = sysinfo.ParsePlatform(st.cfg.Detection.Platform); err != nil {
			return err
		}
	}
	if rulesPlatform != "" {
		if platform, err = sysinfo.ParsePlatform(rulesPlatform); err != nil {
			return err
		}
	}

	views, err := resolveRules(registry, platform, args)
	if err != nil {
		return err
	}

	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), views)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Platform: %s\n\n", platform)
	w := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tTOOL\tESSENTIAL\tMINIMUM\tMETHOD\tTARGET")
	for _, v := range views {
		essential := "no"
		if v.Essential {
			essential = "yes"
		}
		method, target := "-", "unsupported"
		if v.Strategy != nil {
			method = string(v.Strategy.Method)
			target = strategyTarget(*v.Strategy)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			v.Category, v.Tool, essential, tui.NonEmptyOrDash(v.MinimumVersion), method, target)
	}
	w.Flush()
	return nil
}

func resolveRules(registry *detect.Registry, platform sysinfo.Platform, categories []string) ([]ruleView, error) {
	cats := registry.Categories()
	if len(categories) > 0 {
		cats = cats[:0:0]
		for _, name := range categories {
			cat, ok := registry.Category(name)
			if !ok {
				return nil, fmt.Errorf("%w: %s", detect.ErrUnknownCategory, name)
			}
			cats = append(cats, cat)
		}
	}

	var views []ruleView
	for _, cat := range cats {
		for _, rule := range cat.Rules {
			v := ruleView{
				Category:       cat.Name,
				Tool:           rule.Name,
				Description:    rule.Description,
				Essential:      rule.Essential,
				MinimumVersion: rule.MinimumVersion,
			}
			if s, ok := detect.Resolve(rule, platform); ok {
				v.Supported = true
				v.Strategy = &s
			}
			views = append(views, v)
		}
	}
	return views, nil
}

func strategyTarget(s detect.Strategy) string {
	switch s.Method {
	case detect.MethodAppFolder:
		return strings.Join(s.Paths, ", ")
	default:
		return strings.TrimSpace(s.Command + " " + strings.Join(s.Args, " "))
	}
}
