package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"devprobe/internal/tui"
)

func newSysinfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sysinfo",
		Short: "Show host platform information",
		RunE:  runSysinfo,
	}
}

func runSysinfo(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	eng, err := newEngine(cmd, false)
	if err != nil {
		return err
	}
	defer eng.Close()

	info := eng.detector.SystemInfo(ctx)
	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), info)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Platform:  %s\n", info.Platform)
	fmt.Fprintf(out, "Arch:      %s\n", info.Arch)
	if info.Distro != "" {
		fmt.Fprintf(out, "Distro:    %s %s\n", info.Distro, info.DistroVersion)
	}
	fmt.Fprintf(out, "OS:        %s\n", tui.NonEmptyOrDash(info.OSVersion))
	fmt.Fprintf(out, "Kernel:    %s\n", tui.NonEmptyOrDash(info.KernelVersion))
	fmt.Fprintf(out, "Hostname:  %s\n", tui.NonEmptyOrDash(info.Hostname))
	fmt.Fprintf(out, "CPUs:      %d\n", info.CPUs)
	return nil
}
