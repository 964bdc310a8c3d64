package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const exampleRulesYAML = `# Copy to a .yaml file in this directory to add or override a category.
# A category with the same name as a built-in one replaces it.
#
# category: build-tools
# description: Build systems
# tools:
#   - name: make
#     essential: false
#     minimum_version: "4.0"
#     strategies:
#       - method: command
#         platforms: [linux, macos]
#         command: make --version
#         env:
#           LC_ALL: C
#       - method: path
#         platform: windows
#         command: make
`

const exampleRulesFile = "custom.yaml.example"

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the devprobe home with a default config and rules directory",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, _ []string) error {
	st, err := loadSettings()
	if err != nil {
		return err
	}
	if err := st.paths.EnsureDirs(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	created, err := ensureConfigFileExists(st.configFile)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(out, "wrote %s\n", st.configFile)
	} else {
		fmt.Fprintf(out, "kept existing %s\n", st.configFile)
	}

	rulesDir := st.rulesDir()
	if err := os.MkdirAll(rulesDir, 0o755); err != nil {
		return fmt.Errorf("ensure rules dir: %w", err)
	}
	example := filepath.Join(rulesDir, exampleRulesFile)
	if _, err := os.Stat(example); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(example, []byte(exampleRulesYAML), 0o644); err != nil {
			return fmt.Errorf("write example rules: %w", err)
		}
		fmt.Fprintf(out, "wrote %s\n", example)
	}

	fmt.Fprintf(out, "devprobe home ready at %s\n", st.paths.Root)
	return nil
}
