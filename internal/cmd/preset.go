package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/warden-dev/warden/internal/preset"
)

var presetCmd = &cobra.Command{
	Use:   "preset [name]",
	Short: "Show starter policies for common project types",
	Long: `Preset prints a named security policy as a TOML fragment to paste
into .warden/config.toml. Without a name (or with --list) it lists the
available presets.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPreset,
}

var presetList bool

func init() {
	rootCmd.AddCommand(presetCmd)

	presetCmd.Flags().BoolVarP(&presetList, "list", "l", false, "list available presets")
}

func runPreset(cmd *cobra.Command, args []string) error {
	if presetList || len(args) == 0 {
		for _, p := range preset.List() {
			fmt.Printf("  %-12s %s\n", p.Name, p.Description)
		}
		return nil
	}

	p, ok := preset.Get(args[0])
	if !ok {
		return fmt.Errorf("unknown preset %q (available: %s)", args[0], strings.Join(preset.Names(), ", "))
	}
	fmt.Print(p.TOML())
	return nil
}
