// Package cmd implements the warden CLI.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "Autonomous agent harness with command safety",
	Long: `Warden drives a coding agent through repeated fresh sessions until a
project's feature checklist passes, while validating every shell command
the agent runs against a configurable allowlist.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initEnv)

	rootCmd.PersistentFlags().StringP("project-dir", "d", ".", "project directory the agent works in")
	_ = viper.BindPFlag("project_dir", rootCmd.PersistentFlags().Lookup("project-dir"))
}

func initEnv() {
	viper.AutomaticEnv()
	viper.SetEnvPrefix("WARDEN")
	// WARDEN_PROJECT_DIR for project_dir, and so on for nested keys.
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
}

// projectDir resolves the project directory from flags and environment.
func projectDir() string {
	dir := viper.GetString("project_dir")
	if dir == "" {
		dir = "."
	}
	return dir
}
