package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/warden-dev/warden/internal/config"
	"github.com/warden-dev/warden/templates"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold a .warden directory with starter configuration",
	Long: `Init creates .warden/ in the project directory with a starter
config.toml, a spec.md to fill in, and the default phase prompts.
It refuses to overwrite an existing configuration.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := filepath.Abs(projectDir())
	if err != nil {
		return err
	}
	stateDir := filepath.Join(dir, config.DirName)
	configPath := filepath.Join(stateDir, config.FileName)

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config already exists: %s (remove it first to reinitialize)", configPath)
	}

	var created []string
	err = fs.WalkDir(templates.FS, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		dest := filepath.Join(stateDir, filepath.FromSlash(path))
		if d.IsDir() {
			return os.MkdirAll(dest, 0755)
		}
		data, err := fs.ReadFile(templates.FS, path)
		if err != nil {
			return err
		}
		if err := os.WriteFile(dest, data, 0644); err != nil {
			return err
		}
		created = append(created, path)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scaffold %s: %w", stateDir, err)
	}

	fmt.Printf("Created %s/\n", stateDir)
	for _, path := range created {
		fmt.Printf("  - %s\n", path)
	}
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Printf("  1. Describe your project in %s\n", filepath.Join(stateDir, "spec.md"))
	fmt.Printf("  2. Adjust %s (phases, tracking, allowed commands)\n", configPath)
	fmt.Printf("  3. warden verify --project-dir %s\n", dir)
	fmt.Printf("  4. warden run --project-dir %s\n", dir)
	return nil
}
