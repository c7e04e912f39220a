package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/warden-dev/warden/internal/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that the environment is ready to run",
	Long: `Verify runs every setup check and reports PASS, WARN, or FAIL for each:
agent CLI availability, credentials, project directory, configuration,
progress tracking, and the run lock. All checks run even when earlier
ones fail.`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	dir, err := filepath.Abs(projectDir())
	if err != nil {
		return err
	}

	fmt.Printf("Verifying setup for %s\n\n", dir)
	results := verify.Run(verify.Options{ProjectDir: dir})
	for _, r := range results {
		fmt.Println(r)
	}
	fmt.Println()

	if verify.Failed(results) {
		return fmt.Errorf("verification failed")
	}
	fmt.Println("Ready to run.")
	return nil
}
