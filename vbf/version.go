package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Build-time variables for version info
var (
	// Release is the current release version
	Release = "dev"
	// GitCommit is the git commit hash
	GitCommit = "none"
)

//nolint:gochecknoglobals // Cobra commands are typically global
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Prints the version of vbf.",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("Version: %s\nCommit: %s\nOS/Arch: %s/%s\n",
			Release, GitCommit, runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
