package commands

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "pkgextract",
	Short:         "Inventory the packages installed in a container image filesystem",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command selected by the process arguments.
func Execute() error {
	return rootCmd.Execute()
}
