package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pkgextractVersion string

func version() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "version of pkgextract",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("pkgextract %s\n", pkgextractVersion)
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(version())
}
