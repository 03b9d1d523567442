package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is stamped by the build; "dev" otherwise.
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the cortexdb version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "cortexdb", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
