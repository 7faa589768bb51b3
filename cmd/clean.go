package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dget-io/dget/internal/output"
	"github.com/dget-io/dget/internal/utils"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [OUTPUT_PATH]",
		Short: "Remove the part file left behind by an aborted download",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := utils.Clean(args[0]); err != nil {
				output.PrintError("Error cleaning up part file")
				return
			}
			output.PrintSuccess("Part file cleaned up")
		},
	}
}
