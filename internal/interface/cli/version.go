package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/devtask/internal/buildinfo"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the devtask version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(buildinfo.GetVersion())
		},
	}
}
