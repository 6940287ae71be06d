package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/devtask/internal/infra/snapshot"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks and their phases",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := snapshot.NewStore(afero.NewOsFs(), globalPaths.Snapshots)
			summaries, err := store.ListTasks()
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Println("no tasks")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TASK ID\tPHASE\tSTATUS\tUPDATED")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					s.TaskID, s.Phase, s.Status, s.UpdatedAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}
	return cmd
}
