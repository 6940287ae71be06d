package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/devtask/internal/app"
	"github.com/YoshitsuguKoike/devtask/internal/domain/task"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the status of the last task run",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.ReadStatus(globalPaths.Status)
			if err != nil {
				if jsonOutput {
					out := app.DevelopmentStatus{
						OK:    false,
						Error: fmt.Sprintf("read status: %v", err),
					}
					b, _ := json.Marshal(out)
					fmt.Println(string(b))
					os.Exit(1)
				}
				return fmt.Errorf("read status: %w", err)
			}

			if jsonOutput {
				b, err := json.Marshal(st)
				if err != nil {
					return err
				}
				fmt.Println(string(b))
				return nil
			}

			fmt.Printf("task:   %s\n", st.TaskID)
			fmt.Printf("phase:  %s\n", st.Phase)
			if p, ok := task.ParsePhase(st.Phase); ok && !p.IsTerminal() {
				fmt.Printf("step:   %d of %d\n", p.Ordinal(), task.PhaseFinalization.Ordinal())
			}
			fmt.Printf("status: %s\n", st.Status)
			if st.Error != "" {
				fmt.Printf("error:  %s\n", st.Error)
			}
			fmt.Printf("as of:  %s\n", st.TS)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status as JSON")
	return cmd
}
