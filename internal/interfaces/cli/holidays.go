package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/caseworks/appeal-engine/internal/domain/calendar"
)

func newHolidaysCommand() *cobra.Command {
	var jurisdiction string

	cmd := &cobra.Command{
		Use:   "holidays",
		Short: "List the holiday set the business calendar will use",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := getCLIContext(cmd)
			if err != nil {
				return err
			}
			if jurisdiction == "" {
				jurisdiction = cliCtx.Config.Calendar.Jurisdiction
			}

			src := holidaySource(cliCtx.Config.Calendar)
			holidays, err := src.Holidays(cmd.Context(), calendar.Jurisdiction(jurisdiction))
			if err != nil {
				return err
			}

			sort.Slice(holidays, func(i, j int) bool { return holidays[i].Before(holidays[j]) })
			if cliCtx.JSONOutput {
				dates := make([]string, 0, len(holidays))
				for _, h := range holidays {
					dates = append(dates, h.Format(dateLayout))
				}
				return printResult(cmd, cliCtx, dates)
			}
			for _, h := range holidays {
				fmt.Fprintln(cmd.OutOrStdout(), h.Format(dateLayout))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&jurisdiction, "jurisdiction", "", "holiday division (defaults to configured jurisdiction)")
	return cmd
}
