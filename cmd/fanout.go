package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"Barista/Models"
)

var fanoutCmd = &cobra.Command{
	Use:   "fanout",
	Short: "Materialize task results once and exit",
	Long: `Materialize the task results of one day for every coffeeshop and exit.
Meant for external schedulers. Running it twice for the same day creates
nothing new and leaves existing results untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadServices(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		day := time.Now()
		if date, _ := cmd.Flags().GetString("date"); date != "" {
			if day, err = Models.ParseDate(date, s.materializer.Location()); err != nil {
				return err
			}
		}
		report := s.materializer.RunFor(cmd.Context(), day)

		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))

		if report.Error != "" {
			return fmt.Errorf("fan-out aborted: %s", report.Error)
		}
		if failed := report.Failed(); len(failed) > 0 {
			return fmt.Errorf("fan-out failed for coffeeshops: %s", strings.Join(failed, ", "))
		}
		return nil
	},
}

func init() {
	fanoutCmd.Flags().String("date", "", "day to materialize (YYYY-MM-DD), default today in FANOUT_TIMEZONE")
}
