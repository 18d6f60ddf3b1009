package commands

import (
	"fmt"

	"github.com/fivetwenty-io/servicetitan-client/internal/constants"
	"github.com/spf13/cobra"
)

// jobColumns are the columns of the jobs table and csv output.
var jobColumns = []string{
	"id", "jobNumber", "jobStatus", "customerId", "locationId",
	"businessUnitId", "jobTypeId", "total", "completedOn",
}

// NewJobsCommand creates the jobs command.
func NewJobsCommand() *cobra.Command {
	var statuses []string

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List jobs completed in a date range",
		Long: `List jobs completed between --start-date and --end-date.

Dates are read in the credential timezone. Each --job-status is fetched
separately and the results are combined; the default statuses are
Completed, Scheduled, InProgress and Dispatched.`,
		Example: `  servicetitan jobs --start-date 2024-01-01 --end-date 2024-02-01 -o csv > jobs.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseDateFlag(cmd, "start-date")
			if err != nil {
				return err
			}

			end, err := parseDateFlag(cmd, "end-date")
			if err != nil {
				return err
			}

			if !start.Before(end) {
				return fmt.Errorf("%w: %s >= %s", constants.ErrInvalidDateRange, start.Format("2006-01-02"), end.Format("2006-01-02"))
			}

			format, err := outputFormat()
			if err != nil {
				return err
			}

			client, err := clientFactory(cmd.Context())
			if err != nil {
				return err
			}

			jobs, err := client.Data().JobsCompletedBetween(cmd.Context(), start, end, statuses...)
			if err != nil {
				return err
			}

			cmd.PrintErrf("%d jobs\n", len(jobs))

			return renderRecords(cmd.OutOrStdout(), format, jobs, jobColumns...)
		},
	}

	cmd.Flags().String("start-date", "", "first day (inclusive)")
	cmd.Flags().String("end-date", "", "last day (exclusive)")
	cmd.Flags().StringSliceVar(&statuses, "job-status", nil, "job status filter (repeatable)")

	_ = cmd.MarkFlagRequired("start-date")
	_ = cmd.MarkFlagRequired("end-date")

	return cmd
}
