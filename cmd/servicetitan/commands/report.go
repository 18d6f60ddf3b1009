package commands

import (
	"fmt"
	"time"

	"github.com/fivetwenty-io/servicetitan-client/internal/constants"
	"github.com/fivetwenty-io/servicetitan-client/pkg/servicetitan"
	"github.com/spf13/cobra"
)

// NewReportCommand creates the report command group.
func NewReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Browse and run reports",
	}

	cmd.AddCommand(newReportCategoriesCommand())
	cmd.AddCommand(newReportListCommand())
	cmd.AddCommand(newReportParamsCommand())
	cmd.AddCommand(newReportDataCommand())

	return cmd
}

func newReportCategoriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List report categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}

			client, err := clientFactory(cmd.Context())
			if err != nil {
				return err
			}

			categories, err := client.Reports().Categories(cmd.Context())
			if err != nil {
				return err
			}

			return renderRecords(cmd.OutOrStdout(), format, categories, "id", "name")
		},
	}
}

func newReportListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list CATEGORY",
		Short: "List the reports of a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}

			client, err := clientFactory(cmd.Context())
			if err != nil {
				return err
			}

			reports, err := client.Reports().List(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return renderRecords(cmd.OutOrStdout(), format, reports, "id", "name", "description")
		},
	}
}

func newReportParamsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "params CATEGORY REPORT_ID",
		Short: "Show the parameters a report accepts",
		Long: `Show the parameters a report accepts.

Required parameters are marked [*]. Parameters backed by a dynamic value set
name the set id; run "servicetitan dynamic-set ID" to list its values.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}

			client, err := clientFactory(cmd.Context())
			if err != nil {
				return err
			}

			report, err := client.OpenReport(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			switch format {
			case constants.FormatJSON:
				return writeJSON(cmd.OutOrStdout(), report.Metadata().Parameters)
			case constants.FormatYAML:
				return writeYAML(cmd.OutOrStdout(), report.Metadata().Parameters)
			}

			for _, line := range report.ShowParamTypes() {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
			}

			return nil
		},
	}
}

func newReportDataCommand() *cobra.Command {
	var (
		params   []string
		pageSize int
		budget   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "data CATEGORY REPORT_ID",
		Short: "Fetch all rows of a report",
		Long: `Fetch all rows of a report.

Parameters are given as name=value; values that parse as JSON (numbers,
booleans, arrays) are sent as such. Reports estimated to take longer than
--budget are refused before any further pages are requested.`,
		Example: `  servicetitan report data operations 42 --param From=2024-01-01 --param To=2024-01-31 --param 'BusinessUnitIds=[1,2]'`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}

			pairs, err := parseKeyValues(params)
			if err != nil {
				return err
			}

			client, err := clientFactory(cmd.Context())
			if err != nil {
				return err
			}

			report, err := client.OpenReport(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			for _, pair := range pairs {
				report.AddParam(pair[0], paramValue(pair[1]))
			}

			result, err := report.GetAllData(cmd.Context(), servicetitan.ReportDataOptions{
				PageSize: pageSize,
				Budget:   budget,
			})
			if err != nil {
				return err
			}

			if result.Aborted() {
				return fmt.Errorf("%w: %s", constants.ErrReportAborted, result.Error)
			}

			return renderReport(cmd, format, result)
		},
	}

	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "report parameter as name=value (repeatable)")
	cmd.Flags().IntVar(&pageSize, "page-size", constants.ReportMaxPageSize, "rows per request")
	cmd.Flags().DurationVar(&budget, "budget", constants.ReportDefaultBudget, "longest acceptable fetch")

	return cmd
}

// renderReport turns positional rows into records keyed by field name.
func renderReport(cmd *cobra.Command, format string, result *servicetitan.ReportResult) error {
	if format == constants.FormatJSON {
		return writeJSON(cmd.OutOrStdout(), result)
	}

	if format == constants.FormatYAML {
		return writeYAML(cmd.OutOrStdout(), result)
	}

	columns := make([]string, len(result.Fields))
	for i, field := range result.Fields {
		columns[i] = field.Name
	}

	records := make([]servicetitan.Record, 0, len(result.Data))

	for _, row := range result.Data {
		values, ok := row.([]interface{})
		if !ok {
			continue
		}

		record := servicetitan.Record{}
		for i, value := range values {
			if i < len(columns) {
				record[columns[i]] = value
			}
		}

		records = append(records, record)
	}

	cmd.PrintErrf("%d rows\n", len(records))

	return renderRecords(cmd.OutOrStdout(), format, records, columns...)
}
