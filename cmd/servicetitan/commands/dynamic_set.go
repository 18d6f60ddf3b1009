package commands

import (
	"github.com/fivetwenty-io/servicetitan-client/pkg/servicetitan"
	"github.com/spf13/cobra"
)

// NewDynamicSetCommand creates the dynamic-set command.
func NewDynamicSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dynamic-set ID",
		Short: "List the values of a report dynamic value set",
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

			set, err := client.Reports().DynamicSet(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return renderReport(cmd, format, &servicetitan.ReportResult{Fields: set.Fields, Data: set.Data})
		},
	}
}
