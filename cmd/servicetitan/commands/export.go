package commands

import (
	"github.com/fivetwenty-io/servicetitan-client/internal/constants"
	"github.com/fivetwenty-io/servicetitan-client/pkg/servicetitan"
	"github.com/spf13/cobra"
)

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	var (
		folder        string
		name          string
		from          string
		recentChanges bool
		all           bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Read an export feed",
		Long: `Read an export feed such as crm customers or jpm jobs.

A single batch is printed by default; --all follows continueFrom until the
feed is exhausted. Pass a previous continueFrom value with --from to resume.`,
		Example: `  servicetitan export --folder crm --name customers --all -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if folder == "" {
				return constants.ErrFolderRequired
			}

			if name == "" {
				return constants.ErrExportNameRequired
			}

			format, err := outputFormat()
			if err != nil {
				return err
			}

			client, err := clientFactory(cmd.Context())
			if err != nil {
				return err
			}

			resource := client.Endpoint(folder, name)
			opts := servicetitan.ExportOptions{From: from, IncludeRecentChanges: recentChanges}

			if all {
				records, err := resource.ExportAll(cmd.Context(), name, opts)
				if err != nil {
					return err
				}

				return renderRecords(cmd.OutOrStdout(), format, records)
			}

			page, err := resource.ExportOne(cmd.Context(), name, opts)
			if err != nil {
				return err
			}

			switch format {
			case constants.FormatJSON:
				return writeJSON(cmd.OutOrStdout(), page)
			case constants.FormatYAML:
				return writeYAML(cmd.OutOrStdout(), page)
			default:
				err = renderRecords(cmd.OutOrStdout(), format, page.Data)
				if err != nil {
					return err
				}

				cmd.PrintErrf("hasMore=%t continueFrom=%s\n", page.HasMore, page.ContinueFrom)

				return nil
			}
		},
	}

	cmd.Flags().StringVarP(&folder, "folder", "f", "", "API folder (crm, jpm, ...)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "export name (customers, jobs, ...)")
	cmd.Flags().StringVar(&from, "from", "", "continuation token or start timestamp")
	cmd.Flags().BoolVar(&recentChanges, "include-recent-changes", false, "include changes from the last few minutes")
	cmd.Flags().BoolVar(&all, "all", false, "follow continueFrom to the end")

	return cmd
}
