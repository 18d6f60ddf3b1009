package commands

import (
	"github.com/fivetwenty-io/servicetitan-client/internal/constants"
	"github.com/fivetwenty-io/servicetitan-client/pkg/servicetitan"
	"github.com/spf13/cobra"
)

// NewGetCommand creates the get command.
func NewGetCommand() *cobra.Command {
	var (
		folder   string
		endpoint string
		id       string
		modifier string
		limit    int
		all      bool
		filters  []string
	)

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Fetch records from an endpoint",
		Example: `  servicetitan get --folder jpm --endpoint jobs --limit 10
  servicetitan get --folder crm --endpoint customers --id 123
  servicetitan get --folder jpm --endpoint jobs --id 123 --modifier notes --all
  servicetitan get --folder settings --endpoint technicians --query active=Any -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if folder == "" {
				return constants.ErrFolderRequired
			}

			if endpoint == "" {
				return constants.ErrEndpointRequired
			}

			format, err := outputFormat()
			if err != nil {
				return err
			}

			pairs, err := parseKeyValues(filters)
			if err != nil {
				return err
			}

			query := servicetitan.NewQuery()
			for _, pair := range pairs {
				query = query.With(pair[0], pair[1])
			}

			client, err := clientFactory(cmd.Context())
			if err != nil {
				return err
			}

			resource := client.Endpoint(folder, endpoint)

			var records []servicetitan.Record

			switch {
			case all:
				records, err = resource.GetAll(cmd.Context(), query, id, modifier)
			case id != "" && modifier == "":
				var record servicetitan.Record

				record, err = resource.GetOne(cmd.Context(), id, "", query)
				records = []servicetitan.Record{record}
			default:
				if limit > 0 {
					query = query.WithPageSize(limit)
				}

				var page *servicetitan.Page

				page, err = resource.GetMany(cmd.Context(), query, id, modifier)
				if page != nil {
					records = page.Data
				}
			}

			if err != nil {
				return err
			}

			if limit > 0 && len(records) > limit {
				records = records[:limit]
			}

			return renderRecords(cmd.OutOrStdout(), format, records)
		},
	}

	cmd.Flags().StringVarP(&folder, "folder", "f", "", "API folder (jpm, crm, settings, ...)")
	cmd.Flags().StringVarP(&endpoint, "endpoint", "E", "", "resource below the tenant (jobs, customers, ...)")
	cmd.Flags().StringVar(&id, "id", "", "record id")
	cmd.Flags().StringVarP(&modifier, "modifier", "m", "", "sub-resource after the id (notes, ...)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "maximum number of records")
	cmd.Flags().BoolVar(&all, "all", false, "follow pagination to the last page")
	cmd.Flags().StringArrayVarP(&filters, "query", "q", nil, "query filter as name=value (repeatable)")

	return cmd
}
