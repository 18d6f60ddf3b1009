package commands

import (
	"github.com/fivetwenty-io/servicetitan-client/internal/constants"
	"github.com/fivetwenty-io/servicetitan-client/pkg/servicetitan"
	"github.com/spf13/cobra"
)

// EndpointInfo describes a commonly used resource.
type EndpointInfo struct {
	Area        string `json:"area"        yaml:"area"`
	Folder      string `json:"folder"      yaml:"folder"`
	Endpoint    string `json:"endpoint"    yaml:"endpoint"`
	Description string `json:"description" yaml:"description"`
}

// CommonEndpoints is the catalog printed by list-endpoints.
var CommonEndpoints = []EndpointInfo{
	{"Job Planning & Management", "jpm", "jobs", "Job records and details"},
	{"Job Planning & Management", "jpm", "appointments", "Scheduled appointments"},
	{"Job Planning & Management", "jpm", "job-types", "Job type configurations"},
	{"Sales", "sales", "estimates", "Sales estimates"},
	{"CRM", "crm", "customers", "Customer information"},
	{"CRM", "crm", "locations", "Service locations"},
	{"Inventory", "inventory", "purchase-orders", "Purchase order records"},
	{"Pricebook", "pricebook", "materials", "Pricebook materials"},
	{"Settings", "settings", "employees", "Employee records"},
	{"Settings", "settings", "technicians", "Technician information"},
	{"Settings", "settings", "business-units", "Business unit configurations"},
	{"Settings", "settings", "tag-types", "Tag types"},
	{"Forms", "forms", "jobs/attachment", "Job attachments (downloadable)"},
	{"Reporting", "reporting", "report-categories", "Report categories"},
}

// NewListEndpointsCommand creates the list-endpoints command.
func NewListEndpointsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list-endpoints",
		Short: "List common ServiceTitan API endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}

			switch format {
			case constants.FormatJSON:
				return writeJSON(cmd.OutOrStdout(), CommonEndpoints)
			case constants.FormatYAML:
				return writeYAML(cmd.OutOrStdout(), CommonEndpoints)
			}

			records := make([]servicetitan.Record, 0, len(CommonEndpoints))
			for _, info := range CommonEndpoints {
				records = append(records, servicetitan.Record{
					"area":        info.Area,
					"folder":      info.Folder,
					"endpoint":    info.Endpoint,
					"description": info.Description,
				})
			}

			return renderRecords(cmd.OutOrStdout(), format, records, "area", "folder", "endpoint", "description")
		},
	}
}
