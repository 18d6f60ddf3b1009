package commands

import (
	"fmt"
	"runtime"

	"github.com/fivetwenty-io/servicetitan-client/internal/constants"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// VersionInfo describes the CLI build.
type VersionInfo struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit"  yaml:"commit"`
	Built   string `json:"built"   yaml:"built"`
	Library string `json:"library" yaml:"library"`
	Go      string `json:"go"      yaml:"go"`
}

// NewVersionCommand creates the version command
func NewVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Long:  "Display detailed version information about the ServiceTitan CLI",
		RunE: func(cmd *cobra.Command, args []string) error {
			versionInfo := VersionInfo{
				Version: version,
				Commit:  commit,
				Built:   date,
				Library: constants.Version,
				Go:      runtime.Version(),
			}

			format, err := outputFormat()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			switch format {
			case constants.FormatJSON:
				return writeJSON(out, versionInfo)
			case constants.FormatYAML:
				return writeYAML(out, versionInfo)
			default:
				table := tablewriter.NewWriter(out)
				table.Header("Property", "Value")
				_ = table.Append("Version", version)
				_ = table.Append("Commit", commit)
				_ = table.Append("Built", date)
				_ = table.Append("Library", constants.Version)
				_ = table.Append("Go", runtime.Version())

				err := table.Render()
				if err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}
			}

			return nil
		},
	}
}
