package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewTestConnectionCommand creates the test-connection command.
func NewTestConnectionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "test-connection",
		Short: "Verify credentials by requesting an access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := clientFactory(cmd.Context())
			if err != nil {
				return err
			}

			_, err = client.BearerToken(cmd.Context())
			if err != nil {
				return fmt.Errorf("connection failed: %w", err)
			}

			creds := client.Credentials()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Connected to %s as client %s (tenant %s)\n",
				creds.Environment, creds.ClientID, creds.TenantID)

			return nil
		},
	}
}
