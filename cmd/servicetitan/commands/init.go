package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fivetwenty-io/servicetitan-client/internal/constants"
	"github.com/fivetwenty-io/servicetitan-client/pkg/servicetitan"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// secretReader reads the client secret without echo. Tests replace it.
var secretReader = func() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", constants.ErrInteractiveNeedsTTY
	}

	secret, err := term.ReadPassword(fd)
	if err != nil {
		return "", fmt.Errorf("reading client secret: %w", err)
	}

	return string(secret), nil
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var (
		path        string
		interactive bool
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a credential file",
		Long: `Write a ServiceTitan credential file.

Without --interactive a blank template is written for you to fill in. With
--interactive each value is prompted for and the client secret is read
without echo.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !interactive {
				if force {
					err := servicetitan.WriteCredentialFile(path, servicetitan.CredentialTemplate(), true)
					if err != nil {
						return err
					}
				} else {
					err := servicetitan.WriteCredentialTemplate(path)
					if err != nil {
						return err
					}
				}

				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote credential template to %s\n", path)

				return nil
			}

			file, err := promptCredentials(cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}

			err = servicetitan.WriteCredentialFile(path, file, force)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote credentials to %s\n", path)

			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", constants.DefaultConfigFileName, "file to write")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "prompt for each value")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	return cmd
}

func promptCredentials(in io.Reader, out io.Writer) (servicetitan.CredentialFile, error) {
	reader := bufio.NewReader(in)
	file := servicetitan.CredentialTemplate()

	prompts := []struct {
		label string
		dst   *string
	}{
		{"App ID", &file.AppID},
		{"App key", &file.AppKey},
		{"Client ID", &file.ClientID},
		{"Tenant ID", &file.TenantID},
	}

	for _, prompt := range prompts {
		value, err := promptLine(reader, out, prompt.label, *prompt.dst)
		if err != nil {
			return file, err
		}

		*prompt.dst = value
	}

	_, _ = fmt.Fprint(out, "Client secret: ")

	secret, err := secretReader()
	if err != nil {
		return file, err
	}

	_, _ = fmt.Fprintln(out)
	file.ClientSecret = strings.TrimSpace(secret)

	file.Timezone, err = promptLine(reader, out, "Timezone", file.Timezone)
	if err != nil {
		return file, err
	}

	file.Environment, err = promptLine(reader, out, "Environment (production/integration)", file.Environment)
	if err != nil {
		return file, err
	}

	_, err = servicetitan.ParseEnvironment(file.Environment)
	if err != nil {
		return file, err
	}

	_, err = servicetitan.LoadTimezone(file.Timezone)
	if err != nil {
		return file, err
	}

	return file, nil
}

func promptLine(reader *bufio.Reader, out io.Writer, label, fallback string) (string, error) {
	if fallback != "" {
		_, _ = fmt.Fprintf(out, "%s [%s]: ", label, fallback)
	} else {
		_, _ = fmt.Fprintf(out, "%s: ", label)
	}

	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading %s: %w", label, err)
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return fallback, nil
	}

	return line, nil
}
