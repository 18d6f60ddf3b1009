package main

import (
	"fmt"
	"os"

	"github.com/fivetwenty-io/servicetitan-client/cmd/servicetitan/commands"
	"github.com/fivetwenty-io/servicetitan-client/internal/constants"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "servicetitan",
	Short: "ServiceTitan API CLI",
	Long: `A command-line interface for the ServiceTitan REST API.

Credentials are read from a JSON config file (servicetitan init writes a
template) and from SERVICETITAN_* environment variables, including a .env
file in the working directory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "credential file (default is ./"+constants.DefaultConfigFileName+" when present)")
	rootCmd.PersistentFlags().StringP("environment", "e", "", "API environment (production, integration)")
	rootCmd.PersistentFlags().StringP("output", "o", constants.FormatTable, "output format (table, json, yaml, csv)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().Bool("debug", false, "log every HTTP request and response")

	// Bind flags to viper
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("environment", rootCmd.PersistentFlags().Lookup("environment"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("env-file", rootCmd.PersistentFlags().Lookup("env-file"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	// Add commands
	rootCmd.AddCommand(commands.NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(commands.NewTestConnectionCommand())
	rootCmd.AddCommand(commands.NewGetCommand())
	rootCmd.AddCommand(commands.NewExportCommand())
	rootCmd.AddCommand(commands.NewJobsCommand())
	rootCmd.AddCommand(commands.NewReportCommand())
	rootCmd.AddCommand(commands.NewDynamicSetCommand())
	rootCmd.AddCommand(commands.NewListEndpointsCommand())
}

func initConfig() {
	envFile := viper.GetString("env-file")
	if envFile != "" {
		_, err := os.Stat(envFile)
		if err == nil {
			err = godotenv.Load(envFile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to load %s: %v\n", envFile, err)
			}
		}
	}

	// Read in environment variables that match
	viper.SetEnvPrefix("SERVICETITAN")
	viper.AutomaticEnv()

	if viper.GetString("config") == "" {
		_, err := os.Stat(constants.DefaultConfigFileName)
		if err == nil {
			viper.Set("config", constants.DefaultConfigFileName)
		}
	}

	if viper.GetBool("verbose") && viper.GetString("config") != "" {
		fmt.Fprintln(os.Stderr, "Using credential file:", viper.GetString("config"))
	}
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
