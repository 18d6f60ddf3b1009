//go:build integration

package integration

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/fivetwenty-io/servicetitan-client/pkg/servicetitan"
	"github.com/fivetwenty-io/servicetitan-client/pkg/stclient"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// TestConfig holds configuration for integration tests
type TestConfig struct {
	ConfigFile string
	BinaryPath string
	Verbose    bool
}

// LoadTestConfig loads configuration from environment variables
func LoadTestConfig() *TestConfig {
	return &TestConfig{
		ConfigFile: os.Getenv("SERVICETITAN_CONFIG_FILE"),
		BinaryPath: getBinaryPath(),
		Verbose:    os.Getenv("SERVICETITAN_VERBOSE") == "true",
	}
}

// getBinaryPath determines the path to the servicetitan binary
func getBinaryPath() string {
	if path := os.Getenv("SERVICETITAN_BINARY_PATH"); path != "" {
		return path
	}

	for _, candidate := range []string{"../../servicetitan", "./servicetitan", "../servicetitan"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "servicetitan"
}

// SkipIfMissingConfig skips the test unless an integration tenant is configured.
func (config *TestConfig) SkipIfMissingConfig(t *testing.T) {
	t.Helper()

	if config.ConfigFile == "" && os.Getenv("SERVICETITAN_CLIENT_ID") == "" {
		t.Skip("SERVICETITAN_CONFIG_FILE or SERVICETITAN_CLIENT_ID not set, skipping integration test")
	}
}

// SkipIfMissingBinary skips CLI tests when the binary has not been built.
func (config *TestConfig) SkipIfMissingBinary(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath(config.BinaryPath); err != nil {
		t.Skipf("servicetitan binary not found at %s, skipping integration test", config.BinaryPath)
	}
}

// NewClient connects to the configured integration tenant.
func (config *TestConfig) NewClient(t *testing.T) servicetitan.Client {
	t.Helper()

	client, err := stclient.Connect(context.Background(), servicetitan.ResolveOptions{
		ConfigFile:  config.ConfigFile,
		Environment: string(servicetitan.EnvironmentIntegration),
	},
		stclient.WithLogger(servicetitan.NewZapLogger(zaptest.NewLogger(t))),
		stclient.WithDebug(config.Verbose),
		stclient.WithRateLimitRetryMax(3),
	)
	require.NoError(t, err)

	return client
}

// CommandRunner provides utilities for running servicetitan commands
type CommandRunner struct {
	config *TestConfig
	t      *testing.T
}

// NewCommandRunner creates a new command runner
func NewCommandRunner(config *TestConfig, t *testing.T) *CommandRunner {
	return &CommandRunner{config: config, t: t}
}

// Run executes a servicetitan command and returns output
func (runner *CommandRunner) Run(args ...string) (string, string, error) {
	if runner.config.ConfigFile != "" {
		args = append([]string{"--config", runner.config.ConfigFile}, args...)
	}

	args = append(args, "--environment", string(servicetitan.EnvironmentIntegration))

	cmd := exec.Command(runner.config.BinaryPath, args...)

	var stdoutBuf, stderrBuf bytes.Buffer

	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	if runner.config.Verbose {
		runner.t.Logf("Running: %s %s", runner.config.BinaryPath, strings.Join(args, " "))
	}

	err := cmd.Run()
	if runner.config.Verbose && err != nil {
		runner.t.Logf("Command failed: %v\nStdout: %s\nStderr: %s", err, stdoutBuf.String(), stderrBuf.String())
	}

	return stdoutBuf.String(), stderrBuf.String(), err
}
