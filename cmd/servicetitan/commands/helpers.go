package commands

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fivetwenty-io/servicetitan-client/internal/constants"
	sthttp "github.com/fivetwenty-io/servicetitan-client/internal/http"
	"github.com/fivetwenty-io/servicetitan-client/pkg/servicetitan"
	"github.com/fivetwenty-io/servicetitan-client/pkg/stclient"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

const (
	defaultJSONIndent = 2

	// maxCellWidth truncates nested values in table output.
	maxCellWidth = 60
)

// clientFactory builds the API client for a command. Tests replace it.
var clientFactory = newClient

// newLogger builds the CLI's zap logger. Verbose selects a development
// logger; debug lowers the level to debug.
func newLogger() (*zap.Logger, error) {
	var config zap.Config

	if viper.GetBool("verbose") || viper.GetBool("debug") {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
		config.Encoding = "console"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}

	if viper.GetBool("debug") {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	config.OutputPaths = []string{"stderr"}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	return logger, nil
}

// newClient resolves credentials from the global flags and the environment.
func newClient(ctx context.Context) (servicetitan.Client, error) {
	zapLogger, err := newLogger()
	if err != nil {
		return nil, err
	}

	logger := servicetitan.NewZapLogger(zapLogger)

	var sleeper servicetitan.Sleeper = sthttp.NewCountdownSleeper(logger)
	if term.IsTerminal(int(os.Stderr.Fd())) {
		sleeper = &terminalSleeper{out: os.Stderr}
	}

	return stclient.Connect(ctx, servicetitan.ResolveOptions{
		ConfigFile:  viper.GetString("config"),
		Environment: viper.GetString("environment"),
	},
		stclient.WithLogger(logger),
		stclient.WithDebug(viper.GetBool("debug")),
		stclient.WithSleeper(sleeper),
		stclient.WithCache(servicetitan.NewMemoryCache(constants.DefaultCacheSize), 0),
	)
}

// terminalSleeper rewrites a countdown line on an interactive terminal.
type terminalSleeper struct {
	out io.Writer
}

func (s *terminalSleeper) Sleep(ctx context.Context, d time.Duration) error {
	deadline := time.Now().Add(d)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	defer fmt.Fprint(s.out, "\r\033[K")

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}

		fmt.Fprintf(s.out, "\rRate limited, retrying in %ds", int(remaining.Round(time.Second).Seconds()))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// outputFormat returns the validated --output value.
func outputFormat() (string, error) {
	format := strings.ToLower(viper.GetString("output"))
	if format == "" {
		format = constants.FormatTable
	}

	switch format {
	case constants.FormatTable, constants.FormatJSON, constants.FormatYAML, constants.FormatCSV:
		return format, nil
	default:
		return "", fmt.Errorf("%w: %s", constants.ErrUnsupportedOutput, format)
	}
}

func writeJSON(out io.Writer, value interface{}) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", strings.Repeat(" ", defaultJSONIndent))

	return encoder.Encode(value)
}

func writeYAML(out io.Writer, value interface{}) error {
	encoder := yaml.NewEncoder(out)
	encoder.SetIndent(defaultJSONIndent)

	err := encoder.Encode(value)
	if err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}

	return encoder.Close()
}

// renderRecords writes records in format. Columns default to the sorted
// union of the records' keys.
func renderRecords(out io.Writer, format string, records []servicetitan.Record, columns ...string) error {
	switch format {
	case constants.FormatJSON:
		return writeJSON(out, records)
	case constants.FormatYAML:
		return writeYAML(out, records)
	}

	if len(columns) == 0 {
		columns = recordColumns(records)
	}

	rows := make([][]string, 0, len(records))
	for _, record := range records {
		row := make([]string, len(columns))
		for i, column := range columns {
			row[i] = cellValue(record[column], format == constants.FormatTable)
		}

		rows = append(rows, row)
	}

	if format == constants.FormatCSV {
		return writeCSV(out, columns, rows)
	}

	return writeTable(out, columns, rows)
}

func writeCSV(out io.Writer, header []string, rows [][]string) error {
	writer := csv.NewWriter(out)

	err := writer.Write(header)
	if err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	err = writer.WriteAll(rows)
	if err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}

	return nil
}

func writeTable(out io.Writer, header []string, rows [][]string) error {
	table := tablewriter.NewWriter(out)

	headerArgs := make([]interface{}, len(header))
	for i, column := range header {
		headerArgs[i] = column
	}

	table.Header(headerArgs...)

	for _, row := range rows {
		values := make([]interface{}, len(row))
		for i, value := range row {
			values[i] = value
		}

		_ = table.Append(values...)
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func recordColumns(records []servicetitan.Record) []string {
	seen := map[string]bool{}

	var columns []string

	for _, record := range records {
		for key := range record {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}

	sort.Strings(columns)

	// id first when present
	for i, column := range columns {
		if column == "id" {
			columns = append([]string{"id"}, append(columns[:i:i], columns[i+1:]...)...)

			break
		}
	}

	return columns
}

// cellValue renders scalars as text and nested values as compact JSON.
func cellValue(value interface{}, truncate bool) string {
	var text string

	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		text = typed
	case float64, bool, int, int64, json.Number:
		text = fmt.Sprint(typed)
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			text = fmt.Sprint(typed)
		} else {
			text = string(encoded)
		}
	}

	if truncate && len(text) > maxCellWidth {
		return text[:maxCellWidth-3] + "..."
	}

	return text
}

// parseKeyValues splits name=value pairs, keeping their order.
func parseKeyValues(pairs []string) ([][2]string, error) {
	parsed := make([][2]string, 0, len(pairs))

	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: %q", constants.ErrInvalidKeyValue, pair)
		}

		parsed = append(parsed, [2]string{strings.TrimSpace(name), value})
	}

	return parsed, nil
}

// paramValue decodes JSON literals (numbers, booleans, arrays) and keeps
// anything else as a string.
func paramValue(raw string) interface{} {
	var decoded interface{}

	err := json.Unmarshal([]byte(raw), &decoded)
	if err != nil {
		return raw
	}

	if _, isObject := decoded.(map[string]interface{}); isObject {
		return raw
	}

	return decoded
}

// parseDateFlag reads a date flag in the credential timezone's wall clock.
func parseDateFlag(cmd *cobra.Command, name string) (time.Time, error) {
	value, _ := cmd.Flags().GetString(name)

	parsed, err := servicetitan.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}

	return parsed, nil
}
