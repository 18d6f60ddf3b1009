package constants

import "errors"

// CLI input errors.
var (
	ErrInvalidKeyValue     = errors.New("expected name=value")
	ErrUnsupportedOutput   = errors.New("unsupported output format")
	ErrInvalidDateRange    = errors.New("start date must be before end date")
	ErrFolderRequired      = errors.New("--folder is required")
	ErrEndpointRequired    = errors.New("--endpoint is required")
	ErrExportNameRequired  = errors.New("--name is required")
	ErrInteractiveNeedsTTY = errors.New("interactive mode needs a terminal")
)

// Report command errors.
var (
	ErrReportAborted = errors.New("report aborted")
)
