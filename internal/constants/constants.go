package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for credential files.
	ConfigFilePerm = 0600

	// DownloadFilePerm is the permission for downloaded attachments.
	DownloadFilePerm = 0640
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for a single HTTP exchange.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for token requests.
	ShortHTTPTimeout = 10 * time.Second

	// DefaultUserAgent is sent when the caller sets none.
	DefaultUserAgent = "servicetitan-client-go/" + Version
)

// Version is the library version reported in the User-Agent.
const Version = "0.4.0"

// Retry limits.
const (
	// DefaultRetryMax is the default number of retries for 5xx and network failures.
	DefaultRetryMax = 3

	// DefaultRetryWaitMin is the backoff unit: retry n waits 2^n units plus up to one unit of jitter.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax caps a single backoff wait.
	DefaultRetryWaitMax = 30 * time.Second

	// DefaultRateLimitWait is used when a 429 carries no usable Retry-After.
	DefaultRateLimitWait = 30 * time.Second

	// ExponentialBackoffBase is the base for exponential backoff.
	ExponentialBackoffBase = 2

	// DefaultConcurrencyLimit limits concurrent fan-out requests.
	DefaultConcurrencyLimit = 3
)

// Token lifecycle.
const (
	// TokenExpirationBuffer is the minimum remaining validity of a token handed to callers.
	TokenExpirationBuffer = 60 * time.Second

	// DefaultTokenLifetime applies when the identity provider omits expires_in.
	DefaultTokenLifetime = 3600 * time.Second

	// TokenPath is the client-credentials endpoint below the auth root.
	TokenPath = "/connect/token"
)

// Pagination.
const (
	// FirstPage is the first page number of list endpoints.
	FirstPage = 1

	// DefaultPageSize is applied to list requests that do not set pageSize.
	DefaultPageSize = 100
)

// Reporting.
const (
	// ReportMaxPageSize is the largest page the reporting API serves.
	ReportMaxPageSize = 5000

	// ReportDefaultBudget is the default time budget for fetching a whole report.
	ReportDefaultBudget = 60 * time.Minute

	// ReportEstimatePerRequest is the assumed generation latency of one report page.
	ReportEstimatePerRequest = 5 * time.Minute

	// ReportEscalationRequestLimit is the request count below which page size escalation is allowed.
	ReportEscalationRequestLimit = 12

	// ReportFolder is the API folder of the reporting endpoints.
	ReportFolder = "reporting"
)

// API hosts.
const (
	ProductionAuthRoot  = "https://auth.servicetitan.io"
	ProductionAPIRoot   = "https://api.servicetitan.io"
	IntegrationAuthRoot = "https://auth-integration.servicetitan.io"
	IntegrationAPIRoot  = "https://api-integration.servicetitan.io"
)

// Credential keys, shared by the config file and the environment.
const (
	EnvAppKey         = "SERVICETITAN_APP_KEY"
	EnvTenantID       = "SERVICETITAN_TENANT_ID"
	EnvClientID       = "SERVICETITAN_CLIENT_ID"
	EnvClientSecret   = "SERVICETITAN_CLIENT_SECRET"
	EnvAppID          = "SERVICETITAN_APP_ID"
	EnvTimezone       = "SERVICETITAN_TIMEZONE"
	EnvAPIEnvironment = "SERVICETITAN_API_ENVIRONMENT"
)

// Defaults for credential resolution.
const (
	// DefaultTimezone is used when no timezone is configured.
	DefaultTimezone = "UTC"

	// DefaultConfigFileName is the credential template written by the CLI.
	DefaultConfigFileName = "servicetitan_config.json"
)

// Cache defaults.
const (
	// DefaultCacheTTL is the lifetime of cached reference data.
	DefaultCacheTTL = 15 * time.Minute

	// DefaultCacheCleanupInterval is how often the memory cache evicts expired entries.
	DefaultCacheCleanupInterval = 10 * time.Minute

	// DefaultCacheSize bounds the memory cache.
	DefaultCacheSize = 1000

	// DefaultCacheBucket is the NATS KV bucket and redis key prefix.
	DefaultCacheBucket = "servicetitan-cache"
)

// UI and display constants.
const (
	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"

	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"
)

// Format constants.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatCSV   = "csv"
)
