package servicetitan

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Config holds the client configuration.
type Config struct {
	// Credentials is the resolved credential bundle. Required.
	Credentials *Credentials

	// Logger receives structured logs. Defaults to NoopLogger.
	Logger Logger
	// Debug logs every request and response at debug level.
	Debug bool
	// UserAgent overrides the default User-Agent header.
	UserAgent string

	// HTTPTimeout bounds a single HTTP exchange. Zero selects the default.
	HTTPTimeout time.Duration
	// HTTPClient replaces the underlying *http.Client. HTTPTimeout still applies.
	HTTPClient *http.Client

	// RetryMax bounds retries of 5xx responses and network errors.
	RetryMax int
	// RetryWaitMin and RetryWaitMax bound the exponential backoff.
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// RateLimitRetryMax bounds consecutive rate-limit waits. Zero waits forever.
	RateLimitRetryMax int
	// RequestsPerSecond throttles outgoing requests client-side. Zero disables it.
	RequestsPerSecond float64
	// Sleeper performs rate-limit waits. Defaults to a countdown sleeper
	// that honours context cancellation.
	Sleeper Sleeper

	// Cache stores report metadata and other reference data. Nil disables it.
	Cache Cache
	// CacheTTL is the lifetime of cached entries. Zero selects the default.
	CacheTTL time.Duration

	// Metrics registers request collectors when non-nil.
	Metrics prometheus.Registerer

	// VerifyOnInit fetches a token while constructing the client.
	VerifyOnInit bool
}

// Sleeper waits for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep calls f.
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// Client is the root of the API surface.
type Client interface {
	// Credentials returns the shared credential bundle.
	Credentials() *Credentials
	// BearerToken returns "Bearer <token>", refreshing it when near expiry.
	BearerToken(ctx context.Context) (string, error)
	// AuthHeaders returns the Authorization and ST-App-Key headers.
	AuthHeaders(ctx context.Context) (map[string]string, error)
	// ClearTokenCache drops the token for creds, or every token when creds is nil.
	ClearTokenCache(creds *Credentials)

	// Endpoint addresses {folder}/v2/tenant/{tenant}/{resource}.
	Endpoint(folder, resource string) EndpointClient
	// OpenReport fetches report metadata and returns a ready session.
	OpenReport(ctx context.Context, category, reportID string) (ReportSession, error)
	Reports() ReportsClient
	Data() DataClient
}

// EndpointClient performs CRUD, pagination and export against one resource.
// Instances are safe for concurrent use; they hold no per-call state.
type EndpointClient interface {
	Folder() string
	Resource() string
	// WithTenant returns a copy addressing another tenant.
	WithTenant(tenant string) EndpointClient

	GetOne(ctx context.Context, id, modifier string, query Query) (Record, error)
	GetMany(ctx context.Context, query Query, id, modifier string) (*Page, error)
	// GetAll follows hasMore until the last page. It never bounds the page
	// count; an endpoint that always reports hasMore loops until ctx ends.
	GetAll(ctx context.Context, query Query, id, modifier string) ([]Record, error)
	Create(ctx context.Context, payload interface{}) (Record, error)
	Update(ctx context.Context, id string, payload interface{}, modifier, method string) (Record, error)
	Delete(ctx context.Context, id, modifier string) (Record, error)
	DeleteSubitem(ctx context.Context, id, subID, modifier string) (Record, error)

	ExportOne(ctx context.Context, name string, opts ExportOptions) (*ExportPage, error)
	ExportAll(ctx context.Context, name string, opts ExportOptions) ([]Record, error)

	// Contents returns the raw body of a file-bearing resource.
	Contents(ctx context.Context, id string) ([]byte, error)
	// Download writes Contents to filename.
	Download(ctx context.Context, id, filename string) error
}

// ReportSession is an opened report. It is not safe for concurrent mutation.
type ReportSession interface {
	Category() string
	ID() string
	State() ReportState
	Metadata() *ReportMetadata

	AddParam(name string, value interface{})
	UpdateParam(name string, value interface{})
	Params() ReportParams

	GetData(ctx context.Context, params *ReportParams, page, pageSize int) (*ReportPage, error)
	GetAllData(ctx context.Context, opts ReportDataOptions) (*ReportResult, error)
	ShowParamTypes() []string
}

// ReportsClient lists report categories, reports and dynamic value sets.
type ReportsClient interface {
	Categories(ctx context.Context) ([]Record, error)
	List(ctx context.Context, category string) ([]Record, error)
	DynamicSet(ctx context.Context, id string) (*ReportPage, error)
}

// DataClient fetches common record sets over a date range. Dates are wall
// clock times in the credential timezone.
type DataClient interface {
	JobsCompletedBetween(ctx context.Context, start, end time.Time, statuses ...string) ([]Record, error)
	JobsCreatedBetween(ctx context.Context, start, end time.Time) ([]Record, error)
	JobsModifiedBetween(ctx context.Context, start, end time.Time) ([]Record, error)
	AppointmentsBetween(ctx context.Context, start, end time.Time, statuses ...string) ([]Record, error)
	SoldEstimatesBetween(ctx context.Context, start, end time.Time) ([]Record, error)
	TotalSalesBetween(ctx context.Context, start, end time.Time) (decimal.Decimal, error)
	PurchaseOrdersCreatedBetween(ctx context.Context, start, end time.Time) ([]Record, error)

	Employees(ctx context.Context, active string) ([]Record, error)
	Technicians(ctx context.Context, active string) ([]Record, error)
	TagTypes(ctx context.Context, active string) ([]Record, error)
	BusinessUnits(ctx context.Context, active string) ([]Record, error)
}

// ReportState tracks a report session's lifecycle.
type ReportState int

const (
	ReportStateUninitialized ReportState = iota
	ReportStateMetadataLoaded
	ReportStateParametersConfigured
	ReportStateFetching
	ReportStateComplete
	ReportStateAborted
	ReportStateError
)

// String returns the state name.
func (s ReportState) String() string {
	switch s {
	case ReportStateUninitialized:
		return "uninitialized"
	case ReportStateMetadataLoaded:
		return "metadata_loaded"
	case ReportStateParametersConfigured:
		return "parameters_configured"
	case ReportStateFetching:
		return "fetching"
	case ReportStateComplete:
		return "complete"
	case ReportStateAborted:
		return "aborted"
	case ReportStateError:
		return "error"
	default:
		return "unknown"
	}
}
