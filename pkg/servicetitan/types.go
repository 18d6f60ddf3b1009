package servicetitan

import "time"

// Record is one JSON object returned by a resource endpoint.
type Record = map[string]interface{}

// Page is one page of a list endpoint.
type Page struct {
	Page       int      `json:"page"                 yaml:"page"`
	PageSize   int      `json:"pageSize"             yaml:"pageSize"`
	HasMore    bool     `json:"hasMore"              yaml:"hasMore"`
	TotalCount *int     `json:"totalCount,omitempty" yaml:"totalCount,omitempty"`
	Data       []Record `json:"data"                 yaml:"data"`
}

// ExportPage is one batch of an export endpoint. ContinueFrom is the opaque
// cursor for the next batch.
type ExportPage struct {
	HasMore      bool     `json:"hasMore"      yaml:"hasMore"`
	ContinueFrom string   `json:"continueFrom" yaml:"continueFrom"`
	Data         []Record `json:"data"         yaml:"data"`
}

// ExportOptions controls an export request.
type ExportOptions struct {
	// From is the continuation cursor or start timestamp; empty starts from the beginning.
	From                 string
	IncludeRecentChanges bool
}

// ReportField describes one column of report output.
type ReportField struct {
	Name  string `json:"name"  yaml:"name"`
	Label string `json:"label" yaml:"label"`
	Type  string `json:"type"  yaml:"type"`
}

// AcceptValues restricts a report parameter to an enumeration, possibly
// backed by a dynamic value set.
type AcceptValues struct {
	DynamicSetID string        `json:"dynamicSetId" yaml:"dynamicSetId"`
	Fields       []ReportField `json:"fields"       yaml:"fields"`
	Values       []interface{} `json:"values"       yaml:"values"`
}

// ReportParameterSpec is one entry of a report's parameter schema.
type ReportParameterSpec struct {
	Name         string        `json:"name"         yaml:"name"`
	Label        string        `json:"label"        yaml:"label"`
	DataType     string        `json:"dataType"     yaml:"dataType"`
	IsArray      bool          `json:"isArray"      yaml:"isArray"`
	IsRequired   bool          `json:"isRequired"   yaml:"isRequired"`
	AcceptValues *AcceptValues `json:"acceptValues" yaml:"acceptValues"`
}

// ReportMetadata is the description of a report returned by the metadata endpoint.
type ReportMetadata struct {
	ID          int64                 `json:"id"          yaml:"id"`
	Name        string                `json:"name"        yaml:"name"`
	Description string                `json:"description" yaml:"description"`
	Fields      []ReportField         `json:"fields"      yaml:"fields"`
	Parameters  []ReportParameterSpec `json:"parameters"  yaml:"parameters"`
}

// ReportParam is one name/value pair sent with a report data request.
type ReportParam struct {
	Name  string      `json:"name"  yaml:"name"`
	Value interface{} `json:"value" yaml:"value"`
}

// ReportParams is the JSON body of a report data request.
type ReportParams struct {
	Parameters []ReportParam `json:"parameters" yaml:"parameters"`
}

// ReportPage is one page of report data. Rows are kept as decoded JSON
// because their shape follows Fields.
type ReportPage struct {
	Fields     []ReportField `json:"fields"     yaml:"fields"`
	Page       int           `json:"page"       yaml:"page"`
	PageSize   int           `json:"pageSize"   yaml:"pageSize"`
	HasMore    bool          `json:"hasMore"    yaml:"hasMore"`
	TotalCount int           `json:"totalCount" yaml:"totalCount"`
	Data       []interface{} `json:"data"       yaml:"data"`
}

// ReportTooManyRequests is the soft error returned when a report cannot be
// fetched within its time budget.
const ReportTooManyRequests = "Too many requests. Try again with fewer parameters."

// ReportResult is the combined output of a full report fetch. Error is set
// instead of returning a Go error when the fetch was abandoned up front.
type ReportResult struct {
	Fields []ReportField `json:"fields"          yaml:"fields"`
	Data   []interface{} `json:"data"            yaml:"data"`
	Error  string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Aborted reports whether the fetch was abandoned before it started.
func (r *ReportResult) Aborted() bool {
	return r != nil && r.Error != ""
}

// ReportDataOptions tunes Report.GetAllData. Zero values select defaults.
type ReportDataOptions struct {
	Params   *ReportParams
	PageSize int
	Budget   time.Duration
}
