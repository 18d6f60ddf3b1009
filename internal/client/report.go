package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fivetwenty-io/servicetitan-client/internal/constants"
	"github.com/fivetwenty-io/servicetitan-client/internal/http"
	"github.com/fivetwenty-io/servicetitan-client/pkg/servicetitan"
)

// Report implements servicetitan.ReportSession. Client.OpenReport creates one.
type Report struct {
	httpClient *http.Client
	creds      *servicetitan.Credentials
	logger     servicetitan.Logger
	refs       *referenceCache

	category string
	id       string
	state    servicetitan.ReportState
	metadata *servicetitan.ReportMetadata
	params   []servicetitan.ReportParam
}

// openReport fetches the report's metadata and returns a session in the
// metadata_loaded state. A metadata failure returns no session.
func openReport(ctx context.Context, httpClient *http.Client, creds *servicetitan.Credentials, logger servicetitan.Logger, refs *referenceCache, category, reportID string) (*Report, error) {
	if logger == nil {
		logger = servicetitan.NoopLogger{}
	}

	report := &Report{
		httpClient: httpClient,
		creds:      creds,
		logger:     logger,
		refs:       refs,
		category:   category,
		id:         reportID,
		state:      servicetitan.ReportStateUninitialized,
	}

	err := report.loadMetadata(ctx)
	if err != nil {
		return nil, err
	}

	return report, nil
}

func (r *Report) url(modifier string) string {
	return servicetitan.BuildURL(r.creds, servicetitan.ResourcePath{
		Folder:   constants.ReportFolder,
		Resource: "report-category/" + r.category + "/reports",
		ID:       r.id,
		Modifier: modifier,
	})
}

func (r *Report) loadMetadata(ctx context.Context) error {
	key := fmt.Sprintf("report:%s:%s:%s:metadata", r.creds.TenantID, r.category, r.id)

	data, err := r.refs.load(ctx, key, func() ([]byte, error) {
		resp, err := r.httpClient.Get(ctx, r.url(""), nil)
		if err != nil {
			return nil, err
		}

		return resp.Body, nil
	})
	if err != nil {
		return fmt.Errorf("getting report %s/%s metadata: %w", r.category, r.id, err)
	}

	var metadata servicetitan.ReportMetadata

	err = json.Unmarshal(data, &metadata)
	if err != nil {
		return fmt.Errorf("parsing report metadata: %w", err)
	}

	r.metadata = &metadata
	r.state = servicetitan.ReportStateMetadataLoaded

	return nil
}

// Category implements servicetitan.ReportSession.Category.
func (r *Report) Category() string {
	return r.category
}

// ID implements servicetitan.ReportSession.ID.
func (r *Report) ID() string {
	return r.id
}

// State implements servicetitan.ReportSession.State.
func (r *Report) State() servicetitan.ReportState {
	return r.state
}

// Metadata implements servicetitan.ReportSession.Metadata.
func (r *Report) Metadata() *servicetitan.ReportMetadata {
	return r.metadata
}

// AddParam implements servicetitan.ReportSession.AddParam. Adding an
// existing name replaces its value.
func (r *Report) AddParam(name string, value interface{}) {
	if r.setParam(name, value) {
		r.logger.Info("Parameter already set, updating", map[string]interface{}{"name": name})
	}
}

// UpdateParam implements servicetitan.ReportSession.UpdateParam. Updating
// an unknown name adds it.
func (r *Report) UpdateParam(name string, value interface{}) {
	if !r.setParam(name, value) {
		r.logger.Info("Parameter not set, adding", map[string]interface{}{"name": name})
	}
}

// setParam upserts by name, keeping first-insertion order. It reports
// whether name was already present.
func (r *Report) setParam(name string, value interface{}) bool {
	r.state = servicetitan.ReportStateParametersConfigured

	for i := range r.params {
		if r.params[i].Name == name {
			r.params[i].Value = value

			return true
		}
	}

	r.params = append(r.params, servicetitan.ReportParam{Name: name, Value: value})

	return false
}

// Params implements servicetitan.ReportSession.Params.
func (r *Report) Params() servicetitan.ReportParams {
	params := make([]servicetitan.ReportParam, len(r.params))
	copy(params, r.params)

	return servicetitan.ReportParams{Parameters: params}
}

// GetData implements servicetitan.ReportSession.GetData. A nil params sends
// the session's parameters; pageSize is clamped to the API maximum.
func (r *Report) GetData(ctx context.Context, params *servicetitan.ReportParams, page, pageSize int) (*servicetitan.ReportPage, error) {
	if params == nil {
		current := r.Params()
		params = &current
	}

	if params.Parameters == nil {
		params = &servicetitan.ReportParams{Parameters: []servicetitan.ReportParam{}}
	}

	if page < constants.FirstPage {
		page = constants.FirstPage
	}

	if pageSize <= 0 || pageSize > constants.ReportMaxPageSize {
		pageSize = constants.ReportMaxPageSize
	}

	query := servicetitan.NewQuery().
		WithPage(page).
		WithPageSize(pageSize).
		With("includeTotal", true)

	resp, err := r.httpClient.Do(ctx, &http.Request{
		Method: "POST",
		Path:   r.url("data"),
		Query:  query.ToValues(),
		Body:   params,
	})
	if err != nil {
		return nil, fmt.Errorf("getting report %s/%s page %d: %w", r.category, r.id, page, err)
	}

	var result servicetitan.ReportPage

	err = json.Unmarshal(resp.Body, &result)
	if err != nil {
		return nil, fmt.Errorf("parsing report page: %w", err)
	}

	return &result, nil
}

// GetAllData implements servicetitan.ReportSession.GetAllData.
//
// Page one is fetched first and its totalCount drives an estimate of
// ReportEstimatePerRequest per page. When the estimate exceeds the budget
// the page size is raised to the maximum if that brings the page count under
// ReportEscalationRequestLimit; otherwise the result carries
// ReportTooManyRequests and no error. A page with no rows ends the fetch even
// if hasMore is still true.
func (r *Report) GetAllData(ctx context.Context, opts servicetitan.ReportDataOptions) (*servicetitan.ReportResult, error) {
	pageSize := opts.PageSize
	if pageSize <= 0 || pageSize > constants.ReportMaxPageSize {
		pageSize = constants.ReportMaxPageSize
	}

	budget := opts.Budget
	if budget <= 0 {
		budget = constants.ReportDefaultBudget
	}

	r.state = servicetitan.ReportStateFetching

	first, err := r.GetData(ctx, opts.Params, constants.FirstPage, pageSize)
	if err != nil {
		r.state = servicetitan.ReportStateError

		return nil, err
	}

	if estimateReport(first.TotalCount, pageSize) > budget {
		if pageSize < constants.ReportMaxPageSize && pagesNeeded(first.TotalCount, constants.ReportMaxPageSize) < constants.ReportEscalationRequestLimit {
			r.logger.Info("Raising report page size to fit the time budget", map[string]interface{}{
				"total_count": first.TotalCount,
				"from":        pageSize,
				"to":          constants.ReportMaxPageSize,
			})

			pageSize = constants.ReportMaxPageSize

			first, err = r.GetData(ctx, opts.Params, constants.FirstPage, pageSize)
			if err != nil {
				r.state = servicetitan.ReportStateError

				return nil, err
			}
		}

		if estimateReport(first.TotalCount, pageSize) > budget {
			r.state = servicetitan.ReportStateAborted
			r.logger.Warn("Report exceeds time budget", map[string]interface{}{
				"total_count":      first.TotalCount,
				"requests":         pagesNeeded(first.TotalCount, pageSize),
				"estimate_minutes": estimateReport(first.TotalCount, pageSize).Minutes(),
				"budget_minutes":   budget.Minutes(),
			})

			return &servicetitan.ReportResult{Error: servicetitan.ReportTooManyRequests}, nil
		}
	}

	result := &servicetitan.ReportResult{Fields: first.Fields, Data: first.Data}

	for page, hasMore := constants.FirstPage+1, first.HasMore && len(first.Data) > 0; hasMore; page++ {
		next, err := r.GetData(ctx, opts.Params, page, pageSize)
		if err != nil {
			r.state = servicetitan.ReportStateError

			return nil, err
		}

		if len(next.Data) == 0 {
			break
		}

		if len(result.Fields) == 0 {
			result.Fields = next.Fields
		}

		result.Data = append(result.Data, next.Data...)
		hasMore = next.HasMore
	}

	if result.Data == nil {
		result.Data = []interface{}{}
	}

	r.state = servicetitan.ReportStateComplete

	return result, nil
}

// ShowParamTypes implements servicetitan.ReportSession.ShowParamTypes. It
// logs and returns one line per parameter followed by its accepted values.
func (r *Report) ShowParamTypes() []string {
	if r.metadata == nil {
		return nil
	}

	var lines []string

	for _, param := range r.metadata.Parameters {
		marker := " "
		if param.IsRequired {
			marker = "*"
		}

		dynamic := ""
		if param.AcceptValues != nil && param.AcceptValues.DynamicSetID != "" {
			dynamic = fmt.Sprintf(" (dynamicSetId: %s)", param.AcceptValues.DynamicSetID)
		}

		lines = append(lines, fmt.Sprintf("[%s] - %s: %s, %s", marker, param.Name, param.DataType, dynamic))

		if param.AcceptValues == nil {
			continue
		}

		for _, value := range param.AcceptValues.Values {
			lines = append(lines, "  - "+acceptedValue(value))
		}
	}

	for _, line := range lines {
		r.logger.Info(line, nil)
	}

	return lines
}

func acceptedValue(value interface{}) string {
	switch typed := value.(type) {
	case string:
		return typed
	case []interface{}:
		parts := make([]string, 0, len(typed))
		for _, part := range typed {
			parts = append(parts, fmt.Sprint(part))
		}

		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(value)
	}
}

func pagesNeeded(total, pageSize int) int {
	if total <= 0 {
		return 0
	}

	return (total + pageSize - 1) / pageSize
}

func estimateReport(total, pageSize int) time.Duration {
	return time.Duration(pagesNeeded(total, pageSize)) * constants.ReportEstimatePerRequest
}
