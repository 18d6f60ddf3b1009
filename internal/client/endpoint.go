package client

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fivetwenty-io/servicetitan-client/internal/constants"
	"github.com/fivetwenty-io/servicetitan-client/internal/http"
	"github.com/fivetwenty-io/servicetitan-client/pkg/servicetitan"
)

// downloadableKinds are the last path segments of resources that serve files.
var downloadableKinds = map[string]bool{
	"attachment":  true,
	"attachments": true,
	"images":      true,
}

// Endpoint implements servicetitan.EndpointClient.
type Endpoint struct {
	httpClient *http.Client
	creds      *servicetitan.Credentials
	logger     servicetitan.Logger
	folder     string
	resource   string
	tenant     string
}

// NewEndpoint creates an endpoint for {folder}/v2/tenant/{tenant}/{resource}.
func NewEndpoint(httpClient *http.Client, creds *servicetitan.Credentials, logger servicetitan.Logger, folder, resource string) *Endpoint {
	if logger == nil {
		logger = servicetitan.NoopLogger{}
	}

	return &Endpoint{
		httpClient: httpClient,
		creds:      creds,
		logger:     logger,
		folder:     folder,
		resource:   resource,
	}
}

// Folder implements servicetitan.EndpointClient.Folder.
func (e *Endpoint) Folder() string {
	return e.folder
}

// Resource implements servicetitan.EndpointClient.Resource.
func (e *Endpoint) Resource() string {
	return e.resource
}

// WithTenant implements servicetitan.EndpointClient.WithTenant.
func (e *Endpoint) WithTenant(tenant string) servicetitan.EndpointClient {
	clone := *e
	clone.tenant = tenant

	return &clone
}

func (e *Endpoint) url(id, modifier string) string {
	return e.urlFor(e.resource, id, modifier)
}

func (e *Endpoint) urlFor(resource, id, modifier string) string {
	return servicetitan.BuildURL(e.creds, servicetitan.ResourcePath{
		Folder:   e.folder,
		Resource: resource,
		ID:       id,
		Modifier: modifier,
		Tenant:   e.tenant,
	})
}

// GetOne implements servicetitan.EndpointClient.GetOne.
func (e *Endpoint) GetOne(ctx context.Context, id, modifier string, query servicetitan.Query) (servicetitan.Record, error) {
	resp, err := e.httpClient.Get(ctx, e.url(id, modifier), withDefaultPageSize(query).ToValues())
	if err != nil {
		return nil, fmt.Errorf("getting %s %s: %w", e.resource, id, err)
	}

	return decodeRecord(resp.Body, e.resource)
}

// GetMany implements servicetitan.EndpointClient.GetMany.
func (e *Endpoint) GetMany(ctx context.Context, query servicetitan.Query, id, modifier string) (*servicetitan.Page, error) {
	resp, err := e.httpClient.Get(ctx, e.url(id, modifier), withDefaultPageSize(query).ToValues())
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", e.resource, err)
	}

	var page servicetitan.Page

	err = json.Unmarshal(resp.Body, &page)
	if err != nil {
		return nil, fmt.Errorf("parsing %s page: %w", e.resource, err)
	}

	return &page, nil
}

// GetAll implements servicetitan.EndpointClient.GetAll. An empty first page
// returns immediately whatever hasMore says.
func (e *Endpoint) GetAll(ctx context.Context, query servicetitan.Query, id, modifier string) ([]servicetitan.Record, error) {
	pageNumber := constants.FirstPage

	var records []servicetitan.Record

	for {
		e.logger.Info("Fetching page", map[string]interface{}{
			"folder":   e.folder,
			"resource": e.resource,
			"page":     pageNumber,
		})

		page, err := e.GetMany(ctx, query.WithPage(pageNumber), id, modifier)
		if err != nil {
			return nil, err
		}

		if pageNumber == constants.FirstPage && len(page.Data) == 0 {
			return []servicetitan.Record{}, nil
		}

		records = append(records, page.Data...)

		if !page.HasMore {
			return records, nil
		}

		pageNumber++
	}
}

// Create implements servicetitan.EndpointClient.Create.
func (e *Endpoint) Create(ctx context.Context, payload interface{}) (servicetitan.Record, error) {
	resp, err := e.httpClient.Post(ctx, e.url("", ""), payload)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", e.resource, err)
	}

	return decodeRecord(resp.Body, e.resource)
}

// Update implements servicetitan.EndpointClient.Update. method is PUT (the
// default when empty) or PATCH.
func (e *Endpoint) Update(ctx context.Context, id string, payload interface{}, modifier, method string) (servicetitan.Record, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = "PUT"
	}

	var (
		resp *http.Response
		err  error
	)

	switch method {
	case "PUT":
		resp, err = e.httpClient.Put(ctx, e.url(id, modifier), payload)
	case "PATCH":
		resp, err = e.httpClient.Patch(ctx, e.url(id, modifier), payload)
	default:
		return nil, fmt.Errorf("%w: update with method %s", servicetitan.ErrUnsupportedOperation, method)
	}

	if err != nil {
		return nil, fmt.Errorf("updating %s %s: %w", e.resource, id, err)
	}

	return decodeRecord(resp.Body, e.resource)
}

// Delete implements servicetitan.EndpointClient.Delete.
func (e *Endpoint) Delete(ctx context.Context, id, modifier string) (servicetitan.Record, error) {
	resp, err := e.httpClient.Delete(ctx, e.url(id, modifier))
	if err != nil {
		return nil, fmt.Errorf("deleting %s %s: %w", e.resource, id, err)
	}

	return decodeRecord(resp.Body, e.resource)
}

// DeleteSubitem implements servicetitan.EndpointClient.DeleteSubitem. It
// targets {id}/{modifier}/{subID}.
func (e *Endpoint) DeleteSubitem(ctx context.Context, id, subID, modifier string) (servicetitan.Record, error) {
	return e.Delete(ctx, id, strings.TrimSuffix(modifier, "/")+"/"+subID)
}

// ExportOne implements servicetitan.EndpointClient.ExportOne.
func (e *Endpoint) ExportOne(ctx context.Context, name string, opts servicetitan.ExportOptions) (*servicetitan.ExportPage, error) {
	query := servicetitan.NewQuery().
		With("from", opts.From).
		With("includeRecentChanges", opts.IncludeRecentChanges)

	resp, err := e.httpClient.Get(ctx, e.urlFor("export", "", name), query.ToValues())
	if err != nil {
		return nil, fmt.Errorf("exporting %s: %w", name, err)
	}

	var page servicetitan.ExportPage

	err = json.Unmarshal(resp.Body, &page)
	if err != nil {
		return nil, fmt.Errorf("parsing %s export: %w", name, err)
	}

	return &page, nil
}

// ExportAll implements servicetitan.EndpointClient.ExportAll. Each batch's
// continueFrom becomes the next From. The loop ends on hasMore=false, an
// empty batch, or a missing cursor.
func (e *Endpoint) ExportAll(ctx context.Context, name string, opts servicetitan.ExportOptions) ([]servicetitan.Record, error) {
	records := []servicetitan.Record{}

	for batch := 1; ; batch++ {
		e.logger.Info("Exporting batch", map[string]interface{}{
			"export": name,
			"batch":  batch,
			"from":   opts.From,
		})

		page, err := e.ExportOne(ctx, name, opts)
		if err != nil {
			return nil, err
		}

		if len(page.Data) == 0 {
			break
		}

		records = append(records, page.Data...)

		if !page.HasMore || page.ContinueFrom == "" {
			break
		}

		opts.From = page.ContinueFrom
	}

	e.logger.Info("Export complete", map[string]interface{}{
		"export": name,
		"rows":   len(records),
	})

	return records, nil
}

// Contents implements servicetitan.EndpointClient.Contents.
func (e *Endpoint) Contents(ctx context.Context, id string) ([]byte, error) {
	if strings.TrimSpace(id) == "" {
		return nil, servicetitan.ErrEmptyID
	}

	if !e.downloadable() {
		return nil, fmt.Errorf("%w: %s/%s does not serve files", servicetitan.ErrUnsupportedOperation, e.folder, e.resource)
	}

	resp, err := e.httpClient.Do(ctx, &http.Request{
		Method:  "GET",
		Path:    e.url(id, ""),
		Headers: map[string]string{"Accept": "*/*"},
	})
	if err != nil {
		return nil, fmt.Errorf("downloading %s %s: %w", e.resource, id, err)
	}

	return resp.Body, nil
}

// Download implements servicetitan.EndpointClient.Download.
func (e *Endpoint) Download(ctx context.Context, id, filename string) error {
	data, err := e.Contents(ctx, id)
	if err != nil {
		return err
	}

	err = os.WriteFile(filepath.Clean(filename), data, constants.DownloadFilePerm)
	if err != nil {
		return fmt.Errorf("writing %s: %w", filename, err)
	}

	e.logger.Info("Downloaded file", map[string]interface{}{
		"resource": e.resource,
		"id":       id,
		"bytes":    len(data),
		"filename": filename,
	})

	return nil
}

func (e *Endpoint) downloadable() bool {
	segments := strings.Split(strings.Trim(e.resource, "/"), "/")

	return downloadableKinds[segments[len(segments)-1]]
}

func withDefaultPageSize(query servicetitan.Query) servicetitan.Query {
	if query.Has("pageSize") {
		return query
	}

	return query.WithPageSize(constants.DefaultPageSize)
}

// decodeRecord parses a JSON object body. An empty body, as returned by
// some deletes, yields an empty record.
func decodeRecord(body []byte, resource string) (servicetitan.Record, error) {
	record := servicetitan.Record{}
	if len(strings.TrimSpace(string(body))) == 0 {
		return record, nil
	}

	err := json.Unmarshal(body, &record)
	if err != nil {
		return nil, fmt.Errorf("parsing %s response: %w", resource, err)
	}

	return record, nil
}

