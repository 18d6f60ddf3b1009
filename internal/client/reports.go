package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fivetwenty-io/servicetitan-client/internal/constants"
	"github.com/fivetwenty-io/servicetitan-client/internal/http"
	"github.com/fivetwenty-io/servicetitan-client/internal/metrics"
	"github.com/fivetwenty-io/servicetitan-client/pkg/servicetitan"
)

// referenceCache fronts slow-changing GETs with the configured response
// cache. A nil cache passes every load straight through.
type referenceCache struct {
	cache   servicetitan.Cache
	ttl     time.Duration
	logger  servicetitan.Logger
	metrics *metrics.Metrics
}

func newReferenceCache(cache servicetitan.Cache, ttl time.Duration, logger servicetitan.Logger, collectors *metrics.Metrics) *referenceCache {
	if ttl <= 0 {
		ttl = constants.DefaultCacheTTL
	}

	if logger == nil {
		logger = servicetitan.NoopLogger{}
	}

	return &referenceCache{cache: cache, ttl: ttl, logger: logger, metrics: collectors}
}

// load returns the cached body for key or calls fetch and stores its result.
// Cache failures are logged and never fail the load.
func (c *referenceCache) load(ctx context.Context, key string, fetch func() ([]byte, error)) ([]byte, error) {
	if c == nil || c.cache == nil {
		return fetch()
	}

	entry, err := c.cache.Get(ctx, key)
	if err == nil {
		c.metrics.IncCache("hit")

		return entry.Data, nil
	}

	if !errors.Is(err, servicetitan.ErrCacheMiss) && !errors.Is(err, servicetitan.ErrKeyNotFoundInAnyCache) {
		c.logger.Warn("Cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
	}

	c.metrics.IncCache("miss")

	data, err := fetch()
	if err != nil {
		return nil, err
	}

	err = c.cache.Set(ctx, key, servicetitan.NewCacheEntry(data, c.ttl))
	if err != nil {
		c.logger.Warn("Cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}

	return data, nil
}

// ReportsClient implements servicetitan.ReportsClient.
type ReportsClient struct {
	httpClient *http.Client
	creds      *servicetitan.Credentials
	logger     servicetitan.Logger
	refs       *referenceCache
}

// NewReportsClient creates a new reports client.
func NewReportsClient(httpClient *http.Client, creds *servicetitan.Credentials, logger servicetitan.Logger, refs *referenceCache) *ReportsClient {
	return &ReportsClient{
		httpClient: httpClient,
		creds:      creds,
		logger:     logger,
		refs:       refs,
	}
}

func (c *ReportsClient) endpoint(resource string) *Endpoint {
	return NewEndpoint(c.httpClient, c.creds, c.logger, constants.ReportFolder, resource)
}

// Categories implements servicetitan.ReportsClient.Categories.
func (c *ReportsClient) Categories(ctx context.Context) ([]servicetitan.Record, error) {
	key := fmt.Sprintf("report:%s:categories", c.creds.TenantID)

	return c.cachedAll(ctx, key, c.endpoint("report-categories"))
}

// List implements servicetitan.ReportsClient.List.
func (c *ReportsClient) List(ctx context.Context, category string) ([]servicetitan.Record, error) {
	key := fmt.Sprintf("report:%s:%s:reports", c.creds.TenantID, category)

	return c.cachedAll(ctx, key, c.endpoint("report-category/"+category+"/reports"))
}

// DynamicSet implements servicetitan.ReportsClient.DynamicSet.
func (c *ReportsClient) DynamicSet(ctx context.Context, id string) (*servicetitan.ReportPage, error) {
	if id == "" {
		return nil, servicetitan.ErrEmptyID
	}

	key := fmt.Sprintf("report:%s:dynamic-set:%s", c.creds.TenantID, id)
	target := servicetitan.BuildURL(c.creds, servicetitan.ResourcePath{
		Folder:   constants.ReportFolder,
		Resource: "dynamic-value-sets",
		ID:       id,
	})

	data, err := c.refs.load(ctx, key, func() ([]byte, error) {
		resp, err := c.httpClient.Get(ctx, target, nil)
		if err != nil {
			return nil, err
		}

		return resp.Body, nil
	})
	if err != nil {
		return nil, fmt.Errorf("getting dynamic value set %s: %w", id, err)
	}

	var page servicetitan.ReportPage

	err = json.Unmarshal(data, &page)
	if err != nil {
		return nil, fmt.Errorf("parsing dynamic value set: %w", err)
	}

	return &page, nil
}

func (c *ReportsClient) cachedAll(ctx context.Context, key string, endpoint *Endpoint) ([]servicetitan.Record, error) {
	data, err := c.refs.load(ctx, key, func() ([]byte, error) {
		records, err := endpoint.GetAll(ctx, servicetitan.NewQuery(), "", "")
		if err != nil {
			return nil, err
		}

		return json.Marshal(records)
	})
	if err != nil {
		return nil, err
	}

	var records []servicetitan.Record

	err = json.Unmarshal(data, &records)
	if err != nil {
		return nil, fmt.Errorf("parsing cached %s: %w", key, err)
	}

	if records == nil {
		records = []servicetitan.Record{}
	}

	return records, nil
}
