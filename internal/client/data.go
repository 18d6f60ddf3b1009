package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fivetwenty-io/servicetitan-client/internal/constants"
	"github.com/fivetwenty-io/servicetitan-client/pkg/servicetitan"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Default status filters of the date-range helpers.
var (
	DefaultJobStatuses         = []string{"Completed", "Scheduled", "InProgress", "Dispatched"}
	DefaultAppointmentStatuses = []string{"Scheduled", "Dispatched", "Working", "Done"}
)

// ErrInvalidTotal is returned when an estimate item total is not a number.
var ErrInvalidTotal = errors.New("invalid estimate item total")

// endpointFactory returns the endpoint for folder/resource.
type endpointFactory func(folder, resource string) servicetitan.EndpointClient

// DataService implements servicetitan.DataClient.
type DataService struct {
	endpoints endpointFactory
	timezone  string
	logger    servicetitan.Logger
}

// NewDataService creates a data service whose dates are read in timezone.
func NewDataService(endpoints endpointFactory, timezone string, logger servicetitan.Logger) *DataService {
	if logger == nil {
		logger = servicetitan.NoopLogger{}
	}

	return &DataService{endpoints: endpoints, timezone: timezone, logger: logger}
}

// between builds a query with start and end converted to API time.
func (s *DataService) between(start, end time.Time, afterKey, beforeKey string) (servicetitan.Query, error) {
	from, err := servicetitan.ToAPITime(start, s.timezone)
	if err != nil {
		return servicetitan.Query{}, err
	}

	to, err := servicetitan.ToAPITime(end, s.timezone)
	if err != nil {
		return servicetitan.Query{}, err
	}

	return servicetitan.NewQuery().With(afterKey, from).With(beforeKey, to), nil
}

// byStatus runs GetAll once per status, at most DefaultConcurrencyLimit at a
// time, and concatenates the results in status order.
func (s *DataService) byStatus(ctx context.Context, endpoint servicetitan.EndpointClient, base servicetitan.Query, statusKey string, statuses []string) ([]servicetitan.Record, error) {
	results := make([][]servicetitan.Record, len(statuses))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(constants.DefaultConcurrencyLimit)

	for i, status := range statuses {
		s.logger.Debug("Fetching by status", map[string]interface{}{
			"resource": endpoint.Resource(),
			statusKey:  status,
		})

		group.Go(func() error {
			records, err := endpoint.GetAll(groupCtx, base.With(statusKey, status), "", "")
			if err != nil {
				return fmt.Errorf("fetching %s %s=%s: %w", endpoint.Resource(), statusKey, status, err)
			}

			results[i] = records

			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		return nil, err
	}

	combined := []servicetitan.Record{}
	for _, records := range results {
		combined = append(combined, records...)
	}

	return combined, nil
}

// JobsCompletedBetween implements servicetitan.DataClient.JobsCompletedBetween.
func (s *DataService) JobsCompletedBetween(ctx context.Context, start, end time.Time, statuses ...string) ([]servicetitan.Record, error) {
	if len(statuses) == 0 {
		statuses = DefaultJobStatuses
	}

	query, err := s.between(start, end, "completedOnOrAfter", "completedBefore")
	if err != nil {
		return nil, err
	}

	return s.byStatus(ctx, s.endpoints("jpm", "jobs"), query, "jobStatus", statuses)
}

// JobsCreatedBetween implements servicetitan.DataClient.JobsCreatedBetween.
func (s *DataService) JobsCreatedBetween(ctx context.Context, start, end time.Time) ([]servicetitan.Record, error) {
	return s.rangeAll(ctx, "jpm", "jobs", start, end, "createdOnOrAfter", "createdBefore", servicetitan.NewQuery())
}

// JobsModifiedBetween implements servicetitan.DataClient.JobsModifiedBetween.
func (s *DataService) JobsModifiedBetween(ctx context.Context, start, end time.Time) ([]servicetitan.Record, error) {
	return s.rangeAll(ctx, "jpm", "jobs", start, end, "modifiedOnOrAfter", "modifiedBefore", servicetitan.NewQuery())
}

// AppointmentsBetween implements servicetitan.DataClient.AppointmentsBetween.
func (s *DataService) AppointmentsBetween(ctx context.Context, start, end time.Time, statuses ...string) ([]servicetitan.Record, error) {
	if len(statuses) == 0 {
		statuses = DefaultAppointmentStatuses
	}

	query, err := s.between(start, end, "startsOnOrAfter", "startsBefore")
	if err != nil {
		return nil, err
	}

	return s.byStatus(ctx, s.endpoints("jpm", "appointments"), query, "status", statuses)
}

// SoldEstimatesBetween implements servicetitan.DataClient.SoldEstimatesBetween.
func (s *DataService) SoldEstimatesBetween(ctx context.Context, start, end time.Time) ([]servicetitan.Record, error) {
	return s.rangeAll(ctx, "sales", "estimates", start, end, "soldAfter", "soldBefore",
		servicetitan.NewQuery().With("active", "True"))
}

// TotalSalesBetween implements servicetitan.DataClient.TotalSalesBetween. It
// sums items[].total over the sold estimates.
func (s *DataService) TotalSalesBetween(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	estimates, err := s.SoldEstimatesBetween(ctx, start, end)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero

	for _, estimate := range estimates {
		items, _ := estimate["items"].([]interface{})
		for _, item := range items {
			sku, ok := item.(map[string]interface{})
			if !ok {
				continue
			}

			amount, err := toDecimal(sku["total"])
			if err != nil {
				return decimal.Zero, fmt.Errorf("estimate %v: %w", estimate["id"], err)
			}

			total = total.Add(amount)
		}
	}

	return total, nil
}

// PurchaseOrdersCreatedBetween implements servicetitan.DataClient.PurchaseOrdersCreatedBetween.
func (s *DataService) PurchaseOrdersCreatedBetween(ctx context.Context, start, end time.Time) ([]servicetitan.Record, error) {
	return s.rangeAll(ctx, "inventory", "purchase-orders", start, end, "createdOnOrAfter", "createdBefore", servicetitan.NewQuery())
}

// Employees implements servicetitan.DataClient.Employees.
func (s *DataService) Employees(ctx context.Context, active string) ([]servicetitan.Record, error) {
	return s.settings(ctx, "employees", active)
}

// Technicians implements servicetitan.DataClient.Technicians.
func (s *DataService) Technicians(ctx context.Context, active string) ([]servicetitan.Record, error) {
	return s.settings(ctx, "technicians", active)
}

// TagTypes implements servicetitan.DataClient.TagTypes.
func (s *DataService) TagTypes(ctx context.Context, active string) ([]servicetitan.Record, error) {
	return s.settings(ctx, "tag-types", active)
}

// BusinessUnits implements servicetitan.DataClient.BusinessUnits.
func (s *DataService) BusinessUnits(ctx context.Context, active string) ([]servicetitan.Record, error) {
	return s.settings(ctx, "business-units", active)
}

func (s *DataService) rangeAll(ctx context.Context, folder, resource string, start, end time.Time, afterKey, beforeKey string, extra servicetitan.Query) ([]servicetitan.Record, error) {
	query, err := s.between(start, end, afterKey, beforeKey)
	if err != nil {
		return nil, err
	}

	for key, values := range extra.ToValues() {
		query = query.With(key, values[0])
	}

	return s.endpoints(folder, resource).GetAll(ctx, query, "", "")
}

func (s *DataService) settings(ctx context.Context, resource, active string) ([]servicetitan.Record, error) {
	if active == "" {
		active = "True"
	}

	return s.endpoints("settings", resource).GetAll(ctx, servicetitan.NewQuery().With("active", active), "", "")
}

func toDecimal(value interface{}) (decimal.Decimal, error) {
	switch typed := value.(type) {
	case nil:
		return decimal.Zero, nil
	case float64:
		return decimal.NewFromFloat(typed), nil
	case int:
		return decimal.NewFromInt(int64(typed)), nil
	case string:
		amount, err := decimal.NewFromString(typed)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q: %w", ErrInvalidTotal, typed, err)
		}

		return amount, nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %T", ErrInvalidTotal, value)
	}
}
