package client_test

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fivetwenty-io/servicetitan-client/pkg/servicetitan"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	rangeStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd   = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
)

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestDataService_Jobs(t *testing.T) {
	t.Parallel()

	t.Run("completed jobs fan out by status in order", func(t *testing.T) {
		t.Parallel()

		var (
			inFlight atomic.Int32
			peak     atomic.Int32
		)

		server := newTestServer(t)
		server.handle("jpm", "jobs", func(writer http.ResponseWriter, request *http.Request) {
			current := inFlight.Add(1)
			defer inFlight.Add(-1)

			for {
				seen := peak.Load()
				if current <= seen || peak.CompareAndSwap(seen, current) {
					break
				}
			}

			query := request.URL.Query()
			assert.Equal(t, "2024-01-01T05:00:00Z", query.Get("completedOnOrAfter"))
			assert.Equal(t, "2024-02-01T05:00:00Z", query.Get("completedBefore"))

			status := query.Get("jobStatus")
			writeJSON(writer, map[string]interface{}{
				"hasMore": false,
				"data":    []map[string]interface{}{{"id": 1, "jobStatus": status}, {"id": 2, "jobStatus": status}},
			})
		})

		jobs, err := server.client(t).Data().JobsCompletedBetween(context.Background(), rangeStart, rangeEnd)
		require.NoError(t, err)
		require.Len(t, jobs, 8)

		statuses := make([]interface{}, 0, len(jobs))
		for _, job := range jobs {
			statuses = append(statuses, job["jobStatus"])
		}

		assert.Equal(t, []interface{}{
			"Completed", "Completed", "Scheduled", "Scheduled",
			"InProgress", "InProgress", "Dispatched", "Dispatched",
		}, statuses)
		assert.LessOrEqual(t, peak.Load(), int32(3))
	})

	t.Run("explicit statuses", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32

		server := newTestServer(t)
		server.handle("jpm", "jobs", func(writer http.ResponseWriter, request *http.Request) {
			calls.Add(1)
			assert.Equal(t, "Canceled", request.URL.Query().Get("jobStatus"))
			writeJSON(writer, map[string]interface{}{"hasMore": false, "data": records(9)})
		})

		jobs, err := server.client(t).Data().JobsCompletedBetween(context.Background(), rangeStart, rangeEnd, "Canceled")
		require.NoError(t, err)
		assert.Len(t, jobs, 1)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("one failing status fails the call", func(t *testing.T) {
		t.Parallel()

		server := newTestServer(t)
		server.handle("jpm", "jobs", func(writer http.ResponseWriter, request *http.Request) {
			if request.URL.Query().Get("jobStatus") == "Scheduled" {
				writer.WriteHeader(http.StatusForbidden)

				return
			}

			writeJSON(writer, map[string]interface{}{"hasMore": false, "data": records(1)})
		})

		_, err := server.client(t).Data().JobsCompletedBetween(context.Background(), rangeStart, rangeEnd)
		require.Error(t, err)
		assert.True(t, servicetitan.IsForbidden(err))
		assert.Contains(t, err.Error(), "jobStatus=Scheduled")
	})

	t.Run("created and modified ranges", func(t *testing.T) {
		t.Parallel()

		var keys stringLog

		server := newTestServer(t)
		server.handle("jpm", "jobs", func(writer http.ResponseWriter, request *http.Request) {
			for key := range request.URL.Query() {
				if key != "page" && key != "pageSize" {
					keys.Add(key)
				}
			}

			writeJSON(writer, map[string]interface{}{"hasMore": false, "data": records(1)})
		})

		data := server.client(t).Data()

		_, err := data.JobsCreatedBetween(context.Background(), rangeStart, rangeEnd)
		require.NoError(t, err)

		_, err = data.JobsModifiedBetween(context.Background(), rangeStart, rangeEnd)
		require.NoError(t, err)

		assert.ElementsMatch(t, []string{
			"createdOnOrAfter", "createdBefore", "modifiedOnOrAfter", "modifiedBefore",
		}, keys.Values())
	})
}

func TestDataService_Appointments(t *testing.T) {
	t.Parallel()

	var statuses stringLog

	server := newTestServer(t)
	server.handle("jpm", "appointments", func(writer http.ResponseWriter, request *http.Request) {
		statuses.Add(request.URL.Query().Get("status"))
		assert.Equal(t, "2024-01-01T05:00:00Z", request.URL.Query().Get("startsOnOrAfter"))
		writeJSON(writer, map[string]interface{}{"hasMore": false, "data": records(1)})
	})

	appointments, err := server.client(t).Data().AppointmentsBetween(context.Background(), rangeStart, rangeEnd)
	require.NoError(t, err)
	assert.Len(t, appointments, 4)
	assert.ElementsMatch(t, []string{"Scheduled", "Dispatched", "Working", "Done"}, statuses.Values())
}

func TestDataService_Sales(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	server.handle("sales", "estimates", func(writer http.ResponseWriter, request *http.Request) {
		query := request.URL.Query()
		assert.Equal(t, "True", query.Get("active"))
		assert.Equal(t, "2024-01-01T05:00:00Z", query.Get("soldAfter"))
		assert.Equal(t, "2024-02-01T05:00:00Z", query.Get("soldBefore"))

		writeJSON(writer, map[string]interface{}{
			"hasMore": false,
			"data": []map[string]interface{}{
				{"id": 1, "items": []map[string]interface{}{{"total": 10.10}, {"total": 20.20}}},
				{"id": 2, "items": []map[string]interface{}{{"total": "5.05"}, {"sku": "no total"}}},
				{"id": 3},
			},
		})
	})

	data := server.client(t).Data()

	estimates, err := data.SoldEstimatesBetween(context.Background(), rangeStart, rangeEnd)
	require.NoError(t, err)
	assert.Len(t, estimates, 3)

	total, err := data.TotalSalesBetween(context.Background(), rangeStart, rangeEnd)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("35.35").Equal(total), total.String())
}

func TestDataService_Settings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		resource string
		active   string
		want     string
		call     func(servicetitan.DataClient, string) ([]servicetitan.Record, error)
	}{
		{"employees default active", "employees", "", "True", func(d servicetitan.DataClient, a string) ([]servicetitan.Record, error) {
			return d.Employees(context.Background(), a)
		}},
		{"technicians any", "technicians", "Any", "Any", func(d servicetitan.DataClient, a string) ([]servicetitan.Record, error) {
			return d.Technicians(context.Background(), a)
		}},
		{"tag types inactive", "tag-types", "False", "False", func(d servicetitan.DataClient, a string) ([]servicetitan.Record, error) {
			return d.TagTypes(context.Background(), a)
		}},
		{"business units", "business-units", "", "True", func(d servicetitan.DataClient, a string) ([]servicetitan.Record, error) {
			return d.BusinessUnits(context.Background(), a)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := newTestServer(t)
			server.handle("settings", tt.resource, func(writer http.ResponseWriter, request *http.Request) {
				assert.Equal(t, tt.want, request.URL.Query().Get("active"))
				writeJSON(writer, map[string]interface{}{"hasMore": false, "data": records(1, 2)})
			})

			got, err := tt.call(server.client(t).Data(), tt.active)
			require.NoError(t, err)
			assert.Len(t, got, 2)
		})
	}
}

func TestDataService_PurchaseOrders(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	server.handle("inventory", "purchase-orders", func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "2024-01-01T05:00:00Z", request.URL.Query().Get("createdOnOrAfter"))
		writeJSON(writer, map[string]interface{}{"hasMore": false, "data": records(1)})
	})

	orders, err := server.client(t).Data().PurchaseOrdersCreatedBetween(context.Background(), rangeStart, rangeEnd)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}
