package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*AppMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := New(provider.Meter("test"), "shopwave-test")
	require.NoError(t, err)
	return m, reader
}

// sums collects the int64 counters of one collection by instrument name.
func sums(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				out[m.Name] += dp.Value
			}
		}
	}
	return out
}

func TestAppMetrics_Record(t *testing.T) {
	ctx := context.Background()
	m, reader := newTestMetrics(t)

	m.RecordHTTPRequest(ctx, "GET", "/api/v1/products", 200, 3*time.Millisecond)
	m.RecordHTTPRequest(ctx, "GET", "/api/v1/orders", 401, time.Millisecond)
	m.RecordStoreOp(ctx, "memory", "list", "products", time.Now(), nil)
	m.RecordOrder(ctx, 55)
	m.RecordCartMutation(ctx, "add", false)
	m.RecordCartMutation(ctx, "clear", true)
	m.RecordCartMerge(ctx, 2)
	m.RecordProductWrite(ctx, "create", errors.New("boom"))
	m.RecordOrderEvent(ctx, "order.created", nil)
	m.RecordCacheLookup(ctx, true)
	m.RecordCacheLookup(ctx, false)

	got := sums(t, reader)
	assert.Equal(t, int64(2), got["http.server.request.count"])
	assert.Equal(t, int64(1), got["http.server.request.error.count"])
	assert.Equal(t, int64(1), got["store.client.operations.count"])
	assert.Equal(t, int64(1), got["orders_created_total"])
	assert.Equal(t, int64(2), got["cart_mutations_total"])
	assert.Equal(t, int64(1), got["cart_merges_total"])
	assert.Equal(t, int64(1), got["product_writes_total"])
	assert.Equal(t, int64(1), got["order_events_consumed_total"])
	assert.Equal(t, int64(2), got["catalog_cache_requests_total"])
}

func TestAppMetrics_NilIsNoop(t *testing.T) {
	var m *AppMetrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordHTTPRequest(ctx, "GET", "/", 500, time.Second)
		m.RecordStoreOp(ctx, "gorm", "get", "products", time.Now(), errors.New("x"))
		m.RecordOrder(ctx, 1)
		m.RecordCartMutation(ctx, "add", true)
		m.RecordCartMerge(ctx, 1)
		m.RecordProductWrite(ctx, "delete", nil)
		m.RecordOrderEvent(ctx, "order.created", nil)
		m.RecordCacheLookup(ctx, false)
	})
}

func TestParseHeaders(t *testing.T) {
	assert.Equal(t, map[string]string{
		"Authorization": "Basic abc",
		"X-Scope":       "shop",
	}, parseHeaders("Authorization=Basic abc, X-Scope=shop,broken"))
	assert.Empty(t, parseHeaders(""))
}
