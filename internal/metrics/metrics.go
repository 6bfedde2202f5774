package metrics

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"

	"shopwave/pkg/config"
)

// AppMetrics holds all application metrics.
// A nil *AppMetrics is valid and records nothing.
type AppMetrics struct {
	// HTTP Metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestsErrors  metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	// Store Metrics
	StoreOpsTotal   metric.Int64Counter
	StoreOpDuration metric.Float64Histogram

	// Business Metrics
	OrdersCreated        metric.Int64Counter
	RevenueTotal         metric.Float64Counter
	CartMutations        metric.Int64Counter
	CartMerges           metric.Int64Counter
	ProductWrites        metric.Int64Counter
	OrderEventsConsumed  metric.Int64Counter
	CatalogCacheRequests metric.Int64Counter

	serviceName string
}

// InitMetrics initializes OpenTelemetry metrics. When no OTLP endpoint is configured
// the provider has no reader and measurements are dropped.
func InitMetrics(ctx context.Context, cfg *config.Config) (*AppMetrics, *sdkmetric.MeterProvider, error) {
	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.OTELServiceName),
			semconv.ServiceVersion(cfg.OTELServiceVersion),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build metrics resource: %w", err)
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	if cfg.OTELExporterOTLPEndpoint != "" {
		exporterOpts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(cfg.OTELExporterOTLPEndpoint),
			otlpmetrichttp.WithURLPath("/v1/metrics"),
		}
		if cfg.OTELExporterOTLPHeaders != "" {
			exporterOpts = append(exporterOpts, otlpmetrichttp.WithHeaders(parseHeaders(cfg.OTELExporterOTLPHeaders)))
		}
		if cfg.OTELExporterOTLPInsecure {
			exporterOpts = append(exporterOpts, otlpmetrichttp.WithInsecure())
		}

		exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second)),
		))
		log.Printf("Metrics exported every 10s to %s/v1/metrics", cfg.OTELExporterOTLPEndpoint)
	} else {
		log.Println("OTEL_EXPORTER_OTLP_ENDPOINT not set, metrics are not exported")
	}

	meterProvider := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(meterProvider)

	m, err := New(meterProvider.Meter(cfg.OTELServiceName), cfg.OTELServiceName)
	if err != nil {
		return nil, nil, err
	}
	return m, meterProvider, nil
}

// New creates every instrument on meter.
func New(meter metric.Meter, serviceName string) (*AppMetrics, error) {
	// histogram buckets in milliseconds
	buckets := []float64{2, 4, 6, 8, 10, 50, 100, 200, 400, 800, 1000, 1400, 2000, 5000, 10000, 30000}

	m := &AppMetrics{serviceName: serviceName}
	var err error

	if m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http requests counter: %w", err)
	}
	if m.HTTPRequestsErrors, err = meter.Int64Counter(
		"http.server.request.error.count",
		metric.WithDescription("Total number of HTTP error requests"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http errors counter: %w", err)
	}
	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(buckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}
	if m.StoreOpsTotal, err = meter.Int64Counter(
		"store.client.operations.count",
		metric.WithDescription("Total number of document store operations"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create store ops counter: %w", err)
	}
	if m.StoreOpDuration, err = meter.Float64Histogram(
		"store.client.operations.duration",
		metric.WithDescription("Document store operation duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(buckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create store duration histogram: %w", err)
	}
	if m.OrdersCreated, err = meter.Int64Counter(
		"orders_created_total",
		metric.WithDescription("Total number of orders created"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create orders counter: %w", err)
	}
	if m.RevenueTotal, err = meter.Float64Counter(
		"revenue_total",
		metric.WithDescription("Total revenue of created orders"),
		metric.WithUnit("USD"),
	); err != nil {
		return nil, fmt.Errorf("failed to create revenue counter: %w", err)
	}
	if m.CartMutations, err = meter.Int64Counter(
		"cart_mutations_total",
		metric.WithDescription("Cart mutations by kind"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create cart mutations counter: %w", err)
	}
	if m.CartMerges, err = meter.Int64Counter(
		"cart_merges_total",
		metric.WithDescription("Guest carts merged into a signed-in cart"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create cart merges counter: %w", err)
	}
	if m.ProductWrites, err = meter.Int64Counter(
		"product_writes_total",
		metric.WithDescription("Admin product writes by operation"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create product writes counter: %w", err)
	}
	if m.OrderEventsConsumed, err = meter.Int64Counter(
		"order_events_consumed_total",
		metric.WithDescription("Order events received from the broker"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create order events counter: %w", err)
	}
	if m.CatalogCacheRequests, err = meter.Int64Counter(
		"catalog_cache_requests_total",
		metric.WithDescription("Product list cache lookups by result"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create cache counter: %w", err)
	}
	return m, nil
}

// WithServiceName adds service.name to attributes.
func (m *AppMetrics) WithServiceName(attrs []attribute.KeyValue) []attribute.KeyValue {
	return append(attrs, attribute.String("service.name", m.serviceName))
}

// RecordStoreOp records one document store call.
func (m *AppMetrics) RecordStoreOp(ctx context.Context, backend, operation, collection string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	attrs := m.WithServiceName([]attribute.KeyValue{
		attribute.String("store.backend", backend),
		attribute.String("store.operation", operation),
		attribute.String("store.collection", collection),
		attribute.String("status", status),
	})
	m.StoreOpsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.StoreOpDuration.Record(ctx, float64(time.Since(start).Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordHTTPRequest records one served request.
func (m *AppMetrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := m.WithServiceName([]attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	})
	m.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	if status >= 400 {
		m.HTTPRequestsErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	m.HTTPRequestDuration.Record(ctx, float64(elapsed.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordOrder records a created order and its revenue.
func (m *AppMetrics) RecordOrder(ctx context.Context, total float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(m.WithServiceName(nil)...)
	m.OrdersCreated.Add(ctx, 1, attrs)
	m.RevenueTotal.Add(ctx, total, attrs)
}

// RecordCartMutation counts a cart mutation of the given kind (add, remove, update, clear).
func (m *AppMetrics) RecordCartMutation(ctx context.Context, kind string, authenticated bool) {
	if m == nil {
		return
	}
	m.CartMutations.Add(ctx, 1, metric.WithAttributes(m.WithServiceName([]attribute.KeyValue{
		attribute.String("cart.mutation", kind),
		attribute.Bool("cart.authenticated", authenticated),
	})...))
}

// RecordCartMerge counts a guest cart merged into a remote cart.
func (m *AppMetrics) RecordCartMerge(ctx context.Context, rows int) {
	if m == nil {
		return
	}
	m.CartMerges.Add(ctx, 1, metric.WithAttributes(m.WithServiceName([]attribute.KeyValue{
		attribute.Int("cart.rows", rows),
	})...))
}

// RecordProductWrite counts an admin product write (create, update, delete).
func (m *AppMetrics) RecordProductWrite(ctx context.Context, operation string, err error) {
	if m == nil {
		return
	}
	m.ProductWrites.Add(ctx, 1, metric.WithAttributes(m.WithServiceName([]attribute.KeyValue{
		attribute.String("product.operation", operation),
		attribute.Bool("error", err != nil),
	})...))
}

// RecordOrderEvent counts a consumed broker message.
func (m *AppMetrics) RecordOrderEvent(ctx context.Context, routingKey string, err error) {
	if m == nil {
		return
	}
	m.OrderEventsConsumed.Add(ctx, 1, metric.WithAttributes(m.WithServiceName([]attribute.KeyValue{
		attribute.String("messaging.routing_key", routingKey),
		attribute.Bool("error", err != nil),
	})...))
}

// RecordCacheLookup counts a catalog cache hit or miss.
func (m *AppMetrics) RecordCacheLookup(ctx context.Context, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CatalogCacheRequests.Add(ctx, 1, metric.WithAttributes(m.WithServiceName([]attribute.KeyValue{
		attribute.String("cache.result", result),
	})...))
}

// parseHeaders parses header string in format "key1=value1,key2=value2"
// and returns a map of headers
func parseHeaders(headerStr string) map[string]string {
	headers := make(map[string]string)
	if headerStr == "" {
		return headers
	}

	pairs := strings.Split(headerStr, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) == 2 {
			headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return headers
}
