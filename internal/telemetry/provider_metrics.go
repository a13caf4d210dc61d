package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/amedasmap/amedasmap/internal/amedas"
)

// ProviderMetrics records upstream provider calls and the age of the
// current snapshot. It implements amedas.MetricsRecorder.
type ProviderMetrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
}

var _ amedas.MetricsRecorder = (*ProviderMetrics)(nil)

// NewProviderMetrics creates the provider call instruments on meter.
func NewProviderMetrics(meter metric.Meter) (*ProviderMetrics, error) {
	requestDuration, err := meter.Float64Histogram(
		"provider.request.duration",
		metric.WithDescription("Duration of provider loads in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"provider.request.total",
		metric.WithDescription("Total number of provider loads"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &ProviderMetrics{
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
	}, nil
}

// RecordRequest records one provider load.
func (m *ProviderMetrics) RecordRequest(provider, operation string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error.type", errorType(err)))
	}

	// Detached from the request so a cancelled caller still gets recorded.
	ctx := context.Background()
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func errorType(err error) string {
	switch {
	case errors.Is(err, amedas.ErrWrongURL):
		return "wrong_url"
	case errors.Is(err, amedas.ErrHTTP):
		return "http"
	case errors.Is(err, amedas.ErrParse):
		return "parse"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}

// RegisterSnapshotAge reports the age of the snapshot returned by snapshotTime
// as an observable gauge. Nothing is reported while it returns the zero time.
func RegisterSnapshotAge(meter metric.Meter, snapshotTime func() time.Time) error {
	_, err := meter.Float64ObservableGauge(
		"amedas.snapshot.age",
		metric.WithDescription("Seconds since the observation time of the current snapshot"),
		metric.WithUnit("s"),
		metric.WithFloat64Callback(func(_ context.Context, o metric.Float64Observer) error {
			t := snapshotTime()
			if t.IsZero() {
				return nil
			}
			o.Observe(time.Since(t).Seconds())
			return nil
		}),
	)
	return err
}
