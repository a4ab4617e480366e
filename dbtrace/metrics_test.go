package dbtrace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// findMetric returns the metric with the given name from a collection.
func findMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func TestNewMetrics(t *testing.T) {
	mp := sdkmetric.NewMeterProvider()
	defer mp.Shutdown(context.Background())

	m, err := newMetrics(mp.Meter("test"))

	require.NoError(t, err)
	assert.NotNil(t, m.operationDuration)
	assert.NotNil(t, m.obfuscations)
}

func TestRecordDuration(t *testing.T) {
	type args struct {
		operation string
		site      string
		err       error
	}

	tests := []struct {
		name       string
		args       args
		wantStatus string
		wantOp     bool
	}{
		{
			name:       "given successful call, then records with ok status",
			args:       args{operation: "SELECT", site: "query"},
			wantStatus: "ok",
			wantOp:     true,
		},
		{
			name:       "given failed call, then records with error status",
			args:       args{operation: "INSERT", site: "insert", err: assert.AnError},
			wantStatus: "error",
			wantOp:     true,
		},
		{
			name:       "given empty operation, then records without operation attribute",
			args:       args{site: "execute"},
			wantStatus: "ok",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := sdkmetric.NewManualReader()
			mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
			defer mp.Shutdown(context.Background())

			m, err := newMetrics(mp.Meter("test"))
			require.NoError(t, err)

			ctx := context.Background()
			m.recordDuration(
				ctx,
				10*time.Millisecond,
				tt.args.operation,
				tt.args.site,
				[]attribute.KeyValue{KeySystem.String("postgresql")},
				tt.args.err,
			)

			var rm metricdata.ResourceMetrics
			require.NoError(t, reader.Collect(ctx, &rm))

			got, ok := findMetric(rm, "db.client.operation.duration")
			require.True(t, ok)
			hist, ok := got.Data.(metricdata.Histogram[float64])
			require.True(t, ok)
			require.Len(t, hist.DataPoints, 1)

			set := hist.DataPoints[0].Attributes
			status, _ := set.Value("status")
			assert.Equal(t, tt.wantStatus, status.AsString())
			site, _ := set.Value("db.call_site")
			assert.Equal(t, tt.args.site, site.AsString())
			_, hasOp := set.Value(KeyOperation)
			assert.Equal(t, tt.wantOp, hasOp)
		})
	}
}

func TestRecordObfuscation(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	m, err := newMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.recordObfuscation(ctx, OutcomeUnchanged, nil)
	m.recordObfuscation(ctx, OutcomeRedacted, nil)
	m.recordObfuscation(ctx, OutcomeRedacted, nil)
	m.recordObfuscation(ctx, OutcomeMalformed, nil)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	got, ok := findMetric(rm, "db.client.statement.obfuscations")
	require.True(t, ok)
	sum, ok := got.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	counts := map[string]int64{}
	for _, dp := range sum.DataPoints {
		outcome, _ := dp.Attributes.Value("outcome")
		counts[outcome.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"redacted": 2, "malformed": 1}, counts)
}

func TestMetrics_NilSafe(t *testing.T) {
	t.Run("given nil metrics, then does not panic", func(t *testing.T) {
		var m *metrics

		assert.NotPanics(t, func() {
			m.recordDuration(context.Background(), time.Second, "SELECT", "query", nil, nil)
			m.recordObfuscation(context.Background(), OutcomeRedacted, nil)
		})
	})

	t.Run("given nil instruments, then does not panic", func(t *testing.T) {
		m := &metrics{}

		assert.NotPanics(t, func() {
			m.recordDuration(context.Background(), time.Second, "SELECT", "query", nil, nil)
			m.recordObfuscation(context.Background(), OutcomeRedacted, nil)
		})
	})
}
