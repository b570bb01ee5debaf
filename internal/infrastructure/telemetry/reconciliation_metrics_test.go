package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestReconciliationMetrics(t *testing.T) {
	reader, provider := newManualMeter(t)
	m, err := NewReconciliationMetrics(provider.Meter("payplan"))
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordMaterialization(ctx, "from_document", false)
	m.RecordMaterialization(ctx, "from_document", true)
	m.RecordMaterialization(ctx, "manual", false)
	m.RecordHealing(ctx, 2, 5)
	m.RecordHealing(ctx, 0, 0)
	m.RecordPartialWriteFailure(ctx, 3)
	m.RecordPartialWriteFailure(ctx, 0)
	m.RecordSaveDuration(ctx, 40*time.Millisecond, false)
	m.RecordSaveDuration(ctx, 60*time.Millisecond, true)

	rm := collect(t, reader)

	materializations, ok := findMetric(rm, "payplan_materializations_total")
	require.True(t, ok)
	assert.Equal(t, int64(1), sumFor(materializations, AttrTermsSource.String("manual")))

	placeholders, ok := findMetric(rm, "payplan_placeholder_terms_total")
	require.True(t, ok)
	assert.Equal(t, int64(1), sumFor(placeholders, AttrTermsSource.String("from_document")))

	healed, ok := findMetric(rm, "payplan_healed_rows_total")
	require.True(t, ok)
	assert.Equal(t, int64(2), sumFor(healed, AttrHealedEntity.String("financial_record")))
	assert.Equal(t, int64(5), sumFor(healed, AttrHealedEntity.String("installment")))

	partial, ok := findMetric(rm, "payplan_partial_write_failures_total")
	require.True(t, ok)
	sum := partial.Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)

	durations, ok := findMetric(rm, "payplan_save_duration_seconds")
	require.True(t, ok)
	hist := durations.Data.(metricdata.Histogram[float64])
	var total uint64
	for _, dp := range hist.DataPoints {
		total += dp.Count
	}
	assert.Equal(t, uint64(2), total)
}

func TestReconciliationMetrics_NoopMeter(t *testing.T) {
	m, err := NewReconciliationMetrics(noop.NewMeterProvider().Meter("payplan"))
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		ctx := context.Background()
		m.RecordMaterialization(ctx, "mixed", true)
		m.RecordHealing(ctx, 1, 1)
		m.RecordPartialWriteFailure(ctx, 1)
		m.RecordSaveDuration(ctx, time.Millisecond, true)
	})
}
