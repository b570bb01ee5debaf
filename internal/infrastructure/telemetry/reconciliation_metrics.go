package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// ReconciliationMetrics counts what the reconciliation service does to
// payment plans: materializations, healing of duplicated rows, placeholder
// terms and partial write failures.
type ReconciliationMetrics struct {
	materializations  *Counter
	placeholders      *Counter
	healed            *Counter
	partialWriteFails *Counter
	saveDuration      *Histogram
}

// NewReconciliationMetrics registers the reconciliation instruments on meter.
func NewReconciliationMetrics(meter metric.Meter) (*ReconciliationMetrics, error) {
	materializations, err := NewCounter(meter,
		"payplan_materializations_total",
		"Payment plans materialized from document terms",
		"{schedule}")
	if err != nil {
		return nil, err
	}
	placeholders, err := NewCounter(meter,
		"payplan_placeholder_terms_total",
		"Materializations that fell back to placeholder terms",
		"{schedule}")
	if err != nil {
		return nil, err
	}
	healed, err := NewCounter(meter,
		"payplan_healed_rows_total",
		"Duplicate financial records and installments removed while loading",
		"{row}")
	if err != nil {
		return nil, err
	}
	partialWriteFails, err := NewCounter(meter,
		"payplan_partial_write_failures_total",
		"Installment rows that failed to persist during a non-atomic save",
		"{row}")
	if err != nil {
		return nil, err
	}
	saveDuration, err := NewHistogram(meter, HistogramOpts{
		Name:        "payplan_save_duration_seconds",
		Description: "Duration of payment plan saves",
		Unit:        "s",
		Boundaries:  SaveDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	return &ReconciliationMetrics{
		materializations:  materializations,
		placeholders:      placeholders,
		healed:            healed,
		partialWriteFails: partialWriteFails,
		saveDuration:      saveDuration,
	}, nil
}

// RecordMaterialization counts a schedule built from document terms.
func (m *ReconciliationMetrics) RecordMaterialization(ctx context.Context, source string, placeholder bool) {
	m.materializations.Inc(ctx, AttrTermsSource.String(source), AttrPlaceholder.Bool(placeholder))
	if placeholder {
		m.placeholders.Inc(ctx, AttrTermsSource.String(source))
	}
}

// RecordHealing counts removed duplicates. Zero counts are not recorded.
func (m *ReconciliationMetrics) RecordHealing(ctx context.Context, records, installments int) {
	if records > 0 {
		m.healed.Add(ctx, int64(records), AttrHealedEntity.String("financial_record"))
	}
	if installments > 0 {
		m.healed.Add(ctx, int64(installments), AttrHealedEntity.String("installment"))
	}
}

// RecordPartialWriteFailure counts installment rows that failed to persist.
func (m *ReconciliationMetrics) RecordPartialWriteFailure(ctx context.Context, failedRows int) {
	if failedRows > 0 {
		m.partialWriteFails.Add(ctx, int64(failedRows))
	}
}

// RecordSaveDuration records how long a save took.
func (m *ReconciliationMetrics) RecordSaveDuration(ctx context.Context, d time.Duration, atomic bool) {
	m.saveDuration.RecordDuration(ctx, d, AttrAtomic.Bool(atomic))
}
