package payplan

import (
	"context"
	"time"
)

// Metrics receives the reconciliation counters. The telemetry package
// provides the OpenTelemetry implementation.
type Metrics interface {
	RecordMaterialization(ctx context.Context, source string, placeholder bool)
	RecordHealing(ctx context.Context, records, installments int)
	RecordPartialWriteFailure(ctx context.Context, failedRows int)
	RecordSaveDuration(ctx context.Context, d time.Duration, atomic bool)
}

type noopMetrics struct{}

func (noopMetrics) RecordMaterialization(context.Context, string, bool) {}
func (noopMetrics) RecordHealing(context.Context, int, int) {}
func (noopMetrics) RecordPartialWriteFailure(context.Context, int) {}
func (noopMetrics) RecordSaveDuration(context.Context, time.Duration, bool) {}
