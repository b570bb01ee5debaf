package payplan

import (
	"context"

	"github.com/google/uuid"

	"github.com/insurance/payplan/internal/domain/payplan"
)

// CachedSchedule is the read-only side of a schedule: the subject document
// it is generated from and where its terms came from. Records and
// installments are never cached; every load reads and heals them.
type CachedSchedule struct {
	Document    *payplan.SubjectDocument `json:"document"`
	TermsSource string                   `json:"terms_source,omitempty"`
}

// scheduleSnapshot is a schedule as loaded from the store for one request
type scheduleSnapshot struct {
	Record       *payplan.FinancialRecord
	Installments []*payplan.Installment
	Projection   *payplan.InstallmentProjection
	TermsSource  string
}

// ScheduleCache holds subject documents keyed by subject.
// Implementations must hand out copies: callers mutate what Get returns.
// Cache failures are never fatal; implementations log and report a miss.
type ScheduleCache interface {
	Get(ctx context.Context, subjectID uuid.UUID) (*CachedSchedule, bool)
	Set(ctx context.Context, subjectID uuid.UUID, schedule *CachedSchedule)
	Invalidate(ctx context.Context, subjectID uuid.UUID)
}

// NoopScheduleCache never stores anything
type NoopScheduleCache struct{}

// Get always misses
func (NoopScheduleCache) Get(context.Context, uuid.UUID) (*CachedSchedule, bool) { return nil, false }

// Set does nothing
func (NoopScheduleCache) Set(context.Context, uuid.UUID, *CachedSchedule) {}

// Invalidate does nothing
func (NoopScheduleCache) Invalidate(context.Context, uuid.UUID) {}

var _ ScheduleCache = NoopScheduleCache{}
