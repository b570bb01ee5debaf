package payplan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/insurance/payplan/internal/domain/payplan"
	"github.com/insurance/payplan/internal/domain/shared"
	"github.com/insurance/payplan/internal/domain/shared/valueobject"
	"github.com/insurance/payplan/internal/infrastructure/logger"
	"github.com/insurance/payplan/internal/infrastructure/telemetry"
)

// DefaultSaveConcurrency bounds concurrent installment updates during a save
const DefaultSaveConcurrency = 4

// ServiceConfig holds the dependencies of ReconciliationService
type ServiceConfig struct {
	Records      payplan.FinancialRecordRepository
	Installments payplan.InstallmentRepository
	Subjects     payplan.SubjectDocumentRepository

	// TxScope defaults to a NoOpTransactionScope over Records and Installments
	TxScope  TransactionScope
	Resolver *payplan.Resolver
	Cache    ScheduleCache
	Metrics  Metrics
	Logger   *zap.Logger
	Clock    func() time.Time

	// AtomicSave writes a save inside one transaction instead of
	// updating installments concurrently
	AtomicSave      bool
	SaveConcurrency int
}

// ReconciliationService owns the lifecycle of payment schedules: it
// materializes them from subject documents, heals duplicates, applies
// operator edits and answers settlement questions.
type ReconciliationService struct {
	records         payplan.FinancialRecordRepository
	installments    payplan.InstallmentRepository
	subjects        payplan.SubjectDocumentRepository
	txScope         TransactionScope
	resolver        *payplan.Resolver
	cache           ScheduleCache
	metrics         Metrics
	logger          *zap.Logger
	now             func() time.Time
	atomicSave      bool
	saveConcurrency int

	store  *StoreAdapter
	states *StateTracker
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(cfg ServiceConfig) *ReconciliationService {
	s := &ReconciliationService{
		records:         cfg.Records,
		installments:    cfg.Installments,
		subjects:        cfg.Subjects,
		txScope:         cfg.TxScope,
		resolver:        cfg.Resolver,
		cache:           cfg.Cache,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
		now:             cfg.Clock,
		atomicSave:      cfg.AtomicSave,
		saveConcurrency: cfg.SaveConcurrency,
		states:          NewStateTracker(),
	}
	if s.txScope == nil {
		s.txScope = NewNoOpTransactionScope(cfg.Records, cfg.Installments)
	}
	if s.resolver == nil {
		s.resolver = payplan.NewResolver()
	}
	if s.cache == nil {
		s.cache = NoopScheduleCache{}
	}
	if s.metrics == nil {
		s.metrics = noopMetrics{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.saveConcurrency < 1 {
		s.saveConcurrency = DefaultSaveConcurrency
	}
	s.store = s.storeOver(cfg.Records, cfg.Installments)
	return s
}

// GetOrCreateSchedule returns the schedule of a subject, materializing it
// from the document's extracted terms the first time it is requested.
func (s *ReconciliationService) GetOrCreateSchedule(ctx context.Context, subjectID uuid.UUID) (*ScheduleView, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payplan", "get_or_create_schedule")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrSubjectID, subjectID.String())

	snap, err := s.loadOrMaterialize(ctx, subjectID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return newScheduleView(subjectID, s.states.Get(subjectID), snap, s.now()), nil
}

// BeginEdit opens a schedule for editing. Nothing is written.
func (s *ReconciliationService) BeginEdit(ctx context.Context, subjectID uuid.UUID) (*ScheduleView, error) {
	view, err := s.GetOrCreateSchedule(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	s.states.Set(subjectID, StateEditing)
	view.State = StateEditing
	return view, nil
}

// SaveSchedule applies an operator's edit. The record is written first, then
// every edited installment. Rows already written stay written when a later
// row fails unless atomic saves are enabled.
func (s *ReconciliationService) SaveSchedule(ctx context.Context, subjectID uuid.UUID, input SaveScheduleInput) (*ScheduleView, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payplan", "save_schedule")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSubjectID, subjectID.String(),
		telemetry.SpanAttrInstallmentCount, len(input.Installments),
	)
	started := time.Now()

	doc, err := s.loadSubject(ctx, subjectID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	record, err := s.store.LoadRecord(ctx, subjectID)
	if err != nil {
		s.states.Set(subjectID, StateFailed)
		telemetry.RecordError(span, err)
		return nil, err
	}
	if record == nil {
		return nil, payplan.ValidationFailed("No financial record to save; load the schedule first")
	}
	current, err := s.store.LoadInstallments(ctx, record)
	if err != nil {
		s.states.Set(subjectID, StateFailed)
		telemetry.RecordError(span, err)
		return nil, err
	}

	now := s.now()
	byID := make(map[uuid.UUID]*payplan.Installment, len(current))
	for _, inst := range current {
		byID[inst.ID] = inst
	}
	edited := make([]*payplan.Installment, 0, len(input.Installments))
	seen := make(map[uuid.UUID]struct{}, len(input.Installments))
	for _, line := range input.Installments {
		inst, ok := byID[line.ID]
		if !ok {
			return nil, payplan.ValidationFailed("Installment does not belong to this schedule")
		}
		if _, dup := seen[line.ID]; dup {
			return nil, payplan.ValidationFailed("Installment listed more than once")
		}
		seen[line.ID] = struct{}{}
		edit, err := line.edit()
		if err != nil {
			return nil, err
		}
		if err := inst.ApplyEdit(edit, now); err != nil {
			return nil, err
		}
		edited = append(edited, inst)
	}
	if err := record.ApplyEdit(input.recordEdit(), payplan.Amounts(current), now); err != nil {
		return nil, err
	}

	if s.atomicSave {
		err = s.saveAtomic(ctx, record, edited)
	} else {
		err = s.saveConcurrent(ctx, record, edited)
	}
	s.metrics.RecordSaveDuration(ctx, time.Since(started), s.atomicSave)
	if err != nil {
		if errors.Is(err, payplan.ErrPartialWriteFailure) {
			s.states.Set(subjectID, StateEditing)
		} else {
			s.states.Set(subjectID, StateFailed)
		}
		telemetry.RecordError(span, err)
		logger.WithLogger(ctx, s.logger).Error("Failed to save schedule",
			zap.String("subject_id", subjectID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	s.states.Set(subjectID, StateReady)
	telemetry.AddEvent(span, "schedule_saved", telemetry.SpanAttrAmount, record.TotalAmount.String())
	logger.WithLogger(ctx, s.logger).Info("Schedule saved",
		zap.String("subject_id", subjectID.String()),
		zap.Int("installments", len(current)),
		zap.String("total", record.TotalAmount.StringFixed(valueobject.CentPlaces)),
	)

	snap := &scheduleSnapshot{Record: record, Installments: current, Projection: doc.NextInstallment}
	return newScheduleView(subjectID, StateReady, snap, now), nil
}

func (s *ReconciliationService) saveConcurrent(ctx context.Context, record *payplan.FinancialRecord, edited []*payplan.Installment) error {
	if err := s.records.Update(ctx, record); err != nil {
		return payplan.StoreUnavailable("update financial record", err)
	}

	var (
		mu     sync.Mutex
		errs   error
		failed int
		g      errgroup.Group
	)
	g.SetLimit(s.saveConcurrency)
	for _, inst := range edited {
		g.Go(func() error {
			if err := s.installments.Update(ctx, inst); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("installment %d: %w", inst.Number, err))
				failed++
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if errs != nil {
		s.metrics.RecordPartialWriteFailure(ctx, failed)
		return payplan.PartialWriteFailure(errs)
	}
	return nil
}

func (s *ReconciliationService) saveAtomic(ctx context.Context, record *payplan.FinancialRecord, edited []*payplan.Installment) error {
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.RecordRepo().Update(ctx, record); err != nil {
			return err
		}
		for _, inst := range edited {
			if err := repos.InstallmentRepo().Update(ctx, inst); err != nil {
				return fmt.Errorf("installment %d: %w", inst.Number, err)
			}
		}
		return nil
	})
	if err != nil {
		return payplan.StoreUnavailable("save schedule", err)
	}
	return nil
}

// ToggleInstallmentPaid flips an installment between paid and pending and
// persists it at once. On a store failure the returned installment carries
// its previous values.
func (s *ReconciliationService) ToggleInstallmentPaid(ctx context.Context, installmentID uuid.UUID) (*payplan.Installment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payplan", "toggle_installment_paid")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrInstallmentID, installmentID.String())

	inst, record, err := s.loadInstallmentWithRecord(ctx, installmentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	before := inst.Clone()
	if err := inst.TogglePaid(s.now()); err != nil {
		return nil, err
	}
	if err := s.installments.Update(ctx, inst); err != nil {
		*inst = *before
		err = payplan.StoreUnavailable("toggle installment", err)
		telemetry.RecordError(span, err)
		return inst, err
	}

	logger.WithLogger(ctx, s.logger).Info("Installment payment toggled",
		zap.String("subject_id", record.SubjectDocumentID.String()),
		zap.String("installment_id", installmentID.String()),
		zap.String("status", inst.Status.String()),
	)
	return inst, nil
}

// AddInstallment appends an installment after the last one. Its amount is
// the average of the existing installments and it falls due one cadence
// after the last due date.
func (s *ReconciliationService) AddInstallment(ctx context.Context, subjectID uuid.UUID) (*payplan.Installment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payplan", "add_installment")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrSubjectID, subjectID.String())

	record, err := s.store.LoadRecord(ctx, subjectID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if record == nil {
		return nil, payplan.ValidationFailed("No financial record; load the schedule first")
	}
	current, err := s.store.LoadInstallments(ctx, record)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	now := s.now()
	number := 1
	var last *payplan.Installment
	for _, inst := range current {
		if inst.Number >= number {
			number = inst.Number + 1
		}
		if inst.DueDate != nil && (last == nil || inst.Number > last.Number) {
			last = inst
		}
	}

	var due time.Time
	if last != nil {
		due = payplan.NextDueDate(*last.DueDate, 1)
	} else {
		doc, err := s.loadSubject(ctx, subjectID)
		if err != nil {
			return nil, err
		}
		due = payplan.NextDueDate(doc.Anchor(now), 1)
	}

	inst, err := payplan.NewInstallment(record.ID, number, valueobject.AverageAmount(payplan.Amounts(current)), &due, now)
	if err != nil {
		return nil, err
	}
	if err := s.installments.Create(ctx, inst); err != nil {
		err = payplan.StoreUnavailable("create installment", err)
		telemetry.RecordError(span, err)
		return nil, err
	}
	// Reload so a concurrent add of the same number is healed now
	healed, err := s.store.LoadInstallments(ctx, record)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	for _, kept := range healed {
		if kept.Number == number {
			inst = kept
			break
		}
	}
	return inst, nil
}

// RemoveInstallment deletes an installment immediately. A schedule keeps at
// least one installment.
func (s *ReconciliationService) RemoveInstallment(ctx context.Context, installmentID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "payplan", "remove_installment")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrInstallmentID, installmentID.String())

	inst, record, err := s.loadInstallmentWithRecord(ctx, installmentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	current, err := s.store.LoadInstallments(ctx, record)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if len(current) <= 1 {
		return payplan.ValidationFailed("A schedule needs at least one installment")
	}

	if err := s.installments.Delete(ctx, inst.ID); err != nil {
		err = payplan.StoreUnavailable("delete installment", err)
		telemetry.RecordError(span, err)
		return err
	}

	remaining := 0
	for _, other := range current {
		if other.ID != inst.ID {
			remaining++
		}
	}
	if err := record.SetInstallmentCount(remaining, s.now()); err != nil {
		return err
	}
	if err := s.records.Update(ctx, record); err != nil {
		err = payplan.StoreUnavailable("update installment count", err)
		telemetry.RecordError(span, err)
		return err
	}
	return nil
}

// RecreateSchedule discards every record and installment of a subject and
// materializes the schedule again from the document.
func (s *ReconciliationService) RecreateSchedule(ctx context.Context, subjectID uuid.UUID) (*ScheduleView, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payplan", "recreate_schedule")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrSubjectID, subjectID.String())

	doc, err := s.loadSubject(ctx, subjectID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.states.Set(subjectID, StateRecreating)
	s.cache.Invalidate(ctx, subjectID)

	terms, record, installments, err := s.buildSchedule(ctx, doc)
	if err != nil {
		s.states.Set(subjectID, StateFailed)
		return nil, err
	}
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		store := s.storeOver(repos.RecordRepo(), repos.InstallmentRepo())
		if err := store.DeleteSubject(ctx, subjectID); err != nil {
			return err
		}
		return store.Persist(ctx, record, installments)
	})
	if err != nil {
		err = storeError("recreate schedule", err)
		s.states.Set(subjectID, StateFailed)
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.metrics.RecordMaterialization(ctx, terms.Source, terms.Placeholder)
	logger.WithLogger(ctx, s.logger).Info("Schedule recreated",
		zap.String("subject_id", subjectID.String()),
		zap.String("terms_source", terms.Source),
		zap.Int("installments", len(installments)),
	)

	snap, err := s.finishLoad(ctx, subjectID, doc, terms.Source)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return newScheduleView(subjectID, StateReady, snap, s.now()), nil
}

// IsFullySettled reports whether the subject's payment plan is fully paid.
// It never materializes a schedule and always reads the store.
func (s *ReconciliationService) IsFullySettled(ctx context.Context, subjectID uuid.UUID) (bool, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payplan", "is_fully_settled")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrSubjectID, subjectID.String())

	doc, err := s.loadSubject(ctx, subjectID)
	if err != nil {
		telemetry.RecordError(span, err)
		return false, err
	}
	record, err := s.store.LoadRecord(ctx, subjectID)
	if err != nil {
		telemetry.RecordError(span, err)
		return false, err
	}
	in := payplan.SettlementInput{Record: record, Projection: doc.NextInstallment}
	if record != nil {
		in.Installments, err = s.store.LoadInstallments(ctx, record)
		if err != nil {
			telemetry.RecordError(span, err)
			return false, err
		}
	} else {
		// No record yet: the document's own terms tell whether a card is involved
		in.PaymentMethod = s.resolver.ResolvePaymentMethod(doc.FinancialPayload, doc.RenderedText)
	}
	return payplan.EvaluateSettlement(in), nil
}

// State returns the last known state of a subject in this process
func (s *ReconciliationService) State(subjectID uuid.UUID) ScheduleState {
	return s.states.Get(subjectID)
}

// loadOrMaterialize always reads records and installments from the store, so
// duplicate healing runs on every load. Only the subject document may come
// from the cache.
func (s *ReconciliationService) loadOrMaterialize(ctx context.Context, subjectID uuid.UUID) (*scheduleSnapshot, error) {
	doc, termsSource, err := s.loadCachedSubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	record, err := s.store.LoadRecord(ctx, subjectID)
	if err != nil {
		s.states.Set(subjectID, StateFailed)
		return nil, err
	}
	if record != nil {
		return s.finishLoad(ctx, subjectID, doc, termsSource)
	}

	s.states.Set(subjectID, StateMaterializing)
	terms, record, installments, err := s.buildSchedule(ctx, doc)
	if err != nil {
		s.states.Set(subjectID, StateFailed)
		return nil, err
	}
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		return s.storeOver(repos.RecordRepo(), repos.InstallmentRepo()).Persist(ctx, record, installments)
	})
	if err != nil {
		s.states.Set(subjectID, StateFailed)
		return nil, storeError("materialize schedule", err)
	}
	s.metrics.RecordMaterialization(ctx, terms.Source, terms.Placeholder)
	logger.WithLogger(ctx, s.logger).Info("Schedule materialized",
		zap.String("subject_id", subjectID.String()),
		zap.String("terms_source", terms.Source),
		zap.Int("installments", len(installments)),
	)

	// A concurrent request may have materialized too; loading again heals it
	return s.finishLoad(ctx, subjectID, doc, terms.Source)
}

// finishLoad reads the surviving record and its healed installments, marks
// the subject ready and caches the document.
func (s *ReconciliationService) finishLoad(ctx context.Context, subjectID uuid.UUID, doc *payplan.SubjectDocument, termsSource string) (*scheduleSnapshot, error) {
	record, err := s.store.LoadRecord(ctx, subjectID)
	if err != nil {
		s.states.Set(subjectID, StateFailed)
		return nil, err
	}
	if record == nil {
		s.states.Set(subjectID, StateFailed)
		return nil, payplan.StoreUnavailable("load financial records", shared.ErrNotFound)
	}
	installments, err := s.store.LoadInstallments(ctx, record)
	if err != nil {
		s.states.Set(subjectID, StateFailed)
		return nil, err
	}

	if s.states.Get(subjectID) != StateEditing {
		s.states.Set(subjectID, StateReady)
	}
	s.cache.Set(ctx, subjectID, &CachedSchedule{Document: doc, TermsSource: termsSource})
	return &scheduleSnapshot{
		Record:       record,
		Installments: installments,
		Projection:   doc.NextInstallment,
		TermsSource:  termsSource,
	}, nil
}

// buildSchedule resolves the document's terms into a new record and its
// installments without touching the store.
func (s *ReconciliationService) buildSchedule(ctx context.Context, doc *payplan.SubjectDocument) (payplan.ExtractedTerms, *payplan.FinancialRecord, []*payplan.Installment, error) {
	now := s.now()
	terms := s.resolver.Resolve(doc.FinancialPayload, doc.RenderedText)
	if terms.Placeholder {
		logger.WithLogger(ctx, s.logger).Warn("Falling back to placeholder terms",
			zap.String("subject_id", doc.ID.String()),
			zap.String("code", payplan.CodeExtractionIncomplete),
			zap.Error(payplan.ErrExtractionIncomplete),
		)
	}

	record, err := payplan.NewFinancialRecordFromTerms(doc.ID, terms, now)
	if err != nil {
		return terms, nil, nil, err
	}
	installments, err := payplan.InstallmentsFromSchedule(record.ID, payplan.GenerateSchedule(terms, doc.Anchor(now)), now)
	if err != nil {
		return terms, nil, nil, err
	}
	return terms, record, installments, nil
}

// loadCachedSubject returns the subject document and the recorded terms
// source, from the cache when present.
func (s *ReconciliationService) loadCachedSubject(ctx context.Context, subjectID uuid.UUID) (*payplan.SubjectDocument, string, error) {
	if cached, ok := s.cache.Get(ctx, subjectID); ok && cached.Document != nil {
		return cached.Document, cached.TermsSource, nil
	}
	doc, err := s.loadSubject(ctx, subjectID)
	if err != nil {
		return nil, "", err
	}
	return doc, "", nil
}

func (s *ReconciliationService) loadSubject(ctx context.Context, subjectID uuid.UUID) (*payplan.SubjectDocument, error) {
	doc, err := s.subjects.FindByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError(shared.ErrNotFound.Code, "Subject document not found")
		}
		return nil, payplan.StoreUnavailable("load subject document", err)
	}
	return doc, nil
}

func (s *ReconciliationService) loadInstallmentWithRecord(ctx context.Context, installmentID uuid.UUID) (*payplan.Installment, *payplan.FinancialRecord, error) {
	inst, err := s.installments.FindByID(ctx, installmentID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil, shared.NewDomainError(shared.ErrNotFound.Code, "Installment not found")
		}
		return nil, nil, payplan.StoreUnavailable("load installment", err)
	}
	record, err := s.records.FindByID(ctx, inst.FinancialRecordID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil, shared.NewDomainError(shared.ErrNotFound.Code, "Financial record not found")
		}
		return nil, nil, payplan.StoreUnavailable("load financial record", err)
	}
	return inst, record, nil
}

func (s *ReconciliationService) storeOver(records payplan.FinancialRecordRepository, installments payplan.InstallmentRepository) *StoreAdapter {
	return NewStoreAdapter(records, installments, s.metrics, s.logger, s.now)
}

// storeError keeps domain errors raised inside a transaction and wraps
// anything else (commit failures) as StoreUnavailable.
func storeError(op string, err error) error {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return payplan.StoreUnavailable(op, err)
}
