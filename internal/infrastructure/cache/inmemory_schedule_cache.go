package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apppayplan "github.com/insurance/payplan/internal/application/payplan"
)

// entry holds an encoded schedule with its expiration
type entry struct {
	data      []byte
	expiresAt time.Time
}

// InMemoryScheduleCache implements ScheduleCache with a process-local map.
// Schedules are stored JSON-encoded so every Get hands out a fresh copy.
// Suitable for single-instance deployments and tests.
type InMemoryScheduleCache struct {
	mu        sync.RWMutex
	entries   map[uuid.UUID]entry
	ttl       time.Duration
	now       func() time.Time
	logger    *zap.Logger
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryScheduleCache creates a cache whose entries live for ttl.
// It starts a background goroutine that sweeps expired entries; call Close to stop it.
func NewInMemoryScheduleCache(ttl time.Duration, logger *zap.Logger) *InMemoryScheduleCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &InMemoryScheduleCache{
		entries:  make(map[uuid.UUID]entry),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
		stopChan: make(chan struct{}),
	}

	c.wg.Add(1)
	go c.cleanupLoop()

	return c
}

// Get returns a copy of the cached schedule, or false when absent or expired
func (c *InMemoryScheduleCache) Get(_ context.Context, subjectID uuid.UUID) (*apppayplan.CachedSchedule, bool) {
	c.mu.RLock()
	e, ok := c.entries[subjectID]
	c.mu.RUnlock()
	if !ok || c.now().After(e.expiresAt) {
		return nil, false
	}

	var schedule apppayplan.CachedSchedule
	if err := json.Unmarshal(e.data, &schedule); err != nil {
		c.logger.Warn("Discarding undecodable cached schedule",
			zap.String("subject_id", subjectID.String()),
			zap.Error(err),
		)
		c.Invalidate(context.Background(), subjectID)
		return nil, false
	}
	return &schedule, true
}

// Set stores a snapshot of the schedule
func (c *InMemoryScheduleCache) Set(_ context.Context, subjectID uuid.UUID, schedule *apppayplan.CachedSchedule) {
	data, err := json.Marshal(schedule)
	if err != nil {
		c.logger.Warn("Failed to encode schedule for cache",
			zap.String("subject_id", subjectID.String()),
			zap.Error(err),
		)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[subjectID] = entry{data: data, expiresAt: c.now().Add(c.ttl)}
}

// Invalidate drops the subject's entry
func (c *InMemoryScheduleCache) Invalidate(_ context.Context, subjectID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, subjectID)
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (c *InMemoryScheduleCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

// Size returns the number of entries, expired ones included
func (c *InMemoryScheduleCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *InMemoryScheduleCache) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *InMemoryScheduleCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for id, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, id)
		}
	}
}

var _ apppayplan.ScheduleCache = (*InMemoryScheduleCache)(nil)
