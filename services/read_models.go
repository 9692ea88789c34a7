package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/anjiri1684/class_portal/models"
	"github.com/google/uuid"
)

// Invalidator is told when confirmed changes make cached views stale.
type Invalidator interface {
	SessionsChanged()
	LedgerChanged(holders ...models.Holder)
}

type ScheduleSource interface {
	ClassSchedule(ctx context.Context) (*models.ClassSchedule, error)
}

type cachedSchedule struct {
	schedule  *models.ClassSchedule
	fetchedAt time.Time
}

type cachedOverview struct {
	balances  []models.CreditBalance
	fetchedAt time.Time
}

// ReadModels caches confirmed backend reads per actor and ledger folds per
// holder. Entries are only filled from confirmed reads, expire after ttl and
// are dropped on invalidation. A read that was in flight when its entry was
// invalidated is handed to its caller but never cached.
type ReadModels struct {
	source ScheduleSource
	ttl    time.Duration
	now    func() time.Time

	mu          sync.RWMutex
	schedules   map[uuid.UUID]cachedSchedule
	scheduleGen uint64
	overviews   map[models.Holder]cachedOverview
	overviewGen map[models.Holder]uint64
}

func NewReadModels(source ScheduleSource, ttl time.Duration) *ReadModels {
	return &ReadModels{
		source:      source,
		ttl:         ttl,
		now:         time.Now,
		schedules:   make(map[uuid.UUID]cachedSchedule),
		overviews:   make(map[models.Holder]cachedOverview),
		overviewGen: make(map[models.Holder]uint64),
	}
}

func (r *ReadModels) fresh(fetchedAt time.Time) bool {
	return r.now().Sub(fetchedAt) < r.ttl
}

func (r *ReadModels) Schedule(ctx context.Context, actor Actor) (*models.ClassSchedule, error) {
	r.mu.RLock()
	cached, ok := r.schedules[actor.ID]
	gen := r.scheduleGen
	r.mu.RUnlock()
	if ok && r.fresh(cached.fetchedAt) {
		return cached.schedule, nil
	}

	schedule, err := r.source.ClassSchedule(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.scheduleGen == gen {
		r.schedules[actor.ID] = cachedSchedule{schedule: schedule, fetchedAt: r.now()}
	}
	r.mu.Unlock()
	return schedule, nil
}

// Overview returns the cached fold for holder, computing it with load on a miss.
func (r *ReadModels) Overview(holder models.Holder, load func() ([]models.CreditBalance, error)) ([]models.CreditBalance, error) {
	r.mu.RLock()
	cached, ok := r.overviews[holder]
	gen := r.overviewGen[holder]
	r.mu.RUnlock()
	if ok && r.fresh(cached.fetchedAt) {
		return cached.balances, nil
	}

	balances, err := load()
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	if r.overviewGen[holder] == gen {
		r.overviews[holder] = cachedOverview{balances: balances, fetchedAt: r.now()}
	}
	r.mu.Unlock()
	return balances, nil
}

// SessionsChanged drops every cached schedule: one session shows up in the
// views of its instructors, students and parents.
func (r *ReadModels) SessionsChanged() {
	r.mu.Lock()
	r.schedules = make(map[uuid.UUID]cachedSchedule)
	r.scheduleGen++
	r.mu.Unlock()
	log.Println("Invalidated cached class schedules.")
}

func (r *ReadModels) LedgerChanged(holders ...models.Holder) {
	r.mu.Lock()
	for _, h := range holders {
		delete(r.overviews, h)
		r.overviewGen[h]++
	}
	r.mu.Unlock()
}
