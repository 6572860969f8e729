// Package memory provides in-process implementations of the repository
// interfaces. They back the unit tests and STORE_DRIVER=memory local runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ArowuTest/crownbid-backend/internal/models"
	"github.com/ArowuTest/crownbid-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	_ repositories.CandidateRepository       = (*CandidateRepository)(nil)
	_ repositories.CrownStatusRepository     = (*CrownStatusRepository)(nil)
	_ repositories.SettlementEventRepository = (*SettlementEventRepository)(nil)
	_ repositories.QueueEntryRepository      = (*QueueEntryRepository)(nil)
)

// CandidateRepository keeps candidates in a map keyed by id
type CandidateRepository struct {
	mu         sync.RWMutex
	candidates map[string]models.Candidate
}

// NewCandidateRepository returns a repository seeded with candidates
func NewCandidateRepository(candidates ...*models.Candidate) *CandidateRepository {
	r := &CandidateRepository{candidates: make(map[string]models.Candidate)}
	for _, c := range candidates {
		r.candidates[c.ID] = *c
	}
	return r
}

// FindByID returns a copy of the candidate
func (r *CandidateRepository) FindByID(_ context.Context, id string) (*models.Candidate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.candidates[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &c, nil
}

// FindTopBidders mirrors the store query: crownPrice > 0, descending, limited
func (r *CandidateRepository) FindTopBidders(_ context.Context, limit int) ([]*models.Candidate, error) {
	r.mu.RLock()
	out := make([]*models.Candidate, 0, len(r.candidates))
	for _, c := range r.candidates {
		if c.BidAmount() > 0 {
			c := c
			out = append(out, &c)
		}
	}
	r.mu.RUnlock()

	// Ties come back in an arbitrary order, like the store.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].BidAmount() > out[j].BidAmount()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// List returns every candidate ordered by key
func (r *CandidateRepository) List(_ context.Context, limit int) ([]*models.Candidate, error) {
	r.mu.RLock()
	out := make([]*models.Candidate, 0, len(r.candidates))
	for _, c := range r.candidates {
		c := c
		out = append(out, &c)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdatePaymentProfile applies the partial update
func (r *CandidateRepository) UpdatePaymentProfile(_ context.Context, id string, update *models.PaymentProfileUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.candidates[id]
	if !ok {
		return repositories.ErrNotFound
	}
	update.Apply(&c)
	r.candidates[id] = c
	return nil
}

// Upsert stores a copy of candidate
func (r *CandidateRepository) Upsert(_ context.Context, candidate *models.Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidates[candidate.ID] = *candidate
	return nil
}

// CrownStatusRepository holds the singleton behind a mutex. Transact holds the
// mutex across read and write, which gives the same all-or-nothing view as a
// store transaction.
type CrownStatusRepository struct {
	mu     sync.Mutex
	status models.CrownStatus
}

// NewCrownStatusRepository returns an empty crown status
func NewCrownStatusRepository() *CrownStatusRepository {
	return &CrownStatusRepository{status: models.CrownStatus{ID: models.CrownStatusID}}
}

// Put replaces the whole status; used to seed state.
func (r *CrownStatusRepository) Put(status models.CrownStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	status.ID = models.CrownStatusID
	r.status = status
}

// Get returns a copy of the status
func (r *CrownStatusRepository) Get(_ context.Context) (*models.CrownStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.status
	return &s, nil
}

// Transact runs fn against a copy and commits its update only if fn succeeds
func (r *CrownStatusRepository) Transact(_ context.Context, now time.Time, fn repositories.CrownStatusTxFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current := r.status
	update, err := fn(&current)
	if err != nil || update == nil {
		return err
	}
	r.status.Apply(update, now)
	return nil
}

// Merge applies update
func (r *CrownStatusRepository) Merge(_ context.Context, update *models.CrownStatusUpdate, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.Apply(update, now)
	return nil
}

// SettlementEventRepository is an append-only slice of events
type SettlementEventRepository struct {
	mu     sync.RWMutex
	events []models.SettlementEvent
}

// NewSettlementEventRepository returns an empty event log
func NewSettlementEventRepository() *SettlementEventRepository {
	return &SettlementEventRepository{}
}

// Create appends event
func (r *SettlementEventRepository) Create(_ context.Context, event *models.SettlementEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	r.events = append(r.events, *event)
	return nil
}

// FindRecent returns events newest first
func (r *SettlementEventRepository) FindRecent(_ context.Context, dateKey string, limit int) ([]*models.SettlementEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.SettlementEvent, 0, len(r.events))
	for i := len(r.events) - 1; i >= 0; i-- {
		e := r.events[i]
		if dateKey != "" && e.DateKey != dateKey {
			continue
		}
		out = append(out, &e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// All returns every event in insertion order.
func (r *SettlementEventRepository) All() []models.SettlementEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.SettlementEvent(nil), r.events...)
}

// QueueEntryRepository keeps queue entries in a map keyed by uid
type QueueEntryRepository struct {
	mu      sync.RWMutex
	entries map[string]models.QueueEntry
}

// NewQueueEntryRepository returns an empty queue
func NewQueueEntryRepository() *QueueEntryRepository {
	return &QueueEntryRepository{entries: make(map[string]models.QueueEntry)}
}

// Upsert stores a copy of entry
func (r *QueueEntryRepository) Upsert(_ context.Context, entry *models.QueueEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.UID] = *entry
	return nil
}

// List returns active entries ordered like the store index
func (r *QueueEntryRepository) List(_ context.Context, limit int) ([]*models.QueueEntry, error) {
	r.mu.RLock()
	out := make([]*models.QueueEntry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.IsActive && e.CrownPrice > 0 {
			e := e
			out = append(out, &e)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.CrownPrice != b.CrownPrice {
			return a.CrownPrice > b.CrownPrice
		}
		if a.PriceJoinedAt != b.PriceJoinedAt {
			return a.PriceJoinedAt < b.PriceJoinedAt
		}
		return a.UID < b.UID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
