// Package state holds the in-memory view of repairs and SMS logs that the
// UI renders from.
//
// Every mutation goes to the store first and is followed by a full reload
// of both collections; the cache is never patched in place. Observers are
// notified after each reload with a copy of the new contents.
package state

import (
	"context"
	"sync"

	"github.com/kimhsiao/fixdesk/backend/internal/db"
	"github.com/kimhsiao/fixdesk/backend/internal/logging"
	"github.com/kimhsiao/fixdesk/backend/internal/models"
)

// Snapshot is an immutable copy of the cached collections.
type Snapshot struct {
	Repairs []*models.RepairJob
	SmsLogs []*models.SmsLog
}

// Observer is called after every reload.
type Observer func(Snapshot)

// State is the application state container. Create one per process in the
// composition root and pass it by reference.
type State struct {
	store db.Store
	log   *logging.Logger

	mu      sync.RWMutex
	repairs []*models.RepairJob
	smsLogs []*models.SmsLog

	obsMu     sync.Mutex
	observers map[int]Observer
	nextID    int
}

// New creates an empty State over store. Call Load to populate it.
func New(store db.Store, log *logging.Logger) *State {
	if log == nil {
		log = logging.Get()
	}
	return &State{
		store:     store,
		log:       log.With(map[string]interface{}{"component": "state"}),
		repairs:   []*models.RepairJob{},
		smsLogs:   []*models.SmsLog{},
		observers: make(map[int]Observer),
	}
}

// Subscribe registers fn and returns a function that removes it.
func (s *State) Subscribe(fn Observer) (unsubscribe func()) {
	s.obsMu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.obsMu.Lock()
			delete(s.observers, id)
			s.obsMu.Unlock()
		})
	}
}

// Load performs a full reload of both collections and notifies observers.
func (s *State) Load(ctx context.Context) error {
	return s.reload(ctx)
}

// AddRepair inserts job, reloads and notifies.
func (s *State) AddRepair(ctx context.Context, job *models.RepairJob) error {
	if _, err := s.store.InsertRepair(ctx, job); err != nil {
		return err
	}
	return s.reload(ctx)
}

// UpdateRepair overwrites the stored job, reloads and notifies.
// It returns the number of rows the store reported as affected.
func (s *State) UpdateRepair(ctx context.Context, job *models.RepairJob) (int64, error) {
	n, err := s.store.UpdateRepair(ctx, job)
	if err != nil {
		return 0, err
	}
	return n, s.reload(ctx)
}

// DeleteRepair removes the job, reloads and notifies.
// It returns the number of rows the store reported as affected.
func (s *State) DeleteRepair(ctx context.Context, id int64) (int64, error) {
	n, err := s.store.DeleteRepair(ctx, id)
	if err != nil {
		return 0, err
	}
	return n, s.reload(ctx)
}

// AddSmsLog appends log, reloads and notifies.
func (s *State) AddSmsLog(ctx context.Context, log *models.SmsLog) error {
	if _, err := s.store.InsertSmsLog(ctx, log); err != nil {
		return err
	}
	return s.reload(ctx)
}

// Repairs returns a copy of the cached repairs, newest first.
func (s *State) Repairs() []*models.RepairJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRepairs(s.repairs)
}

// SmsLogs returns a copy of the cached SMS logs, newest first.
func (s *State) SmsLogs() []*models.SmsLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneLogs(s.smsLogs)
}

// Snapshot returns a copy of both collections.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Repairs: cloneRepairs(s.repairs), SmsLogs: cloneLogs(s.smsLogs)}
}

// Repair looks up a cached repair by ID.
func (s *State) Repair(id int64) (*models.RepairJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.repairs {
		if r.ID == id {
			return r.Clone(), true
		}
	}
	return nil, false
}

// reload re-reads both tables, swaps the cache and notifies observers.
// Concurrent reloads are not coordinated: the last one to finish wins.
func (s *State) reload(ctx context.Context) error {
	repairs, err := s.store.ListRepairs(ctx)
	if err != nil {
		return err
	}
	logs, err := s.store.ListSmsLogs(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.repairs = repairs
	s.smsLogs = logs
	s.mu.Unlock()

	s.log.Debug("state reloaded", map[string]interface{}{
		"repairs":  len(repairs),
		"sms_logs": len(logs),
	})
	s.notify()
	return nil
}

func (s *State) notify() {
	s.obsMu.Lock()
	observers := make([]Observer, 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.obsMu.Unlock()

	for _, fn := range observers {
		fn(s.Snapshot())
	}
}

func cloneRepairs(in []*models.RepairJob) []*models.RepairJob {
	out := make([]*models.RepairJob, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}

func cloneLogs(in []*models.SmsLog) []*models.SmsLog {
	out := make([]*models.SmsLog, len(in))
	for i, l := range in {
		c := *l
		out[i] = &c
	}
	return out
}
