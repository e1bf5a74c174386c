package voxagent

import (
	"context"
	"sync"
	"time"
)

// FinalRecord is the immutable snapshot of a completed session: the unit
// handed to the persistence collaborator.
type FinalRecord struct {
	ID        string               `json:"id"`
	AgentType string               `json:"agent_type"`
	Mode      string               `json:"mode"`
	Stage     Stage                `json:"stage"`
	Slots     map[string]SlotValue `json:"slots"`
	History   []Turn               `json:"history"`
	CreatedAt time.Time            `json:"created_at"`
}

// SlotString returns a record slot as text, or "".
func (r *FinalRecord) SlotString(name string) string {
	v, ok := r.Slots[name]
	if !ok {
		return ""
	}
	s, _ := v.Value.(string)
	return s
}

// RecordStore is the persistence collaborator contract.
type RecordStore interface {
	Save(ctx context.Context, rec *FinalRecord) error
}

// MemoryRecordStore keeps records in memory, for tests and local runs.
type MemoryRecordStore struct {
	mu      sync.Mutex
	records []*FinalRecord
}

// NewMemoryRecordStore creates an empty in-memory record store.
func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{}
}

func (m *MemoryRecordStore) Save(ctx context.Context, rec *FinalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

// Records returns the saved records in save order.
func (m *MemoryRecordStore) Records() []*FinalRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*FinalRecord, len(m.records))
	copy(out, m.records)
	return out
}

// Finalizer freezes sessions into FinalRecords and hands them to the record
// store. Finalization is idempotent: a second call returns the existing
// record and performs no second save.
type Finalizer struct {
	store          RecordStore
	attempts       int
	persistAborted bool
	clock          func() time.Time
}

// FinalizerOption configures a Finalizer.
type FinalizerOption func(*Finalizer)

// WithSaveAttempts bounds how often a save is retried before the record is
// parked for manual recovery.
func WithSaveAttempts(n int) FinalizerOption {
	return func(f *Finalizer) {
		if n > 0 {
			f.attempts = n
		}
	}
}

// WithPersistAborted also persists aborted sessions as partial records.
func WithPersistAborted() FinalizerOption {
	return func(f *Finalizer) { f.persistAborted = true }
}

// WithFinalizerClock overrides the timestamp source.
func WithFinalizerClock(clock func() time.Time) FinalizerOption {
	return func(f *Finalizer) { f.clock = clock }
}

// NewFinalizer builds a finalizer over the given store; store may be nil, in
// which case records are only frozen, never persisted.
func NewFinalizer(store RecordStore, opts ...FinalizerOption) *Finalizer {
	f := &Finalizer{store: store, attempts: 3, clock: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Finalize freezes the session and persists the record. On a storage
// failure the frozen record is held on the session (PendingRecord) and a
// StorageError is returned; RetryPending can complete the save later. A
// session that is already finalized yields its existing record together
// with the benign ErrSessionFinalized.
func (f *Finalizer) Finalize(ctx context.Context, s *SessionState) (*FinalRecord, error) {
	if s.Stage == StageFinalized && s.Record != nil {
		return s.Record, ErrSessionFinalized
	}
	rec := f.freeze(s, StageFinalized)
	s.Stage = StageFinalized
	s.Record = rec
	s.PendingClarify = nil
	if err := f.save(ctx, rec); err != nil {
		s.PendingRecord = rec
		return rec, err
	}
	s.PendingRecord = nil
	return rec, nil
}

// Abort marks the session aborted. The record is persisted only when the
// finalizer is configured to keep partial records; no background work
// continues either way.
func (f *Finalizer) Abort(ctx context.Context, s *SessionState) (*FinalRecord, error) {
	if s.Stage == StageFinalized {
		return s.Record, ErrSessionFinalized
	}
	s.Stage = StageAborted
	if !f.persistAborted {
		return nil, nil
	}
	rec := f.freeze(s, StageAborted)
	s.Record = rec
	if err := f.save(ctx, rec); err != nil {
		s.PendingRecord = rec
		return rec, err
	}
	return rec, nil
}

// RetryPending re-attempts the save of a record parked by an earlier storage
// failure. It is a no-op when nothing is pending.
func (f *Finalizer) RetryPending(ctx context.Context, s *SessionState) error {
	if s.PendingRecord == nil {
		return nil
	}
	if err := f.save(ctx, s.PendingRecord); err != nil {
		return err
	}
	s.PendingRecord = nil
	return nil
}

func (f *Finalizer) freeze(s *SessionState, stage Stage) *FinalRecord {
	return &FinalRecord{
		ID:        s.ID,
		AgentType: s.AgentType,
		Mode:      s.Mode,
		Stage:     stage,
		Slots:     s.snapshotSlots(),
		History:   s.snapshotHistory(),
		CreatedAt: f.clock(),
	}
}

func (f *Finalizer) save(ctx context.Context, rec *FinalRecord) error {
	if f.store == nil {
		return nil
	}
	var err error
	for attempt := 0; attempt < f.attempts; attempt++ {
		if err = f.store.Save(ctx, rec); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			break
		}
	}
	return &StorageError{Op: "save", Err: err}
}
