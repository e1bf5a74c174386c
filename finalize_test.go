package voxagent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyStore struct {
	mu       sync.Mutex
	failures int
	saves    int
}

func (f *flakyStore) Save(ctx context.Context, rec *FinalRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.failures > 0 {
		f.failures--
		return errors.New("disk on fire")
	}
	return nil
}

func TestFinalizeFreezesAndSaves(t *testing.T) {
	schema := testSchema(t)
	store := NewMemoryRecordStore()
	at := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	fin := NewFinalizer(store, WithFinalizerClock(func() time.Time { return at }))

	s := NewSession(schema)
	require.NoError(t, s.SetSlot("name", SlotValue{Value: "Priya", Origin: OriginExplicit}))
	require.NoError(t, s.AppendTurn(SpeakerUser, "book a table"))

	rec, err := fin.Finalize(context.Background(), s)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, s.ID, rec.ID)
	assert.Equal(t, StageFinalized, rec.Stage)
	assert.Equal(t, at, rec.CreatedAt)
	assert.Equal(t, "Priya", rec.SlotString("name"))
	require.Len(t, rec.History, 1)

	assert.Equal(t, StageFinalized, s.Stage)
	assert.True(t, s.Frozen())
	require.Len(t, store.Records(), 1)
}

func TestFinalizeIsIdempotent(t *testing.T) {
	schema := testSchema(t)
	store := NewMemoryRecordStore()
	fin := NewFinalizer(store)
	s := NewSession(schema)

	first, err := fin.Finalize(context.Background(), s)
	require.NoError(t, err)

	// The second call returns the same record, saves nothing, and flags the
	// benign condition.
	second, err := fin.Finalize(context.Background(), s)
	assert.ErrorIs(t, err, ErrSessionFinalized)
	assert.Same(t, first, second)
	assert.Len(t, store.Records(), 1)
}

func TestFinalizeRetriesThenParksRecord(t *testing.T) {
	schema := testSchema(t)
	store := &flakyStore{failures: 10}
	fin := NewFinalizer(store, WithSaveAttempts(3))
	s := NewSession(schema)

	rec, err := fin.Finalize(context.Background(), s)
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	require.NotNil(t, rec)
	assert.Equal(t, 3, store.saves)

	// The session is frozen and the record is held, not lost.
	assert.True(t, s.Frozen())
	assert.Same(t, rec, s.PendingRecord)

	// Once storage recovers, the retry completes the save.
	store.failures = 0
	require.NoError(t, fin.RetryPending(context.Background(), s))
	assert.Nil(t, s.PendingRecord)
}

func TestAbortDoesNotPersistByDefault(t *testing.T) {
	schema := testSchema(t)
	store := NewMemoryRecordStore()
	fin := NewFinalizer(store)
	s := NewSession(schema)

	rec, err := fin.Abort(context.Background(), s)
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, StageAborted, s.Stage)
	assert.Empty(t, store.Records())
}

func TestAbortPersistsWhenConfigured(t *testing.T) {
	schema := testSchema(t)
	store := NewMemoryRecordStore()
	fin := NewFinalizer(store, WithPersistAborted())
	s := NewSession(schema)
	require.NoError(t, s.SetSlot("name", SlotValue{Value: "Priya", Origin: OriginExplicit}))

	rec, err := fin.Abort(context.Background(), s)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, StageAborted, rec.Stage)
	require.Len(t, store.Records(), 1)
}
