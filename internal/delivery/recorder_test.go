// internal/delivery/recorder_test.go
package delivery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"mcp-simple-bolus/internal/models"
)

type memoryStore struct {
	mu    sync.Mutex
	err   error
	doses []models.DoseEntry
}

func (m *memoryStore) SaveDose(_ context.Context, dose *models.DoseEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	dose.ID = int64(len(m.doses) + 1)
	m.doses = append(m.doses, *dose)
	return nil
}

func TestRecorderSavesInBackground(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &memoryStore{}
	var saved []models.DoseEntry
	var mu sync.Mutex
	r := NewRecorder(store, zap.NewNop(), func(d models.DoseEntry) {
		mu.Lock()
		saved = append(saved, d)
		mu.Unlock()
	})

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r.EnactBolus(1.5, at)
	r.Wait()

	require.Len(t, store.doses, 1)
	assert.Equal(t, models.DoseEntry{ID: 1, Units: 1.5, StartDate: at, Source: "simple_bolus"}, store.doses[0])
	assert.Len(t, saved, 1)
}

func TestRecorderLogsFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	core, logs := observer.New(zapcore.ErrorLevel)
	called := false
	r := NewRecorder(&memoryStore{err: errors.New("disk full")}, zap.New(core), func(models.DoseEntry) { called = true })

	r.EnactBolus(2, time.Now())
	r.Wait()

	assert.Equal(t, 1, logs.FilterMessage("Failed to record bolus").Len())
	assert.False(t, called)
}
