// internal/storage/sqlite_test.go
package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcp-simple-bolus/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "bolus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGlucoseSamplesRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	at := time.Date(2026, 5, 1, 8, 15, 0, 0, time.UTC)

	err := s.SaveGlucoseSamples(ctx, []models.GlucoseSample{
		{Date: at, Quantity: models.NewQuantity(6.2, models.MillimolesPerLiter), WasUserEntered: true, SyncIdentifier: "a"},
		{Date: at.Add(time.Hour), Quantity: models.NewQuantity(130, models.MilligramsPerDeciliter), WasUserEntered: true, SyncIdentifier: "b"},
	})
	require.NoError(t, err)

	samples, err := s.GetGlucoseSamples(ctx, 10)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, "b", samples[0].SyncIdentifier)
	assert.Equal(t, models.NewQuantity(130, models.MilligramsPerDeciliter), samples[0].Quantity)
	assert.True(t, samples[1].WasUserEntered)
	assert.False(t, samples[1].IsDisplayOnly)
	assert.True(t, at.Equal(samples[1].Date))
}

func TestDuplicateSyncIdentifierFails(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	sample := models.GlucoseSample{Date: time.Now(), Quantity: models.NewQuantity(100, models.MilligramsPerDeciliter), SyncIdentifier: "dup"}

	require.NoError(t, s.SaveGlucoseSamples(ctx, []models.GlucoseSample{sample}))
	assert.Error(t, s.SaveGlucoseSamples(ctx, []models.GlucoseSample{sample}))
}

func TestCarbEntriesRoundTripAndFilter(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	day1 := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	absorption := 3 * time.Hour

	first := &models.CarbEntry{Date: day1, StartDate: day1, Quantity: models.NewQuantity(45, models.Gram)}
	second := &models.CarbEntry{Date: day2, StartDate: day2, Quantity: models.NewQuantity(20, models.Gram), FoodType: "snack", AbsorptionTime: &absorption}
	require.NoError(t, s.SaveCarbEntry(ctx, first))
	require.NoError(t, s.SaveCarbEntry(ctx, second))
	assert.NotZero(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)

	all, err := s.GetCarbEntries(ctx, "", "", 20)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, "snack", all[0].FoodType)
	require.NotNil(t, all[0].AbsorptionTime)
	assert.Equal(t, absorption, *all[0].AbsorptionTime)
	assert.Nil(t, all[1].AbsorptionTime)
	assert.Equal(t, models.NewQuantity(45, models.Gram), all[1].Quantity)

	filtered, err := s.GetCarbEntries(ctx, "2026-05-01", "2026-05-01", 20)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, first.ID, filtered[0].ID)
}

func TestSaveCarbEntryRejectsNonMass(t *testing.T) {
	s := newTestStorage(t)
	err := s.SaveCarbEntry(context.Background(), &models.CarbEntry{Quantity: models.NewQuantity(3, models.InternationalUnit)})
	assert.Error(t, err)
}

func TestDosesRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	dose := &models.DoseEntry{Units: 2.5, StartDate: at, Source: "simple_bolus"}
	require.NoError(t, s.SaveDose(ctx, dose))

	doses, err := s.GetDoses(ctx, 5)
	require.NoError(t, err)
	require.Len(t, doses, 1)
	assert.Equal(t, dose.ID, doses[0].ID)
	assert.Equal(t, 2.5, doses[0].Units)
	assert.True(t, at.Equal(doses[0].StartDate))
}
