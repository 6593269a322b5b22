package features

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/repository"
)

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

type memoryStore struct {
	mu        sync.Mutex
	animals   map[string]models.Animal
	records   map[string][]models.MilkRecord
	err       error
	sinceSeen []time.Time
}

func (m *memoryStore) GetAnimal(_ context.Context, id string) (*models.Animal, error) {
	if m.err != nil {
		return nil, m.err
	}
	a, ok := m.animals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (m *memoryStore) GetMilkRecords(_ context.Context, id string, since time.Time) ([]models.MilkRecord, error) {
	m.mu.Lock()
	m.sinceSeen = append(m.sinceSeen, since)
	m.mu.Unlock()

	var out []models.MilkRecord
	for _, r := range m.records[id] {
		if !r.Date.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func ptr(v float64) *float64 { return &v }

func day(daysAgo int) time.Time {
	d := testNow.AddDate(0, 0, -daysAgo)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func newTestExtractor(store Store) *Extractor {
	ex := NewExtractor(store, nil)
	ex.now = func() time.Time { return testNow }
	return ex
}

func healthyCow() models.Animal {
	return models.Animal{
		ID:           "cow-1",
		Breed:        models.BreedJersey,
		BirthDate:    testNow.AddDate(-4, 0, 0),
		Weight:       ptr(550),
		HealthStatus: models.HealthHealthy,
		IsActive:     true,
	}
}

func TestGetAnimalFeatures_NoRecords(t *testing.T) {
	store := &memoryStore{animals: map[string]models.Animal{"cow-1": healthyCow()}}

	f, err := newTestExtractor(store).GetAnimalFeatures(context.Background(), "cow-1")
	require.NoError(t, err)

	assert.Equal(t, "cow-1", f.AnimalID)
	assert.InDelta(t, 0, f.AvgDailyYield7d, 0)
	assert.InDelta(t, 0, f.AvgDailyYield30d, 0)
	assert.InDelta(t, 0, f.YieldTrend7d, 0)
	assert.InDelta(t, 3.5, f.FatContentAvg, 0)
	assert.InDelta(t, 3.2, f.ProteinContentAvg, 0)
	assert.Equal(t, 999, f.DaysSinceLastRecord)
	assert.Equal(t, 2, f.BreedEncoded)
	assert.InDelta(t, 1, f.HealthStatusEncoded, 0)
	assert.InDelta(t, 550, f.Weight, 0)
	assert.Equal(t, 1461, f.AgeDays)
}

func TestGetAnimalFeatures_QueriesLast30Days(t *testing.T) {
	store := &memoryStore{animals: map[string]models.Animal{"cow-1": healthyCow()}}

	_, err := newTestExtractor(store).GetAnimalFeatures(context.Background(), "cow-1")
	require.NoError(t, err)

	require.Len(t, store.sinceSeen, 1)
	assert.Equal(t, testNow.AddDate(0, 0, -30), store.sinceSeen[0])
}

func TestGetAnimalFeatures_Statistics(t *testing.T) {
	var records []models.MilkRecord
	// ten days of history, oldest first in storage to exercise sorting
	for i := 10; i >= 1; i-- {
		records = append(records, models.MilkRecord{
			AnimalID:     "cow-1",
			Date:         day(i),
			MorningYield: float64(20-i) / 2,
			EveningYield: float64(20-i) / 2,
		})
	}
	records[9].FatContent = ptr(4.0)
	records[8].FatContent = ptr(3.0)
	records[9].ProteinContent = ptr(3.6)

	store := &memoryStore{
		animals: map[string]models.Animal{"cow-1": healthyCow()},
		records: map[string][]models.MilkRecord{"cow-1": records},
	}

	f, err := newTestExtractor(store).GetAnimalFeatures(context.Background(), "cow-1")
	require.NoError(t, err)

	// totals are 10..19 from oldest to newest
	assert.InDelta(t, 16.0, f.AvgDailyYield7d, 1e-9)
	assert.InDelta(t, 14.5, f.AvgDailyYield30d, 1e-9)
	assert.InDelta(t, 1.0, f.YieldTrend7d, 1e-9)
	assert.InDelta(t, 3.5, f.FatContentAvg, 1e-9)
	assert.InDelta(t, 3.6, f.ProteinContentAvg, 1e-9)
	assert.Equal(t, 1, f.DaysSinceLastRecord)
}

func TestGetAnimalFeatures_Deterministic(t *testing.T) {
	store := &memoryStore{
		animals: map[string]models.Animal{"cow-1": healthyCow()},
		records: map[string][]models.MilkRecord{"cow-1": {
			{AnimalID: "cow-1", Date: day(2), MorningYield: 11, EveningYield: 9, FatContent: ptr(3.8)},
			{AnimalID: "cow-1", Date: day(1), MorningYield: 12, EveningYield: 10},
		}},
	}
	ex := newTestExtractor(store)

	first, err := ex.GetAnimalFeatures(context.Background(), "cow-1")
	require.NoError(t, err)
	second, err := ex.GetAnimalFeatures(context.Background(), "cow-1")
	require.NoError(t, err)

	assert.Equal(t, *first, *second)
}

func TestGetAnimalFeatures_DefaultWeightAndUnknownCodes(t *testing.T) {
	cow := healthyCow()
	cow.Weight = nil
	cow.Breed = "Angus"
	cow.HealthStatus = "under observation"
	store := &memoryStore{animals: map[string]models.Animal{"cow-1": cow}}

	f, err := newTestExtractor(store).GetAnimalFeatures(context.Background(), "cow-1")
	require.NoError(t, err)

	assert.InDelta(t, 600, f.Weight, 0)
	assert.Equal(t, 0, f.BreedEncoded)
	assert.InDelta(t, 0.5, f.HealthStatusEncoded, 0)
}

func TestGetAnimalFeatures_NotFound(t *testing.T) {
	store := &memoryStore{animals: map[string]models.Animal{}}

	f, err := newTestExtractor(store).GetAnimalFeatures(context.Background(), "ghost")
	assert.Nil(t, f)
	assert.ErrorIs(t, err, ErrAnimalNotFound)
	assert.NotErrorIs(t, err, ErrStorageUnavailable)
}

func TestGetAnimalFeatures_StorageUnavailable(t *testing.T) {
	boom := errors.New("connection refused")
	store := &memoryStore{err: boom}

	f, err := newTestExtractor(store).GetAnimalFeatures(context.Background(), "cow-1")
	assert.Nil(t, f)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrAnimalNotFound)
}

func TestGetBatchFeatures_DropsFailuresKeepsOrder(t *testing.T) {
	animals := map[string]models.Animal{}
	for _, id := range []string{"a", "b", "c", "d"} {
		cow := healthyCow()
		cow.ID = id
		animals[id] = cow
	}
	store := &memoryStore{animals: animals}

	out := newTestExtractor(store).GetBatchFeatures(context.Background(), []string{"d", "missing", "b", "a", "nope", "c"})

	ids := make([]string, 0, len(out))
	for _, f := range out {
		ids = append(ids, f.AnimalID)
	}
	assert.Equal(t, []string{"d", "b", "a", "c"}, ids)
}

func TestSlope(t *testing.T) {
	assert.InDelta(t, 2.0, slope([]float64{10, 12, 14}), 1e-12)
	assert.InDelta(t, 0, slope([]float64{10}), 0)
	assert.InDelta(t, 0, slope(nil), 0)
	assert.InDelta(t, -1.5, slope([]float64{6, 4.5, 3, 1.5}), 1e-12)
}

func TestCompute_TrendUsesOldestToNewest(t *testing.T) {
	records := []models.MilkRecord{
		{Date: day(1), MorningYield: 14},
		{Date: day(2), MorningYield: 12},
		{Date: day(3), MorningYield: 10},
	}

	f := Compute(healthyCow(), records, testNow)
	assert.InDelta(t, 2.0, f.YieldTrend7d, 1e-12)
}

func TestCompute_DuplicateDatesAreCounted(t *testing.T) {
	records := []models.MilkRecord{
		{Date: day(1), MorningYield: 10},
		{Date: day(1), MorningYield: 20},
	}

	f := Compute(healthyCow(), records, testNow)
	assert.InDelta(t, 15, f.AvgDailyYield7d, 1e-12)
}

func TestDayOfYearAndSeasonalFactor(t *testing.T) {
	assert.Equal(t, 1, DayOfYear(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 366, DayOfYear(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)))

	d := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	want := 1 + 0.2*math.Sin(2*math.Pi*288/365)
	assert.InDelta(t, want, SeasonalFactor(d), 1e-12)
}
