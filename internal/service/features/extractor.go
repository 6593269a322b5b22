package features

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/repository"
)

// ErrAnimalNotFound indicates the requested animal does not exist.
var ErrAnimalNotFound = errors.New("animal not found")

// ErrStorageUnavailable indicates the data access layer failed.
var ErrStorageUnavailable = errors.New("storage unavailable")

const (
	historyWindow       = 30 * 24 * time.Hour
	shortWindow         = 7
	longWindow          = 30
	defaultWeight       = 600.0
	defaultFatContent   = 3.5
	defaultProteinCont  = 3.2
	noRecordSentinel    = 999
	defaultBatchWorkers = 4
)

// Store is the read-only data access the extractor depends on.
type Store interface {
	GetAnimal(ctx context.Context, animalID string) (*models.Animal, error)
	// GetMilkRecords returns the records dated on or after since, newest first.
	GetMilkRecords(ctx context.Context, animalID string, since time.Time) ([]models.MilkRecord, error)
}

// Extractor turns stored animal history into ProcessedFeatures.
type Extractor struct {
	store   Store
	logger  *zap.Logger
	now     func() time.Time
	workers int
}

// NewExtractor wires a feature extractor on top of the provided store.
func NewExtractor(store Store, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		store:   store,
		logger:  logger,
		now:     time.Now,
		workers: defaultBatchWorkers,
	}
}

// GetAnimalFeatures loads the animal and its last 30 days of milk records and
// derives the feature vector. It never writes.
func (e *Extractor) GetAnimalFeatures(ctx context.Context, animalID string) (*models.ProcessedFeatures, error) {
	now := e.now().UTC()

	animal, err := e.store.GetAnimal(ctx, animalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("animal %s: %w", animalID, ErrAnimalNotFound)
		}
		return nil, fmt.Errorf("load animal %s: %w: %w", animalID, ErrStorageUnavailable, err)
	}
	if animal == nil {
		return nil, fmt.Errorf("animal %s: %w", animalID, ErrAnimalNotFound)
	}

	records, err := e.store.GetMilkRecords(ctx, animalID, now.Add(-historyWindow))
	if err != nil {
		return nil, fmt.Errorf("load milk records for %s: %w: %w", animalID, ErrStorageUnavailable, err)
	}

	features := Compute(*animal, records, now)
	return &features, nil
}

// Compute derives the feature vector from already loaded data. Records may come
// in any order; they are consumed newest first.
func Compute(animal models.Animal, records []models.MilkRecord, now time.Time) models.ProcessedFeatures {
	sorted := make([]models.MilkRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})

	yields := make([]float64, len(sorted))
	var fats, proteins []float64
	for i, r := range sorted {
		yields[i] = r.TotalYield()
		if r.FatContent != nil {
			fats = append(fats, *r.FatContent)
		}
		if r.ProteinContent != nil {
			proteins = append(proteins, *r.ProteinContent)
		}
	}

	recent := yields[:min(shortWindow, len(yields))]
	month := yields[:min(longWindow, len(yields))]

	weight := defaultWeight
	if animal.Weight != nil {
		weight = *animal.Weight
	}

	f := models.ProcessedFeatures{
		AnimalID:            animal.ID,
		AgeDays:             wholeDays(now.Sub(animal.BirthDate)),
		BreedEncoded:        animal.Breed.Code(),
		Weight:              weight,
		AvgDailyYield7d:     mean(recent),
		AvgDailyYield30d:    mean(month),
		YieldTrend7d:        slope(oldestFirst(recent)),
		FatContentAvg:       defaultFatContent,
		ProteinContentAvg:   defaultProteinCont,
		DaysSinceLastRecord: noRecordSentinel,
		SeasonalFactor:      SeasonalFactor(now),
		HealthStatusEncoded: animal.HealthStatus.Code(),
	}

	if len(fats) > 0 {
		f.FatContentAvg = mean(fats)
	}
	if len(proteins) > 0 {
		f.ProteinContentAvg = mean(proteins)
	}
	if len(sorted) > 0 {
		f.DaysSinceLastRecord = wholeDays(now.Sub(sorted[0].Date))
	}

	return f
}

// GetBatchFeatures extracts features for every id, dropping the ones that fail.
// Surviving entries keep the input order.
func (e *Extractor) GetBatchFeatures(ctx context.Context, animalIDs []string) []models.ProcessedFeatures {
	slots := make([]*models.ProcessedFeatures, len(animalIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, id := range animalIDs {
		g.Go(func() error {
			f, err := e.GetAnimalFeatures(gctx, id)
			if err != nil {
				e.logger.Debug("skip animal in feature batch", zap.String("animal_id", id), zap.Error(err))
				return nil
			}
			slots[i] = f
			return nil
		})
	}
	_ = g.Wait()

	out := make([]models.ProcessedFeatures, 0, len(animalIDs))
	for _, f := range slots {
		if f != nil {
			out = append(out, *f)
		}
	}
	return out
}

func oldestFirst(newestFirst []float64) []float64 {
	out := make([]float64, len(newestFirst))
	for i, v := range newestFirst {
		out[len(newestFirst)-1-i] = v
	}
	return out
}
