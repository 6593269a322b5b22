package sheets

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/repository"
)

const (
	dateLayout       = "2006-01-02"
	animalsDataRange = "Animals!A:H"
	milkDataRange    = "MilkRecords!A:F"

	// DefaultRangeTTL bounds how long a downloaded range is reused.
	DefaultRangeTTL = time.Minute
)

// HerdSource reads animals and milk records that farms log in a spreadsheet.
// Parsed ranges are kept for a short TTL so a batch over the herd downloads
// each range once instead of once per animal.
//
// Animals columns: id, farm_id, tag_number, breed, birth_date, weight, health_status, is_active.
// MilkRecords columns: animal_id, date, morning_l, evening_l, fat_pct, protein_pct.
// Rows that cannot be parsed (including the header row) are skipped.
type HerdSource struct {
	repo   Repository
	ranges *cache.Cache
	loads  singleflight.Group
	logger *zap.Logger
}

// NewHerdSource wraps a sheets repository with DefaultRangeTTL caching.
func NewHerdSource(repo Repository, logger *zap.Logger) *HerdSource {
	return NewHerdSourceWithTTL(repo, DefaultRangeTTL, logger)
}

// NewHerdSourceWithTTL is NewHerdSource with an explicit range TTL.
func NewHerdSourceWithTTL(repo Repository, ttl time.Duration, logger *zap.Logger) *HerdSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	// no janitor: expired entries are dropped lazily on Get
	return &HerdSource{
		repo:   repo,
		ranges: cache.New(ttl, 0),
		logger: logger,
	}
}

// GetAnimal returns the first animal row whose id matches.
func (s *HerdSource) GetAnimal(ctx context.Context, animalID string) (*models.Animal, error) {
	animals, err := s.loadAnimals(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range animals {
		if a.ID == animalID {
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

// ListActiveAnimalIDs returns the ids of active animals in sheet order.
func (s *HerdSource) ListActiveAnimalIDs(ctx context.Context) ([]string, error) {
	animals, err := s.loadAnimals(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(animals))
	for _, a := range animals {
		if a.IsActive {
			ids = append(ids, a.ID)
		}
	}
	return ids, nil
}

// GetMilkRecords returns the animal's records dated on or after since, newest first.
func (s *HerdSource) GetMilkRecords(ctx context.Context, animalID string, since time.Time) ([]models.MilkRecord, error) {
	byAnimal, err := s.loadMilkRecords(ctx)
	if err != nil {
		return nil, err
	}

	records := []models.MilkRecord{}
	for _, record := range byAnimal[animalID] {
		if record.Date.Before(since) {
			continue
		}
		records = append(records, record)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.After(records[j].Date)
	})
	return records, nil
}

func (s *HerdSource) loadAnimals(ctx context.Context) ([]models.Animal, error) {
	v, err := s.cachedRange(ctx, animalsDataRange, func(rows [][]interface{}) any {
		animals := make([]models.Animal, 0, len(rows))
		for _, row := range rows {
			animal, err := parseAnimalRow(row)
			if err != nil {
				s.logger.Debug("skip animal row", zap.Any("row", row), zap.Error(err))
				continue
			}
			animals = append(animals, animal)
		}
		return animals
	})
	if err != nil {
		return nil, fmt.Errorf("load animals range: %w", err)
	}
	return v.([]models.Animal), nil
}

func (s *HerdSource) loadMilkRecords(ctx context.Context) (map[string][]models.MilkRecord, error) {
	v, err := s.cachedRange(ctx, milkDataRange, func(rows [][]interface{}) any {
		byAnimal := make(map[string][]models.MilkRecord)
		for _, row := range rows {
			if len(row) < 4 {
				continue
			}
			record, err := parseMilkRow(row)
			if err != nil {
				s.logger.Debug("skip milk row", zap.Any("row", row), zap.Error(err))
				continue
			}
			byAnimal[record.AnimalID] = append(byAnimal[record.AnimalID], record)
		}
		return byAnimal
	})
	if err != nil {
		return nil, fmt.Errorf("load milk records range: %w", err)
	}
	return v.(map[string][]models.MilkRecord), nil
}

// cachedRange returns the parsed form of sheetRange, downloading it at most
// once per TTL. Concurrent misses share one download.
func (s *HerdSource) cachedRange(ctx context.Context, sheetRange string, parse func([][]interface{}) any) (any, error) {
	if v, ok := s.ranges.Get(sheetRange); ok {
		return v, nil
	}

	v, err, _ := s.loads.Do(sheetRange, func() (any, error) {
		if v, ok := s.ranges.Get(sheetRange); ok {
			return v, nil
		}
		rows, err := s.repo.ReadRange(ctx, sheetRange)
		if err != nil {
			return nil, err
		}
		parsed := parse(rows)
		s.ranges.SetDefault(sheetRange, parsed)
		return parsed, nil
	})
	return v, err
}

func parseAnimalRow(row []interface{}) (models.Animal, error) {
	if len(row) < 5 {
		return models.Animal{}, fmt.Errorf("expected at least 5 columns, got %d", len(row))
	}

	id := cell(row, 0)
	if id == "" {
		return models.Animal{}, fmt.Errorf("empty animal id")
	}

	birth, err := parseDate(row[4])
	if err != nil {
		return models.Animal{}, fmt.Errorf("birth date: %w", err)
	}

	animal := models.Animal{
		ID:           id,
		FarmID:       cell(row, 1),
		TagNumber:    cell(row, 2),
		Breed:        models.Breed(cell(row, 3)),
		BirthDate:    birth,
		HealthStatus: models.HealthStatus(strings.ToLower(cell(row, 6))),
		IsActive:     true,
	}

	if weight, ok := optionalFloat(row, 5); ok {
		animal.Weight = &weight
	}
	if active := strings.ToLower(cell(row, 7)); active != "" {
		animal.IsActive = active == "true" || active == "yes" || active == "1"
	}

	return animal, nil
}

func parseMilkRow(row []interface{}) (models.MilkRecord, error) {
	date, err := parseDate(row[1])
	if err != nil {
		return models.MilkRecord{}, fmt.Errorf("date: %w", err)
	}
	morning, err := parseFloat(row[2])
	if err != nil {
		return models.MilkRecord{}, fmt.Errorf("morning yield: %w", err)
	}
	evening, err := parseFloat(row[3])
	if err != nil {
		return models.MilkRecord{}, fmt.Errorf("evening yield: %w", err)
	}

	record := models.MilkRecord{
		AnimalID:     cell(row, 0),
		Date:         date,
		MorningYield: morning,
		EveningYield: evening,
	}
	if fat, ok := optionalFloat(row, 4); ok {
		record.FatContent = &fat
	}
	if protein, ok := optionalFloat(row, 5); ok {
		record.ProteinContent = &protein
	}
	return record, nil
}

func cell(row []interface{}, idx int) string {
	if idx >= len(row) || row[idx] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[idx]))
}

func optionalFloat(row []interface{}, idx int) (float64, bool) {
	if cell(row, idx) == "" {
		return 0, false
	}
	v, err := parseFloat(row[idx])
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseDate(value interface{}) (time.Time, error) {
	str := strings.TrimSpace(fmt.Sprint(value))
	if str == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if len(str) > 10 {
		str = str[:10]
	}
	return time.Parse(dateLayout, str)
}

func parseFloat(value interface{}) (float64, error) {
	str := strings.TrimSpace(fmt.Sprint(value))
	if str == "" {
		return 0, fmt.Errorf("empty numeric value")
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(str, ",", "."), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite numeric value %q", str)
	}
	return v, nil
}
