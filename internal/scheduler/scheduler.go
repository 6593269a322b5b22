package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/config"
	"github.com/mamadbah2/dairy/internal/domain/models"
)

// AnimalLister enumerates the animals included in a sweep.
type AnimalLister interface {
	ListActiveAnimalIDs(ctx context.Context) ([]string, error)
}

// BatchPredictor scores many animals at once.
type BatchPredictor interface {
	BatchPredict(ctx context.Context, animalIDs []string, kind models.PredictionKind) []models.PredictionResult
}

// RiskNotifier delivers alerts for risky results.
type RiskNotifier interface {
	NotifyRisks(ctx context.Context, results []models.PredictionResult) (int, error)
}

// SweepSummary describes one risk sweep run.
type SweepSummary struct {
	Animals   int
	Predicted int
	Flagged   int
}

// Scheduler runs the periodic herd health risk sweep.
type Scheduler struct {
	cron      *cron.Cron
	schedule  string
	animals   AnimalLister
	predictor BatchPredictor
	notifier  RiskNotifier
	timeout   time.Duration
	logger    *zap.Logger
}

// NewScheduler creates a scheduler from cfg. notifier may be nil, in which
// case sweeps only persist predictions.
func NewScheduler(cfg config.SchedulerConfig, animals AnimalLister, predictor BatchPredictor, notifier RiskNotifier, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	s := &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		schedule:  cfg.CronSchedule,
		animals:   animals,
		predictor: predictor,
		notifier:  notifier,
		timeout:   10 * time.Minute,
		logger:    logger,
	}

	if _, err := s.cron.AddFunc(s.schedule, s.runScheduledSweep); err != nil {
		return nil, fmt.Errorf("schedule risk sweep %q: %w", s.schedule, err)
	}
	return s, nil
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", zap.String("schedule", s.schedule))
	s.cron.Start()
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runScheduledSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	summary, err := s.RunRiskSweep(ctx)
	if err != nil {
		s.logger.Error("risk sweep failed", zap.Error(err))
		return
	}
	s.logger.Info("risk sweep completed",
		zap.Int("animals", summary.Animals),
		zap.Int("predicted", summary.Predicted),
		zap.Int("flagged", summary.Flagged),
	)
}

// RunRiskSweep scores every active animal for health risk and alerts on the
// high and critical ones.
func (s *Scheduler) RunRiskSweep(ctx context.Context) (SweepSummary, error) {
	ids, err := s.animals.ListActiveAnimalIDs(ctx)
	if err != nil {
		return SweepSummary{}, fmt.Errorf("list active animals: %w", err)
	}

	summary := SweepSummary{Animals: len(ids)}
	if len(ids) == 0 {
		return summary, nil
	}

	results := s.predictor.BatchPredict(ctx, ids, models.PredictionHealthRisk)
	summary.Predicted = len(results)

	if s.notifier == nil {
		return summary, nil
	}

	flagged, err := s.notifier.NotifyRisks(ctx, results)
	summary.Flagged = flagged
	if err != nil {
		return summary, fmt.Errorf("notify risks: %w", err)
	}
	return summary, nil
}
