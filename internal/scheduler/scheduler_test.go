package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairy/internal/config"
	"github.com/mamadbah2/dairy/internal/domain/models"
)

type fakeLister struct {
	ids []string
	err error
}

func (f fakeLister) ListActiveAnimalIDs(context.Context) ([]string, error) {
	return f.ids, f.err
}

type fakeBatch struct {
	calls   int
	gotIDs  []string
	gotKind models.PredictionKind
	results []models.PredictionResult
}

func (f *fakeBatch) BatchPredict(_ context.Context, ids []string, kind models.PredictionKind) []models.PredictionResult {
	f.calls++
	f.gotIDs = ids
	f.gotKind = kind
	return f.results
}

type fakeNotifier struct {
	got     []models.PredictionResult
	flagged int
	err     error
}

func (f *fakeNotifier) NotifyRisks(_ context.Context, results []models.PredictionResult) (int, error) {
	f.got = results
	return f.flagged, f.err
}

var testCfg = config.SchedulerConfig{Enabled: true, CronSchedule: "0 5 * * *", Timezone: "UTC"}

func TestNewScheduler_RejectsBadSchedule(t *testing.T) {
	_, err := NewScheduler(config.SchedulerConfig{CronSchedule: "every day", Timezone: "UTC"}, fakeLister{}, &fakeBatch{}, nil, nil)
	assert.Error(t, err)

	_, err = NewScheduler(config.SchedulerConfig{CronSchedule: "0 5 * * *", Timezone: "Nowhere/City"}, fakeLister{}, &fakeBatch{}, nil, nil)
	assert.ErrorContains(t, err, "Nowhere/City")
}

func TestRunRiskSweep(t *testing.T) {
	batch := &fakeBatch{results: []models.PredictionResult{
		{AnimalID: "cow-1", Kind: models.PredictionHealthRisk, PredictedValue: 0.9, RiskLevel: models.RiskCritical},
		{AnimalID: "cow-2", Kind: models.PredictionHealthRisk, PredictedValue: 0.1, RiskLevel: models.RiskLow},
	}}
	notifier := &fakeNotifier{flagged: 1}

	s, err := NewScheduler(testCfg, fakeLister{ids: []string{"cow-1", "cow-2", "cow-3"}}, batch, notifier, nil)
	require.NoError(t, err)

	summary, err := s.RunRiskSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepSummary{Animals: 3, Predicted: 2, Flagged: 1}, summary)
	assert.Equal(t, []string{"cow-1", "cow-2", "cow-3"}, batch.gotIDs)
	assert.Equal(t, models.PredictionHealthRisk, batch.gotKind)
	assert.Len(t, notifier.got, 2)
}

func TestRunRiskSweep_NoAnimals(t *testing.T) {
	batch := &fakeBatch{}
	notifier := &fakeNotifier{}
	s, err := NewScheduler(testCfg, fakeLister{}, batch, notifier, nil)
	require.NoError(t, err)

	summary, err := s.RunRiskSweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Animals)
	assert.Zero(t, batch.calls)
	assert.Nil(t, notifier.got)
}

func TestRunRiskSweep_ListFailure(t *testing.T) {
	listErr := errors.New("mongo down")
	s, err := NewScheduler(testCfg, fakeLister{err: listErr}, &fakeBatch{}, nil, nil)
	require.NoError(t, err)

	_, err = s.RunRiskSweep(context.Background())
	assert.ErrorIs(t, err, listErr)
}

func TestRunRiskSweep_WithoutNotifier(t *testing.T) {
	batch := &fakeBatch{results: []models.PredictionResult{{AnimalID: "cow-1"}}}
	s, err := NewScheduler(testCfg, fakeLister{ids: []string{"cow-1"}}, batch, nil, nil)
	require.NoError(t, err)

	summary, err := s.RunRiskSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Predicted)
	assert.Zero(t, summary.Flagged)
}

func TestRunRiskSweep_NotifyFailure(t *testing.T) {
	notifyErr := errors.New("whatsapp down")
	batch := &fakeBatch{results: []models.PredictionResult{{AnimalID: "cow-1"}}}
	s, err := NewScheduler(testCfg, fakeLister{ids: []string{"cow-1"}}, batch, &fakeNotifier{flagged: 1, err: notifyErr}, nil)
	require.NoError(t, err)

	summary, err := s.RunRiskSweep(context.Background())
	assert.ErrorIs(t, err, notifyErr)
	assert.Equal(t, 1, summary.Flagged)
}
