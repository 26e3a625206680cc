package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/forecastwire/foresight/internal/domain"
)

// fakeForecastSource serves scripted forecasts per event id.
type fakeForecastSource struct {
	validator map[string]domain.ValidatorForecasts
	community map[string]float64
	errOn     map[string]error
}

func (f *fakeForecastSource) ValidatorForecasts(ctx context.Context, eventID string) (domain.ValidatorForecasts, error) {
	if err := f.errOn[eventID]; err != nil {
		return domain.ValidatorForecasts{}, err
	}
	return f.validator[eventID], nil
}

func (f *fakeForecastSource) CommunityForecast(ctx context.Context, eventID string) (float64, error) {
	return f.community[eventID], nil
}

// fakePredictionStore serves a fixed open set.
type fakePredictionStore struct {
	open []domain.Prediction
}

func (f *fakePredictionStore) Exists(ctx context.Context, conditionID string) (bool, error) {
	return false, nil
}

func (f *fakePredictionStore) Insert(ctx context.Context, p domain.Prediction) error {
	return nil
}

func (f *fakePredictionStore) ListOpen(ctx context.Context, now time.Time) ([]domain.Prediction, error) {
	return f.open, nil
}

// fakeOutcomeStore records inserted samples.
type fakeOutcomeStore struct {
	samples []domain.OutcomeSample
}

func (f *fakeOutcomeStore) Insert(ctx context.Context, s domain.OutcomeSample) error {
	f.samples = append(f.samples, s)
	return nil
}

func (f *fakeOutcomeStore) Latest(ctx context.Context, predictionID string) (domain.OutcomeSample, error) {
	return domain.OutcomeSample{}, domain.ErrNotFound
}

func (f *fakeOutcomeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.OutcomeSample, error) {
	return nil, nil
}

func TestWeightedScore(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []string
		want     float64
		wantErr  error
	}{
		{"simple mean", []string{"0.1", "0.2", "0.3"}, 0.2, nil},
		{"unparseable entries excluded", []string{"0.1", "0.2", "bad", "0.3"}, 0.2, nil},
		{"single value", []string{"0.55555"}, 0.5556, nil},
		{"rounds half away from zero", []string{"0.00005"}, 0.0001, nil},
		{"empty list", nil, 0, domain.ErrNoForecasts},
		{"all unparseable", []string{"x", "y"}, 0, domain.ErrNoForecasts},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := weightedScore(tt.outcomes)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRound4(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.55555, 0.5556},
		{0.12344, 0.1234},
		{-0.55555, -0.5556},
		{0.2, 0.2},
		{0, 0},
	}

	for _, tt := range tests {
		if got := round4(tt.in); got != tt.want {
			t.Errorf("round4(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAggregatorStoresSamples(t *testing.T) {
	future := time.Now().UTC().Add(48 * time.Hour)
	source := &fakeForecastSource{
		validator: map[string]domain.ValidatorForecasts{
			"e1": {Outcomes: []string{"0.1", "0.2", "0.3"}, Raw: []byte(`{"predictions":[]}`)},
		},
		community: map[string]float64{"e1": 0.55555},
	}
	preds := &fakePredictionStore{open: []domain.Prediction{
		{PredictionID: "e1", ConditionID: "c1", EndDate: future},
	}}
	outcomes := &fakeOutcomeStore{}

	agg := NewAggregator(source, preds, outcomes, nil, testLogger())
	stored := agg.Run(context.Background())

	if stored != 1 {
		t.Fatalf("stored = %d, want 1", stored)
	}
	s := outcomes.samples[0]
	if s.Weighted != 0.2 {
		t.Errorf("weighted = %v, want 0.2", s.Weighted)
	}
	if s.Community != 0.5556 {
		t.Errorf("community = %v, want 0.5556", s.Community)
	}
	if string(s.Raw) != `{"predictions":[]}` {
		t.Errorf("raw = %q, want verbatim response body", s.Raw)
	}
}

func TestAggregatorIsolatesFailures(t *testing.T) {
	future := time.Now().UTC().Add(48 * time.Hour)
	source := &fakeForecastSource{
		validator: map[string]domain.ValidatorForecasts{
			"e2": {Outcomes: []string{"0.4"}},
		},
		community: map[string]float64{"e2": 0.4},
		errOn:     map[string]error{"e1": errors.New("provider down")},
	}
	preds := &fakePredictionStore{open: []domain.Prediction{
		{PredictionID: "e1", EndDate: future},
		{PredictionID: "e2", EndDate: future},
	}}
	outcomes := &fakeOutcomeStore{}

	agg := NewAggregator(source, preds, outcomes, nil, testLogger())
	stored := agg.Run(context.Background())

	if stored != 1 {
		t.Fatalf("stored = %d, want 1 (e1 failure must not abort e2)", stored)
	}
	if outcomes.samples[0].PredictionID != "e2" {
		t.Errorf("stored sample for %s, want e2", outcomes.samples[0].PredictionID)
	}
}

func TestAggregatorSkipsWhenNoParseableForecasts(t *testing.T) {
	future := time.Now().UTC().Add(48 * time.Hour)
	source := &fakeForecastSource{
		validator: map[string]domain.ValidatorForecasts{
			"e1": {Outcomes: []string{"bad", "worse"}},
		},
		community: map[string]float64{"e1": 0.4},
	}
	preds := &fakePredictionStore{open: []domain.Prediction{
		{PredictionID: "e1", EndDate: future},
	}}
	outcomes := &fakeOutcomeStore{}

	agg := NewAggregator(source, preds, outcomes, nil, testLogger())
	if stored := agg.Run(context.Background()); stored != 0 {
		t.Errorf("stored = %d, want 0", stored)
	}
	if len(outcomes.samples) != 0 {
		t.Errorf("no sample should be inserted without parseable forecasts")
	}
}
