package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/forecastwire/foresight/internal/domain"
)

// fakeEventCreator records creation calls and can fail per title.
type fakeEventCreator struct {
	nextID string
	failOn map[string]bool
	calls  []string
}

func (f *fakeEventCreator) CreateEvent(ctx context.Context, title, description string, cutoff time.Time) (string, error) {
	f.calls = append(f.calls, title)
	if f.failOn[title] {
		return "", errors.New("provider rejected event")
	}
	return f.nextID, nil
}

// fakeMarketStore serves a fixed candidate list.
type fakeMarketStore struct {
	candidates []domain.Market
	byID       map[string]domain.Market
}

func (f *fakeMarketStore) Insert(ctx context.Context, m domain.Market) (bool, error) {
	return true, nil
}

func (f *fakeMarketStore) GetByCondition(ctx context.Context, conditionID string) (domain.Market, error) {
	m, ok := f.byID[conditionID]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (f *fakeMarketStore) NeedingPrediction(ctx context.Context, minLead time.Duration, limit int) ([]domain.Market, error) {
	if limit > len(f.candidates) {
		limit = len(f.candidates)
	}
	return f.candidates[:limit], nil
}

// recordingPredictionStore tracks inserts and existence per condition id.
type recordingPredictionStore struct {
	existing map[string]bool
	inserted []domain.Prediction
}

func (f *recordingPredictionStore) Exists(ctx context.Context, conditionID string) (bool, error) {
	return f.existing[conditionID], nil
}

func (f *recordingPredictionStore) Insert(ctx context.Context, p domain.Prediction) error {
	f.inserted = append(f.inserted, p)
	return nil
}

func (f *recordingPredictionStore) ListOpen(ctx context.Context, now time.Time) ([]domain.Prediction, error) {
	return nil, nil
}

func market(conditionID, question string) domain.Market {
	return domain.Market{
		ConditionID: conditionID,
		Question:    question,
		EndDate:     time.Now().UTC().Add(72 * time.Hour),
	}
}

func TestCreatorStopsAfterFirstSuccess(t *testing.T) {
	events := &fakeEventCreator{nextID: "e1"}
	markets := &fakeMarketStore{candidates: []domain.Market{
		market("c1", "Q1"),
		market("c2", "Q2"),
	}}
	preds := &recordingPredictionStore{}

	c := NewCreator(events, markets, preds, 5, 24*time.Hour, testLogger())
	created := c.Run(context.Background())

	if created != 1 {
		t.Fatalf("created = %d, want 1", created)
	}
	if len(events.calls) != 1 || events.calls[0] != "Q1" {
		t.Errorf("event calls = %v, want just Q1", events.calls)
	}
	if len(preds.inserted) != 1 || preds.inserted[0].ConditionID != "c1" {
		t.Errorf("inserted = %v, want one prediction for c1", preds.inserted)
	}
}

func TestCreatorSkipsFailedCreations(t *testing.T) {
	events := &fakeEventCreator{nextID: "e2", failOn: map[string]bool{"Q1": true}}
	markets := &fakeMarketStore{candidates: []domain.Market{
		market("c1", "Q1"),
		market("c2", "Q2"),
	}}
	preds := &recordingPredictionStore{}

	c := NewCreator(events, markets, preds, 5, 24*time.Hour, testLogger())
	created := c.Run(context.Background())

	if created != 1 {
		t.Fatalf("created = %d, want 1 (first failure skipped)", created)
	}
	if len(preds.inserted) != 1 || preds.inserted[0].ConditionID != "c2" {
		t.Errorf("inserted = %v, want one prediction for c2", preds.inserted)
	}
}

func TestCreatorReturnsZeroWhenAllFail(t *testing.T) {
	events := &fakeEventCreator{failOn: map[string]bool{"Q1": true, "Q2": true}}
	markets := &fakeMarketStore{candidates: []domain.Market{
		market("c1", "Q1"),
		market("c2", "Q2"),
	}}
	preds := &recordingPredictionStore{}

	c := NewCreator(events, markets, preds, 5, 24*time.Hour, testLogger())
	if created := c.Run(context.Background()); created != 0 {
		t.Errorf("created = %d, want 0", created)
	}
}

func TestCreateForReportsConflict(t *testing.T) {
	events := &fakeEventCreator{nextID: "e1"}
	markets := &fakeMarketStore{byID: map[string]domain.Market{"c1": market("c1", "Q1")}}
	preds := &recordingPredictionStore{existing: map[string]bool{"c1": true}}

	c := NewCreator(events, markets, preds, 5, 24*time.Hour, testLogger())
	_, err := c.CreateFor(context.Background(), "c1")
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("error = %v, want ErrAlreadyExists", err)
	}
	if len(events.calls) != 0 {
		t.Errorf("no provider call expected on conflict, got %v", events.calls)
	}
}

func TestCreateForCreatesPrediction(t *testing.T) {
	events := &fakeEventCreator{nextID: "e9"}
	markets := &fakeMarketStore{byID: map[string]domain.Market{"c1": market("c1", "Q1")}}
	preds := &recordingPredictionStore{}

	c := NewCreator(events, markets, preds, 5, 24*time.Hour, testLogger())
	p, err := c.CreateFor(context.Background(), "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.PredictionID != "e9" || p.ConditionID != "c1" {
		t.Errorf("prediction = %+v, want e9/c1", p)
	}
}

func TestCreateForUnknownMarket(t *testing.T) {
	events := &fakeEventCreator{nextID: "e1"}
	markets := &fakeMarketStore{}
	preds := &recordingPredictionStore{}

	c := NewCreator(events, markets, preds, 5, 24*time.Hour, testLogger())
	_, err := c.CreateFor(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}
