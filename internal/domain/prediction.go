package domain

import (
	"encoding/json"
	"time"
)

// Prediction maps one market to the forecasting event created for it with the
// external provider. Created once per condition id, never updated or deleted
// by the pipeline.
type Prediction struct {
	PredictionID string // provider event id, primary key
	ConditionID  string
	EndDate      time.Time
	CreatedAt    time.Time
}

// OutcomeSample is one timestamped aggregate-score snapshot for a prediction.
// Samples are append-only; "latest" is the newest CreatedAt per prediction.
type OutcomeSample struct {
	PredictionID string
	Weighted     float64
	Community    float64
	Raw          json.RawMessage // verbatim per-validator response, kept for audit
	CreatedAt    time.Time
}

// OutcomeScores is the cacheable slice of a sample: both aggregate scores
// without the raw audit payload.
type OutcomeScores struct {
	Weighted  float64   `json:"weighted"`
	Community float64   `json:"community"`
	SampledAt time.Time `json:"sampled_at"`
}

// ValidatorForecasts is the per-validator forecast set fetched for one event.
type ValidatorForecasts struct {
	Outcomes []string // predictedOutcome decimal strings, order preserved
	Raw      []byte   // verbatim response body
}
