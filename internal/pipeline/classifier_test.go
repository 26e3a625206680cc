package pipeline

import (
	"testing"
	"time"

	"github.com/forecastwire/foresight/internal/domain"
)

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

// acceptableRaw returns a record that passes every classification rule.
func acceptableRaw(now time.Time) domain.RawMarket {
	return domain.RawMarket{
		Active:      boolPtr(true),
		Closed:      boolPtr(false),
		Archived:    boolPtr(false),
		ConditionID: strPtr("c1"),
		Question:    strPtr("Q"),
		Tags:        domain.RawTags{"Crypto"},
		EndDateISO:  strPtr(now.Add(48 * time.Hour).Format(time.RFC3339)),
	}
}

func TestClassifyMarketAccepts(t *testing.T) {
	now := time.Now().UTC()
	m, ok := ClassifyMarket(acceptableRaw(now), now)
	if !ok {
		t.Fatal("expected record to be accepted")
	}
	if m.ConditionID != "c1" {
		t.Errorf("condition id = %q, want c1", m.ConditionID)
	}
	if m.Tags != "[Crypto]" {
		t.Errorf("tags = %q, want [Crypto]", m.Tags)
	}
	if !m.EndDate.After(now) {
		t.Errorf("end date %v not after now %v", m.EndDate, now)
	}
}

func TestClassifyMarketRejects(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name   string
		mutate func(*domain.RawMarket)
	}{
		{"active false", func(r *domain.RawMarket) { r.Active = boolPtr(false) }},
		{"active absent", func(r *domain.RawMarket) { r.Active = nil }},
		{"closed true", func(r *domain.RawMarket) { r.Closed = boolPtr(true) }},
		{"closed absent", func(r *domain.RawMarket) { r.Closed = nil }},
		{"archived true", func(r *domain.RawMarket) { r.Archived = boolPtr(true) }},
		{"archived absent", func(r *domain.RawMarket) { r.Archived = nil }},
		{"condition id absent", func(r *domain.RawMarket) { r.ConditionID = nil }},
		{"condition id empty", func(r *domain.RawMarket) { r.ConditionID = strPtr("") }},
		{"question absent", func(r *domain.RawMarket) { r.Question = nil }},
		{"tags absent", func(r *domain.RawMarket) { r.Tags = nil }},
		{"no allowed tag", func(r *domain.RawMarket) { r.Tags = domain.RawTags{"Sports"} }},
		{"denied tag", func(r *domain.RawMarket) { r.Tags = domain.RawTags{"German Election"} }},
		{"allowed plus denied tag", func(r *domain.RawMarket) {
			r.Tags = domain.RawTags{"Crypto", "Tweet Markets"}
		}},
		{"end date absent", func(r *domain.RawMarket) { r.EndDateISO = nil }},
		{"end date unparseable", func(r *domain.RawMarket) { r.EndDateISO = strPtr("not-a-date") }},
		{"end date in the past", func(r *domain.RawMarket) {
			r.EndDateISO = strPtr(now.Add(-time.Hour).Format(time.RFC3339))
		}},
		{"end date exactly now", func(r *domain.RawMarket) {
			r.EndDateISO = strPtr(now.Format(time.RFC3339))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := acceptableRaw(now)
			tt.mutate(&raw)
			if _, ok := ClassifyMarket(raw, now); ok {
				t.Error("expected record to be rejected")
			}
		})
	}
}

func TestClassifyMarketNormalizesDescription(t *testing.T) {
	now := time.Now().UTC()
	raw := acceptableRaw(now)
	raw.Description = strPtr("  two\t\twords\n split  across   lines ")

	m, ok := ClassifyMarket(raw, now)
	if !ok {
		t.Fatal("expected record to be accepted")
	}
	want := "two words split across lines"
	if m.Description != want {
		t.Errorf("description = %q, want %q", m.Description, want)
	}
}

func TestSerializeTags(t *testing.T) {
	got := serializeTags([]string{"Crypto", "Tech"})
	if got != "[Crypto, Tech]" {
		t.Errorf("got %q, want [Crypto, Tech]", got)
	}
}

func TestExtractTokenIDs(t *testing.T) {
	tests := []struct {
		name    string
		tokens  []domain.RawToken
		wantYes string
		wantNo  string
	}{
		{
			"yes and no",
			[]domain.RawToken{{Outcome: "Yes", TokenID: "t1"}, {Outcome: "No", TokenID: "t2"}},
			"t1", "t2",
		},
		{
			"up and down map to yes and no",
			[]domain.RawToken{{Outcome: "UP", TokenID: "t3"}, {Outcome: "Down", TokenID: "t4"}},
			"t3", "t4",
		},
		{
			"last match wins",
			[]domain.RawToken{{Outcome: "yes", TokenID: "first"}, {Outcome: "YES", TokenID: "second"}},
			"second", "",
		},
		{
			"unrelated outcomes ignored",
			[]domain.RawToken{{Outcome: "maybe", TokenID: "t5"}},
			"", "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			yes, no := extractTokenIDs(tt.tokens)
			gotYes, gotNo := "", ""
			if yes != nil {
				gotYes = *yes
			}
			if no != nil {
				gotNo = *no
			}
			if gotYes != tt.wantYes || gotNo != tt.wantNo {
				t.Errorf("got (%q, %q), want (%q, %q)", gotYes, gotNo, tt.wantYes, tt.wantNo)
			}
		})
	}
}
