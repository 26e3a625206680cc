package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/forecastwire/foresight/internal/domain"
)

// memWriter captures uploads in memory.
type memWriter struct {
	path        string
	contentType string
	data        []byte
}

func (w *memWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	w.path = path
	w.contentType = contentType
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.data = b
	return nil
}

type memOutcomeStore struct {
	samples []domain.OutcomeSample
}

func (s *memOutcomeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.OutcomeSample, error) {
	var out []domain.OutcomeSample
	for _, smp := range s.samples {
		if smp.CreatedAt.Before(before) {
			out = append(out, smp)
		}
	}
	return out, nil
}

func TestArchiveOutcomes(t *testing.T) {
	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	store := &memOutcomeStore{samples: []domain.OutcomeSample{
		{PredictionID: "e1", Weighted: 0.2, Community: 0.3, CreatedAt: cutoff.Add(-time.Hour)},
		{PredictionID: "e2", Weighted: 0.4, Community: 0.5, CreatedAt: cutoff.Add(-2 * time.Hour)},
		{PredictionID: "e3", Weighted: 0.6, Community: 0.7, CreatedAt: cutoff.Add(time.Hour)}, // too new
	}}
	writer := &memWriter{}

	count, err := NewArchiver(writer, store).ArchiveOutcomes(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if writer.path != "archive/outcomes/2026-08.jsonl" {
		t.Errorf("path = %q", writer.path)
	}
	if writer.contentType != "application/x-ndjson" {
		t.Errorf("content type = %q", writer.contentType)
	}

	lines := strings.Split(strings.TrimSpace(string(writer.data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	var rec outcomeRecord
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("line 0 not valid JSON: %v", err)
	}
	if rec.PredictionID != "e1" || rec.Weighted != 0.2 {
		t.Errorf("record = %+v", rec)
	}
}

func TestArchiveOutcomesEmpty(t *testing.T) {
	writer := &memWriter{}
	count, err := NewArchiver(writer, &memOutcomeStore{}).ArchiveOutcomes(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
	if writer.data != nil {
		t.Error("no upload expected for an empty batch")
	}
}

func TestMarshalJSONLDoesNotEscapeHTML(t *testing.T) {
	buf, err := marshalJSONL([]map[string]string{{"q": "a < b"}})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(buf, []byte("a < b")) {
		t.Errorf("HTML escaping should be off, got %q", buf)
	}
}
