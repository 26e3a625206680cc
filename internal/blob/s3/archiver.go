package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/forecastwire/foresight/internal/domain"
)

// OutcomeArchiveStore provides read access to outcome samples for archival
// purposes. It is deliberately narrower than domain.OutcomeStore: the
// archiver only needs the time-ranged query it actually calls.
type OutcomeArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.OutcomeSample, error)
}

// ArchiveImpl implements domain.Archiver by querying the outcome store for
// old samples, serializing them to JSONL, and uploading the result to S3.
//
// Deletion of the archived records from the primary store is intentionally
// NOT performed here; that is a separate, explicit step to be executed after
// the archive has been verified.
type ArchiveImpl struct {
	writer   domain.BlobWriter
	outcomes OutcomeArchiveStore
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(writer domain.BlobWriter, outcomes OutcomeArchiveStore) *ArchiveImpl {
	return &ArchiveImpl{
		writer:   writer,
		outcomes: outcomes,
	}
}

// outcomeRecord is the JSONL wire shape for one archived outcome sample.
type outcomeRecord struct {
	PredictionID string          `json:"prediction_id"`
	Weighted     float64         `json:"weighted"`
	Community    float64         `json:"community"`
	Raw          json.RawMessage `json:"raw,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ArchiveOutcomes queries all outcome samples before the cutoff, serializes
// them to JSONL, and uploads the file to S3 at
// archive/outcomes/YYYY-MM.jsonl. The count of archived records is returned.
func (a *ArchiveImpl) ArchiveOutcomes(ctx context.Context, before time.Time) (int64, error) {
	samples, err := a.outcomes.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive outcomes query: %w", err)
	}
	if len(samples) == 0 {
		return 0, nil
	}

	records := make([]outcomeRecord, 0, len(samples))
	for _, s := range samples {
		records = append(records, outcomeRecord{
			PredictionID: s.PredictionID,
			Weighted:     s.Weighted,
			Community:    s.Community,
			Raw:          s.Raw,
			CreatedAt:    s.CreatedAt,
		})
	}

	buf, err := marshalJSONL(records)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive outcomes marshal: %w", err)
	}

	path := archivePath("outcomes", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive outcomes upload: %w", err)
	}

	return int64(len(samples)), nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/outcomes/2026-08.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface checks.
var (
	_ domain.BlobWriter = (*Writer)(nil)
	_ domain.Archiver   = (*ArchiveImpl)(nil)
)
