package domain

import (
	"context"
	"io"
	"time"
)

// BlobWriter uploads objects to cold storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver moves aged records out of the primary store into cold storage.
type Archiver interface {
	// ArchiveOutcomes uploads all outcome samples created before the cutoff
	// and returns the number of archived records. Archived rows are left in
	// place; deletion is a separate, explicit step.
	ArchiveOutcomes(ctx context.Context, before time.Time) (int64, error)
}
