// Package ports defines the interfaces between the engine and its adapters.
package ports

import "go.trai.ch/ebb/internal/core/domain"

// SourceReader yields an entity's ordered raw series and its content fingerprint.
//
//go:generate go run go.uber.org/mock/mockgen -source=source.go -destination=mocks/mock_source.go -package=mocks
type SourceReader interface {
	// Read returns the entity's raw records in ascending date order.
	Read(entity string) ([]domain.RawRecord, error)

	// Fingerprint returns the content identity of the entity's source file.
	Fingerprint(entity string) (domain.Fingerprint, error)

	// Entities lists all entity codes present in the source.
	Entities() ([]string, error)
}

// SourceStore is a SourceReader whose rows can be overwritten.
// Only reconciliation repair writes through it; the update engine itself
// never mutates raw data.
type SourceStore interface {
	SourceReader

	// WriteRow replaces (or inserts) the entity's row for the given date.
	WriteRow(entity string, row domain.RawRecord) error
}
