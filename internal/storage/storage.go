// Package storage holds the single shared Configuration document and fans
// its changes out to live subscribers.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"wedding-site/internal/models"
)

var (
	// ErrNotFound is returned by Read when the document does not exist yet.
	ErrNotFound = errors.New("document not found")
	// ErrPermissionDenied is returned when the backend refuses the operation.
	ErrPermissionDenied = errors.New("permission denied")
)

// Store is one logical document at a fixed location. Write replaces the
// whole document, Patch replaces individual top-level fields and Append
// adds one element to an array field without a read-modify-write on the
// caller's side. Patch and Append create the document when it is missing.
type Store interface {
	Read(ctx context.Context) (models.Document, error)
	Write(ctx context.Context, cfg *models.Configuration) error
	Patch(ctx context.Context, p models.Patch) error
	Append(ctx context.Context, field string, value any) error
	Close() error
}

// ValidatePatch checks every field of p against the Configuration schema.
func ValidatePatch(p models.Patch) error {
	if len(p) == 0 {
		return fmt.Errorf("%w: empty patch", models.ErrUnknownField)
	}
	return (&models.Configuration{}).Apply(p)
}

// PatchDocument returns a copy of doc with the fields of p replaced.
func PatchDocument(doc models.Document, p models.Patch) (models.Document, error) {
	if err := ValidatePatch(p); err != nil {
		return nil, err
	}
	out := copyDocument(doc)
	for _, name := range p.Fields() {
		raw, err := models.EncodeField(name, p[name])
		if err != nil {
			return nil, err
		}
		out[name] = raw
	}
	return out, nil
}

// AppendDocument returns a copy of doc with value appended to the array
// field. A missing or null field starts out empty.
func AppendDocument(doc models.Document, field string, value any) (models.Document, error) {
	if err := models.CheckElement(field, value); err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if raw, ok := doc[field]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("field %s is not an array: %w", field, err)
		}
	}
	elem, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s element: %w", field, err)
	}
	items = append(items, elem)
	merged, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	out := copyDocument(doc)
	out[field] = merged
	return out, nil
}

func copyDocument(doc models.Document) models.Document {
	out := make(models.Document, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	return out
}
