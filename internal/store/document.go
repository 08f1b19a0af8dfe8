package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no document exists at the requested path.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidPath is returned for malformed collection paths or document ids.
	ErrInvalidPath = errors.New("invalid document path")
)

// CollectionPath joins path segments, e.g. CollectionPath("parlors", id, "rooms").
func CollectionPath(segments ...string) string {
	return strings.Join(segments, "/")
}

// validatePath checks that collection names a collection (odd number of
// non-empty segments) and that id is a single segment.
func validatePath(collection, id string) error {
	segments := strings.Split(collection, "/")
	if len(segments)%2 == 0 {
		return fmt.Errorf("%w: %q is not a collection", ErrInvalidPath, collection)
	}
	for _, s := range segments {
		if s == "" {
			return fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, collection)
		}
	}
	if id == "" || strings.Contains(id, "/") {
		return fmt.Errorf("%w: bad document id %q", ErrInvalidPath, id)
	}
	return nil
}

// Write is a single document write within a batch. With Merge set only the
// given fields are replaced and all other stored fields are kept; otherwise
// the document is overwritten with exactly Fields.
type Write struct {
	Collection string
	ID         string
	Fields     map[string]any
	Merge      bool
}

// Snapshot is a read-only view of a stored document. Accessors report whether
// a field is present, so an absent field and a zero value stay distinguishable.
type Snapshot struct {
	Collection string
	ID         string
	Fields     map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Has reports whether key is present with a non-null value.
func (s *Snapshot) Has(key string) bool {
	v, ok := s.Fields[key]
	return ok && v != nil
}

// String returns a string field.
func (s *Snapshot) String(key string) (string, bool) {
	v, ok := s.Fields[key].(string)
	return v, ok
}

// Bool returns a boolean field.
func (s *Snapshot) Bool(key string) (bool, bool) {
	v, ok := s.Fields[key].(bool)
	return v, ok
}

// Int returns a numeric field truncated to an int.
func (s *Snapshot) Int(key string) (int, bool) {
	return toInt(s.Fields[key])
}

// Map returns a nested object field.
func (s *Snapshot) Map(key string) (map[string]any, bool) {
	v, ok := s.Fields[key].(map[string]any)
	return v, ok
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		if f, err := n.Float64(); err == nil {
			return int(f), true
		}
	}
	return 0, false
}
