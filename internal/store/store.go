package store

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Tom8810/janso/internal/model"
)

// Store defines the interface for all document operations.
type Store interface {
	GetDocument(ctx context.Context, collection, id string) (*Snapshot, error)
	ListCollection(ctx context.Context, collection string) ([]Snapshot, error)
	BatchWrite(ctx context.Context, writes []Write) error
	NewID() string
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB exposes the underlying connection for relational tables.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// NewID allocates a store-generated document id.
func (s *gormStore) NewID() string {
	return uuid.NewString()
}

// GetDocument fetches one document or returns ErrNotFound.
func (s *gormStore) GetDocument(ctx context.Context, collection, id string) (*Snapshot, error) {
	if err := validatePath(collection, id); err != nil {
		return nil, err
	}

	var doc model.Document
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Take(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s/%s: %w", collection, id, err)
	}
	return toSnapshot(doc), nil
}

// ListCollection returns every document of a collection, oldest first.
// An empty collection yields an empty slice.
func (s *gormStore) ListCollection(ctx context.Context, collection string) ([]Snapshot, error) {
	if err := validatePath(collection, "x"); err != nil {
		return nil, err
	}

	var docs []model.Document
	if err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("created_at, id").
		Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to list collection %s: %w", collection, err)
	}

	snapshots := make([]Snapshot, 0, len(docs))
	for _, d := range docs {
		snapshots = append(snapshots, *toSnapshot(d))
	}
	return snapshots, nil
}

// BatchWrite applies all writes in a single transaction. Either every write
// is visible afterwards or none is.
func (s *gormStore) BatchWrite(ctx context.Context, writes []Write) error {
	if len(writes) == 0 {
		return nil
	}
	for _, w := range writes {
		if err := validatePath(w.Collection, w.ID); err != nil {
			return err
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, w := range writes {
			if err := applyWrite(tx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

func applyWrite(tx *gorm.DB, w Write) error {
	fields := datatypes.JSONMap{}
	if w.Merge {
		var existing model.Document
		err := tx.Where("collection = ? AND id = ?", w.Collection, w.ID).Take(&existing).Error
		switch {
		case err == nil:
			maps.Copy(fields, existing.Fields)
		case errors.Is(err, gorm.ErrRecordNotFound):
			// merge into a new document
		default:
			return fmt.Errorf("failed to read document %s/%s for merge: %w", w.Collection, w.ID, err)
		}
	}
	maps.Copy(fields, w.Fields)

	doc := model.Document{
		Collection: w.Collection,
		ID:         w.ID,
		Fields:     fields,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"fields", "updated_at"}),
	}).Create(&doc).Error; err != nil {
		return fmt.Errorf("failed to write document %s/%s: %w", w.Collection, w.ID, err)
	}
	return nil
}

func toSnapshot(doc model.Document) *Snapshot {
	fields := make(map[string]any, len(doc.Fields))
	maps.Copy(fields, doc.Fields)
	return &Snapshot{
		Collection: doc.Collection,
		ID:         doc.ID,
		Fields:     fields,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
}
