// Package dictionary resolves the global Unit and IngredientRef tables.
// Names are normalized to lowercase and rows are created on demand, so two
// spellings differing only in case always resolve to the same row.
package dictionary

import (
	"context"
	"fmt"
	"sync"

	"github.com/spoonjoy/spoonjoy/internal/models"
	"github.com/spoonjoy/spoonjoy/internal/validate"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store performs case-insensitive get-or-create lookups.
type Store struct {
	db *gorm.DB

	mu sync.Mutex
}

// NewStore constructs a Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// UnitByName returns the unit row for the normalized name, creating it when
// missing.
func (s *Store) UnitByName(ctx context.Context, name string) (*models.Unit, error) {
	normalized, err := validate.Name(name)
	if err != nil {
		return nil, fmt.Errorf("dictionary: normalize name: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record := models.Unit{Name: normalized}
	if errCreate := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&record).Error; errCreate != nil {
		return nil, fmt.Errorf("dictionary: upsert unit: %w", errCreate)
	}

	var unit models.Unit
	if errFind := s.db.WithContext(ctx).Where("name = ?", normalized).First(&unit).Error; errFind != nil {
		return nil, fmt.Errorf("dictionary: load unit: %w", errFind)
	}
	return &unit, nil
}

// IngredientRefByName returns the ingredient dictionary row for the
// normalized name, creating it when missing.
func (s *Store) IngredientRefByName(ctx context.Context, name string) (*models.IngredientRef, error) {
	normalized, err := validate.Name(name)
	if err != nil {
		return nil, fmt.Errorf("dictionary: normalize name: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record := models.IngredientRef{Name: normalized}
	if errCreate := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&record).Error; errCreate != nil {
		return nil, fmt.Errorf("dictionary: upsert ingredient ref: %w", errCreate)
	}

	var ref models.IngredientRef
	if errFind := s.db.WithContext(ctx).Where("name = ?", normalized).First(&ref).Error; errFind != nil {
		return nil, fmt.Errorf("dictionary: load ingredient ref: %w", errFind)
	}
	return &ref, nil
}
