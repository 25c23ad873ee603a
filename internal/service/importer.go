package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/foodgram-dev/foodgram/backend/internal/models"
)

// ImportResult counts the outcome of one CSV import
type ImportResult struct {
	Created int
	Skipped int
}

// Importer loads catalog data from CSV files
type Importer struct {
	db *gorm.DB
}

// NewImporter creates a new Importer instance
func NewImporter(db *gorm.DB) *Importer {
	return &Importer{db: db}
}

// ImportIngredients reads name,measurement_unit rows. Existing names are
// left untouched and incomplete rows are skipped.
func (im *Importer) ImportIngredients(ctx context.Context, r io.Reader) (ImportResult, error) {
	return im.importRows(ctx, r, "ingredients", func(tx *gorm.DB, fields []string) (bool, error) {
		row := models.Ingredient{Name: fields[0], MeasurementUnit: fields[1]}
		res := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).Create(&row)
		return res.RowsAffected > 0, res.Error
	})
}

// ImportTags reads name,slug rows with the same rules as ImportIngredients.
// A row whose name or slug is already used is skipped.
func (im *Importer) ImportTags(ctx context.Context, r io.Reader) (ImportResult, error) {
	return im.importRows(ctx, r, "tags", func(tx *gorm.DB, fields []string) (bool, error) {
		var count int64
		if err := tx.Model(&models.Tag{}).Where("name = ? OR slug = ?", fields[0], fields[1]).Count(&count).Error; err != nil {
			return false, err
		}
		if count > 0 {
			return false, nil
		}
		row := models.Tag{Name: fields[0], Slug: fields[1]}
		return true, tx.Create(&row).Error
	})
}

func (im *Importer) importRows(ctx context.Context, r io.Reader, kind string, insert func(tx *gorm.DB, fields []string) (bool, error)) (ImportResult, error) {
	var result ImportResult
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	err := im.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for line := 1; ; line++ {
			record, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to read %s line %d: %w", kind, line, err)
			}
			if len(record) < 2 || strings.TrimSpace(record[0]) == "" || strings.TrimSpace(record[1]) == "" {
				result.Skipped++
				continue
			}

			created, err := insert(tx, []string{strings.TrimSpace(record[0]), strings.TrimSpace(record[1])})
			if err != nil {
				return fmt.Errorf("failed to import %s line %d: %w", kind, line, err)
			}
			if created {
				result.Created++
			} else {
				result.Skipped++
			}
		}
	})
	if err != nil {
		return ImportResult{}, err
	}

	slog.InfoContext(ctx, "catalog import finished", "kind", kind, "created", result.Created, "skipped", result.Skipped)
	return result, nil
}
