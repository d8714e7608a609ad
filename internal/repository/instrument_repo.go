// Package repository contains the repository layer for the SOS Bridge
package repository

import (
	"fmt"

	"github.com/sosengine/databridge/internal/models"
	"gorm.io/gorm"
)

// InstrumentRepository is the database repository for the instrument master
type InstrumentRepository struct {
	DB *gorm.DB
}

// NewInstrumentRepository creates a new instrument repository
func NewInstrumentRepository(db *gorm.DB) *InstrumentRepository {
	return &InstrumentRepository{DB: db}
}

// ReplaceInstruments atomically swaps the whole instrument master: truncate
// and batched re-insert run in one transaction, so a failed batch rolls back
// to the previous table instead of leaving it half-populated.
func (r *InstrumentRepository) ReplaceInstruments(instruments []models.InstrumentModel, batchSize int) (int64, error) {
	var totalInserted int64
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s", models.InstrumentsTableName)).Error; err != nil {
			return fmt.Errorf("failed to truncate %s: %v", models.InstrumentsTableName, err)
		}
		for i := 0; i < len(instruments); i += batchSize {
			end := i + batchSize
			if end > len(instruments) {
				end = len(instruments)
			}
			batch := instruments[i:end]
			result := tx.Create(&batch)
			if result.Error != nil {
				return fmt.Errorf("failed to insert batch starting at index %d: %v", i, result.Error)
			}
			totalInserted += result.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return totalInserted, nil
}

// GetInstrumentsRecordCount returns the number of records in the instruments table
func (r *InstrumentRepository) GetInstrumentsRecordCount() (int64, error) {
	var count int64
	err := r.DB.Table(models.InstrumentsTableName).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get instruments record count: %v", err)
	}
	return count, nil
}

// GetAllInstruments returns every row of the instrument master
func (r *InstrumentRepository) GetAllInstruments() ([]models.InstrumentModel, error) {
	var instruments []models.InstrumentModel
	if err := r.DB.Find(&instruments).Error; err != nil {
		return nil, err
	}
	return instruments, nil
}

// QueryInstruments queries the instruments table
func (r *InstrumentRepository) QueryInstruments(params models.QueryInstrumentsParams) ([]models.InstrumentModel, error) {
	query := r.DB.Model(&models.InstrumentModel{})

	if params.Tradingsymbol != "" {
		query = query.Where("tradingsymbol LIKE ?", params.Tradingsymbol)
	}
	if params.Name != "" {
		query = query.Where("name LIKE ?", params.Name)
	}
	if params.Segment != "" {
		query = query.Where("segment = ?", params.Segment)
	}
	if params.ISIN != "" {
		query = query.Where("isin = ?", params.ISIN)
	}

	var instruments []models.InstrumentModel
	if err := query.Find(&instruments).Error; err != nil {
		return nil, err
	}

	return instruments, nil
}

// GetInstrumentByTradingsymbol gets an instrument by its trading symbol
func (r *InstrumentRepository) GetInstrumentByTradingsymbol(tradingsymbol string) (models.InstrumentModel, error) {
	var instrument models.InstrumentModel
	err := r.DB.Where("tradingsymbol = ?", tradingsymbol).First(&instrument).Error
	return instrument, err
}
