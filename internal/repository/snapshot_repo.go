// Package repository contains the repository layer for the SOS Bridge
package repository

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sosengine/databridge/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SnapshotChannel is the Postgres NOTIFY channel fired after every
// persisted option chain snapshot.
var SnapshotChannel = "ch_bridge_optionchain"

// SnapshotRepository is the database repository for option chain snapshots
// and market breadth history. Every operation runs in its own transaction
// scope so lock lifetime is bounded to a single logical operation.
type SnapshotRepository struct {
	DB *gorm.DB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{DB: db}
}

// snapshotNotification is the payload sent on SnapshotChannel
type snapshotNotification struct {
	Symbol    string  `json:"symbol"`
	Timestamp int64   `json:"timestamp"`
	PCR       float64 `json:"pcr"`
}

// SaveSnapshot upserts the aggregate row and all strike rows of one option
// chain snapshot as a single transaction. A snapshot with no open interest
// at all is rejected. On error the whole snapshot is discarded and the error
// is returned to the caller; there is no internal retry.
func (r *SnapshotRepository) SaveSnapshot(aggregate models.OptionAggregateModel, strikes []models.OptionStrikeModel) error {
	if !aggregate.IsValid() {
		return fmt.Errorf("invalid snapshot for %s: no open interest", aggregate.Symbol)
	}

	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}, {Name: "timestamp"}},
			UpdateAll: true,
		}).Create(&aggregate).Error; err != nil {
			return fmt.Errorf("failed to upsert aggregate for %s: %v", aggregate.Symbol, err)
		}

		if len(strikes) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "symbol"}, {Name: "timestamp"}, {Name: "strike"}},
				UpdateAll: true,
			}).Create(&strikes).Error; err != nil {
				return fmt.Errorf("failed to upsert strikes for %s: %v", aggregate.Symbol, err)
			}
		}

		payload, err := json.Marshal(snapshotNotification{
			Symbol:    aggregate.Symbol,
			Timestamp: aggregate.Timestamp,
			PCR:       aggregate.PCR,
		})
		if err != nil {
			return err
		}
		return tx.Exec("SELECT pg_notify(?, ?)", SnapshotChannel, string(payload)).Error
	})
}

// GetLatestChain returns every strike row recorded at the newest timestamp
// for the symbol. No data is an empty slice, not an error.
func (r *SnapshotRepository) GetLatestChain(symbol string) ([]models.OptionStrikeModel, error) {
	var lastTs int64
	err := r.DB.Model(&models.OptionStrikeModel{}).
		Select("timestamp").
		Where("symbol = ?", symbol).
		Order("timestamp DESC").
		Limit(1).
		Scan(&lastTs).Error
	if err != nil {
		return nil, err
	}
	if lastTs == 0 {
		return []models.OptionStrikeModel{}, nil
	}

	var strikes []models.OptionStrikeModel
	err = r.DB.Where("symbol = ? AND timestamp = ?", symbol, lastTs).Find(&strikes).Error
	if err != nil {
		return nil, err
	}
	return strikes, nil
}

// GetLatestAggregate returns the newest aggregate row for the symbol, or nil
// when no snapshot exists. Used as the PCR fetcher's fallback tier.
func (r *SnapshotRepository) GetLatestAggregate(symbol string) (*models.OptionAggregateModel, error) {
	var aggregate models.OptionAggregateModel
	err := r.DB.Where("symbol = ?", symbol).Order("timestamp DESC").First(&aggregate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &aggregate, nil
}

// SaveBreadth persists one advance/decline observation
func (r *SnapshotRepository) SaveBreadth(breadth models.BreadthModel) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "timestamp"}, {Name: "index"}},
		UpdateAll: true,
	}).Create(&breadth).Error
}
