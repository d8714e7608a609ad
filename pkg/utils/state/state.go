// Package state is the bridge's persisted key/value bookkeeping store,
// holding markers such as when the instrument master was last refreshed.
package state

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type State struct {
	db *gorm.DB
}

func NewState(db *gorm.DB) (*State, error) {
	if err := db.AutoMigrate(&StateEntry{}); err != nil {
		return nil, err
	}
	return &State{db: db}, nil
}

// Get returns the stored value, or an empty string for a missing key
func (s *State) Get(key string) (string, error) {
	var entry StateEntry
	err := s.db.Where("key = ?", key).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return entry.Value, nil
}

// Set creates or overwrites the value for a key
func (s *State) Set(key, value string) error {
	entry := StateEntry{Key: key, Value: value}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&entry).Error
}

// Delete removes a key; deleting a missing key is not an error
func (s *State) Delete(key string) error {
	return s.db.Where("key = ?", key).Delete(&StateEntry{}).Error
}
