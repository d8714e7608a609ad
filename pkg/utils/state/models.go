package state

// StateTableName is the name of the table for bridge state entries
var StateTableName = "_bridge_state"

// StateEntry is a persisted key/value pair
type StateEntry struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

// TableName specifies the table name for the StateEntry model
func (StateEntry) TableName() string {
	return StateTableName
}
