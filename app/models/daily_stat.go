package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JSON stores arbitrary JSON documents in a text column.
type JSON json.RawMessage

// Value implements the driver.Valuer interface
func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

// Scan implements the sql.Scanner interface
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = JSON("{}")
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("invalid scan source")
	}
	*j = JSON(bytes)
	return nil
}

// MarshalJSON implements the json.Marshaler interface
func (j JSON) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (j *JSON) UnmarshalJSON(data []byte) error {
	*j = JSON(data)
	return nil
}

// DailyStat is the derived analytics row for one calendar day. There is at
// most one row per date; recomputing a date overwrites it deterministically.
type DailyStat struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Date             string    `gorm:"type:varchar(10);not null;uniqueIndex" json:"date"` // YYYY-MM-DD
	TotalUsers       int64     `gorm:"not null;default:0" json:"total_users"`
	ActiveUsers      int64     `gorm:"not null;default:0" json:"active_users"`
	NewUsers         int64     `gorm:"not null;default:0" json:"new_users"`
	PremiumUsers     int64     `gorm:"not null;default:0" json:"premium_users"`
	TotalOperations  int64     `gorm:"not null;default:0" json:"total_operations"`
	OperationsByType JSON      `gorm:"type:text" json:"operations_by_type"`
	Revenue          float64   `gorm:"not null;default:0" json:"revenue"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// OperationsMap decodes the per-type operation counts.
func (s *DailyStat) OperationsMap() (map[string]int64, error) {
	m := make(map[string]int64)
	if len(s.OperationsByType) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(s.OperationsByType, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// SetOperationsMap encodes the per-type operation counts. encoding/json
// orders map keys, so equal inputs produce byte-identical columns.
func (s *DailyStat) SetOperationsMap(m map[string]int64) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	s.OperationsByType = JSON(data)
	return nil
}
