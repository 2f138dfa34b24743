package models

import (
	"time"
)

const (
	SettingTypeString  = "string"
	SettingTypeInteger = "integer"
	SettingTypeBoolean = "boolean"
	SettingTypeDecimal = "decimal"
)

// Setting represents a system setting
type Setting struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Key         string    `gorm:"column:setting_key;size:255;not null;uniqueIndex" json:"key" validate:"required,min=1,max=255"`
	Value       string    `gorm:"type:text" json:"value"`
	Type        string    `gorm:"size:50;not null" json:"type" validate:"required,oneof=string integer boolean decimal"`
	Description string    `gorm:"type:varchar(255)" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
