// Package datamodel holds the row helpers shared by every persisted entity.
package datamodel

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Model is embedded by rows keyed by a UUID string.
type Model struct {
	ID        string    `json:"id" gorm:"primaryKey;column:id" db:"id"`
	CreatedAt time.Time `json:"createdAt" gorm:"column:created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"column:updated_at" db:"updated_at"`
}

func (m *Model) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// NewID returns a fresh identifier for rows inserted outside gorm.
func NewID() string {
	return uuid.NewString()
}

func init() {
	// money columns serialize as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}
