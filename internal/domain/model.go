package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel is the common base struct for all TSAM records.
// An empty ID means the record has not been created yet.
type BaseModel struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id,omitempty" form:"id"`
	CreatedAt time.Time `json:"createdAt,omitzero" form:"-"`
	UpdatedAt time.Time `json:"updatedAt,omitzero" form:"-"`
}

// RecordID returns the record identifier.
func (m BaseModel) RecordID() string {
	return m.ID
}

// BeforeCreate assigns a fresh UUID to records stored without one.
func (m *BaseModel) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Record is implemented by every entity handled by the console.
type Record interface {
	RecordID() string
}

// HasID reports whether the record carries an identifier, which selects the
// update path over the create path.
func HasID(r Record) bool {
	return r.RecordID() != ""
}

// Page is one page of a list fetch together with the total record count
// reported by the backend.
type Page[E any] struct {
	Items      []E
	TotalCount int
}

// Result is the outcome of a create, update, or delete call. The backend
// answers either with the stored record or with a plain message.
type Result[E any] struct {
	Record  *E
	Message string
}
