package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Author identity is its name. The unique index is load-bearing: concurrent
// ingestion runs rely on it to make get-or-create-by-name race-safe.
type Author struct {
	ID   uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name string    `gorm:"column:name;not null;uniqueIndex" json:"name"`

	Books []*Book `gorm:"many2many:book_authors" json:"-"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Author) TableName() string { return "authors" }
