package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Book is the system-of-record row for one catalog title. Nullable columns
// are pointers so updates can distinguish "absent" from "zero".
type Book struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Title         string    `gorm:"column:title;not null;index" json:"title"`
	YearPublished *int      `gorm:"column:year_published;index" json:"year_published,omitempty"`
	Summary       *string   `gorm:"column:summary;type:text" json:"summary,omitempty"`
	AgeRating     *string   `gorm:"column:age_rating" json:"age_rating,omitempty"`
	Language      *string   `gorm:"column:language;index" json:"language,omitempty"`
	SizePages     *int      `gorm:"column:book_size_pages" json:"book_size_pages,omitempty"`
	SizeDesc      *string   `gorm:"column:book_size_description" json:"book_size_description,omitempty"`
	AverageRating *float64  `gorm:"column:average_rating;index" json:"average_rating,omitempty"`
	// RatingDetails holds the ordered per-source rating records exactly as
	// normalized at ingest time (list of heterogeneous objects).
	RatingDetails datatypes.JSON `gorm:"column:rating_details;type:jsonb" json:"rating_details,omitempty"`
	SourceURL     *string        `gorm:"column:source_url" json:"source_url,omitempty"`
	ISBN10        *string        `gorm:"column:isbn_10;type:varchar(10);index" json:"isbn_10,omitempty"`
	ISBN13        *string        `gorm:"column:isbn_13;type:varchar(13);uniqueIndex" json:"isbn_13,omitempty"`

	Authors []*Author `gorm:"many2many:book_authors" json:"authors"`
	Genres  []*Genre  `gorm:"many2many:book_genres" json:"genres"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now();index" json:"updated_at"`
}

func (Book) TableName() string { return "books" }
