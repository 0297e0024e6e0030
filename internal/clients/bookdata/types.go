package bookdata

import "encoding/json"

// Search fields supported by the providers.
const (
	FieldAuthor = "author"
	FieldTitle  = "title"
)

// SearchFields is the fixed fan-out order used by ingestion.
var SearchFields = []string{FieldAuthor, FieldTitle}

// RawBook is one provider book record, keyed by the provider's own id scheme.
// Every field except the id may be missing; rating details arrive in several
// shapes and are kept raw until normalization.
type RawBook struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	YearPublished *int            `json:"year_published"`
	Summary       *string         `json:"summary"`
	AgeRating     *string         `json:"age_rating"`
	Language      *string         `json:"language"`
	SizePages     *int            `json:"book_size_pages"`
	SizeDesc      *string         `json:"book_size_description"`
	AverageRating *float64        `json:"average_rating"`
	RatingDetails json.RawMessage `json:"rating_details"`
	SourceURL     *string         `json:"source_url"`
	ISBN10        *string         `json:"isbn_10"`
	ISBN13        *string         `json:"isbn_13"`
}

type RawAuthor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RawGenre may carry both a localized name and the provider's original one;
// the original wins when present.
type RawGenre struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	OriginalName string `json:"original_name"`
}

// DisplayName is the genre name ingestion stores.
func (g RawGenre) DisplayName() string {
	if g.OriginalName != "" {
		return g.OriginalName
	}
	return g.Name
}

// RawLink joins a provider book id to a provider author or genre id.
type RawLink struct {
	BookID   string `json:"book_id"`
	AuthorID string `json:"author_id,omitempty"`
	GenreID  string `json:"genre_id,omitempty"`
}

// RawRelationships carries the provider's book-author and book-genre links.
type RawRelationships struct {
	BookAuthors []RawLink `json:"book_authors"`
	BookGenres  []RawLink `json:"book_genres"`
}

// Payload is the "data" envelope both providers return.
type Payload struct {
	Books         []RawBook        `json:"books"`
	Authors       []RawAuthor      `json:"authors"`
	Genres        []RawGenre       `json:"genres"`
	Relationships RawRelationships `json:"relationships"`
}
