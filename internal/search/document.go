package search

import (
	"encoding/json"
	"strings"

	"github.com/yungbote/bookatlas-backend/internal/domain/catalog"
)

// DocRef is the embedded author/genre sub-document.
type DocRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BookDocument is the denormalized index projection of a catalog book.
// Pointer fields plus omitempty implement the sparse document policy: a
// null/absent value never appears as a key in the marshaled document.
type BookDocument struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	TitleSort     string          `json:"title_sort"`
	Authors       []DocRef        `json:"authors,omitempty"`
	Genres        []DocRef        `json:"genres,omitempty"`
	YearPublished *int            `json:"year_published,omitempty"`
	Summary       string          `json:"summary,omitempty"`
	AgeRating     string          `json:"age_rating,omitempty"`
	Language      string          `json:"language,omitempty"`
	SizePages     *int            `json:"book_size_pages,omitempty"`
	AverageRating *float64        `json:"average_rating,omitempty"`
	RatingDetails json.RawMessage `json:"rating_details,omitempty"`
	ISBN13        string          `json:"isbn_13,omitempty"`
	SearchText    string          `json:"search_text"`
}

// BuildDocument derives the search document from a book and its loaded
// authors/genres. It is a pure function: identical inputs yield identical
// documents.
func BuildDocument(book *catalog.Book) BookDocument {
	doc := BookDocument{
		ID:        book.ID.String(),
		Title:     book.Title,
		TitleSort: TitleSortKey(book.Title),
	}

	for _, a := range book.Authors {
		doc.Authors = append(doc.Authors, DocRef{ID: a.ID.String(), Name: a.Name})
	}
	for _, g := range book.Genres {
		doc.Genres = append(doc.Genres, DocRef{ID: g.ID.String(), Name: g.Name})
	}

	doc.YearPublished = book.YearPublished
	if book.Summary != nil {
		doc.Summary = *book.Summary
	}
	if book.AgeRating != nil {
		doc.AgeRating = *book.AgeRating
	}
	if book.Language != nil {
		doc.Language = *book.Language
	}
	doc.SizePages = book.SizePages
	doc.AverageRating = book.AverageRating
	if len(book.RatingDetails) > 0 {
		doc.RatingDetails = json.RawMessage(book.RatingDetails)
	}
	if book.ISBN13 != nil {
		doc.ISBN13 = *book.ISBN13
	}

	doc.SearchText = buildSearchText(doc)
	return doc
}

// TitleSortKey lowercases the title and strips at most one leading English
// article. The trailing space in each prefix matters: "Ancient History" must
// not lose its "an".
func TitleSortKey(title string) string {
	sort := strings.ToLower(title)
	for _, article := range []string{"the ", "a ", "an "} {
		if strings.HasPrefix(sort, article) {
			return sort[len(article):]
		}
	}
	return sort
}

func buildSearchText(doc BookDocument) string {
	parts := make([]string, 0, 2+len(doc.Authors)+len(doc.Genres))
	if doc.Title != "" {
		parts = append(parts, doc.Title)
	}
	for _, a := range doc.Authors {
		if a.Name != "" {
			parts = append(parts, a.Name)
		}
	}
	for _, g := range doc.Genres {
		if g.Name != "" {
			parts = append(parts, g.Name)
		}
	}
	if doc.Summary != "" {
		parts = append(parts, doc.Summary)
	}
	return strings.Join(parts, " ")
}
