package services

import (
	catalogrepos "github.com/yungbote/bookatlas-backend/internal/data/repos/catalog"
	types "github.com/yungbote/bookatlas-backend/internal/domain/catalog"
	"github.com/yungbote/bookatlas-backend/internal/platform/dbctx"
	"github.com/yungbote/bookatlas-backend/internal/platform/logger"
)

// Reconciler decides whether an incoming record refers to a book already in
// the catalog.
//
// Matching is two-tier: an exact isbn_13 equality wins outright; otherwise an
// exact title match owned by the record's first listed author, constrained to
// +/-1 year when both sides carry a year. The heuristic accepts false
// negatives (differently titled editions stay distinct) and never
// fuzzy-matches.
type Reconciler interface {
	// Match returns the existing book for the record, or nil when the record
	// is new. Ties on the title+author tier resolve to the oldest row.
	Match(dbc dbctx.Context, rec *NormalizedBook) (*types.Book, error)
}

type reconciler struct {
	books catalogrepos.BookRepo
	log   *logger.Logger
}

func NewReconciler(books catalogrepos.BookRepo, baseLog *logger.Logger) Reconciler {
	return &reconciler{
		books: books,
		log:   baseLog.With("service", "Reconciler"),
	}
}

func (r *reconciler) Match(dbc dbctx.Context, rec *NormalizedBook) (*types.Book, error) {
	if rec.ISBN13 != nil && *rec.ISBN13 != "" {
		book, err := r.books.GetByISBN13(dbc, *rec.ISBN13)
		if err != nil {
			return nil, err
		}
		if book != nil {
			return book, nil
		}
	}

	if len(rec.AuthorNames) == 0 {
		return nil, nil
	}
	return r.books.FindByTitleAndAuthor(dbc, rec.Title, rec.AuthorNames[0], rec.YearPublished)
}
