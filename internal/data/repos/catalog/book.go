package catalog

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/bookatlas-backend/internal/domain/catalog"
	"github.com/yungbote/bookatlas-backend/internal/platform/dbctx"
	"github.com/yungbote/bookatlas-backend/internal/platform/logger"
)

// BookRepo is the only read/write surface for book rows. Every loading method
// states what related data it fetches; nothing is lazy-loaded.
type BookRepo interface {
	// GetWithRelations loads a book with its authors and genres preloaded.
	GetWithRelations(dbc dbctx.Context, id uuid.UUID) (*catalog.Book, error)
	// GetByISBN13 loads by exact isbn_13 with authors and genres preloaded.
	GetByISBN13(dbc dbctx.Context, isbn13 string) (*catalog.Book, error)
	// FindByTitleAndAuthor returns the oldest book with an exactly equal
	// title linked to an author of the given name. When year is non-nil the
	// match's year_published must fall within +/-1 of it. Candidates are
	// ordered by created_at then id so ties resolve deterministically.
	FindByTitleAndAuthor(dbc dbctx.Context, title, authorName string, year *int) (*catalog.Book, error)
	// Create persists the book together with join rows for any Authors and
	// Genres already set on it (the entities themselves must exist).
	Create(dbc dbctx.Context, book *catalog.Book) error
	// UpdateFields applies a partial scalar update; association links are
	// never touched here.
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// ReplaceAuthors swaps the complete author link set for the book.
	ReplaceAuthors(dbc dbctx.Context, book *catalog.Book, authors []*catalog.Author) error
	// ReplaceGenres swaps the complete genre link set for the book.
	ReplaceGenres(dbc dbctx.Context, book *catalog.Book, genres []*catalog.Genre) error
	// List pages through books with authors and genres preloaded.
	List(dbc dbctx.Context, offset, limit int) ([]*catalog.Book, error)
	// Count returns the total number of book rows.
	Count(dbc dbctx.Context) (int64, error)
}

type bookRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBookRepo(db *gorm.DB, baseLog *logger.Logger) BookRepo {
	return &bookRepo{
		db:  db,
		log: baseLog.With("repo", "BookRepo"),
	}
}

func (r *bookRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func withRelations(q *gorm.DB) *gorm.DB {
	return q.Preload("Authors").Preload("Genres")
}

func (r *bookRepo) GetWithRelations(dbc dbctx.Context, id uuid.UUID) (*catalog.Book, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var book catalog.Book
	err := withRelations(r.conn(dbc)).
		Where("id = ?", id).
		First(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepo) GetByISBN13(dbc dbctx.Context, isbn13 string) (*catalog.Book, error) {
	if isbn13 == "" {
		return nil, nil
	}
	var book catalog.Book
	err := withRelations(r.conn(dbc)).
		Where("isbn_13 = ?", isbn13).
		First(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepo) FindByTitleAndAuthor(dbc dbctx.Context, title, authorName string, year *int) (*catalog.Book, error) {
	if title == "" || authorName == "" {
		return nil, nil
	}
	q := withRelations(r.conn(dbc)).
		Joins("JOIN book_authors ON book_authors.book_id = books.id").
		Joins("JOIN authors ON authors.id = book_authors.author_id").
		Where("books.title = ? AND authors.name = ?", title, authorName)
	if year != nil {
		q = q.Where("books.year_published BETWEEN ? AND ?", *year-1, *year+1)
	}
	var book catalog.Book
	err := q.Order("books.created_at ASC, books.id ASC").First(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepo) Create(dbc dbctx.Context, book *catalog.Book) error {
	if book == nil {
		return nil
	}
	return r.conn(dbc).Create(book).Error
}

func (r *bookRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return r.conn(dbc).
		Model(&catalog.Book{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *bookRepo) ReplaceAuthors(dbc dbctx.Context, book *catalog.Book, authors []*catalog.Author) error {
	if book == nil {
		return nil
	}
	if err := r.conn(dbc).Model(book).Association("Authors").Replace(authors); err != nil {
		return err
	}
	book.Authors = authors
	return nil
}

func (r *bookRepo) ReplaceGenres(dbc dbctx.Context, book *catalog.Book, genres []*catalog.Genre) error {
	if book == nil {
		return nil
	}
	if err := r.conn(dbc).Model(book).Association("Genres").Replace(genres); err != nil {
		return err
	}
	book.Genres = genres
	return nil
}

func (r *bookRepo) List(dbc dbctx.Context, offset, limit int) ([]*catalog.Book, error) {
	var out []*catalog.Book
	err := withRelations(r.conn(dbc)).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *bookRepo) Count(dbc dbctx.Context) (int64, error) {
	var count int64
	if err := r.conn(dbc).Model(&catalog.Book{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
