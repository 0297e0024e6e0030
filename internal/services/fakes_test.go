package services

import (
	"fmt"

	"github.com/google/uuid"

	types "github.com/yungbote/bookatlas-backend/internal/domain/catalog"
	"github.com/yungbote/bookatlas-backend/internal/platform/dbctx"
)

// fakeBookRepo records calls and serves canned matches; only the methods the
// service under test touches need behavior.
type fakeBookRepo struct {
	byISBN        map[string]*types.Book
	byTitleAuthor func(title, author string, year *int) *types.Book

	created          []*types.Book
	updates          map[uuid.UUID]map[string]interface{}
	replacedAuthors  map[uuid.UUID][]*types.Author
	replacedGenres   map[uuid.UUID][]*types.Genre
	findByTitleCalls int
}

func newFakeBookRepo() *fakeBookRepo {
	return &fakeBookRepo{
		byISBN:          map[string]*types.Book{},
		updates:         map[uuid.UUID]map[string]interface{}{},
		replacedAuthors: map[uuid.UUID][]*types.Author{},
		replacedGenres:  map[uuid.UUID][]*types.Genre{},
	}
}

func (f *fakeBookRepo) GetWithRelations(dbc dbctx.Context, id uuid.UUID) (*types.Book, error) {
	return nil, nil
}

func (f *fakeBookRepo) GetByISBN13(dbc dbctx.Context, isbn13 string) (*types.Book, error) {
	return f.byISBN[isbn13], nil
}

func (f *fakeBookRepo) FindByTitleAndAuthor(dbc dbctx.Context, title, authorName string, year *int) (*types.Book, error) {
	f.findByTitleCalls++
	if f.byTitleAuthor == nil {
		return nil, nil
	}
	return f.byTitleAuthor(title, authorName, year), nil
}

func (f *fakeBookRepo) Create(dbc dbctx.Context, book *types.Book) error {
	book.ID = uuid.New()
	f.created = append(f.created, book)
	return nil
}

func (f *fakeBookRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	f.updates[id] = updates
	return nil
}

func (f *fakeBookRepo) ReplaceAuthors(dbc dbctx.Context, book *types.Book, authors []*types.Author) error {
	f.replacedAuthors[book.ID] = authors
	return nil
}

func (f *fakeBookRepo) ReplaceGenres(dbc dbctx.Context, book *types.Book, genres []*types.Genre) error {
	f.replacedGenres[book.ID] = genres
	return nil
}

func (f *fakeBookRepo) List(dbc dbctx.Context, offset, limit int) ([]*types.Book, error) {
	return nil, nil
}

func (f *fakeBookRepo) Count(dbc dbctx.Context) (int64, error) { return 0, nil }

type fakeAuthorRepo struct {
	byName map[string]*types.Author
}

func newFakeAuthorRepo() *fakeAuthorRepo {
	return &fakeAuthorRepo{byName: map[string]*types.Author{}}
}

func (f *fakeAuthorRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Author, error) {
	return nil, nil
}

func (f *fakeAuthorRepo) GetByName(dbc dbctx.Context, name string) (*types.Author, error) {
	return f.byName[name], nil
}

func (f *fakeAuthorRepo) GetOrCreateByName(dbc dbctx.Context, name string) (*types.Author, error) {
	if name == "" {
		return nil, fmt.Errorf("name required")
	}
	if a, ok := f.byName[name]; ok {
		return a, nil
	}
	a := &types.Author{ID: uuid.New(), Name: name}
	f.byName[name] = a
	return a, nil
}

func (f *fakeAuthorRepo) List(dbc dbctx.Context, offset, limit int) ([]*types.Author, error) {
	return nil, nil
}

type fakeGenreRepo struct {
	byName map[string]*types.Genre
}

func newFakeGenreRepo() *fakeGenreRepo {
	return &fakeGenreRepo{byName: map[string]*types.Genre{}}
}

func (f *fakeGenreRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Genre, error) {
	return nil, nil
}

func (f *fakeGenreRepo) GetByName(dbc dbctx.Context, name string) (*types.Genre, error) {
	return f.byName[name], nil
}

func (f *fakeGenreRepo) GetOrCreateByName(dbc dbctx.Context, name string) (*types.Genre, error) {
	if name == "" {
		return nil, fmt.Errorf("name required")
	}
	if g, ok := f.byName[name]; ok {
		return g, nil
	}
	g := &types.Genre{ID: uuid.New(), Name: name}
	f.byName[name] = g
	return g, nil
}

func (f *fakeGenreRepo) List(dbc dbctx.Context, offset, limit int) ([]*types.Genre, error) {
	return nil, nil
}
