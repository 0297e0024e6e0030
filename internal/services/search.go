package services

import (
	"context"

	"github.com/google/uuid"

	catalogrepos "github.com/yungbote/bookatlas-backend/internal/data/repos/catalog"
	types "github.com/yungbote/bookatlas-backend/internal/domain/catalog"
	"github.com/yungbote/bookatlas-backend/internal/platform/dbctx"
	"github.com/yungbote/bookatlas-backend/internal/platform/logger"
	"github.com/yungbote/bookatlas-backend/internal/search"
)

// QueryService is the read side: index searches plus authoritative catalog
// lookups. Index trouble degrades searches to an empty page; the catalog
// endpoints below never depend on the index.
type QueryService interface {
	Search(ctx context.Context, params search.SearchParams) *search.SearchResult
	GetBook(dbc dbctx.Context, id uuid.UUID) (*types.Book, error)
	ListBooks(dbc dbctx.Context, offset, limit int) ([]*types.Book, int64, error)
	ListAuthors(dbc dbctx.Context, offset, limit int) ([]*types.Author, error)
	ListGenres(dbc dbctx.Context, offset, limit int) ([]*types.Genre, error)
}

type queryService struct {
	log     *logger.Logger
	index   *search.Index
	books   catalogrepos.BookRepo
	authors catalogrepos.AuthorRepo
	genres  catalogrepos.GenreRepo
}

func NewQueryService(
	baseLog *logger.Logger,
	index *search.Index,
	books catalogrepos.BookRepo,
	authors catalogrepos.AuthorRepo,
	genres catalogrepos.GenreRepo,
) QueryService {
	return &queryService{
		log:     baseLog.With("service", "QueryService"),
		index:   index,
		books:   books,
		authors: authors,
		genres:  genres,
	}
}

func (s *queryService) Search(ctx context.Context, params search.SearchParams) *search.SearchResult {
	params.Normalize()
	res, err := s.index.Search(ctx, params)
	if err != nil {
		s.log.Error("Index search failed, returning empty page", "query", params.Query, "error", err)
		return &search.SearchResult{
			Total:    0,
			Page:     params.Page,
			PageSize: params.PageSize,
			Items:    []search.BookDocument{},
		}
	}
	return res
}

func (s *queryService) GetBook(dbc dbctx.Context, id uuid.UUID) (*types.Book, error) {
	return s.books.GetWithRelations(dbc, id)
}

func (s *queryService) ListBooks(dbc dbctx.Context, offset, limit int) ([]*types.Book, int64, error) {
	books, err := s.books.List(dbc, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.books.Count(dbc)
	if err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

func (s *queryService) ListAuthors(dbc dbctx.Context, offset, limit int) ([]*types.Author, error) {
	return s.authors.List(dbc, offset, limit)
}

func (s *queryService) ListGenres(dbc dbctx.Context, offset, limit int) ([]*types.Genre, error) {
	return s.genres.List(dbc, offset, limit)
}
