package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/bookatlas-backend/internal/clients/bookdata"
	catalogrepos "github.com/yungbote/bookatlas-backend/internal/data/repos/catalog"
	types "github.com/yungbote/bookatlas-backend/internal/domain/catalog"
	"github.com/yungbote/bookatlas-backend/internal/platform/dbctx"
	"github.com/yungbote/bookatlas-backend/internal/platform/httpx"
	"github.com/yungbote/bookatlas-backend/internal/platform/logger"
	"github.com/yungbote/bookatlas-backend/internal/search"
)

const (
	ReportStatusSkipped   = "skipped"
	ReportStatusNoResults = "completed_no_results"
	ReportStatusCompleted = "completed"
	ReportStatusFailed    = "failed"

	// commitBatchSize bounds how many processed books share one transaction.
	commitBatchSize = 10

	// fetchDelayBase paces consecutive provider calls; jittered +/-20%.
	fetchDelayBase = 1 * time.Second
)

// IngestReport summarizes one pipeline run. Counters reflect work actually
// done even when the run ends in a failed status.
type IngestReport struct {
	Query         string `json:"query"`
	Status        string `json:"status"`
	Processed     int    `json:"processed"`
	Created       int    `json:"created"`
	Updated       int    `json:"updated"`
	Failed        int    `json:"failed"`
	UniqueFetched int    `json:"unique_fetched"`
	APICalls      int    `json:"api_calls"`
	APISuccesses  int    `json:"api_successes"`
	APIErrors     int    `json:"api_errors"`
	IndexErrors   int    `json:"index_errors"`
	Message       string `json:"message,omitempty"`
}

// discardBatch moves a rolled-back batch's books from the success counters to
// failed, so every unique book ends up in exactly one bucket.
func (r *IngestReport) discardBatch(books, created, updated int) {
	r.Processed -= books
	r.Created -= created
	r.Updated -= updated
	r.Failed += books
}

// IngestionService runs the whole fetch-reconcile-persist-index pipeline for
// one user query. Purely a background effect; nothing here answers the
// original search request.
type IngestionService interface {
	Run(ctx context.Context, query string) *IngestReport
}

type ingestionService struct {
	db        *gorm.DB
	log       *logger.Logger
	client    *bookdata.Client
	books     catalogrepos.BookRepo
	authors   catalogrepos.AuthorRepo
	genres    catalogrepos.GenreRepo
	reconcile Reconciler
	index     *search.Index
}

func NewIngestionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	client *bookdata.Client,
	books catalogrepos.BookRepo,
	authors catalogrepos.AuthorRepo,
	genres catalogrepos.GenreRepo,
	reconcile Reconciler,
	index *search.Index,
) IngestionService {
	return &ingestionService{
		db:        db,
		log:       baseLog.With("service", "IngestionService"),
		client:    client,
		books:     books,
		authors:   authors,
		genres:    genres,
		reconcile: reconcile,
		index:     index,
	}
}

// aggregate holds everything fetched across all provider calls, keyed by the
// providers' own id scheme. Relationship id lists stay in first-seen order so
// "first listed author" is well defined.
type aggregate struct {
	order       []string
	books       map[string]bookdata.RawBook
	authorNames map[string]string
	genreNames  map[string]string
	bookAuthors map[string][]string
	bookGenres  map[string][]string
}

func newAggregate() *aggregate {
	return &aggregate{
		books:       map[string]bookdata.RawBook{},
		authorNames: map[string]string{},
		genreNames:  map[string]string{},
		bookAuthors: map[string][]string{},
		bookGenres:  map[string][]string{},
	}
}

func (a *aggregate) add(p *bookdata.Payload) {
	for _, b := range p.Books {
		if strings.TrimSpace(b.ID) == "" {
			continue
		}
		// Last-seen record wins; sources are equally authoritative.
		if _, seen := a.books[b.ID]; !seen {
			a.order = append(a.order, b.ID)
		}
		a.books[b.ID] = b
	}
	for _, au := range p.Authors {
		if au.ID != "" {
			a.authorNames[au.ID] = au.Name
		}
	}
	for _, g := range p.Genres {
		if g.ID != "" {
			a.genreNames[g.ID] = g.DisplayName()
		}
	}
	for _, l := range p.Relationships.BookAuthors {
		if l.BookID != "" && l.AuthorID != "" {
			a.bookAuthors[l.BookID] = appendUnique(a.bookAuthors[l.BookID], l.AuthorID)
		}
	}
	for _, l := range p.Relationships.BookGenres {
		if l.BookID != "" && l.GenreID != "" {
			a.bookGenres[l.BookID] = appendUnique(a.bookGenres[l.BookID], l.GenreID)
		}
	}
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

func (s *ingestionService) Run(ctx context.Context, query string) (report *IngestReport) {
	report = &IngestReport{Query: query}

	query = strings.TrimSpace(query)
	if query == "" {
		report.Status = ReportStatusSkipped
		report.Message = "empty query"
		return report
	}

	// Per-item guards keep individual failures contained; anything that still
	// escapes marks the whole run failed while preserving partial counts.
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Ingestion run panicked", "query", query, "panic", r)
			report.Status = ReportStatusFailed
			report.Message = fmt.Sprintf("run aborted: %v", r)
		}
	}()

	agg := s.fetchAll(ctx, query, report)
	report.UniqueFetched = len(agg.books)
	if report.UniqueFetched == 0 {
		report.Status = ReportStatusNoResults
		report.Message = "providers returned no books"
		return report
	}

	s.persistAll(ctx, agg, report)
	report.Status = ReportStatusCompleted
	return report
}

// fetchAll fans out one call per (source, field) pair and aggregates whatever
// comes back. A failed call contributes nothing and bumps the error counter.
func (s *ingestionService) fetchAll(ctx context.Context, query string, report *IngestReport) *aggregate {
	agg := newAggregate()
	for _, source := range s.client.Sources() {
		for _, field := range bookdata.SearchFields {
			if report.APICalls > 0 {
				select {
				case <-ctx.Done():
					return agg
				case <-time.After(httpx.JitterSleep(fetchDelayBase)):
				}
			}
			report.APICalls++
			payload, err := s.client.Fetch(ctx, source, field, query)
			if err != nil {
				report.APIErrors++
				s.log.Warn("Provider fetch failed", "source", source, "field", field, "error", err)
				continue
			}
			report.APISuccesses++
			agg.add(payload)
		}
	}
	return agg
}

// persistAll walks the aggregated books, reconciling and writing each one.
// Catalog writes commit in batches; index writes happen per book so a
// mid-batch crash leaves processed books searchable.
func (s *ingestionService) persistAll(ctx context.Context, agg *aggregate, report *IngestReport) {
	tx := s.db.WithContext(ctx).Begin()
	inTx, inTxCreated, inTxUpdated := 0, 0, 0

	resetBatch := func() { inTx, inTxCreated, inTxUpdated = 0, 0, 0 }

	commit := func() {
		if err := tx.Commit().Error; err != nil {
			s.log.Error("Batch commit failed, rolling back", "error", err, "books_lost", inTx)
			tx.Rollback()
			report.discardBatch(inTx, inTxCreated, inTxUpdated)
		}
		resetBatch()
	}

	for _, extID := range agg.order {
		raw := agg.books[extID]
		rec, err := BuildRecord(raw, agg.bookAuthors[extID], agg.bookGenres[extID], agg.authorNames, agg.genreNames)
		if err != nil {
			report.Failed++
			s.log.Warn("Skipping malformed book record", "external_id", extID, "error", err)
			continue
		}

		book, created, err := s.applyRecord(dbctx.WithTx(ctx, tx), rec)
		if err != nil {
			report.Failed++
			s.log.Warn("Failed to process book", "external_id", extID, "title", rec.Title, "error", err)
			// Postgres aborts the whole transaction on a statement error, so
			// restart it; the batch's in-flight books are lost with it.
			tx.Rollback()
			report.discardBatch(inTx, inTxCreated, inTxUpdated)
			tx = s.db.WithContext(ctx).Begin()
			resetBatch()
			continue
		}

		report.Processed++
		if created {
			report.Created++
			inTxCreated++
		} else {
			report.Updated++
			inTxUpdated++
		}
		inTx++

		if err := s.index.UpsertBook(ctx, book); err != nil {
			report.IndexErrors++
			s.log.Warn("Index upsert failed; catalog row kept", "book_id", book.ID, "error", err)
		}

		if inTx >= commitBatchSize {
			commit()
			tx = s.db.WithContext(ctx).Begin()
		}
	}
	commit()
}

// applyRecord reconciles one normalized record and either updates the matched
// book's changed scalar fields or inserts a new book. Author/genre links are
// replaced wholesale only when the record provides them.
func (s *ingestionService) applyRecord(dbc dbctx.Context, rec *NormalizedBook) (*types.Book, bool, error) {
	existing, err := s.reconcile.Match(dbc, rec)
	if err != nil {
		return nil, false, err
	}

	if existing != nil {
		if err := s.applyUpdate(dbc, existing, rec); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	book, err := s.insertNew(dbc, rec)
	if err != nil {
		return nil, false, err
	}
	return book, true, nil
}

func (s *ingestionService) applyUpdate(dbc dbctx.Context, book *types.Book, rec *NormalizedBook) error {
	updates := map[string]interface{}{}

	if book.Title != rec.Title {
		updates["title"] = rec.Title
		book.Title = rec.Title
	}
	if intChanged(book.YearPublished, rec.YearPublished) {
		updates["year_published"] = *rec.YearPublished
		book.YearPublished = rec.YearPublished
	}
	if strChanged(book.Summary, rec.Summary) {
		updates["summary"] = *rec.Summary
		book.Summary = rec.Summary
	}
	if strChanged(book.AgeRating, rec.AgeRating) {
		updates["age_rating"] = *rec.AgeRating
		book.AgeRating = rec.AgeRating
	}
	if strChanged(book.Language, rec.Language) {
		updates["language"] = *rec.Language
		book.Language = rec.Language
	}
	if intChanged(book.SizePages, rec.SizePages) {
		updates["book_size_pages"] = *rec.SizePages
		book.SizePages = rec.SizePages
	}
	if strChanged(book.SizeDesc, rec.SizeDesc) {
		updates["book_size_description"] = *rec.SizeDesc
		book.SizeDesc = rec.SizeDesc
	}
	if floatChanged(book.AverageRating, rec.AverageRating) {
		updates["average_rating"] = *rec.AverageRating
		book.AverageRating = rec.AverageRating
	}
	if strChanged(book.SourceURL, rec.SourceURL) {
		updates["source_url"] = *rec.SourceURL
		book.SourceURL = rec.SourceURL
	}
	if strChanged(book.ISBN10, rec.ISBN10) {
		updates["isbn_10"] = *rec.ISBN10
		book.ISBN10 = rec.ISBN10
	}
	if strChanged(book.ISBN13, rec.ISBN13) {
		updates["isbn_13"] = *rec.ISBN13
		book.ISBN13 = rec.ISBN13
	}
	if len(rec.RatingDetails) > 0 {
		raw, mErr := json.Marshal(rec.RatingDetails)
		if mErr != nil {
			return fmt.Errorf("marshal rating details: %w", mErr)
		}
		if string(book.RatingDetails) != string(raw) {
			updates["rating_details"] = datatypes.JSON(raw)
			book.RatingDetails = raw
		}
	}

	if len(updates) > 0 {
		if err := s.books.UpdateFields(dbc, book.ID, updates); err != nil {
			return err
		}
	}

	if len(rec.AuthorNames) > 0 {
		authors, err := s.resolveAuthors(dbc, rec.AuthorNames)
		if err != nil {
			return err
		}
		if err := s.books.ReplaceAuthors(dbc, book, authors); err != nil {
			return err
		}
		book.Authors = authors
	}
	if len(rec.GenreNames) > 0 {
		genres, err := s.resolveGenres(dbc, rec.GenreNames)
		if err != nil {
			return err
		}
		if err := s.books.ReplaceGenres(dbc, book, genres); err != nil {
			return err
		}
		book.Genres = genres
	}
	return nil
}

func (s *ingestionService) insertNew(dbc dbctx.Context, rec *NormalizedBook) (*types.Book, error) {
	book := &types.Book{
		Title:         rec.Title,
		YearPublished: rec.YearPublished,
		Summary:       rec.Summary,
		AgeRating:     rec.AgeRating,
		Language:      rec.Language,
		SizePages:     rec.SizePages,
		SizeDesc:      rec.SizeDesc,
		AverageRating: rec.AverageRating,
		SourceURL:     rec.SourceURL,
		ISBN10:        rec.ISBN10,
		ISBN13:        rec.ISBN13,
	}
	if len(rec.RatingDetails) > 0 {
		raw, err := json.Marshal(rec.RatingDetails)
		if err != nil {
			return nil, fmt.Errorf("marshal rating details: %w", err)
		}
		book.RatingDetails = raw
	}

	authors, err := s.resolveAuthors(dbc, rec.AuthorNames)
	if err != nil {
		return nil, err
	}
	genres, err := s.resolveGenres(dbc, rec.GenreNames)
	if err != nil {
		return nil, err
	}
	book.Authors = authors
	book.Genres = genres

	if err := s.books.Create(dbc, book); err != nil {
		return nil, err
	}
	return book, nil
}

func (s *ingestionService) resolveAuthors(dbc dbctx.Context, names []string) ([]*types.Author, error) {
	out := make([]*types.Author, 0, len(names))
	for _, name := range names {
		a, err := s.authors.GetOrCreateByName(dbc, name)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *ingestionService) resolveGenres(dbc dbctx.Context, names []string) ([]*types.Genre, error) {
	out := make([]*types.Genre, 0, len(names))
	for _, name := range names {
		g, err := s.genres.GetOrCreateByName(dbc, name)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func intChanged(cur, next *int) bool {
	return next != nil && (cur == nil || *cur != *next)
}

func strChanged(cur, next *string) bool {
	return next != nil && (cur == nil || *cur != *next)
}

func floatChanged(cur, next *float64) bool {
	return next != nil && (cur == nil || *cur != *next)
}
