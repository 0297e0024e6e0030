package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"gorm.io/gorm"

	"github.com/yungbote/bookatlas-backend/internal/clients/bookdata"
	catalogrepos "github.com/yungbote/bookatlas-backend/internal/data/repos/catalog"
	"github.com/yungbote/bookatlas-backend/internal/data/repos/testutil"
	types "github.com/yungbote/bookatlas-backend/internal/domain/catalog"
	"github.com/yungbote/bookatlas-backend/internal/search"
)

// stubIndex builds an Index against a server that acknowledges every write;
// index behavior has its own tests.
func stubIndex(t *testing.T) *search.Index {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result": "created"}`))
	}))
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	if err != nil {
		t.Fatalf("init es client: %v", err)
	}
	return search.NewIndex(es, "books_pipeline_test", testLogger(t))
}

func cleanupPipelineRows(db *gorm.DB, marker string) {
	like := "%" + marker + "%"
	db.Exec(`DELETE FROM book_authors WHERE book_id IN (SELECT id FROM books WHERE title LIKE ?)`, like)
	db.Exec(`DELETE FROM book_genres WHERE book_id IN (SELECT id FROM books WHERE title LIKE ?)`, like)
	db.Exec(`DELETE FROM books WHERE title LIKE ?`, like)
	db.Exec(`DELETE FROM authors WHERE name LIKE ?`, like)
	db.Exec(`DELETE FROM genres WHERE name LIKE ?`, like)
}

// Runs the whole fetch-reconcile-persist-index pipeline against a real
// Postgres: a malformed record among valid ones fails alone, and re-ingesting
// the same payload updates by isbn_13 instead of creating duplicates.
func TestRunPipelineAgainstPostgres(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)

	marker := fmt.Sprintf("pipe-%d", time.Now().UnixNano())
	t.Cleanup(func() { cleanupPipelineRows(db, marker) })

	isbn1 := fmt.Sprintf("9%012d", time.Now().UnixNano()%1_000_000_000_000)
	isbn2 := fmt.Sprintf("8%012d", time.Now().UnixNano()%1_000_000_000_000)

	// Two valid books plus one with a blank title, which must fail on its
	// own without touching the rest of the batch.
	body := fmt.Sprintf(`{
		"data": {
			"books": [
				{"id": "b1", "title": "Dune %[1]s", "year_published": 1965, "isbn_13": %[2]q},
				{"id": "b2", "title": "Dune Messiah %[1]s", "year_published": 1969, "isbn_13": %[3]q},
				{"id": "b3", "title": "   "}
			],
			"authors": [{"id": "a1", "name": "Frank Herbert %[1]s"}],
			"genres": [{"id": "g1", "name": "Science Fiction %[1]s"}],
			"relationships": {
				"book_authors": [
					{"book_id": "b1", "author_id": "a1"},
					{"book_id": "b2", "author_id": "a1"}
				],
				"book_genres": [{"book_id": "b1", "genre_id": "g1"}]
			}
		}
	}`, marker, isbn1, isbn2)

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(provider.Close)
	t.Setenv("BOOKDATA_OPENLIB_URL", provider.URL)
	t.Setenv("BOOKDATA_GOOGLE_URL", provider.URL)
	t.Setenv("BOOKDATA_RATE_LIMIT_RPS", "1000")

	books := catalogrepos.NewBookRepo(db, log)
	authors := catalogrepos.NewAuthorRepo(db, log)
	genres := catalogrepos.NewGenreRepo(db, log)
	svc := NewIngestionService(
		db, log, bookdata.NewClient(log),
		books, authors, genres,
		NewReconciler(books, log), stubIndex(t),
	)

	query := "dune " + marker

	bookCount := func() int64 {
		var n int64
		if err := db.Model(&types.Book{}).Where("title LIKE ?", "%"+marker).Count(&n).Error; err != nil {
			t.Fatalf("count books: %v", err)
		}
		return n
	}

	report := svc.Run(context.Background(), query)
	if report.Status != ReportStatusCompleted {
		t.Fatalf("status = %q, want %q (%+v)", report.Status, ReportStatusCompleted, report)
	}
	if report.APICalls != 4 || report.APISuccesses != 4 || report.APIErrors != 0 {
		t.Fatalf("unexpected call counters: %+v", report)
	}
	if report.UniqueFetched != 3 {
		t.Fatalf("unique_fetched = %d, want 3", report.UniqueFetched)
	}
	if report.Processed != 2 || report.Created != 2 || report.Updated != 0 {
		t.Fatalf("first run must create the two valid books: %+v", report)
	}
	if report.Failed != 1 {
		t.Fatalf("the blank-title record alone must fail: %+v", report)
	}
	if n := bookCount(); n != 2 {
		t.Fatalf("expected 2 committed books, found %d", n)
	}

	// Same payload again: both valid books reconcile by isbn_13.
	report = svc.Run(context.Background(), query)
	if report.Status != ReportStatusCompleted {
		t.Fatalf("re-run status = %q, want %q (%+v)", report.Status, ReportStatusCompleted, report)
	}
	if report.Processed != 2 || report.Created != 0 || report.Updated != 2 {
		t.Fatalf("re-ingest must update, not duplicate: %+v", report)
	}
	if report.Failed != 1 {
		t.Fatalf("the malformed record fails on every run: %+v", report)
	}
	if n := bookCount(); n != 2 {
		t.Fatalf("re-ingest must not add rows, found %d", n)
	}

	// The matched rows keep their identity and links.
	var dune types.Book
	if err := db.Preload("Authors").Where("isbn_13 = ?", isbn1).First(&dune).Error; err != nil {
		t.Fatalf("load reconciled book: %v", err)
	}
	if len(dune.Authors) != 1 || dune.Authors[0].Name != "Frank Herbert "+marker {
		t.Fatalf("author link lost on re-ingest: %+v", dune.Authors)
	}
}
