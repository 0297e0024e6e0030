package services

import (
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/bookatlas-backend/internal/domain/catalog"
	"github.com/yungbote/bookatlas-backend/internal/platform/dbctx"
	"github.com/yungbote/bookatlas-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestReconcilerISBNMatchWinsOverTitleHeuristic(t *testing.T) {
	repo := newFakeBookRepo()
	byISBN := &types.Book{ID: uuid.New(), Title: "Dune (Anniversary Edition)"}
	repo.byISBN["9780441172719"] = byISBN
	repo.byTitleAuthor = func(title, author string, year *int) *types.Book {
		t.Fatal("title heuristic must not run when isbn_13 matches")
		return nil
	}

	r := NewReconciler(repo, testLogger(t))
	rec := &NormalizedBook{
		Title:       "Dune",
		ISBN13:      strPtr("9780441172719"),
		AuthorNames: []string{"Frank Herbert"},
	}

	got, err := r.Match(dbctx.Context{}, rec)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if got != byISBN {
		t.Fatalf("expected isbn match, got %+v", got)
	}
}

func TestReconcilerFallsBackToTitleAndFirstAuthor(t *testing.T) {
	repo := newFakeBookRepo()
	match := &types.Book{ID: uuid.New(), Title: "Dune"}
	repo.byTitleAuthor = func(title, author string, year *int) *types.Book {
		if title != "Dune" {
			t.Fatalf("title = %q, want Dune", title)
		}
		if author != "Frank Herbert" {
			t.Fatalf("author = %q, want first listed author", author)
		}
		if year == nil || *year != 1965 {
			t.Fatalf("year = %v, want 1965", year)
		}
		return match
	}

	r := NewReconciler(repo, testLogger(t))
	rec := &NormalizedBook{
		Title:         "Dune",
		YearPublished: intPtr(1965),
		AuthorNames:   []string{"Frank Herbert", "Someone Else"},
	}

	got, err := r.Match(dbctx.Context{}, rec)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if got != match {
		t.Fatalf("expected heuristic match, got %+v", got)
	}
}

func TestReconcilerNoAuthorsMeansNoHeuristic(t *testing.T) {
	repo := newFakeBookRepo()
	r := NewReconciler(repo, testLogger(t))

	got, err := r.Match(dbctx.Context{}, &NormalizedBook{Title: "Dune"})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no match, got %+v", got)
	}
	if repo.findByTitleCalls != 0 {
		t.Fatalf("heuristic should not run without authors")
	}
}

func TestReconcilerUnmatchedISBNStillTriesHeuristic(t *testing.T) {
	repo := newFakeBookRepo()
	match := &types.Book{ID: uuid.New(), Title: "Dune"}
	repo.byTitleAuthor = func(title, author string, year *int) *types.Book { return match }

	r := NewReconciler(repo, testLogger(t))
	rec := &NormalizedBook{
		Title:       "Dune",
		ISBN13:      strPtr("9999999999999"),
		AuthorNames: []string{"Frank Herbert"},
	}

	got, err := r.Match(dbctx.Context{}, rec)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if got != match {
		t.Fatalf("expected fallback to heuristic, got %+v", got)
	}
}
