package catalog

import (
	"context"
	"testing"

	"github.com/yungbote/bookatlas-backend/internal/data/repos/testutil"
	types "github.com/yungbote/bookatlas-backend/internal/domain/catalog"
	"github.com/yungbote/bookatlas-backend/internal/platform/dbctx"
)

func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }

func TestBookRepoGetByISBN13(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewBookRepo(db, testutil.Logger(t))
	dbc := dbctx.WithTx(context.Background(), tx)

	book := &types.Book{Title: "Dune", ISBN13: strPtr("9780441172719")}
	if err := repo.Create(dbc, book); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByISBN13(dbc, "9780441172719")
	if err != nil {
		t.Fatalf("GetByISBN13: %v", err)
	}
	if got == nil || got.ID != book.ID {
		t.Fatalf("GetByISBN13 returned %+v, want id %s", got, book.ID)
	}

	missing, err := repo.GetByISBN13(dbc, "0000000000000")
	if err != nil {
		t.Fatalf("GetByISBN13 (missing): %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing isbn, got %+v", missing)
	}
}

func TestBookRepoFindByTitleAndAuthor(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	bookRepo := NewBookRepo(db, testutil.Logger(t))
	authorRepo := NewAuthorRepo(db, testutil.Logger(t))
	dbc := dbctx.WithTx(context.Background(), tx)

	herbert, err := authorRepo.GetOrCreateByName(dbc, "Frank Herbert")
	if err != nil {
		t.Fatalf("GetOrCreateByName: %v", err)
	}

	dune := &types.Book{
		Title:         "Dune",
		YearPublished: intPtr(1965),
		Authors:       []*types.Author{herbert},
	}
	if err := bookRepo.Create(dbc, dune); err != nil {
		t.Fatalf("Create: %v", err)
	}

	t.Run("exact_title_and_author", func(t *testing.T) {
		got, err := bookRepo.FindByTitleAndAuthor(dbc, "Dune", "Frank Herbert", nil)
		if err != nil {
			t.Fatalf("FindByTitleAndAuthor: %v", err)
		}
		if got == nil || got.ID != dune.ID {
			t.Fatalf("got %+v, want id %s", got, dune.ID)
		}
	})

	t.Run("year_within_window", func(t *testing.T) {
		for _, year := range []int{1964, 1965, 1966} {
			got, err := bookRepo.FindByTitleAndAuthor(dbc, "Dune", "Frank Herbert", intPtr(year))
			if err != nil {
				t.Fatalf("FindByTitleAndAuthor(%d): %v", year, err)
			}
			if got == nil {
				t.Fatalf("year %d should match within +/-1 window", year)
			}
		}
	})

	t.Run("year_outside_window", func(t *testing.T) {
		got, err := bookRepo.FindByTitleAndAuthor(dbc, "Dune", "Frank Herbert", intPtr(1970))
		if err != nil {
			t.Fatalf("FindByTitleAndAuthor: %v", err)
		}
		if got != nil {
			t.Fatalf("year 1970 must not match a 1965 book, got %+v", got)
		}
	})

	t.Run("wrong_author", func(t *testing.T) {
		got, err := bookRepo.FindByTitleAndAuthor(dbc, "Dune", "Someone Else", nil)
		if err != nil {
			t.Fatalf("FindByTitleAndAuthor: %v", err)
		}
		if got != nil {
			t.Fatalf("wrong author must not match, got %+v", got)
		}
	})

	t.Run("tie_resolves_to_oldest", func(t *testing.T) {
		later := &types.Book{
			Title:         "Dune",
			YearPublished: intPtr(1965),
			Authors:       []*types.Author{herbert},
		}
		if err := bookRepo.Create(dbc, later); err != nil {
			t.Fatalf("Create: %v", err)
		}

		got, err := bookRepo.FindByTitleAndAuthor(dbc, "Dune", "Frank Herbert", intPtr(1965))
		if err != nil {
			t.Fatalf("FindByTitleAndAuthor: %v", err)
		}
		if got == nil || got.ID != dune.ID {
			t.Fatalf("tie must resolve to the oldest row %s, got %+v", dune.ID, got)
		}
	})
}

func TestBookRepoReplaceAuthors(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	bookRepo := NewBookRepo(db, testutil.Logger(t))
	authorRepo := NewAuthorRepo(db, testutil.Logger(t))
	dbc := dbctx.WithTx(context.Background(), tx)

	a1, _ := authorRepo.GetOrCreateByName(dbc, "Author One")
	a2, _ := authorRepo.GetOrCreateByName(dbc, "Author Two")

	book := &types.Book{Title: "Collaboration", Authors: []*types.Author{a1}}
	if err := bookRepo.Create(dbc, book); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := bookRepo.ReplaceAuthors(dbc, book, []*types.Author{a2}); err != nil {
		t.Fatalf("ReplaceAuthors: %v", err)
	}

	got, err := bookRepo.GetWithRelations(dbc, book.ID)
	if err != nil {
		t.Fatalf("GetWithRelations: %v", err)
	}
	if len(got.Authors) != 1 || got.Authors[0].ID != a2.ID {
		t.Fatalf("links must be replaced wholesale, got %+v", got.Authors)
	}
}
