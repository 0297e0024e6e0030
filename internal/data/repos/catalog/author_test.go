package catalog

import (
	"context"
	"sync"
	"testing"

	"github.com/yungbote/bookatlas-backend/internal/data/repos/testutil"
	"github.com/yungbote/bookatlas-backend/internal/platform/dbctx"
)

func TestAuthorRepoGetOrCreateByName(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewAuthorRepo(db, testutil.Logger(t))
	dbc := dbctx.WithTx(context.Background(), tx)

	first, err := repo.GetOrCreateByName(dbc, "Ursula K. Le Guin")
	if err != nil {
		t.Fatalf("GetOrCreateByName: %v", err)
	}
	second, err := repo.GetOrCreateByName(dbc, "Ursula K. Le Guin")
	if err != nil {
		t.Fatalf("GetOrCreateByName (second): %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("same name must resolve to one row: %s vs %s", first.ID, second.ID)
	}

	got, err := repo.GetByName(dbc, "Ursula K. Le Guin")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if got == nil || got.ID != first.ID {
		t.Fatalf("GetByName returned %+v, want id %s", got, first.ID)
	}
}

// Concurrent get-or-create against the live DB: every goroutine must land on
// the same row without unique-violation errors surfacing. Uses db (not a tx)
// because the conflict behavior needs separate sessions.
func TestAuthorRepoGetOrCreateByNameConcurrent(t *testing.T) {
	db := testutil.DB(t)
	repo := NewAuthorRepo(db, testutil.Logger(t))
	dbc := dbctx.New(context.Background())

	const workers = 8
	name := "Concurrent Author " + t.Name()
	t.Cleanup(func() {
		db.Exec(`DELETE FROM authors WHERE name = ?`, name)
	})

	ids := make([]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := repo.GetOrCreateByName(dbc, name)
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = a.ID.String()
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Fatalf("worker %d got id %s, want %s", i, ids[i], ids[0])
		}
	}
}
