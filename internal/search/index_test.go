package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"

	"github.com/yungbote/bookatlas-backend/internal/domain/catalog"
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

// fakeES speaks just enough of the Elasticsearch HTTP protocol for the client
// to accept it.
func fakeES(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *Index {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	if err != nil {
		t.Fatalf("init es client: %v", err)
	}
	return NewIndex(es, "books_test", testLogger(t))
}

func TestEnsureIndexSkipsWhenPresent(t *testing.T) {
	var createCalls int
	idx := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusOK)
		case http.MethodPut:
			createCalls++
			w.Write([]byte(`{"acknowledged": true}`))
		}
	})

	if err := idx.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	if createCalls != 0 {
		t.Fatalf("existing index must not be recreated, got %d create calls", createCalls)
	}
}

func TestEnsureIndexCreatesWithMapping(t *testing.T) {
	var gotMapping map[string]any
	idx := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			if err := json.NewDecoder(r.Body).Decode(&gotMapping); err != nil {
				t.Errorf("decode mapping: %v", err)
			}
			w.Write([]byte(`{"acknowledged": true}`))
		}
	})

	if err := idx.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	if gotMapping == nil {
		t.Fatal("index was not created")
	}
	props := gotMapping["mappings"].(map[string]any)["properties"].(map[string]any)
	for _, field := range []string{"title", "title_sort", "authors", "genres", "search_text", "average_rating"} {
		if _, ok := props[field]; !ok {
			t.Fatalf("mapping missing field %q", field)
		}
	}
}

func TestBulkUpsertCountsRejectedItems(t *testing.T) {
	idx := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"errors": true,
			"items": [
				{"index": {"status": 201}},
				{"index": {"status": 400, "error": {"type": "mapper_parsing_exception"}}},
				{"index": {"status": 200}}
			]
		}`))
	})

	books := []*catalog.Book{
		{ID: uuid.New(), Title: "One"},
		{ID: uuid.New(), Title: "Two"},
		{ID: uuid.New(), Title: "Three"},
	}
	indexed, failed, err := idx.BulkUpsert(context.Background(), books)
	if err != nil {
		t.Fatalf("BulkUpsert: %v", err)
	}
	if indexed != 2 || failed != 1 {
		t.Fatalf("indexed=%d failed=%d, want 2/1", indexed, failed)
	}
}

func TestBulkUpsertEmptyInput(t *testing.T) {
	idx := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty batch")
	})
	indexed, failed, err := idx.BulkUpsert(context.Background(), nil)
	if err != nil || indexed != 0 || failed != 0 {
		t.Fatalf("empty batch: indexed=%d failed=%d err=%v", indexed, failed, err)
	}
}

func TestDeleteMissingDocumentIsNotAnError(t *testing.T) {
	idx := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"result": "not_found"}`))
	})
	if err := idx.Delete(context.Background(), uuid.New().String()); err != nil {
		t.Fatalf("Delete of missing doc must succeed: %v", err)
	}
}

func TestSearchParsesHits(t *testing.T) {
	idx := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"hits": {
				"total": {"value": 42},
				"hits": [
					{"_source": {"id": "x", "title": "Dune", "title_sort": "dune", "search_text": "Dune"}}
				]
			}
		}`))
	})

	res, err := idx.Search(context.Background(), SearchParams{Query: "dune", Page: 1, PageSize: 20})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Total != 42 {
		t.Fatalf("total = %d, want 42", res.Total)
	}
	if len(res.Items) != 1 || res.Items[0].Title != "Dune" {
		t.Fatalf("unexpected items: %+v", res.Items)
	}
	if res.Page != 1 || res.PageSize != 20 {
		t.Fatalf("pagination echo wrong: %+v", res)
	}
}
