package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/yungbote/bookatlas-backend/internal/domain/catalog"
	"github.com/yungbote/bookatlas-backend/internal/platform/logger"
)

// indexMapping mirrors BookDocument. Authors/genres are plain objects whose
// name carries a keyword subfield so exact-term filters have a real target.
const indexMapping = `{
	"mappings": {
		"properties": {
			"id":              {"type": "keyword"},
			"title":           {"type": "text", "analyzer": "standard"},
			"title_sort":      {"type": "keyword"},
			"year_published":  {"type": "integer"},
			"summary":         {"type": "text", "analyzer": "standard"},
			"age_rating":      {"type": "keyword"},
			"language":        {"type": "keyword"},
			"book_size_pages": {"type": "integer"},
			"average_rating":  {"type": "float"},
			"isbn_13":         {"type": "keyword"},
			"rating_details":  {"type": "object", "enabled": false},
			"authors": {
				"properties": {
					"id":   {"type": "keyword"},
					"name": {"type": "text", "fields": {"keyword": {"type": "keyword"}}}
				}
			},
			"genres": {
				"properties": {
					"id":   {"type": "keyword"},
					"name": {"type": "text", "fields": {"keyword": {"type": "keyword"}}}
				}
			},
			"search_text": {"type": "text", "analyzer": "standard"}
		}
	}
}`

// Index wraps the Elasticsearch client with the book-document operations the
// rest of the backend uses. The catalog store stays the source of truth; this
// is a rebuildable read projection.
type Index struct {
	es   *elasticsearch.Client
	name string
	log  *logger.Logger
}

func NewIndex(es *elasticsearch.Client, name string, baseLog *logger.Logger) *Index {
	return &Index{
		es:   es,
		name: name,
		log:  baseLog.With("service", "SearchIndex"),
	}
}

func (i *Index) Name() string { return i.name }

// EnsureIndex creates the index with its mapping if absent. Safe to call on
// every process startup.
func (i *Index) EnsureIndex(ctx context.Context) error {
	res, err := i.es.Indices.Exists([]string{i.name}, i.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("search: index exists check: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("search: index exists check status %s", res.Status())
	}

	createRes, err := i.es.Indices.Create(
		i.name,
		i.es.Indices.Create.WithBody(strings.NewReader(indexMapping)),
		i.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("search: create index: %w", err)
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		// A concurrent creator beat us; that is the idempotent outcome we want.
		if strings.Contains(readBody(createRes.Body), "resource_already_exists_exception") {
			return nil
		}
		return fmt.Errorf("search: create index status %s", createRes.Status())
	}
	i.log.Info("Search index created", "index", i.name)
	return nil
}

// UpsertBook derives the book's document and writes it under the book id,
// replacing any prior version. Indexing by id makes re-ingestion idempotent.
func (i *Index) UpsertBook(ctx context.Context, book *catalog.Book) error {
	doc := BuildDocument(book)
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("search: marshal document: %w", err)
	}
	res, err := i.es.Index(
		i.name,
		bytes.NewReader(body),
		i.es.Index.WithDocumentID(doc.ID),
		i.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("search: index request: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("search: index error [%s]: %s", res.Status(), readBody(res.Body))
	}
	return nil
}

// BulkUpsert indexes a batch in one _bulk request. Rejected items are counted
// and logged; they do not fail the batch.
func (i *Index) BulkUpsert(ctx context.Context, books []*catalog.Book) (indexed, failed int, err error) {
	if len(books) == 0 {
		return 0, 0, nil
	}
	var buf bytes.Buffer
	for _, book := range books {
		doc := BuildDocument(book)
		meta := fmt.Sprintf(`{"index":{"_index":%q,"_id":%q}}`, i.name, doc.ID)
		body, mErr := json.Marshal(doc)
		if mErr != nil {
			failed++
			i.log.Warn("Bulk upsert: marshal failed, skipping document", "book_id", doc.ID, "error", mErr)
			continue
		}
		buf.WriteString(meta)
		buf.WriteByte('\n')
		buf.Write(body)
		buf.WriteByte('\n')
	}
	if buf.Len() == 0 {
		return 0, failed, nil
	}

	res, err := i.es.Bulk(bytes.NewReader(buf.Bytes()), i.es.Bulk.WithContext(ctx))
	if err != nil {
		return 0, failed, fmt.Errorf("search: bulk request: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, failed, fmt.Errorf("search: bulk error [%s]: %s", res.Status(), readBody(res.Body))
	}

	var parsed struct {
		Items []map[string]struct {
			Status int             `json:"status"`
			Error  json.RawMessage `json:"error"`
		} `json:"items"`
	}
	if dErr := json.NewDecoder(res.Body).Decode(&parsed); dErr != nil {
		return 0, failed, fmt.Errorf("search: decode bulk response: %w", dErr)
	}
	for _, item := range parsed.Items {
		for _, op := range item {
			if op.Status >= 200 && op.Status < 300 {
				indexed++
			} else {
				failed++
				i.log.Warn("Bulk upsert: document rejected", "status", op.Status, "error", string(op.Error))
			}
		}
	}
	return indexed, failed, nil
}

// Delete removes a document. Absence is not an error.
func (i *Index) Delete(ctx context.Context, bookID string) error {
	res, err := i.es.Delete(i.name, bookID, i.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("search: delete request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		return fmt.Errorf("search: delete error [%s]: %s", res.Status(), readBody(res.Body))
	}
	return nil
}

func readBody(r io.Reader) string {
	b, _ := io.ReadAll(r)
	return string(b)
}
