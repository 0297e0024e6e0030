package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Filters narrows a search. Nil fields apply no constraint; set fields are
// ANDed together and with the text query.
type Filters struct {
	MinYear   *int     `json:"min_year,omitempty"`
	MaxYear   *int     `json:"max_year,omitempty"`
	MinRating *float64 `json:"min_rating,omitempty"`
	Genre     *string  `json:"genre,omitempty"`
	Language  *string  `json:"language,omitempty"`
	Author    *string  `json:"author,omitempty"`
	AgeRating *string  `json:"age_rating,omitempty"`
}

type SearchParams struct {
	Query    string  `json:"query"`
	Filters  Filters `json:"filters"`
	SortBy   string  `json:"sort_by,omitempty"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}

// sortFields maps the API's sort keys onto index fields. Unknown keys fall
// back to relevance order.
var sortFields = map[string]string{
	"rating": "average_rating",
	"year":   "year_published",
	"size":   "book_size_pages",
	"title":  "title_sort",
}

// parseSort splits a "<field>_asc"/"<field>_desc" sort key. ok is false for
// "relevance", empty, or unrecognized keys, all of which mean pure relevance
// ordering.
func parseSort(sortBy string) (field, order string, ok bool) {
	key := strings.TrimSpace(strings.ToLower(sortBy))
	if key == "" || key == "relevance" {
		return "", "", false
	}
	idx := strings.LastIndex(key, "_")
	if idx < 1 {
		return "", "", false
	}
	name, dir := key[:idx], key[idx+1:]
	if dir != "asc" && dir != "desc" {
		return "", "", false
	}
	f, known := sortFields[name]
	if !known {
		return "", "", false
	}
	return f, dir, true
}

// Normalize clamps pagination to sane bounds.
func (p *SearchParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
}

// BuildQueryBody translates SearchParams into an Elasticsearch request body.
// Pure: no I/O, deterministic for a given input.
func BuildQueryBody(p SearchParams) map[string]any {
	var must any
	if q := strings.TrimSpace(p.Query); q != "" {
		must = map[string]any{
			"query_string": map[string]any{
				"query":            q,
				"fields":           []string{"title^3", "authors.name^2", "summary", "search_text", "genres.name"},
				"default_operator": "AND",
			},
		}
	} else {
		must = map[string]any{"match_all": map[string]any{}}
	}

	var filter []map[string]any
	f := p.Filters
	if f.MinYear != nil || f.MaxYear != nil {
		yr := map[string]any{}
		if f.MinYear != nil {
			yr["gte"] = *f.MinYear
		}
		if f.MaxYear != nil {
			yr["lte"] = *f.MaxYear
		}
		filter = append(filter, map[string]any{"range": map[string]any{"year_published": yr}})
	}
	if f.MinRating != nil {
		filter = append(filter, map[string]any{"range": map[string]any{"average_rating": map[string]any{"gte": *f.MinRating}}})
	}
	if f.Genre != nil {
		filter = append(filter, map[string]any{"term": map[string]any{"genres.name.keyword": *f.Genre}})
	}
	if f.Author != nil {
		filter = append(filter, map[string]any{"term": map[string]any{"authors.name.keyword": *f.Author}})
	}
	if f.Language != nil {
		filter = append(filter, map[string]any{"term": map[string]any{"language": *f.Language}})
	}
	if f.AgeRating != nil {
		filter = append(filter, map[string]any{"term": map[string]any{"age_rating": *f.AgeRating}})
	}

	boolQuery := map[string]any{"must": must}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}

	body := map[string]any{
		"query":            map[string]any{"bool": boolQuery},
		"from":             (p.Page - 1) * p.PageSize,
		"size":             p.PageSize,
		"track_total_hits": true,
	}

	if field, order, ok := parseSort(p.SortBy); ok {
		body["sort"] = []any{
			map[string]any{field: map[string]any{"order": order, "missing": "_last"}},
			map[string]any{"_score": map[string]any{"order": "desc"}},
		}
	}
	return body
}

// SearchResult is one page of hits plus the exact total match count.
type SearchResult struct {
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Items    []BookDocument `json:"items"`
}

// Search runs a catalog query against the index.
func (i *Index) Search(ctx context.Context, p SearchParams) (*SearchResult, error) {
	p.Normalize()
	body, err := json.Marshal(BuildQueryBody(p))
	if err != nil {
		return nil, fmt.Errorf("search: marshal query: %w", err)
	}

	res, err := i.es.Search(
		i.es.Search.WithContext(ctx),
		i.es.Search.WithIndex(i.name),
		i.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search: query request: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search: query error [%s]: %s", res.Status(), readBody(res.Body))
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source BookDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("search: decode query response: %w", err)
	}

	out := &SearchResult{
		Total:    parsed.Hits.Total.Value,
		Page:     p.Page,
		PageSize: p.PageSize,
		Items:    make([]BookDocument, 0, len(parsed.Hits.Hits)),
	}
	for _, h := range parsed.Hits.Hits {
		out.Items = append(out.Items, h.Source)
	}
	return out, nil
}
