package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/bookatlas-backend/internal/http/response"
	"github.com/yungbote/bookatlas-backend/internal/platform/apperr"
	"github.com/yungbote/bookatlas-backend/internal/platform/dbctx"
	"github.com/yungbote/bookatlas-backend/internal/platform/logger"
	"github.com/yungbote/bookatlas-backend/internal/search"
	"github.com/yungbote/bookatlas-backend/internal/services"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type BookHandler struct {
	log     *logger.Logger
	queries services.QueryService
	jobs    services.JobService
}

func NewBookHandler(baseLog *logger.Logger, queries services.QueryService, jobs services.JobService) *BookHandler {
	return &BookHandler{
		log:     baseLog.With("handler", "BookHandler"),
		queries: queries,
		jobs:    jobs,
	}
}

// GET /api/books/:id
func (h *BookHandler) GetBook(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_book_id", err)
		return
	}

	book, err := h.queries.GetBook(dbctx.New(c.Request.Context()), id)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "book_lookup_failed", err)
		return
	}
	if book == nil {
		response.RespondError(c, http.StatusNotFound, "book_not_found", fmt.Errorf("book %s: %w", id, apperr.ErrNotFound))
		return
	}

	response.RespondOK(c, gin.H{"book": book})
}

// searchParamKeys are the query params that switch GET /api/books from a
// plain catalog listing to an index search.
var searchParamKeys = []string{
	"q", "sort_by", "min_year", "max_year", "min_rating",
	"genre", "language", "author", "age_rating",
}

// GET /api/books
//
// Without search params this pages through the catalog (offset/limit).
// With any of q, sort_by or a filter it becomes an index search, and a
// non-blank q additionally schedules a background ingestion run — the same
// contract as POST /api/search.
func (h *BookHandler) ListBooks(c *gin.Context) {
	for _, key := range searchParamKeys {
		if strings.TrimSpace(c.Query(key)) != "" {
			h.searchBooks(c)
			return
		}
	}

	offset, limit := pagination(c)
	books, total, err := h.queries.ListBooks(dbctx.New(c.Request.Context()), offset, limit)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "book_list_failed", err)
		return
	}
	response.RespondOK(c, gin.H{
		"books":  books,
		"total":  total,
		"offset": offset,
		"limit":  limit,
	})
}

func (h *BookHandler) searchBooks(c *gin.Context) {
	params := search.SearchParams{
		Query:  strings.TrimSpace(c.Query("q")),
		SortBy: c.Query("sort_by"),
		Filters: search.Filters{
			MinYear:   intQuery(c, "min_year"),
			MaxYear:   intQuery(c, "max_year"),
			MinRating: floatQuery(c, "min_rating"),
			Genre:     strQuery(c, "genre"),
			Language:  strQuery(c, "language"),
			Author:    strQuery(c, "author"),
			AgeRating: strQuery(c, "age_rating"),
		},
	}
	params.Page, _ = strconv.Atoi(c.Query("page"))
	params.PageSize, _ = strconv.Atoi(c.Query("page_size"))

	ctx := c.Request.Context()
	result := h.queries.Search(ctx, params)

	payload := gin.H{
		"results":    result,
		"total_hits": result.Total,
		"task_id":    nil,
	}
	if params.Query != "" {
		if run, err := h.jobs.EnqueueIngest(dbctx.New(ctx), params.Query); err != nil {
			h.log.Warn("Ingest enqueue failed", "query", params.Query, "error", err)
		} else {
			payload["task_id"] = run.ID
		}
	}
	response.RespondOK(c, payload)
}

func pagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if limit < 1 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return offset, limit
}

func strQuery(c *gin.Context, key string) *string {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil
	}
	return &v
}

func intQuery(c *gin.Context, key string) *int {
	v, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil {
		return nil
	}
	return &v
}

func floatQuery(c *gin.Context, key string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(c.Query(key)), 64)
	if err != nil {
		return nil
	}
	return &v
}
