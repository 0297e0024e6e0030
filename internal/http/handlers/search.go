package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/bookatlas-backend/internal/http/response"
	"github.com/yungbote/bookatlas-backend/internal/platform/dbctx"
	"github.com/yungbote/bookatlas-backend/internal/platform/logger"
	"github.com/yungbote/bookatlas-backend/internal/search"
	"github.com/yungbote/bookatlas-backend/internal/services"
)

type SearchHandler struct {
	log     *logger.Logger
	queries services.QueryService
	jobs    services.JobService
}

func NewSearchHandler(baseLog *logger.Logger, queries services.QueryService, jobs services.JobService) *SearchHandler {
	return &SearchHandler{
		log:     baseLog.With("handler", "SearchHandler"),
		queries: queries,
		jobs:    jobs,
	}
}

type searchRequest struct {
	Query    string         `json:"query"`
	Filters  search.Filters `json:"filters"`
	SortBy   string         `json:"sort_by"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// POST /api/search
//
// Answers from the index immediately and enqueues a background ingestion run
// for the same query. The two are independent: ingestion failure never
// affects this response, and fresh external data only shows up on later
// searches. 202 because the ingestion side is still pending.
func (h *SearchHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	ctx := c.Request.Context()
	result := h.queries.Search(ctx, search.SearchParams{
		Query:    req.Query,
		Filters:  req.Filters,
		SortBy:   req.SortBy,
		Page:     req.Page,
		PageSize: req.PageSize,
	})

	payload := gin.H{
		"results":    result,
		"total_hits": result.Total,
		"task_id":    nil,
	}
	if strings.TrimSpace(req.Query) == "" {
		payload["message"] = "empty query, ingestion not scheduled"
		response.RespondAccepted(c, payload)
		return
	}

	run, err := h.jobs.EnqueueIngest(dbctx.New(ctx), req.Query)
	if err != nil {
		// The search answer stands on its own; report the enqueue miss and
		// move on.
		h.log.Warn("Ingest enqueue failed", "query", req.Query, "error", err)
		payload["message"] = "ingestion scheduling failed"
	} else {
		payload["task_id"] = run.ID
		payload["message"] = "ingestion scheduled"
	}

	response.RespondAccepted(c, payload)
}
