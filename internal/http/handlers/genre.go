package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/bookatlas-backend/internal/http/response"
	"github.com/yungbote/bookatlas-backend/internal/platform/dbctx"
	"github.com/yungbote/bookatlas-backend/internal/services"
)

type GenreHandler struct {
	queries services.QueryService
}

func NewGenreHandler(queries services.QueryService) *GenreHandler {
	return &GenreHandler{queries: queries}
}

// GET /api/genres?offset=&limit=
func (h *GenreHandler) ListGenres(c *gin.Context) {
	offset, limit := pagination(c)
	genres, err := h.queries.ListGenres(dbctx.New(c.Request.Context()), offset, limit)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "genre_list_failed", err)
		return
	}
	response.RespondOK(c, gin.H{
		"genres": genres,
		"offset": offset,
		"limit":  limit,
	})
}
