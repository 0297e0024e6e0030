package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/bookatlas-backend/internal/http/response"
	"github.com/yungbote/bookatlas-backend/internal/platform/dbctx"
	"github.com/yungbote/bookatlas-backend/internal/services"
)

type AuthorHandler struct {
	queries services.QueryService
}

func NewAuthorHandler(queries services.QueryService) *AuthorHandler {
	return &AuthorHandler{queries: queries}
}

// GET /api/authors?offset=&limit=
func (h *AuthorHandler) ListAuthors(c *gin.Context) {
	offset, limit := pagination(c)
	authors, err := h.queries.ListAuthors(dbctx.New(c.Request.Context()), offset, limit)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "author_list_failed", err)
		return
	}
	response.RespondOK(c, gin.H{
		"authors": authors,
		"offset":  offset,
		"limit":   limit,
	})
}
