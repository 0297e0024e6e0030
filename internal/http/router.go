package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/bookatlas-backend/internal/http/handlers"
	httpMW "github.com/yungbote/bookatlas-backend/internal/http/middleware"
	"github.com/yungbote/bookatlas-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	HealthHandler *httpH.HealthHandler
	SearchHandler *httpH.SearchHandler
	BookHandler   *httpH.BookHandler
	AuthorHandler *httpH.AuthorHandler
	GenreHandler  *httpH.GenreHandler
	JobHandler    *httpH.JobHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("bookatlas-backend"))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Search
		if cfg.SearchHandler != nil {
			api.POST("/search", cfg.SearchHandler.Search)
		}

		// Catalog
		if cfg.BookHandler != nil {
			api.GET("/books", cfg.BookHandler.ListBooks)
			api.GET("/books/:id", cfg.BookHandler.GetBook)
		}
		if cfg.AuthorHandler != nil {
			api.GET("/authors", cfg.AuthorHandler.ListAuthors)
		}
		if cfg.GenreHandler != nil {
			api.GET("/genres", cfg.GenreHandler.ListGenres)
		}

		// Jobs
		if cfg.JobHandler != nil {
			api.GET("/jobs/:id", cfg.JobHandler.GetJob)
		}
	}

	return r
}
