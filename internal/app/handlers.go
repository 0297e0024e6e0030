package app

import (
	httpH "github.com/yungbote/bookatlas-backend/internal/http/handlers"
	"github.com/yungbote/bookatlas-backend/internal/platform/logger"
)

type Handlers struct {
	Health *httpH.HealthHandler
	Search *httpH.SearchHandler
	Book   *httpH.BookHandler
	Author *httpH.AuthorHandler
	Genre  *httpH.GenreHandler
	Job    *httpH.JobHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health: httpH.NewHealthHandler(),
		Search: httpH.NewSearchHandler(log, services.Query, services.Job),
		Book:   httpH.NewBookHandler(log, services.Query, services.Job),
		Author: httpH.NewAuthorHandler(services.Query),
		Genre:  httpH.NewGenreHandler(services.Query),
		Job:    httpH.NewJobHandler(services.Job),
	}
}
