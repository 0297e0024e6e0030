package app

import (
	"gorm.io/gorm"

	catalogrepos "github.com/yungbote/bookatlas-backend/internal/data/repos/catalog"
	jobrepos "github.com/yungbote/bookatlas-backend/internal/data/repos/jobs"
	"github.com/yungbote/bookatlas-backend/internal/platform/logger"
)

type Repos struct {
	Book   catalogrepos.BookRepo
	Author catalogrepos.AuthorRepo
	Genre  catalogrepos.GenreRepo
	JobRun jobrepos.JobRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Book:   catalogrepos.NewBookRepo(db, log),
		Author: catalogrepos.NewAuthorRepo(db, log),
		Genre:  catalogrepos.NewGenreRepo(db, log),
		JobRun: jobrepos.NewJobRunRepo(db, log),
	}
}
