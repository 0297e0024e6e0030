package db

import (
	"gorm.io/gorm"

	"github.com/yungbote/bookatlas-backend/internal/domain/catalog"
	"github.com/yungbote/bookatlas-backend/internal/domain/jobs"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Catalog (system of record)
		&catalog.Author{},
		&catalog.Genre{},
		&catalog.Book{},

		// Background job queue
		&jobs.JobRun{},
	)
}
