package app

import (
	"fmt"

	"gorm.io/gorm"

	jobH "github.com/yungbote/bookatlas-backend/internal/jobs/handlers"
	"github.com/yungbote/bookatlas-backend/internal/jobs/runtime"
	"github.com/yungbote/bookatlas-backend/internal/jobs/worker"
	"github.com/yungbote/bookatlas-backend/internal/platform/logger"
	"github.com/yungbote/bookatlas-backend/internal/search"
	"github.com/yungbote/bookatlas-backend/internal/services"
)

type Services struct {
	Index      *search.Index
	Reconciler services.Reconciler
	Ingestion  services.IngestionService
	Query      services.QueryService
	Job        services.JobService
	Registry   *runtime.Registry
	JobWorker  *worker.Worker
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	index := search.NewIndex(clients.ES, cfg.IndexName, log)
	reconciler := services.NewReconciler(repos.Book, log)
	ingestion := services.NewIngestionService(db, log, clients.BookData, repos.Book, repos.Author, repos.Genre, reconciler, index)
	query := services.NewQueryService(log, index, repos.Book, repos.Author, repos.Genre)
	jobSvc := services.NewJobService(db, log, repos.JobRun)

	var reports jobH.ReportPublisher
	if clients.ReportBus != nil {
		reports = jobH.NewRedisReportPublisher(clients.ReportBus, log)
	}

	registry := runtime.NewRegistry()
	if err := registry.Register(jobH.NewIngestBooks(log, ingestion, reports)); err != nil {
		return Services{}, fmt.Errorf("register ingest handler: %w", err)
	}

	return Services{
		Index:      index,
		Reconciler: reconciler,
		Ingestion:  ingestion,
		Query:      query,
		Job:        jobSvc,
		Registry:   registry,
		JobWorker:  worker.NewWorker(db, log, repos.JobRun, registry),
	}, nil
}
