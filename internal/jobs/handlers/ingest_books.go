package handlers

import (
	"fmt"

	"github.com/yungbote/bookatlas-backend/internal/jobs/runtime"
	"github.com/yungbote/bookatlas-backend/internal/platform/logger"
	"github.com/yungbote/bookatlas-backend/internal/services"
)

// IngestBooks runs the ingestion pipeline for the query carried in the job
// payload and stores the resulting report on the job run.
type IngestBooks struct {
	log       *logger.Logger
	ingestion services.IngestionService
	reports   ReportPublisher
}

// ReportPublisher receives completed reports for fan-out. Nil-safe: a nil
// publisher means no bus is configured.
type ReportPublisher interface {
	PublishReport(jc *runtime.Context, report *services.IngestReport)
}

func NewIngestBooks(baseLog *logger.Logger, ingestion services.IngestionService, reports ReportPublisher) *IngestBooks {
	return &IngestBooks{
		log:       baseLog.With("handler", services.JobTypeIngestBooks),
		ingestion: ingestion,
		reports:   reports,
	}
}

func (h *IngestBooks) Type() string { return services.JobTypeIngestBooks }

func (h *IngestBooks) Run(jc *runtime.Context) error {
	query := jc.PayloadString("query")

	report := h.ingestion.Run(jc.Ctx, query)
	h.log.Info("Ingestion run finished",
		"job_id", jc.Job.ID,
		"query", query,
		"status", report.Status,
		"processed", report.Processed,
		"created", report.Created,
		"updated", report.Updated,
		"failed", report.Failed,
		"api_errors", report.APIErrors,
		"index_errors", report.IndexErrors,
	)

	if report.Status == services.ReportStatusFailed {
		jc.Fail("ingest", fmt.Errorf("ingestion run for %q did not complete", query), report)
	} else if err := jc.Succeed(report); err != nil {
		return err
	}

	if h.reports != nil {
		h.reports.PublishReport(jc, report)
	}
	return nil
}
