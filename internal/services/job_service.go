package services

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	jobrepos "github.com/yungbote/bookatlas-backend/internal/data/repos/jobs"
	"github.com/yungbote/bookatlas-backend/internal/domain/jobs"
	"github.com/yungbote/bookatlas-backend/internal/platform/ctxutil"
	"github.com/yungbote/bookatlas-backend/internal/platform/dbctx"
	"github.com/yungbote/bookatlas-backend/internal/platform/logger"
)

// JobTypeIngestBooks is the background run triggered by every search request.
const JobTypeIngestBooks = "ingest_books"

// JobService enqueues background runs and exposes their status. Execution is
// the worker pool's business.
type JobService interface {
	Enqueue(dbc dbctx.Context, jobType string, payload map[string]any) (*jobs.JobRun, error)
	EnqueueIngest(dbc dbctx.Context, query string) (*jobs.JobRun, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*jobs.JobRun, error)
}

type jobService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo jobrepos.JobRunRepo
}

func NewJobService(db *gorm.DB, baseLog *logger.Logger, repo jobrepos.JobRunRepo) JobService {
	return &jobService{
		db:   db,
		log:  baseLog.With("service", "JobService"),
		repo: repo,
	}
}

func (s *jobService) Enqueue(dbc dbctx.Context, jobType string, payload map[string]any) (*jobs.JobRun, error) {
	if jobType == "" {
		return nil, fmt.Errorf("jobType required")
	}
	if payload == nil {
		payload = map[string]any{}
	}

	// Carry the caller's trace ids so worker logs correlate with the request.
	if td := ctxutil.GetTraceData(dbc.Ctx); td != nil {
		if td.TraceID != "" {
			payload["trace_id"] = td.TraceID
		}
		if td.RequestID != "" {
			payload["request_id"] = td.RequestID
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	run := &jobs.JobRun{
		JobType: jobType,
		Status:  jobs.StatusQueued,
		Payload: datatypes.JSON(raw),
	}
	created, err := s.repo.Create(dbc, run)
	if err != nil {
		return nil, err
	}
	s.log.Info("Job enqueued", "job_id", created.ID, "job_type", jobType)
	return created, nil
}

func (s *jobService) EnqueueIngest(dbc dbctx.Context, query string) (*jobs.JobRun, error) {
	return s.Enqueue(dbc, JobTypeIngestBooks, map[string]any{"query": query})
}

func (s *jobService) GetByID(dbc dbctx.Context, id uuid.UUID) (*jobs.JobRun, error) {
	return s.repo.GetByID(dbc, id)
}
