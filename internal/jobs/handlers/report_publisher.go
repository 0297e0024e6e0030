package handlers

import (
	"encoding/json"

	"github.com/yungbote/bookatlas-backend/internal/clients/redis"
	"github.com/yungbote/bookatlas-backend/internal/jobs/runtime"
	"github.com/yungbote/bookatlas-backend/internal/platform/logger"
	"github.com/yungbote/bookatlas-backend/internal/services"
)

// RedisReportPublisher fans completed ingestion reports out over the redis
// bus. Publish failures are logged, never surfaced; the report already lives
// on the job row.
type RedisReportPublisher struct {
	bus redis.ReportBus
	log *logger.Logger
}

func NewRedisReportPublisher(bus redis.ReportBus, baseLog *logger.Logger) *RedisReportPublisher {
	return &RedisReportPublisher{
		bus: bus,
		log: baseLog.With("component", "RedisReportPublisher"),
	}
}

func (p *RedisReportPublisher) PublishReport(jc *runtime.Context, report *services.IngestReport) {
	if p == nil || p.bus == nil || report == nil {
		return
	}
	raw, err := json.Marshal(report)
	if err != nil {
		p.log.Warn("Report marshal failed", "error", err)
		return
	}
	msg := redis.ReportMessage{
		Query:  report.Query,
		Status: report.Status,
		Report: raw,
	}
	if jc != nil && jc.Job != nil {
		msg.JobID = jc.Job.ID.String()
	}
	if err := p.bus.Publish(jc.Ctx, msg); err != nil {
		p.log.Warn("Report publish failed", "job_id", msg.JobID, "error", err)
	}
}
