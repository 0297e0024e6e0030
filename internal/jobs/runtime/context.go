package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	jobrepos "github.com/yungbote/bookatlas-backend/internal/data/repos/jobs"
	"github.com/yungbote/bookatlas-backend/internal/domain/jobs"
	"github.com/yungbote/bookatlas-backend/internal/platform/ctxutil"
	"github.com/yungbote/bookatlas-backend/internal/platform/dbctx"
)

// Context is the execution handle for a single claimed job run. Handlers
// report their outcome through Succeed/Fail instead of touching job_run
// rows directly.
type Context struct {
	Ctx     context.Context
	DB      *gorm.DB
	Job     *jobs.JobRun
	Repo    jobrepos.JobRunRepo
	payload map[string]any
}

// NewContext eagerly decodes the job payload so handlers can read inputs via
// Payload()/PayloadString(). A malformed payload decodes to an empty map;
// handlers validate required fields themselves.
func NewContext(ctx context.Context, db *gorm.DB, job *jobs.JobRun, repo jobrepos.JobRunRepo) *Context {
	c := &Context{
		Ctx:  ctx,
		DB:   db,
		Job:  job,
		Repo: repo,
	}
	_ = c.decodePayload()
	c.applyTraceData()
	return c
}

func (c *Context) decodePayload() error {
	if c.Job == nil {
		return nil
	}
	if len(c.Job.Payload) == 0 {
		c.payload = map[string]any{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Job.Payload, &m); err != nil {
		c.payload = map[string]any{}
		return err
	}
	c.payload = m
	return nil
}

// applyTraceData carries the enqueuer's trace ids into the worker's context
// so log lines from both sides correlate.
func (c *Context) applyTraceData() {
	if c == nil || c.Ctx == nil {
		return
	}
	traceID := c.PayloadString("trace_id")
	reqID := c.PayloadString("request_id")
	if traceID == "" && reqID == "" {
		return
	}
	c.Ctx = ctxutil.WithTraceData(c.Ctx, &ctxutil.TraceData{
		TraceID:   traceID,
		RequestID: reqID,
	})
}

// Payload returns the decoded payload map, never nil.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

// PayloadString reads a payload field as a trimmed string, "" when absent.
func (c *Context) PayloadString(key string) string {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// Succeed marks the run finished and stores its serialized result.
func (c *Context) Succeed(result any) error {
	if c.Job == nil || c.Job.ID == uuid.Nil {
		return nil
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("runtime: marshal result: %w", err)
	}
	now := time.Now()
	updates := map[string]interface{}{
		"status":     jobs.StatusSucceeded,
		"result":     datatypes.JSON(raw),
		"error":      "",
		"locked_at":  nil,
		"updated_at": now,
	}
	if uErr := c.Repo.UpdateFields(dbctx.New(c.Ctx), c.Job.ID, updates); uErr != nil {
		return uErr
	}
	c.Job.Status = jobs.StatusSucceeded
	c.Job.Result = raw
	c.Job.Error = ""
	c.Job.LockedAt = nil
	c.Job.UpdatedAt = now
	return nil
}

// Fail marks the run terminally failed for this attempt and clears the lock
// so the claim query can retry it later. A partial result may be stored
// alongside the error.
func (c *Context) Fail(stage string, runErr error, partialResult any) {
	if c == nil || c.Job == nil || c.Job.ID == uuid.Nil {
		return
	}
	msg := "unknown error"
	if runErr != nil {
		msg = runErr.Error()
	}
	if stage != "" {
		msg = stage + ": " + msg
	}
	now := time.Now()
	updates := map[string]interface{}{
		"status":        jobs.StatusFailed,
		"error":         msg,
		"locked_at":     nil,
		"last_error_at": now,
		"updated_at":    now,
	}
	if partialResult != nil {
		if raw, err := json.Marshal(partialResult); err == nil {
			updates["result"] = datatypes.JSON(raw)
			c.Job.Result = raw
		}
	}
	_ = c.Repo.UpdateFields(dbctx.New(c.Ctx), c.Job.ID, updates)
	c.Job.Status = jobs.StatusFailed
	c.Job.Error = msg
	c.Job.LockedAt = nil
	c.Job.LastErrorAt = &now
	c.Job.UpdatedAt = now
}
