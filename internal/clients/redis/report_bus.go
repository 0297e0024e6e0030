package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/bookatlas-backend/internal/platform/logger"
)

// ReportMessage is one completed-ingestion notification fanned out to any
// interested subscriber (dashboards, cache invalidators).
type ReportMessage struct {
	JobID  string          `json:"job_id"`
	Query  string          `json:"query"`
	Status string          `json:"status"`
	Report json.RawMessage `json:"report"`
	SentAt time.Time       `json:"sent_at"`
}

type ReportBus interface {
	Publish(ctx context.Context, msg ReportMessage) error
	StartForwarder(ctx context.Context, onMsg func(m ReportMessage)) error
	Close() error
}

type reportBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

// NewReportBus connects to redis using REDIS_ADDR. Callers treat a
// construction error as "bus unavailable" and run without fan-out.
func NewReportBus(log *logger.Logger) (ReportBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ch := strings.TrimSpace(os.Getenv("REDIS_REPORT_CHANNEL"))
	if ch == "" {
		ch = "ingest_reports"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &reportBus{
		log:     log.With("service", "RedisReportBus"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (b *reportBus) Publish(ctx context.Context, msg ReportMessage) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis report bus not initialized")
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *reportBus) StartForwarder(ctx context.Context, onMsg func(m ReportMessage)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis report bus not initialized")
	}
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var msg ReportMessage
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					b.log.Warn("bad redis report payload", "error", err)
					continue
				}
				onMsg(msg)
			}
		}
	}()

	return nil
}

func (b *reportBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
