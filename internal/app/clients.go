package app

import (
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/yungbote/bookatlas-backend/internal/clients/bookdata"
	"github.com/yungbote/bookatlas-backend/internal/clients/redis"
	"github.com/yungbote/bookatlas-backend/internal/platform/logger"
	"github.com/yungbote/bookatlas-backend/internal/search"
)

type Clients struct {
	ES        *elasticsearch.Client
	BookData  *bookdata.Client
	ReportBus redis.ReportBus
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	es, err := search.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init elasticsearch: %w", err)
	}

	// The report bus is optional: without REDIS_ADDR, ingestion reports stay
	// on job rows only.
	bus, err := redis.NewReportBus(log)
	if err != nil {
		log.Warn("Redis report bus unavailable, continuing without fan-out", "error", err)
		bus = nil
	}

	return Clients{
		ES:        es,
		BookData:  bookdata.NewClient(log),
		ReportBus: bus,
	}, nil
}
