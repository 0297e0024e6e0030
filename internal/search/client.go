package search

import (
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/yungbote/bookatlas-backend/internal/platform/logger"
	"github.com/yungbote/bookatlas-backend/internal/utils"
)

// NewClient builds the Elasticsearch client from the environment. The client
// is constructed once at process start and passed down explicitly; nothing in
// this package caches it.
func NewClient(log *logger.Logger) (*elasticsearch.Client, error) {
	url := utils.GetEnv("ELASTICSEARCH_URL", "http://localhost:9200", log)
	username := utils.GetEnv("ELASTICSEARCH_USERNAME", "", log)
	password := utils.GetEnv("ELASTICSEARCH_PASSWORD", "", log)

	cfg := elasticsearch.Config{
		Addresses:     []string{url},
		Username:      username,
		Password:      password,
		RetryOnStatus: []int{502, 503, 504, 429},
		MaxRetries:    3,
	}
	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("search: create client: %w", err)
	}
	return es, nil
}
