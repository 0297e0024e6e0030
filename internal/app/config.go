package app

import (
	"github.com/yungbote/bookatlas-backend/internal/platform/logger"
	"github.com/yungbote/bookatlas-backend/internal/utils"
)

type Config struct {
	Environment string
	ServerAddr  string
	IndexName   string
	Version     string
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Environment: utils.GetEnv("APP_ENV", "development", log),
		ServerAddr:  utils.GetEnv("SERVER_ADDR", ":8080", log),
		IndexName:   utils.GetEnv("ELASTICSEARCH_INDEX", "books_index", log),
		Version:     utils.GetEnv("APP_VERSION", "dev", log),
	}
}
