// Command reindex rebuilds the search index from the catalog. Run it after
// index mapping changes or whenever ingestion reported index_errors.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/bookatlas-backend/internal/data/db"
	catalogrepos "github.com/yungbote/bookatlas-backend/internal/data/repos/catalog"
	types "github.com/yungbote/bookatlas-backend/internal/domain/catalog"
	"github.com/yungbote/bookatlas-backend/internal/platform/dbctx"
	"github.com/yungbote/bookatlas-backend/internal/platform/logger"
	"github.com/yungbote/bookatlas-backend/internal/search"
	"github.com/yungbote/bookatlas-backend/internal/utils"
)

const pageSize = 200

func main() {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	defer pg.Close()

	es, err := search.NewClient(log)
	if err != nil {
		log.Fatal("Elasticsearch init failed", "error", err)
	}
	indexName := utils.GetEnv("ELASTICSEARCH_INDEX", "books_index", log)
	index := search.NewIndex(es, indexName, log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if err := index.EnsureIndex(ctx); err != nil {
		log.Fatal("Ensure index failed", "error", err)
	}

	books := catalogrepos.NewBookRepo(pg.DB(), log)
	workers := utils.GetEnvAsInt("REINDEX_CONCURRENCY", 4, log)
	if workers < 1 {
		workers = 1
	}

	pages := make(chan []*types.Book, workers)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(pages)
		for offset := 0; ; offset += pageSize {
			batch, err := books.List(dbctx.New(gctx), offset, pageSize)
			if err != nil {
				return fmt.Errorf("list books at offset %d: %w", offset, err)
			}
			if len(batch) == 0 {
				return nil
			}
			select {
			case pages <- batch:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	var totalIndexed, totalFailed int64
	results := make(chan [2]int, workers)
	done := make(chan struct{})
	go func() {
		for r := range results {
			totalIndexed += int64(r[0])
			totalFailed += int64(r[1])
		}
		close(done)
	}()

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for batch := range pages {
				indexed, failed, err := index.BulkUpsert(gctx, batch)
				if err != nil {
					return err
				}
				select {
				case results <- [2]int{indexed, failed}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	err = g.Wait()
	close(results)
	<-done
	if err != nil {
		log.Fatal("Reindex failed", "indexed", totalIndexed, "failed", totalFailed, "error", err)
	}
	log.Info("Reindex complete", "indexed", totalIndexed, "failed", totalFailed)
}
