package catalog

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/bookatlas-backend/internal/domain/catalog"
	"github.com/yungbote/bookatlas-backend/internal/platform/dbctx"
	"github.com/yungbote/bookatlas-backend/internal/platform/logger"
)

type AuthorRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*catalog.Author, error)
	GetByName(dbc dbctx.Context, name string) (*catalog.Author, error)
	// GetOrCreateByName is safe under concurrent callers: it inserts with
	// ON CONFLICT DO NOTHING against the unique name index and then reads
	// the canonical row back, so N racing calls converge on one row.
	GetOrCreateByName(dbc dbctx.Context, name string) (*catalog.Author, error)
	List(dbc dbctx.Context, offset, limit int) ([]*catalog.Author, error)
}

type authorRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAuthorRepo(db *gorm.DB, baseLog *logger.Logger) AuthorRepo {
	return &authorRepo{
		db:  db,
		log: baseLog.With("repo", "AuthorRepo"),
	}
}

func (r *authorRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *authorRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*catalog.Author, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var author catalog.Author
	err := r.conn(dbc).Where("id = ?", id).First(&author).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &author, nil
}

func (r *authorRepo) GetByName(dbc dbctx.Context, name string) (*catalog.Author, error) {
	if name == "" {
		return nil, nil
	}
	var author catalog.Author
	err := r.conn(dbc).Where("name = ?", name).First(&author).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &author, nil
}

func (r *authorRepo) GetOrCreateByName(dbc dbctx.Context, name string) (*catalog.Author, error) {
	if name == "" {
		return nil, fmt.Errorf("author name required")
	}
	candidate := &catalog.Author{ID: uuid.New(), Name: name}
	err := r.conn(dbc).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).
		Create(candidate).Error
	if err != nil {
		return nil, err
	}
	// Re-read so the conflict loser still gets the winning row.
	author, err := r.GetByName(dbc, name)
	if err != nil {
		return nil, err
	}
	if author == nil {
		return nil, fmt.Errorf("author %q missing after upsert", name)
	}
	return author, nil
}

func (r *authorRepo) List(dbc dbctx.Context, offset, limit int) ([]*catalog.Author, error) {
	var out []*catalog.Author
	err := r.conn(dbc).
		Order("name ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
