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

type GenreRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*catalog.Genre, error)
	GetByName(dbc dbctx.Context, name string) (*catalog.Genre, error)
	// GetOrCreateByName mirrors AuthorRepo: conflict-safe upsert, not
	// check-then-insert.
	GetOrCreateByName(dbc dbctx.Context, name string) (*catalog.Genre, error)
	List(dbc dbctx.Context, offset, limit int) ([]*catalog.Genre, error)
}

type genreRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGenreRepo(db *gorm.DB, baseLog *logger.Logger) GenreRepo {
	return &genreRepo{
		db:  db,
		log: baseLog.With("repo", "GenreRepo"),
	}
}

func (r *genreRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *genreRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*catalog.Genre, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var genre catalog.Genre
	err := r.conn(dbc).Where("id = ?", id).First(&genre).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &genre, nil
}

func (r *genreRepo) GetByName(dbc dbctx.Context, name string) (*catalog.Genre, error) {
	if name == "" {
		return nil, nil
	}
	var genre catalog.Genre
	err := r.conn(dbc).Where("name = ?", name).First(&genre).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &genre, nil
}

func (r *genreRepo) GetOrCreateByName(dbc dbctx.Context, name string) (*catalog.Genre, error) {
	if name == "" {
		return nil, fmt.Errorf("genre name required")
	}
	candidate := &catalog.Genre{ID: uuid.New(), Name: name}
	err := r.conn(dbc).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).
		Create(candidate).Error
	if err != nil {
		return nil, err
	}
	genre, err := r.GetByName(dbc, name)
	if err != nil {
		return nil, err
	}
	if genre == nil {
		return nil, fmt.Errorf("genre %q missing after upsert", name)
	}
	return genre, nil
}

func (r *genreRepo) List(dbc dbctx.Context, offset, limit int) ([]*catalog.Genre, error) {
	var out []*catalog.Genre
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
