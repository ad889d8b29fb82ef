package repository

import (
	"context"
	"time"

	"github.com/abhivel/lyfe/pkg/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
)

const schema = `
CREATE TABLE IF NOT EXISTS photos (
	id          BIGSERIAL PRIMARY KEY,
	data        BYTEA NOT NULL,
	file_type   TEXT NOT NULL,
	location    TEXT,
	captured_at TIMESTAMPTZ,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres implements Repository on a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to the database and verifies the connection.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse connection string")
	}

	config.MaxConns = 10
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create connection pool")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, goerr.Wrap(err, "failed to ping database")
	}

	return &Postgres{pool: pool}, nil
}

// Migrate ensures the photos table exists.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return goerr.Wrap(ErrPersistence, "failed to ensure schema", goerr.V("cause", err.Error()))
	}
	return nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) Create(ctx context.Context, photo *model.Photo) (model.PhotoID, error) {
	var location *string
	if photo.Location != "" {
		location = &photo.Location
	}

	var id int64
	err := p.pool.QueryRow(ctx,
		`INSERT INTO photos (data, file_type, location, captured_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		photo.Data, photo.FileType, location, photo.CapturedAt,
	).Scan(&id, &photo.CreatedAt, &photo.UpdatedAt)
	if err != nil {
		return 0, goerr.Wrap(ErrPersistence, "failed to create photo", goerr.V("cause", err.Error()))
	}

	photo.ID = model.PhotoID(id)
	return photo.ID, nil
}

func (p *Postgres) GetByIDs(ctx context.Context, ids []model.PhotoID) ([]*model.Photo, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id)
	}

	rows, err := p.pool.Query(ctx,
		`SELECT id, data, file_type, location, captured_at, created_at, updated_at
		 FROM photos WHERE id = ANY($1) ORDER BY id`,
		raw,
	)
	if err != nil {
		return nil, goerr.Wrap(ErrPersistence, "failed to fetch photos", goerr.V("cause", err.Error()))
	}
	defer rows.Close()

	return scanPhotos(rows)
}

func (p *Postgres) List(ctx context.Context, offset, limit int) ([]*model.Photo, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, data, file_type, location, captured_at, created_at, updated_at
		 FROM photos ORDER BY id OFFSET $1 LIMIT $2`,
		offset, limit,
	)
	if err != nil {
		return nil, goerr.Wrap(ErrPersistence, "failed to list photos", goerr.V("cause", err.Error()))
	}
	defer rows.Close()

	return scanPhotos(rows)
}

func scanPhotos(rows pgx.Rows) ([]*model.Photo, error) {
	var photos []*model.Photo
	for rows.Next() {
		var (
			photo    model.Photo
			id       int64
			location *string
		)
		if err := rows.Scan(&id, &photo.Data, &photo.FileType, &location,
			&photo.CapturedAt, &photo.CreatedAt, &photo.UpdatedAt); err != nil {
			return nil, goerr.Wrap(ErrPersistence, "failed to scan photo row", goerr.V("cause", err.Error()))
		}
		photo.ID = model.PhotoID(id)
		if location != nil {
			photo.Location = *location
		}
		photos = append(photos, &photo)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(ErrPersistence, "failed to read photo rows", goerr.V("cause", err.Error()))
	}
	return photos, nil
}

func (p *Postgres) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := p.pool.QueryRow(ctx, `SELECT count(*) FROM photos`).Scan(&count); err != nil {
		return 0, goerr.Wrap(ErrPersistence, "failed to count photos", goerr.V("cause", err.Error()))
	}
	return count, nil
}

func (p *Postgres) UpdateLocation(ctx context.Context, id model.PhotoID, location string) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE photos SET location = $2, updated_at = now() WHERE id = $1`,
		int64(id), location,
	)
	if err != nil {
		return goerr.Wrap(ErrPersistence, "failed to update location",
			goerr.V("id", id), goerr.V("cause", err.Error()))
	}
	if tag.RowsAffected() == 0 {
		return goerr.Wrap(ErrPersistence, "photo not found", goerr.V("id", id))
	}
	return nil
}

func (p *Postgres) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM photos`)
	if err != nil {
		return 0, goerr.Wrap(ErrPersistence, "failed to delete photos", goerr.V("cause", err.Error()))
	}
	return tag.RowsAffected(), nil
}
