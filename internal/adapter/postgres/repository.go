package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchcryptid/tree-request-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const selectColumns = `id, sr_number, street_address, num_trees, location,
	latitude, longitude, lat, lng, status, zipcode, notes,
	confirmed_planted, geocode_attempted, requested_at`

// Repository persists tree requests.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a Repository backed by pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CheckReadiness pings the database.
func (r *Repository) CheckReadiness(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}

// FindByStreetAddress returns the request recorded for an exact street
// address, or domain.ErrNotFound.
func (r *Repository) FindByStreetAddress(ctx context.Context, address string) (domain.TreeRequest, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM tree_requests WHERE street_address = $1`, address)
	req, err := scanTreeRequest(row)
	if err != nil {
		return domain.TreeRequest{}, mapError("find by street address", err)
	}
	return req, nil
}

// FindByID returns a single request by primary key, or domain.ErrNotFound.
func (r *Repository) FindByID(ctx context.Context, id int64) (domain.TreeRequest, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM tree_requests WHERE id = $1`, id)
	req, err := scanTreeRequest(row)
	if err != nil {
		return domain.TreeRequest{}, mapError("find by id", err)
	}
	return req, nil
}

// Insert stores a new request and sets its ID. A street address that is
// already on record yields domain.ErrDuplicateAddress.
func (r *Repository) Insert(ctx context.Context, req *domain.TreeRequest) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO tree_requests
			(sr_number, street_address, num_trees, location, lat, lng, status, zipcode, notes, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		req.SRNumber, req.StreetAddress, req.NumTrees, req.Location, req.Lat, req.Lng,
		req.Status, req.Zipcode, req.Notes, req.RequestedAt,
	).Scan(&req.ID)
	if err != nil {
		return mapError("insert", err)
	}
	return nil
}

// List returns every request, newest first.
func (r *Repository) List(ctx context.Context) ([]domain.TreeRequest, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM tree_requests ORDER BY requested_at DESC, id DESC`)
	if err != nil {
		return nil, mapError("list", err)
	}
	out, err := pgx.CollectRows(rows, collectTreeRequest)
	if err != nil {
		return nil, mapError("list", err)
	}
	return out, nil
}

// PendingGeocode returns up to limit requests that have no geocoded
// position and have not been attempted yet.
func (r *Repository) PendingGeocode(ctx context.Context, limit int) ([]domain.TreeRequest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+selectColumns+` FROM tree_requests
		WHERE latitude IS NULL AND geocode_attempted = FALSE
		ORDER BY id
		LIMIT $1`, limit)
	if err != nil {
		return nil, mapError("pending geocode", err)
	}
	out, err := pgx.CollectRows(rows, collectTreeRequest)
	if err != nil {
		return nil, mapError("pending geocode", err)
	}
	return out, nil
}

// UpdateGeocode records the result of a geocoding attempt.
func (r *Repository) UpdateGeocode(ctx context.Context, req domain.TreeRequest) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tree_requests
		SET latitude = $2, longitude = $3, geocode_attempted = $4
		WHERE id = $1`,
		req.ID, req.Latitude, req.Longitude, req.GeocodeAttempted)
	if err != nil {
		return mapError("update geocode", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkPlanted sets the planting confirmation flag for a request.
func (r *Repository) MarkPlanted(ctx context.Context, id int64, confirmed bool) (domain.TreeRequest, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tree_requests SET confirmed_planted = $2
		WHERE id = $1
		RETURNING `+selectColumns, id, confirmed)
	req, err := scanTreeRequest(row)
	if err != nil {
		return domain.TreeRequest{}, mapError("mark planted", err)
	}
	return req, nil
}

// Import inserts historical requests in one batch, skipping rows whose SR
// number or street address is already on record. It returns how many rows
// were inserted.
func (r *Repository) Import(ctx context.Context, reqs []domain.TreeRequest) (int, error) {
	if len(reqs) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for i := range reqs {
		req := &reqs[i]
		batch.Queue(`
			INSERT INTO tree_requests
				(sr_number, street_address, num_trees, location, status, zipcode, confirmed_planted, notes, requested_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT DO NOTHING`,
			req.SRNumber, req.StreetAddress, req.NumTrees, req.Location, req.Status,
			req.Zipcode, req.ConfirmedPlanted, req.Notes, req.RequestedAt)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range reqs {
		tag, err := results.Exec()
		if err != nil {
			return inserted, mapError("import", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

func collectTreeRequest(row pgx.CollectableRow) (domain.TreeRequest, error) {
	return scanTreeRequest(row)
}

func scanTreeRequest(row pgx.Row) (domain.TreeRequest, error) {
	var req domain.TreeRequest
	err := row.Scan(
		&req.ID, &req.SRNumber, &req.StreetAddress, &req.NumTrees, &req.Location,
		&req.Latitude, &req.Longitude, &req.Lat, &req.Lng, &req.Status, &req.Zipcode, &req.Notes,
		&req.ConfirmedPlanted, &req.GeocodeAttempted, &req.RequestedAt,
	)
	return req, err
}

// mapError translates driver errors into domain errors.
func mapError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, domain.ErrDuplicateAddress)
	}
	return &domain.PersistenceError{Op: op, Err: err}
}
