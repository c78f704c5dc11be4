package extensions

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// Sentinel errors returned by Repository implementations.
var (
	ErrNotFound             = errors.New("extension not found")
	ErrDuplicateBuildNumber = errors.New("build number already exists")
)

// Repository abstracts persistence for extension build records.
type Repository interface {
	Create(ctx context.Context, ext *Extension) error
	GetByID(ctx context.Context, id string) (*Extension, error)
	GetByBuildNumber(ctx context.Context, buildNumber string) (*Extension, error)
	Latest(ctx context.Context) (*Extension, error)
	List(ctx context.Context, limit, offset int) ([]Extension, error)
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, id string) error
}

const extensionColumns = `id, build_number, build_description, author, commit_id, packed_extension_url, unpacked_extension_url, created_at`

// PostgresRepository is the pgx-backed Repository implementation.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates an extension repository over the given pool.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanExtension(row pgx.Row) (*Extension, error) {
	var ext Extension
	err := row.Scan(
		&ext.ID,
		&ext.BuildNumber,
		&ext.BuildDescription,
		&ext.Author,
		&ext.CommitID,
		&ext.PackedExtensionURL,
		&ext.UnpackedExtensionURL,
		&ext.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ext, nil
}

func (r *PostgresRepository) Create(ctx context.Context, ext *Extension) error {
	query := `INSERT INTO extensions (id, build_number, build_description, author, commit_id, packed_extension_url, unpacked_extension_url, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.Exec(ctx, query,
		ext.ID, ext.BuildNumber, ext.BuildDescription, ext.Author,
		ext.CommitID, ext.PackedExtensionURL, ext.UnpackedExtensionURL, ext.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation &&
			strings.Contains(pgErr.ConstraintName, "build_number") {
			return ErrDuplicateBuildNumber
		}
		return err
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Extension, error) {
	query := `SELECT ` + extensionColumns + ` FROM extensions WHERE id = $1`
	return scanExtension(r.db.QueryRow(ctx, query, id))
}

func (r *PostgresRepository) GetByBuildNumber(ctx context.Context, buildNumber string) (*Extension, error) {
	query := `SELECT ` + extensionColumns + ` FROM extensions WHERE build_number = $1`
	return scanExtension(r.db.QueryRow(ctx, query, buildNumber))
}

func (r *PostgresRepository) Latest(ctx context.Context) (*Extension, error) {
	query := `SELECT ` + extensionColumns + ` FROM extensions ORDER BY created_at DESC LIMIT 1`
	return scanExtension(r.db.QueryRow(ctx, query))
}

func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]Extension, error) {
	query := `SELECT ` + extensionColumns + ` FROM extensions ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Extension
	for rows.Next() {
		var ext Extension
		err := rows.Scan(
			&ext.ID,
			&ext.BuildNumber,
			&ext.BuildDescription,
			&ext.Author,
			&ext.CommitID,
			&ext.PackedExtensionURL,
			&ext.UnpackedExtensionURL,
			&ext.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		list = append(list, ext)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	var total int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM extensions`).Scan(&total)
	return total, err
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM extensions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
