package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anime-shed/brand-inspector-go/pkg/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS images (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL UNIQUE,
	original_filename TEXT NOT NULL,
	brand TEXT NOT NULL,
	processed_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_images_brand ON images(brand);
CREATE INDEX IF NOT EXISTS idx_images_processed_at ON images(processed_at);
`

// imageRow is the stored form of models.ImageRecord; processed_at is kept
// as unix milliseconds so ordering and round-trips do not depend on the
// driver's time formatting.
type imageRow struct {
	ID               string `db:"id"`
	Filename         string `db:"filename"`
	OriginalFilename string `db:"original_filename"`
	Brand            string `db:"brand"`
	ProcessedAt      int64  `db:"processed_at"`
}

func (r imageRow) record() models.ImageRecord {
	return models.ImageRecord{
		ID:               r.ID,
		Filename:         r.Filename,
		OriginalFilename: r.OriginalFilename,
		Brand:            r.Brand,
		ProcessedAt:      time.UnixMilli(r.ProcessedAt).UTC(),
	}
}

// SQLiteImageRepository implements ImageRepository on SQLite.
type SQLiteImageRepository struct {
	db *sqlx.DB
}

// NewSQLiteImageRepository opens (creating if needed) the database at path
// and applies the schema. Use ":memory:" for a throwaway database.
func NewSQLiteImageRepository(path string) (*SQLiteImageRepository, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps an
	// in-memory database alive for the lifetime of the pool.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteImageRepository{db: db}, nil
}

func (r *SQLiteImageRepository) Insert(ctx context.Context, record *models.ImageRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.ProcessedAt.IsZero() {
		record.ProcessedAt = time.Now().UTC()
	}

	row := imageRow{
		ID:               record.ID,
		Filename:         record.Filename,
		OriginalFilename: record.OriginalFilename,
		Brand:            record.Brand,
		ProcessedAt:      record.ProcessedAt.UnixMilli(),
	}

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO images (id, filename, original_filename, brand, processed_at)
		VALUES (:id, :filename, :original_filename, :brand, :processed_at)
	`, row)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", ErrDuplicateImage, record.Filename)
		}
		return fmt.Errorf("failed to insert image: %w", err)
	}
	return nil
}

func (r *SQLiteImageRepository) GetByFilename(ctx context.Context, filename string) (*models.ImageRecord, error) {
	var row imageRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, filename, original_filename, brand, processed_at
		FROM images
		WHERE filename = ? OR original_filename = ?
		LIMIT 1
	`, filename, filename)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrImageNotFound, filename)
		}
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	record := row.record()
	return &record, nil
}

func (r *SQLiteImageRepository) List(ctx context.Context, brand string) ([]models.ImageRecord, error) {
	query := `SELECT id, filename, original_filename, brand, processed_at FROM images`
	var args []interface{}
	if brand != "" {
		query += ` WHERE brand = ?`
		args = append(args, brand)
	}
	query += ` ORDER BY processed_at DESC, rowid DESC`

	var rows []imageRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	records := make([]models.ImageRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.record())
	}
	return records, nil
}

func (r *SQLiteImageRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrImageNotFound, id)
	}
	return nil
}

func (r *SQLiteImageRepository) Brands(ctx context.Context) ([]string, error) {
	brands := []string{}
	if err := r.db.SelectContext(ctx, &brands, `SELECT DISTINCT brand FROM images ORDER BY brand`); err != nil {
		return nil, fmt.Errorf("failed to list brands: %w", err)
	}
	return brands, nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteImageRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}
	return nil
}

func (r *SQLiteImageRepository) Close() error {
	return r.db.Close()
}
