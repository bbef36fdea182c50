package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/estatehub/seeder/internal/models"
	_ "modernc.org/sqlite"
)

var migrations = [][]string{
	{
		`CREATE TABLE owners (
			id                 INTEGER PRIMARY KEY AUTOINCREMENT,
			name               TEXT NOT NULL,
			address            TEXT NOT NULL,
			photo_filename     TEXT,
			photo_content_type TEXT,
			photo_size         INTEGER,
			photo_uploaded_at  DATETIME,
			created_at         DATETIME NOT NULL
		)`,
		`CREATE TABLE properties (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			owner_id      INTEGER NOT NULL REFERENCES owners(id),
			name          TEXT NOT NULL,
			address       TEXT NOT NULL,
			price         REAL NOT NULL,
			code_internal TEXT NOT NULL,
			year          INTEGER NOT NULL,
			created_at    DATETIME NOT NULL
		)`,
		`CREATE INDEX idx_properties_owner ON properties(owner_id)`,
		`CREATE TABLE property_images (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			property_id  INTEGER NOT NULL REFERENCES properties(id),
			filename     TEXT NOT NULL,
			content_type TEXT NOT NULL,
			size         INTEGER NOT NULL,
			uploaded_at  DATETIME NOT NULL
		)`,
	},
}

// SQLiteStore persists records in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at dsn and applies migrations.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single connection for SQLite to avoid locking issues; also keeps a
	// ":memory:" database alive across queries.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for i, stmts := range migrations {
		version := i + 1

		var exists int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", version, err)
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d: %w", version, err)
			}
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", version, err)
		}
	}
	return nil
}

func (s *SQLiteStore) CreateOwner(ctx context.Context, o models.Owner) (models.Owner, error) {
	o.CreatedAt = time.Now().UTC()
	o.Photo = nil
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO owners (name, address, created_at) VALUES (?, ?, ?)`,
		o.Name, o.Address, o.CreatedAt)
	if err != nil {
		return models.Owner{}, fmt.Errorf("insert owner: %w", err)
	}
	if o.ID, err = res.LastInsertId(); err != nil {
		return models.Owner{}, fmt.Errorf("owner id: %w", err)
	}
	return o, nil
}

const ownerColumns = `id, name, address, photo_filename, photo_content_type, photo_size, photo_uploaded_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOwner(row rowScanner) (models.Owner, error) {
	var (
		o           models.Owner
		filename    sql.NullString
		contentType sql.NullString
		size        sql.NullInt64
		uploadedAt  sql.NullTime
	)
	if err := row.Scan(&o.ID, &o.Name, &o.Address, &filename, &contentType, &size, &uploadedAt, &o.CreatedAt); err != nil {
		return models.Owner{}, err
	}
	if filename.Valid {
		o.Photo = &models.Image{
			Filename:    filename.String,
			ContentType: contentType.String,
			Size:        size.Int64,
			UploadedAt:  uploadedAt.Time,
		}
	}
	return o, nil
}

func (s *SQLiteStore) GetOwner(ctx context.Context, id int64) (models.Owner, error) {
	o, err := scanOwner(s.db.QueryRowContext(ctx, `SELECT `+ownerColumns+` FROM owners WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Owner{}, ErrNotFound
	}
	if err != nil {
		return models.Owner{}, fmt.Errorf("get owner %d: %w", id, err)
	}
	return o, nil
}

func (s *SQLiteStore) ListOwners(ctx context.Context) ([]models.Owner, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+ownerColumns+` FROM owners ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	defer rows.Close()

	owners := []models.Owner{}
	for rows.Next() {
		o, err := scanOwner(rows)
		if err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		owners = append(owners, o)
	}
	return owners, rows.Err()
}

func (s *SQLiteStore) SetOwnerPhoto(ctx context.Context, ownerID int64, img models.Image) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE owners SET photo_filename = ?, photo_content_type = ?, photo_size = ?, photo_uploaded_at = ? WHERE id = ?`,
		img.Filename, img.ContentType, img.Size, img.UploadedAt, ownerID)
	if err != nil {
		return fmt.Errorf("set owner photo: %w", err)
	}
	return requireRow(res)
}

func (s *SQLiteStore) CreateProperty(ctx context.Context, p models.Property) (models.Property, error) {
	if _, err := s.GetOwner(ctx, p.IDOwner); err != nil {
		return models.Property{}, err
	}

	p.CreatedAt = time.Now().UTC()
	p.Images = []models.Image{}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO properties (owner_id, name, address, price, code_internal, year, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.IDOwner, p.Name, p.Address, p.Price, p.CodeInternal, p.Year, p.CreatedAt)
	if err != nil {
		return models.Property{}, fmt.Errorf("insert property: %w", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return models.Property{}, fmt.Errorf("property id: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) ListProperties(ctx context.Context, ownerID int64) ([]models.Property, error) {
	query := `SELECT id, owner_id, name, address, price, code_internal, year, created_at FROM properties`
	var args []any
	if ownerID != 0 {
		query += ` WHERE owner_id = ?`
		args = append(args, ownerID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}

	props := []models.Property{}
	index := map[int64]int{}
	for rows.Next() {
		var p models.Property
		if err := rows.Scan(&p.ID, &p.IDOwner, &p.Name, &p.Address, &p.Price, &p.CodeInternal, &p.Year, &p.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan property: %w", err)
		}
		p.Images = []models.Image{}
		index[p.ID] = len(props)
		props = append(props, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Single connection: the property cursor must be closed before this query.
	imgRows, err := s.db.QueryContext(ctx,
		`SELECT property_id, filename, content_type, size, uploaded_at FROM property_images ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list property images: %w", err)
	}
	defer imgRows.Close()
	for imgRows.Next() {
		var (
			propertyID int64
			img        models.Image
		)
		if err := imgRows.Scan(&propertyID, &img.Filename, &img.ContentType, &img.Size, &img.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan property image: %w", err)
		}
		if i, ok := index[propertyID]; ok {
			props[i].Images = append(props[i].Images, img)
		}
	}
	return props, imgRows.Err()
}

func (s *SQLiteStore) AddPropertyImage(ctx context.Context, propertyID int64, img models.Image) error {
	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM properties WHERE id = ?`, propertyID).Scan(&exists); err != nil {
		return fmt.Errorf("check property %d: %w", propertyID, err)
	}
	if exists == 0 {
		return ErrNotFound
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO property_images (property_id, filename, content_type, size, uploaded_at) VALUES (?, ?, ?, ?, ?)`,
		propertyID, img.Filename, img.ContentType, img.Size, img.UploadedAt); err != nil {
		return fmt.Errorf("insert property image: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM owners),
		(SELECT COUNT(*) FROM owners WHERE photo_filename IS NOT NULL),
		(SELECT COUNT(*) FROM properties),
		(SELECT COUNT(*) FROM property_images)`).Scan(&c.Owners, &c.OwnerPhotos, &c.Properties, &c.Images)
	if err != nil {
		return Counts{}, fmt.Errorf("count records: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
