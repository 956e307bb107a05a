package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"shipcerts/internal/logger"
	"shipcerts/pkg/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS ships (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	imo_number TEXT NOT NULL DEFAULT '',
	built_year INTEGER NOT NULL DEFAULT 0,
	company_id TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS certificates (
	id         TEXT PRIMARY KEY,
	ship_id    TEXT NOT NULL,
	company_id TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	record     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS certificates_ship_id ON certificates (ship_id);
`

// SQLiteStore keeps ships and certificates in a SQLite file. The record is
// stored as a JSON column.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) the database at path. ":memory:" gives a
// private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// a single connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite %s: %w", path, err)
	}

	log := logger.WithComponent("store")
	log.Debug().Str("driver", "sqlite").Str("path", path).Msg("Store opened")
	return &SQLiteStore{db: db}, nil
}

// FindCertificates returns the certificates of a ship, oldest first.
func (s *SQLiteStore) FindCertificates(ctx context.Context, shipID string) ([]models.StoredCertificate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ship_id, company_id, created_at, record FROM certificates WHERE ship_id = ? ORDER BY created_at, id`,
		shipID)
	if err != nil {
		return nil, fmt.Errorf("query certificates: %w", err)
	}
	defer rows.Close()

	var certs []models.StoredCertificate
	for rows.Next() {
		var (
			cert      models.StoredCertificate
			createdAt string
			record    string
		)
		if err := rows.Scan(&cert.ID, &cert.ShipID, &cert.CompanyID, &createdAt, &record); err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		if cert.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("certificate %s: bad created_at: %w", cert.ID, err)
		}
		if err := json.Unmarshal([]byte(record), &cert.CertificateRecord); err != nil {
			return nil, fmt.Errorf("certificate %s: decode record: %w", cert.ID, err)
		}
		certs = append(certs, cert)
	}
	return certs, rows.Err()
}

// GetShip returns ErrNotFound for an unknown id.
func (s *SQLiteStore) GetShip(ctx context.Context, shipID string) (models.Ship, error) {
	var ship models.Ship
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, imo_number, built_year, company_id FROM ships WHERE id = ?`, shipID).
		Scan(&ship.ID, &ship.Name, &ship.IMONumber, &ship.BuiltYear, &ship.CompanyID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Ship{}, fmt.Errorf("ship %s: %w", shipID, ErrNotFound)
	}
	if err != nil {
		return models.Ship{}, fmt.Errorf("query ship %s: %w", shipID, err)
	}
	return ship, nil
}

// SaveCertificate inserts or replaces a certificate, assigning an id if needed.
func (s *SQLiteStore) SaveCertificate(ctx context.Context, cert *models.StoredCertificate) error {
	if err := prepareCertificate(cert); err != nil {
		return err
	}
	record, err := json.Marshal(cert.CertificateRecord)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO certificates (id, ship_id, company_id, created_at, record) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET ship_id = excluded.ship_id, company_id = excluded.company_id, record = excluded.record`,
		cert.ID, cert.ShipID, cert.CompanyID, cert.CreatedAt.UTC().Format(time.RFC3339Nano), string(record))
	if err != nil {
		return fmt.Errorf("save certificate %s: %w", cert.ID, err)
	}
	return nil
}

// SaveShip inserts or updates a ship, assigning an id if needed.
func (s *SQLiteStore) SaveShip(ctx context.Context, ship *models.Ship) error {
	if err := prepareShip(ship); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ships (id, name, imo_number, built_year, company_id) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name, imo_number = excluded.imo_number,
		   built_year = excluded.built_year, company_id = excluded.company_id`,
		ship.ID, ship.Name, ship.IMONumber, ship.BuiltYear, ship.CompanyID)
	if err != nil {
		return fmt.Errorf("save ship %s: %w", ship.ID, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
