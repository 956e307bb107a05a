package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shipcerts/internal/logger"
	"shipcerts/pkg/models"
)

const postgresSchema = `
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
	created_at TIMESTAMPTZ NOT NULL,
	record     JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS certificates_ship_id ON certificates (ship_id);
`

// PostgresStore keeps ships and certificates in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and creates the tables if needed.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}
	log := logger.WithComponent("store")

	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "shipcerts"

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}

	log.Debug().Str("driver", "postgres").Str("host", pc.ConnConfig.Host).Msg("Store opened")
	return &PostgresStore{pool: pool}, nil
}

// FindCertificates returns the certificates of a ship, oldest first.
func (s *PostgresStore) FindCertificates(ctx context.Context, shipID string) ([]models.StoredCertificate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, ship_id, company_id, created_at, record FROM certificates WHERE ship_id = $1 ORDER BY created_at, id`,
		shipID)
	if err != nil {
		return nil, fmt.Errorf("query certificates: %w", err)
	}
	defer rows.Close()

	var certs []models.StoredCertificate
	for rows.Next() {
		var (
			cert   models.StoredCertificate
			record []byte
		)
		if err := rows.Scan(&cert.ID, &cert.ShipID, &cert.CompanyID, &cert.CreatedAt, &record); err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		if err := json.Unmarshal(record, &cert.CertificateRecord); err != nil {
			return nil, fmt.Errorf("certificate %s: decode record: %w", cert.ID, err)
		}
		certs = append(certs, cert)
	}
	return certs, rows.Err()
}

// GetShip returns ErrNotFound for an unknown id.
func (s *PostgresStore) GetShip(ctx context.Context, shipID string) (models.Ship, error) {
	var ship models.Ship
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, imo_number, built_year, company_id FROM ships WHERE id = $1`, shipID).
		Scan(&ship.ID, &ship.Name, &ship.IMONumber, &ship.BuiltYear, &ship.CompanyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Ship{}, fmt.Errorf("ship %s: %w", shipID, ErrNotFound)
	}
	if err != nil {
		return models.Ship{}, fmt.Errorf("query ship %s: %w", shipID, err)
	}
	return ship, nil
}

// SaveCertificate inserts or updates a certificate, assigning an id if needed.
func (s *PostgresStore) SaveCertificate(ctx context.Context, cert *models.StoredCertificate) error {
	if err := prepareCertificate(cert); err != nil {
		return err
	}
	record, err := json.Marshal(cert.CertificateRecord)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO certificates (id, ship_id, company_id, created_at, record) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET ship_id = EXCLUDED.ship_id, company_id = EXCLUDED.company_id, record = EXCLUDED.record`,
		cert.ID, cert.ShipID, cert.CompanyID, cert.CreatedAt, record)
	if err != nil {
		return fmt.Errorf("save certificate %s: %w", cert.ID, err)
	}
	return nil
}

// SaveShip inserts or updates a ship, assigning an id if needed.
func (s *PostgresStore) SaveShip(ctx context.Context, ship *models.Ship) error {
	if err := prepareShip(ship); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ships (id, name, imo_number, built_year, company_id) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, imo_number = EXCLUDED.imo_number,
		   built_year = EXCLUDED.built_year, company_id = EXCLUDED.company_id`,
		ship.ID, ship.Name, ship.IMONumber, ship.BuiltYear, ship.CompanyID)
	if err != nil {
		return fmt.Errorf("save ship %s: %w", ship.ID, err)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
