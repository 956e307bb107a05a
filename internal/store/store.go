// Package store persists ships and their certificates. The extraction core
// only reads through FindCertificates and GetShip; the CLI writes.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shipcerts/internal/config"
	"shipcerts/pkg/models"
)

// ErrNotFound is returned when a ship does not exist.
var ErrNotFound = errors.New("not found")

// Store is a certificate store backend.
type Store interface {
	FindCertificates(ctx context.Context, shipID string) ([]models.StoredCertificate, error)
	GetShip(ctx context.Context, shipID string) (models.Ship, error)
	SaveCertificate(ctx context.Context, cert *models.StoredCertificate) error
	SaveShip(ctx context.Context, ship *models.Ship) error
	Close() error
}

// Open returns the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "sqlite":
		s, err = OpenSQLite(ctx, cfg.SQLitePath)
	case "postgres":
		s, err = OpenPostgres(ctx, cfg.PostgresDSN)
	case "firestore":
		s, err = OpenFirestore(ctx, cfg.FirestoreProject)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// prepareCertificate assigns an id and creation time to new certificates.
func prepareCertificate(cert *models.StoredCertificate) error {
	if cert.ShipID == "" {
		return errors.New("certificate has no ship id")
	}
	if cert.ID == "" {
		cert.ID = uuid.NewString()
	}
	if cert.CreatedAt.IsZero() {
		cert.CreatedAt = time.Now().UTC()
	}
	return nil
}

func prepareShip(ship *models.Ship) error {
	if ship.Name == "" {
		return errors.New("ship has no name")
	}
	if ship.ID == "" {
		ship.ID = uuid.NewString()
	}
	return nil
}
