package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"shipcerts/internal/logger"
	"shipcerts/pkg/models"
)

const (
	shipsCollection        = "ships"
	certificatesCollection = "certificates"
)

type firestoreShip struct {
	Name      string `firestore:"name"`
	IMONumber string `firestore:"imo_number"`
	BuiltYear int    `firestore:"built_year"`
	CompanyID string `firestore:"company_id"`
}

type firestoreCertificate struct {
	ShipID    string                   `firestore:"ship_id"`
	CompanyID string                   `firestore:"company_id"`
	CreatedAt time.Time                `firestore:"created_at"`
	Record    models.CertificateRecord `firestore:"record"`
}

// FirestoreStore keeps ships and certificates as Firestore documents keyed
// by their UUID.
type FirestoreStore struct {
	client *firestore.Client
}

// OpenFirestore creates a client for projectID using application default credentials.
func OpenFirestore(ctx context.Context, projectID string) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, errors.New("firestore project id is empty")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}

	log := logger.WithComponent("store")
	log.Debug().Str("driver", "firestore").Str("project", projectID).Msg("Store opened")
	return &FirestoreStore{client: client}, nil
}

// FindCertificates returns the certificates of a ship, oldest first.
func (s *FirestoreStore) FindCertificates(ctx context.Context, shipID string) ([]models.StoredCertificate, error) {
	iter := s.client.Collection(certificatesCollection).
		Where("ship_id", "==", shipID).
		OrderBy("created_at", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var certs []models.StoredCertificate
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("query certificates: %w", err)
		}
		var fc firestoreCertificate
		if err := doc.DataTo(&fc); err != nil {
			return nil, fmt.Errorf("certificate %s: decode: %w", doc.Ref.ID, err)
		}
		certs = append(certs, models.StoredCertificate{
			ID:                doc.Ref.ID,
			ShipID:            fc.ShipID,
			CompanyID:         fc.CompanyID,
			CreatedAt:         fc.CreatedAt,
			CertificateRecord: fc.Record,
		})
	}
	return certs, nil
}

// GetShip returns ErrNotFound for an unknown id.
func (s *FirestoreStore) GetShip(ctx context.Context, shipID string) (models.Ship, error) {
	doc, err := s.client.Collection(shipsCollection).Doc(shipID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return models.Ship{}, fmt.Errorf("ship %s: %w", shipID, ErrNotFound)
	}
	if err != nil {
		return models.Ship{}, fmt.Errorf("get ship %s: %w", shipID, err)
	}
	var fs firestoreShip
	if err := doc.DataTo(&fs); err != nil {
		return models.Ship{}, fmt.Errorf("ship %s: decode: %w", shipID, err)
	}
	return models.Ship{
		ID:        doc.Ref.ID,
		Name:      fs.Name,
		IMONumber: fs.IMONumber,
		BuiltYear: fs.BuiltYear,
		CompanyID: fs.CompanyID,
	}, nil
}

// SaveCertificate writes a certificate document, assigning an id if needed.
func (s *FirestoreStore) SaveCertificate(ctx context.Context, cert *models.StoredCertificate) error {
	if err := prepareCertificate(cert); err != nil {
		return err
	}
	_, err := s.client.Collection(certificatesCollection).Doc(cert.ID).Set(ctx, firestoreCertificate{
		ShipID:    cert.ShipID,
		CompanyID: cert.CompanyID,
		CreatedAt: cert.CreatedAt,
		Record:    cert.CertificateRecord,
	})
	if err != nil {
		return fmt.Errorf("save certificate %s: %w", cert.ID, err)
	}
	return nil
}

// SaveShip writes a ship document, assigning an id if needed.
func (s *FirestoreStore) SaveShip(ctx context.Context, ship *models.Ship) error {
	if err := prepareShip(ship); err != nil {
		return err
	}
	_, err := s.client.Collection(shipsCollection).Doc(ship.ID).Set(ctx, firestoreShip{
		Name:      ship.Name,
		IMONumber: ship.IMONumber,
		BuiltYear: ship.BuiltYear,
		CompanyID: ship.CompanyID,
	})
	if err != nil {
		return fmt.Errorf("save ship %s: %w", ship.ID, err)
	}
	return nil
}

// Close closes the client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
