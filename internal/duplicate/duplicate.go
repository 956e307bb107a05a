// Package duplicate reports certificates already on file for a ship that a
// newly extracted record would duplicate.
package duplicate

import (
	"context"
	"fmt"

	"shipcerts/internal/certificate"
	"shipcerts/internal/logger"
	"shipcerts/pkg/models"
)

// comparedFields are the fields that must all match for a duplicate.
var comparedFields = []struct {
	name  string
	value func(r *models.CertificateRecord) string
}{
	{"cert_name", func(r *models.CertificateRecord) string { return r.CertName }},
	{"cert_type", func(r *models.CertificateRecord) string { return string(r.CertType) }},
	{"cert_no", func(r *models.CertificateRecord) string { return r.CertNo }},
	{"issue_date", func(r *models.CertificateRecord) string { return r.IssueDate }},
	{"valid_date", func(r *models.CertificateRecord) string { return r.ValidDate }},
	{"issued_by", func(r *models.CertificateRecord) string { return r.IssuedBy }},
}

// Match is one existing certificate compared against the candidate.
type Match struct {
	CertificateID   string   `json:"certificate_id"`
	Similarity      float64  `json:"similarity"`
	MatchedFields   []string `json:"matched_fields"`
	DifferingFields []string `json:"differing_fields,omitempty"`
}

// Report is the outcome of a duplicate check. Similarity is the best score
// seen, in percent. Matches holds only full matches.
type Report struct {
	IsDuplicate bool    `json:"is_duplicate"`
	Similarity  float64 `json:"similarity"`
	Matches     []Match `json:"matches"`
}

// Check compares candidate against the existing certificates of shipID.
// Records of other ships are skipped. Both sides are normalized the way
// extraction normalizes them before comparing; inputs are not modified.
func Check(shipID string, candidate models.CertificateRecord, existing []models.StoredCertificate) Report {
	cand := normalized(candidate)
	report := Report{Matches: []Match{}}

	for _, stored := range existing {
		if stored.ShipID != shipID {
			continue
		}
		other := normalized(stored.CertificateRecord)
		m := compare(&cand, &other)
		m.CertificateID = stored.ID

		if m.Similarity > report.Similarity {
			report.Similarity = m.Similarity
		}
		if len(m.DifferingFields) == 0 {
			report.IsDuplicate = true
			report.Matches = append(report.Matches, m)
		}
	}
	return report
}

func normalized(rec models.CertificateRecord) models.CertificateRecord {
	certificate.NormalizeRecord(&rec, models.DocumentCertificate)
	return rec
}

func compare(a, b *models.CertificateRecord) Match {
	var m Match
	for _, f := range comparedFields {
		if f.value(a) == f.value(b) {
			m.MatchedFields = append(m.MatchedFields, f.name)
		} else {
			m.DifferingFields = append(m.DifferingFields, f.name)
		}
	}
	m.Similarity = 100 * float64(len(m.MatchedFields)) / float64(len(comparedFields))
	return m
}

// Finder loads the certificates of a ship.
type Finder interface {
	FindCertificates(ctx context.Context, shipID string) ([]models.StoredCertificate, error)
}

// CheckShip loads the ship's certificates from the store and runs Check.
func CheckShip(ctx context.Context, store Finder, shipID string, candidate models.CertificateRecord) (Report, error) {
	log := logger.WithComponent("duplicate")

	existing, err := store.FindCertificates(ctx, shipID)
	if err != nil {
		return Report{}, fmt.Errorf("load certificates of ship %s: %w", shipID, err)
	}

	report := Check(shipID, candidate, existing)
	event := log.Debug()
	if report.IsDuplicate {
		event = log.Warn()
	}
	event.
		Str("ship_id", shipID).
		Str("cert_no", candidate.CertNo).
		Int("compared", len(existing)).
		Float64("similarity", report.Similarity).
		Bool("duplicate", report.IsDuplicate).
		Msg("Duplicate check completed")

	return report, nil
}
