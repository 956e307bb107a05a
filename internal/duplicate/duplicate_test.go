package duplicate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipcerts/pkg/models"
)

func iopp() models.CertificateRecord {
	return models.CertificateRecord{
		CertName:  "INTERNATIONAL OIL POLLUTION PREVENTION CERTIFICATE",
		CertType:  models.CertTypeFullTerm,
		CertNo:    "IOPP-2291",
		IssueDate: "2023-05-10",
		ValidDate: "2028-05-09",
		IssuedBy:  "Bureau Veritas",
	}
}

func stored(id, shipID string, rec models.CertificateRecord) models.StoredCertificate {
	return models.StoredCertificate{ID: id, ShipID: shipID, CertificateRecord: rec}
}

func TestCheckExactDuplicate(t *testing.T) {
	existing := []models.StoredCertificate{stored("c-1", "ship-1", iopp())}

	report := Check("ship-1", iopp(), existing)

	assert.True(t, report.IsDuplicate)
	assert.Equal(t, 100.0, report.Similarity)
	require.Len(t, report.Matches, 1)
	assert.Equal(t, "c-1", report.Matches[0].CertificateID)
	assert.Empty(t, report.Matches[0].DifferingFields)
}

func TestCheckOneFieldChangedIsNotDuplicate(t *testing.T) {
	mutations := map[string]func(r *models.CertificateRecord){
		"cert_name":  func(r *models.CertificateRecord) { r.CertName = "INTERNATIONAL AIR POLLUTION PREVENTION CERTIFICATE" },
		"cert_type":  func(r *models.CertificateRecord) { r.CertType = models.CertTypeInterim },
		"cert_no":    func(r *models.CertificateRecord) { r.CertNo = "IOPP-2292" },
		"issue_date": func(r *models.CertificateRecord) { r.IssueDate = "2023-05-11" },
		"valid_date": func(r *models.CertificateRecord) { r.ValidDate = "2028-05-10" },
		"issued_by":  func(r *models.CertificateRecord) { r.IssuedBy = "Bureau Veritas Marine" },
	}
	existing := []models.StoredCertificate{stored("c-1", "ship-1", iopp())}

	for field, mutate := range mutations {
		t.Run(field, func(t *testing.T) {
			candidate := iopp()
			mutate(&candidate)

			report := Check("ship-1", candidate, existing)

			assert.False(t, report.IsDuplicate)
			assert.InDelta(t, 100*5.0/6.0, report.Similarity, 1e-9)
			assert.Empty(t, report.Matches)
		})
	}
}

func TestCheckNormalizesBeforeComparing(t *testing.T) {
	candidate := iopp()
	candidate.CertName = "International Oil Pollution  Prevention Certificate"
	candidate.IssueDate = "10 May 2023"
	candidate.ValidDate = "9th May 2028"
	candidate.IssuedBy = " Bureau  Veritas "
	candidate.CertType = "full term"

	report := Check("ship-1", candidate, []models.StoredCertificate{stored("c-1", "ship-1", iopp())})
	assert.True(t, report.IsDuplicate)
}

func TestCheckIgnoresOtherShips(t *testing.T) {
	existing := []models.StoredCertificate{
		stored("c-1", "ship-2", iopp()),
		stored("c-2", "ship-3", iopp()),
	}

	report := Check("ship-1", iopp(), existing)

	assert.False(t, report.IsDuplicate)
	assert.Zero(t, report.Similarity)
	assert.Empty(t, report.Matches)
}

func TestCheckDoesNotModifyInputs(t *testing.T) {
	candidate := iopp()
	candidate.IssueDate = "10 May 2023"
	existing := []models.StoredCertificate{stored("c-1", "ship-1", iopp())}

	Check("ship-1", candidate, existing)

	assert.Equal(t, "10 May 2023", candidate.IssueDate)
}

type fakeFinder struct {
	certs []models.StoredCertificate
	err   error
}

func (f fakeFinder) FindCertificates(ctx context.Context, shipID string) ([]models.StoredCertificate, error) {
	return f.certs, f.err
}

func TestCheckShip(t *testing.T) {
	finder := fakeFinder{certs: []models.StoredCertificate{
		stored("c-1", "ship-1", iopp()),
		stored("c-9", "ship-1", iopp()),
	}}

	report, err := CheckShip(context.Background(), finder, "ship-1", iopp())
	require.NoError(t, err)
	assert.True(t, report.IsDuplicate)
	assert.Len(t, report.Matches, 2)

	_, err = CheckShip(context.Background(), fakeFinder{err: errors.New("db down")}, "ship-1", iopp())
	assert.ErrorContains(t, err, "db down")
}
