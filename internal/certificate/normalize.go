package certificate

import (
	"fmt"
	"strings"

	"shipcerts/pkg/models"
)

// ValidationDowngrade records a field that failed a local validity check and
// was cleared or defaulted instead of failing the whole record.
type ValidationDowngrade struct {
	Field  string `json:"field"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// Error implements the error interface.
func (d *ValidationDowngrade) Error() string {
	return fmt.Sprintf("field %s downgraded: %s (value: %q)", d.Field, d.Reason, d.Value)
}

// NormalizeRecord applies the field normalizers in pipeline order: dates,
// certificate type, abbreviations, then the IMO number. It is idempotent.
func NormalizeRecord(rec *models.CertificateRecord, docType models.DocumentType) []*ValidationDowngrade {
	var downgrades []*ValidationDowngrade

	rec.CertName = strings.ToUpper(strings.Join(strings.Fields(rec.CertName), " "))
	rec.CertNo = strings.TrimSpace(rec.CertNo)
	rec.IssuedBy = strings.Join(strings.Fields(rec.IssuedBy), " ")
	rec.ShipName = strings.Join(strings.Fields(rec.ShipName), " ")
	rec.SurveyorName = strings.TrimSpace(rec.SurveyorName)
	rec.Notes = strings.TrimSpace(rec.Notes)

	dates := []struct {
		field string
		value *string
	}{
		{"issue_date", &rec.IssueDate},
		{"valid_date", &rec.ValidDate},
		{"last_endorse", &rec.LastEndorse},
		{"next_survey", &rec.NextSurvey},
	}
	for _, d := range dates {
		raw := *d.value
		normalized, ok := NormalizeDate(raw)
		if !ok && !noDateValues[strings.ToLower(strings.TrimSpace(raw))] {
			downgrades = append(downgrades, &ValidationDowngrade{Field: d.field, Value: raw, Reason: "unparseable date"})
		}
		*d.value = normalized
	}

	rawType := string(rec.CertType)
	rec.CertType = ValidateCertType(rawType)
	if rec.CertType == models.CertTypeOther && !strings.EqualFold(strings.TrimSpace(rawType), string(models.CertTypeOther)) {
		downgrades = append(downgrades, &ValidationDowngrade{Field: "cert_type", Value: rawType, Reason: "unknown certificate type, defaulted to Other"})
	}
	rec.NextSurveyType = ValidateNextSurveyType(string(rec.NextSurveyType))

	rec.CertAbbreviation = CertificateAbbreviation(rec.CertName, docType)
	rec.IssuedByAbbreviation = OrganizationAbbreviation(rec.IssuedBy)

	if rec.IMONumber != "" {
		raw := rec.IMONumber
		imo, ok := NormalizeIMO(raw)
		if !ok {
			downgrades = append(downgrades, &ValidationDowngrade{Field: "imo_number", Value: raw, Reason: "IMO number must have exactly 7 digits"})
		}
		rec.IMONumber = imo
	}

	if rec.ConfidenceScore < 0 {
		rec.ConfidenceScore = 0
	} else if rec.ConfidenceScore > 1 {
		rec.ConfidenceScore = 1
	}

	return downgrades
}
