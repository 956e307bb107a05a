package models

import "time"

// CertType is the validity class printed on a certificate.
type CertType string

const (
	CertTypeFullTerm    CertType = "Full Term"
	CertTypeInterim     CertType = "Interim"
	CertTypeProvisional CertType = "Provisional"
	CertTypeShortTerm   CertType = "Short term"
	CertTypeConditional CertType = "Conditional"
	CertTypeOther       CertType = "Other"
)

// NextSurveyType is the survey kind as printed on, or extracted from, a certificate.
type NextSurveyType string

const (
	NextSurveyInitial      NextSurveyType = "Initial"
	NextSurveyIntermediate NextSurveyType = "Intermediate"
	NextSurveyRenewal      NextSurveyType = "Renewal"
	NextSurveyAnnual       NextSurveyType = "Annual"
	NextSurveyOther        NextSurveyType = "Other"
)

// DocumentType selects the extraction prompt and the merge field table.
type DocumentType string

const (
	DocumentCertificate      DocumentType = "certificate"
	DocumentAuditCertificate DocumentType = "audit_certificate"
	DocumentTestReport       DocumentType = "test_report"
	DocumentSurveyReport     DocumentType = "survey_report"
)

// Valid reports whether t is one of the known document types.
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentCertificate, DocumentAuditCertificate, DocumentTestReport, DocumentSurveyReport:
		return true
	}
	return false
}

// AuditCategory is the regulatory audit family detected during extraction.
// It travels next to a record, never inside it.
type AuditCategory string

const (
	AuditCategoryNone AuditCategory = ""
	AuditCategoryISM  AuditCategory = "ISM"
	AuditCategoryISPS AuditCategory = "ISPS"
	AuditCategoryMLC  AuditCategory = "MLC"
	AuditCategoryCICA AuditCategory = "CICA"
)

// CertificateRecord is the structured result of extracting one certificate file.
// An empty string means the field is absent.
type CertificateRecord struct {
	CertName             string         `json:"cert_name,omitempty"`
	CertAbbreviation     string         `json:"cert_abbreviation,omitempty"`
	CertNo               string         `json:"cert_no,omitempty"`
	CertType             CertType       `json:"cert_type,omitempty"`
	IssueDate            string         `json:"issue_date,omitempty"`
	ValidDate            string         `json:"valid_date,omitempty"`
	LastEndorse          string         `json:"last_endorse,omitempty"`
	NextSurvey           string         `json:"next_survey,omitempty"`
	NextSurveyType       NextSurveyType `json:"next_survey_type,omitempty"`
	IssuedBy             string         `json:"issued_by,omitempty"`
	IssuedByAbbreviation string         `json:"issued_by_abbreviation,omitempty"`
	ShipName             string         `json:"ship_name,omitempty"`
	IMONumber            string         `json:"imo_number,omitempty"`
	SurveyorName         string         `json:"surveyor_name,omitempty"`
	Notes                string         `json:"notes,omitempty"`
	ConfidenceScore      float64        `json:"confidence_score"`
}

// HasRequiredFields reports whether the record carries a name and a number.
func (r *CertificateRecord) HasRequiredFields() bool {
	return r.CertName != "" && r.CertNo != ""
}

// StoredCertificate is a certificate as held by the persistence layer.
type StoredCertificate struct {
	ID        string    `json:"id"`
	ShipID    string    `json:"ship_id"`
	CompanyID string    `json:"company_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	CertificateRecord
}

// Ship is the owner of a certificate portfolio.
type Ship struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IMONumber string `json:"imo_number,omitempty"`
	BuiltYear int    `json:"built_year,omitempty"` // 0 when unknown
	CompanyID string `json:"company_id,omitempty"`
}
