package models

import "time"

// SurveyCategory buckets certificates by the survey regime that governs them.
type SurveyCategory string

const (
	CategorySOLASClass SurveyCategory = "SOLAS_CLASS"
	CategoryClass      SurveyCategory = "CLASS"
	CategoryLoadLine   SurveyCategory = "LOAD_LINE"
	CategoryISM        SurveyCategory = "ISM"
	CategoryISPS       SurveyCategory = "ISPS"
	CategoryMLC        SurveyCategory = "MLC"
	CategoryRadio      SurveyCategory = "RADIO"
	CategoryPollution  SurveyCategory = "POLLUTION"
	CategoryOther      SurveyCategory = "OTHER"
)

// SurveyType is the kind of inspection a certificate's next milestone represents.
type SurveyType string

const (
	SurveyInitial      SurveyType = "Initial"
	SurveyAnnual       SurveyType = "Annual"
	SurveyIntermediate SurveyType = "Intermediate"
	SurveySpecial      SurveyType = "Special"
	SurveyRenewal      SurveyType = "Renewal"
	SurveyAdditional   SurveyType = "Additional"
)

// CertificateMetrics are the month counts derived from a certificate's dates.
// A nil pointer means the input date was missing or unparseable.
type CertificateMetrics struct {
	CertID               string         `json:"cert_id,omitempty"`
	CertName             string         `json:"cert_name"`
	Category             SurveyCategory `json:"category"`
	CertType             CertType       `json:"cert_type,omitempty"`
	CertAgeMonths        *int           `json:"cert_age_months,omitempty"`
	TimeToExpiryMonths   *int           `json:"time_to_expiry_months,omitempty"`
	ValidityPeriodMonths *int           `json:"validity_period_months,omitempty"`
}

// SurveyAnalysis summarizes a ship's portfolio for survey determination.
type SurveyAnalysis struct {
	Categories            map[SurveyCategory][]CertificateMetrics `json:"categories"`
	FullTerm              []CertificateMetrics                    `json:"full_term"`
	Interim               []CertificateMetrics                    `json:"interim"`
	SpecialSurveyDue      bool                                    `json:"special_survey_due"`
	IntermediateSurveyDue bool                                    `json:"intermediate_survey_due"`
	AnnualSurveyDue       bool                                    `json:"annual_survey_due"`
	RenewalRequired       bool                                    `json:"renewal_required"`
	AnalyzedAt            time.Time                               `json:"analyzed_at"`
}

// SurveyDetermination is the decision for one certificate.
type SurveyDetermination struct {
	CertID     string     `json:"cert_id,omitempty"`
	CertName   string     `json:"cert_name"`
	SurveyType SurveyType `json:"survey_type"`
	Reasoning  string     `json:"reasoning"`
	DueDate    string     `json:"due_date,omitempty"`
	WindowFrom string     `json:"window_from,omitempty"`
	WindowTo   string     `json:"window_to,omitempty"`
}
