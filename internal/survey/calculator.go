// Package survey determines which regulatory survey applies to a certificate
// from its dates, its category and the owning ship's certificate portfolio.
package survey

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"shipcerts/internal/certificate"
	"shipcerts/internal/logger"
	"shipcerts/pkg/models"
)

// Calculator is stateless apart from its thresholds and clock; every call
// recomputes the portfolio analysis from the certificates passed in.
type Calculator struct {
	thresholds Thresholds
	now        func() time.Time
	log        zerolog.Logger
}

// Option customizes a Calculator.
type Option func(*Calculator)

// WithClock overrides the reference time used for ages and expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) {
		c.now = now
	}
}

// NewCalculator creates a calculator with the given thresholds.
func NewCalculator(thresholds Thresholds, opts ...Option) *Calculator {
	c := &Calculator{
		thresholds: thresholds,
		now:        time.Now,
		log:        logger.WithComponent("survey"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Metrics computes the month counts of one certificate relative to now.
func (c *Calculator) Metrics(cert models.StoredCertificate) models.CertificateMetrics {
	now := c.today()
	m := models.CertificateMetrics{
		CertID:   cert.ID,
		CertName: cert.CertName,
		Category: Categorize(cert.CertName),
		CertType: certificate.ValidateCertType(string(cert.CertType)),
	}

	issue, hasIssue := certificate.ParseDate(cert.IssueDate)
	valid, hasValid := certificate.ParseDate(cert.ValidDate)

	if hasIssue {
		age := monthsBetween(issue, now)
		m.CertAgeMonths = &age
	}
	if hasValid {
		expiry := monthsBetween(now, valid)
		m.TimeToExpiryMonths = &expiry
	}
	if hasIssue && hasValid {
		validity := monthsBetween(issue, valid)
		m.ValidityPeriodMonths = &validity
	}
	return m
}

// Analyze buckets a ship's certificates and sets the portfolio survey flags.
// Only Full Term certificates drive the special, intermediate and annual
// flags; renewal looks at every certificate.
func (c *Calculator) Analyze(certs []models.StoredCertificate) models.SurveyAnalysis {
	t := c.thresholds
	analysis := models.SurveyAnalysis{
		Categories: make(map[models.SurveyCategory][]models.CertificateMetrics),
		AnalyzedAt: c.now(),
	}

	for _, cert := range certs {
		m := c.Metrics(cert)
		analysis.Categories[m.Category] = append(analysis.Categories[m.Category], m)

		switch m.CertType {
		case models.CertTypeFullTerm:
			analysis.FullTerm = append(analysis.FullTerm, m)
		case models.CertTypeInterim:
			analysis.Interim = append(analysis.Interim, m)
		}

		if m.TimeToExpiryMonths != nil && *m.TimeToExpiryMonths <= t.RenewalRequiredMonths {
			analysis.RenewalRequired = true
		}
	}

	for _, m := range analysis.FullTerm {
		cycle := CycleFor(m.Category)
		if cycle.SpecialSurveyRequired && m.ValidityPeriodMonths != nil && *m.ValidityPeriodMonths >= t.SpecialValidityMonths {
			analysis.SpecialSurveyDue = true
		}
		if cycle.HasIntermediate() && m.CertAgeMonths != nil &&
			*m.CertAgeMonths >= t.IntermediateMinAgeMonths && *m.CertAgeMonths <= t.IntermediateMaxAgeMonths {
			analysis.IntermediateSurveyDue = true
		}
		if cycle.AnnualRequired && m.CertAgeMonths != nil && *m.CertAgeMonths >= t.AnnualMinAgeMonths {
			analysis.AnnualSurveyDue = true
		}
	}

	c.log.Debug().
		Int("certificates", len(certs)).
		Int("full_term", len(analysis.FullTerm)).
		Int("interim", len(analysis.Interim)).
		Bool("special_survey_due", analysis.SpecialSurveyDue).
		Bool("intermediate_survey_due", analysis.IntermediateSurveyDue).
		Bool("annual_survey_due", analysis.AnnualSurveyDue).
		Bool("renewal_required", analysis.RenewalRequired).
		Msg("Portfolio analyzed")

	return analysis
}

// Determine runs the ordered decision list for one certificate against the
// ship's portfolio. The first matching rule wins and the reasoning names the
// numbers that triggered it.
func (c *Calculator) Determine(cert models.StoredCertificate, shipCerts []models.StoredCertificate, ship models.Ship) (models.SurveyType, string) {
	analysis := c.Analyze(shipCerts)
	return c.determineWith(cert, analysis, ship)
}

func (c *Calculator) determineWith(cert models.StoredCertificate, analysis models.SurveyAnalysis, ship models.Ship) (models.SurveyType, string) {
	t := c.thresholds
	m := c.Metrics(cert)
	age := m.CertAgeMonths
	validity := m.ValidityPeriodMonths
	fullTerm := m.CertType == models.CertTypeFullTerm

	if exp := m.TimeToExpiryMonths; exp != nil && *exp <= t.RenewalDueMonths {
		return models.SurveyRenewal, fmt.Sprintf(
			"certificate expires in %d months (<= %d), renewal survey required", *exp, t.RenewalDueMonths)
	}

	if ship.BuiltYear > 0 {
		shipAge := c.now().Year() - ship.BuiltYear
		if shipAge < t.NewShipAgeYears {
			return models.SurveyInitial, fmt.Sprintf(
				"ship built in %d is %d years old (< %d), initial survey", ship.BuiltYear, shipAge, t.NewShipAgeYears)
		}
	}

	if age != nil && *age < t.InitialCertAgeMonths {
		return models.SurveyInitial, fmt.Sprintf(
			"certificate issued %d months ago (< %d), initial survey", *age, t.InitialCertAgeMonths)
	}

	if fullTerm && validity != nil && *validity >= t.SpecialValidityMonths &&
		(m.Category == models.CategorySOLASClass || m.Category == models.CategoryClass) &&
		analysis.SpecialSurveyDue {
		return models.SurveySpecial, fmt.Sprintf(
			"Full Term %s certificate with %d-month validity (>= %d) and special survey due in the ship portfolio",
			m.Category, *validity, t.SpecialValidityMonths)
	}

	if age != nil && *age >= t.IntermediateMinAgeMonths && *age <= t.IntermediateMaxAgeMonths &&
		fullTerm && analysis.IntermediateSurveyDue {
		return models.SurveyIntermediate, fmt.Sprintf(
			"Full Term certificate aged %d months (within %d-%d) and intermediate survey due in the ship portfolio",
			*age, t.IntermediateMinAgeMonths, t.IntermediateMaxAgeMonths)
	}

	if age != nil && *age >= t.AnnualMinAgeMonths && analysis.AnnualSurveyDue {
		return models.SurveyAnnual, fmt.Sprintf(
			"certificate aged %d months (>= %d) and annual survey due in the ship portfolio", *age, t.AnnualMinAgeMonths)
	}

	if m.CertType == models.CertTypeInterim {
		return models.SurveyAdditional, "Interim certificate, additional survey required before Full Term issuance"
	}

	return c.categoryDefault(m)
}

func (c *Calculator) categoryDefault(m models.CertificateMetrics) (models.SurveyType, string) {
	ageText := "unknown"
	if m.CertAgeMonths != nil {
		ageText = fmt.Sprintf("%d months", *m.CertAgeMonths)
	}

	switch m.Category {
	case models.CategorySOLASClass, models.CategoryClass:
		limit := c.thresholds.ClassAnnualMaxAgeMonths
		if m.CertAgeMonths != nil && *m.CertAgeMonths >= limit {
			return models.SurveyIntermediate, fmt.Sprintf(
				"%s certificate aged %s (>= %d), default intermediate survey", m.Category, ageText, limit)
		}
		return models.SurveyAnnual, fmt.Sprintf(
			"%s certificate aged %s (< %d or unknown), default annual survey", m.Category, ageText, limit)
	case models.CategoryISM, models.CategoryISPS:
		return models.SurveyAnnual, fmt.Sprintf(
			"%s certificate aged %s, default annual verification", m.Category, ageText)
	case models.CategoryMLC:
		return models.SurveyIntermediate, fmt.Sprintf(
			"MLC certificate aged %s, default intermediate inspection", ageText)
	default:
		return models.SurveyAnnual, fmt.Sprintf(
			"%s certificate aged %s, default annual survey", m.Category, ageText)
	}
}

func (c *Calculator) today() time.Time {
	now := c.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// monthsBetween counts whole calendar months from a to b; negative when b is before a.
func monthsBetween(a, b time.Time) int {
	if b.Before(a) {
		return -monthsBetween(b, a)
	}
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	if b.Day() < a.Day() {
		months--
	}
	return months
}
