package survey

import (
	"time"

	"shipcerts/internal/certificate"
	"shipcerts/pkg/models"
)

// Window is the due date of a survey and the range in which it may be held.
type Window struct {
	Due  time.Time
	From time.Time
	To   time.Time
}

// NextDue computes the due window for the given survey type. Initial and
// Additional surveys are event driven and have no calendar window; the
// second return value is false for them and when the dates needed are missing.
func (c *Calculator) NextDue(cert models.StoredCertificate, surveyType models.SurveyType) (Window, bool) {
	issue, hasIssue := certificate.ParseDate(cert.IssueDate)
	valid, hasValid := certificate.ParseDate(cert.ValidDate)
	window := c.thresholds.DueWindowMonths
	cycle := CycleFor(Categorize(cert.CertName))

	switch surveyType {
	case models.SurveyRenewal:
		if !hasValid {
			return Window{}, false
		}
		return Window{Due: valid, From: addMonths(valid, -c.thresholds.RenewalDueMonths), To: valid}, true

	case models.SurveyAnnual:
		anchor, ok := valid, hasValid
		if !ok {
			anchor, ok = issue, hasIssue
		}
		if !ok {
			return Window{}, false
		}
		due := nextAnniversary(anchor, c.today())
		return around(due, window), true

	case models.SurveyIntermediate:
		if !hasIssue {
			return Window{}, false
		}
		months := cycle.IntermediateMonths
		if months == 0 {
			months = halfCycle(cycle.FullCycleYears)
		}
		return around(addMonths(issue, months), window), true

	case models.SurveySpecial:
		var due time.Time
		switch {
		case hasValid:
			due = valid
		case hasIssue:
			due = addMonths(issue, cycle.FullCycleMonths())
		default:
			return Window{}, false
		}
		return Window{Due: due, From: addMonths(due, -window), To: due}, true
	}

	return Window{}, false
}

// Evaluate determines the survey type for a certificate and attaches its
// next-due window when one applies.
func (c *Calculator) Evaluate(cert models.StoredCertificate, analysis models.SurveyAnalysis, ship models.Ship) models.SurveyDetermination {
	surveyType, reasoning := c.determineWith(cert, analysis, ship)
	det := models.SurveyDetermination{
		CertID:     cert.ID,
		CertName:   cert.CertName,
		SurveyType: surveyType,
		Reasoning:  reasoning,
	}
	if w, ok := c.NextDue(cert, surveyType); ok {
		det.DueDate = w.Due.Format(certificate.DateLayout)
		det.WindowFrom = w.From.Format(certificate.DateLayout)
		det.WindowTo = w.To.Format(certificate.DateLayout)
	}
	return det
}

func around(due time.Time, months int) Window {
	return Window{Due: due, From: addMonths(due, -months), To: addMonths(due, months)}
}

// nextAnniversary returns the first anniversary of anchor on or after
// today. Anchors in the future count backwards to the current year.
func nextAnniversary(anchor, today time.Time) time.Time {
	years := today.Year() - anchor.Year()
	due := addMonths(anchor, years*12)
	if due.Before(today) {
		due = addMonths(anchor, (years+1)*12)
	}
	return due
}

// addMonths moves t by n calendar months, clamping to the last day of the
// target month instead of overflowing the way time.AddDate does.
func addMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	last := first.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}
