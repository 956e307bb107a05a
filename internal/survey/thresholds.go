package survey

import "fmt"

// Thresholds are the month and year limits used by the survey decision list
// and the portfolio flags. They encode informal readings of SOLAS/MLC survey
// windows and can be corrected through configuration.
type Thresholds struct {
	RenewalDueMonths         int `yaml:"renewal_due_months"`
	NewShipAgeYears          int `yaml:"new_ship_age_years"`
	InitialCertAgeMonths     int `yaml:"initial_cert_age_months"`
	SpecialValidityMonths    int `yaml:"special_validity_months"`
	IntermediateMinAgeMonths int `yaml:"intermediate_min_age_months"`
	IntermediateMaxAgeMonths int `yaml:"intermediate_max_age_months"`
	AnnualMinAgeMonths       int `yaml:"annual_min_age_months"`
	RenewalRequiredMonths    int `yaml:"renewal_required_months"`
	ClassAnnualMaxAgeMonths  int `yaml:"class_annual_max_age_months"`
	DueWindowMonths          int `yaml:"due_window_months"`
}

// DefaultThresholds returns the thresholds the decision list was written against.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RenewalDueMonths:         3,
		NewShipAgeYears:          1,
		InitialCertAgeMonths:     3,
		SpecialValidityMonths:    48,
		IntermediateMinAgeMonths: 18,
		IntermediateMaxAgeMonths: 42,
		AnnualMinAgeMonths:       10,
		RenewalRequiredMonths:    6,
		ClassAnnualMaxAgeMonths:  12,
		DueWindowMonths:          3,
	}
}

// Validate rejects negative values and an inverted intermediate window.
func (t Thresholds) Validate() error {
	values := map[string]int{
		"renewal_due_months":          t.RenewalDueMonths,
		"new_ship_age_years":          t.NewShipAgeYears,
		"initial_cert_age_months":     t.InitialCertAgeMonths,
		"special_validity_months":     t.SpecialValidityMonths,
		"intermediate_min_age_months": t.IntermediateMinAgeMonths,
		"intermediate_max_age_months": t.IntermediateMaxAgeMonths,
		"annual_min_age_months":       t.AnnualMinAgeMonths,
		"renewal_required_months":     t.RenewalRequiredMonths,
		"class_annual_max_age_months": t.ClassAnnualMaxAgeMonths,
		"due_window_months":           t.DueWindowMonths,
	}
	for name, v := range values {
		if v < 0 {
			return fmt.Errorf("survey.thresholds.%s must not be negative (got %d)", name, v)
		}
	}
	if t.IntermediateMinAgeMonths > t.IntermediateMaxAgeMonths {
		return fmt.Errorf("survey.thresholds: intermediate window %d-%d is inverted",
			t.IntermediateMinAgeMonths, t.IntermediateMaxAgeMonths)
	}
	return nil
}
