package survey

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipcerts/pkg/models"
)

var fixedNow = time.Date(2026, time.June, 15, 9, 30, 0, 0, time.UTC)

func newTestCalculator() *Calculator {
	return NewCalculator(DefaultThresholds(), WithClock(func() time.Time { return fixedNow }))
}

func cert(id, name string, certType models.CertType, issue, valid string) models.StoredCertificate {
	return models.StoredCertificate{
		ID:     id,
		ShipID: "ship-1",
		CertificateRecord: models.CertificateRecord{
			CertName:  name,
			CertType:  certType,
			IssueDate: issue,
			ValidDate: valid,
		},
	}
}

var establishedShip = models.Ship{ID: "ship-1", Name: "MV TEST", BuiltYear: 2010}

func TestMonthsBetween(t *testing.T) {
	d := func(s string) time.Time {
		v, err := time.Parse("2006-01-02", s)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, 1, monthsBetween(d("2024-01-15"), d("2024-03-14")))
	assert.Equal(t, 2, monthsBetween(d("2024-01-15"), d("2024-03-15")))
	assert.Equal(t, 60, monthsBetween(d("2022-04-15"), d("2027-04-15")))
	assert.Equal(t, -2, monthsBetween(d("2024-03-15"), d("2024-01-15")))
	assert.Equal(t, 0, monthsBetween(d("2024-03-15"), d("2024-03-15")))
}

func TestAddMonthsClampsToMonthEnd(t *testing.T) {
	jan31 := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), addMonths(jan31, 1))
	assert.Equal(t, time.Date(2023, time.October, 31, 0, 0, 0, 0, time.UTC), addMonths(jan31, -3))
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		want models.SurveyCategory
	}{
		{"CARGO SHIP SAFETY CONSTRUCTION CERTIFICATE", models.CategorySOLASClass},
		{"Cargo Ship Safety Radio Certificate", models.CategoryRadio},
		{"CLASSIFICATION CERTIFICATE", models.CategoryClass},
		{"Certificate of Class for Hull", models.CategoryClass},
		{"INTERNATIONAL LOAD LINE CERTIFICATE", models.CategoryLoadLine},
		{"SAFETY MANAGEMENT CERTIFICATE", models.CategoryISM},
		{"INTERNATIONAL SHIP SECURITY CERTIFICATE", models.CategoryISPS},
		{"MARITIME LABOUR CERTIFICATE", models.CategoryMLC},
		{"INTERNATIONAL OIL POLLUTION PREVENTION CERTIFICATE", models.CategoryPollution},
		{"GMDSS Shore Based Maintenance", models.CategoryRadio},
		{"Subclassification notes", models.CategoryOther},
		{"TONNAGE CERTIFICATE", models.CategoryOther},
		{"", models.CategoryOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Categorize(tt.name), "name %q", tt.name)
	}
}

func TestCycleFor(t *testing.T) {
	class := CycleFor(models.CategoryClass)
	assert.Equal(t, 60, class.FullCycleMonths())
	assert.Equal(t, 30, class.IntermediateMonths)
	assert.True(t, class.SpecialSurveyRequired)

	mlc := CycleFor(models.CategoryMLC)
	assert.Equal(t, 3, mlc.FullCycleYears)
	assert.Equal(t, 18, mlc.IntermediateMonths)
	assert.False(t, mlc.SpecialSurveyRequired)

	assert.False(t, CycleFor(models.CategoryOther).HasIntermediate())
	assert.Equal(t, CycleFor(models.CategoryOther), CycleFor("UNKNOWN"))
}

func TestAnalyzeFlags(t *testing.T) {
	calc := newTestCalculator()

	t.Run("full term class portfolio", func(t *testing.T) {
		a := calc.Analyze([]models.StoredCertificate{
			cert("c1", "CLASSIFICATION CERTIFICATE", models.CertTypeFullTerm, "2022-04-15", "2027-04-15"),
		})
		assert.True(t, a.SpecialSurveyDue)
		assert.False(t, a.IntermediateSurveyDue, "age 50 is outside 18-42")
		assert.True(t, a.AnnualSurveyDue)
		assert.False(t, a.RenewalRequired)
		require.Len(t, a.FullTerm, 1)
		require.NotNil(t, a.FullTerm[0].CertAgeMonths)
		assert.Equal(t, 50, *a.FullTerm[0].CertAgeMonths)
		assert.Len(t, a.Categories[models.CategoryClass], 1)
	})

	t.Run("interim certificates do not drive flags", func(t *testing.T) {
		a := calc.Analyze([]models.StoredCertificate{
			cert("c1", "CLASSIFICATION CERTIFICATE", models.CertTypeInterim, "2022-04-15", "2027-04-15"),
		})
		assert.False(t, a.SpecialSurveyDue)
		assert.False(t, a.AnnualSurveyDue)
		assert.Len(t, a.Interim, 1)
		assert.Empty(t, a.FullTerm)
	})

	t.Run("renewal from any type", func(t *testing.T) {
		a := calc.Analyze([]models.StoredCertificate{
			cert("c1", "TONNAGE CERTIFICATE", models.CertTypeShortTerm, "2026-01-01", "2026-11-20"),
		})
		assert.True(t, a.RenewalRequired)
	})

	t.Run("missing dates", func(t *testing.T) {
		a := calc.Analyze([]models.StoredCertificate{cert("c1", "SAFETY MANAGEMENT CERTIFICATE", models.CertTypeFullTerm, "", "")})
		m := a.FullTerm[0]
		assert.Nil(t, m.CertAgeMonths)
		assert.Nil(t, m.TimeToExpiryMonths)
		assert.Nil(t, m.ValidityPeriodMonths)
		assert.False(t, a.AnnualSurveyDue)
	})
}

func TestDetermine(t *testing.T) {
	calc := newTestCalculator()

	tests := []struct {
		name      string
		cert      models.StoredCertificate
		portfolio []models.StoredCertificate
		ship      models.Ship
		want      models.SurveyType
		reasoning string
	}{
		{
			name: "renewal when expiry is near",
			cert: cert("c1", "CLASSIFICATION CERTIFICATE", models.CertTypeFullTerm, "2021-08-01", "2026-08-01"),
			ship: establishedShip,
			want: models.SurveyRenewal, reasoning: "expires in 1 months",
		},
		{
			name: "new ship",
			cert: cert("c1", "CLASSIFICATION CERTIFICATE", models.CertTypeFullTerm, "2025-01-10", "2030-01-10"),
			ship: models.Ship{ID: "ship-1", BuiltYear: 2026},
			want: models.SurveyInitial, reasoning: "built in 2026",
		},
		{
			name: "recently issued certificate",
			cert: cert("c1", "SAFETY MANAGEMENT CERTIFICATE", models.CertTypeFullTerm, "2026-05-01", "2031-05-01"),
			ship: establishedShip,
			want: models.SurveyInitial, reasoning: "issued 1 months ago",
		},
		{
			name: "special survey for long class certificate",
			cert: cert("c1", "CLASSIFICATION CERTIFICATE", models.CertTypeFullTerm, "2022-04-15", "2027-04-15"),
			ship: establishedShip,
			want: models.SurveySpecial, reasoning: "60-month validity",
		},
		{
			name: "intermediate for mid-cycle full term",
			cert: cert("c1", "SAFETY MANAGEMENT CERTIFICATE", models.CertTypeFullTerm, "2024-06-15", "2029-06-15"),
			ship: establishedShip,
			want: models.SurveyIntermediate, reasoning: "aged 24 months",
		},
		{
			name: "annual once past ten months",
			cert: cert("c1", "INTERNATIONAL LOAD LINE CERTIFICATE", models.CertTypeFullTerm, "2025-06-15", "2030-06-15"),
			ship: establishedShip,
			want: models.SurveyAnnual, reasoning: "aged 12 months (>= 10)",
		},
		{
			name: "interim needs additional survey",
			cert: cert("c1", "INTERIM SAFETY MANAGEMENT CERTIFICATE", models.CertTypeInterim, "2026-01-15", "2026-12-15"),
			ship: establishedShip,
			want: models.SurveyAdditional, reasoning: "Interim",
		},
		{
			name: "class default intermediate when older than a year",
			cert: cert("c1", "CLASSIFICATION CERTIFICATE", models.CertTypeShortTerm, "2024-10-15", "2027-10-15"),
			ship: establishedShip,
			want: models.SurveyIntermediate, reasoning: "aged 20 months (>= 12)",
		},
		{
			name: "class default annual when young",
			cert: cert("c1", "CLASSIFICATION CERTIFICATE", models.CertTypeShortTerm, "2025-12-15", "2027-12-15"),
			ship: establishedShip,
			want: models.SurveyAnnual, reasoning: "aged 6 months",
		},
		{
			name: "security default annual",
			cert: cert("c1", "INTERNATIONAL SHIP SECURITY CERTIFICATE", models.CertTypeShortTerm, "2025-12-15", "2027-12-15"),
			ship: establishedShip,
			want: models.SurveyAnnual, reasoning: "annual verification",
		},
		{
			name: "labour default intermediate",
			cert: cert("c1", "MARITIME LABOUR CERTIFICATE", models.CertTypeShortTerm, "2025-12-15", "2027-12-15"),
			ship: establishedShip,
			want: models.SurveyIntermediate, reasoning: "intermediate inspection",
		},
		{
			name: "unknown dates fall through to default",
			cert: cert("c1", "TONNAGE CERTIFICATE", "", "", ""),
			ship: models.Ship{ID: "ship-1"},
			want: models.SurveyAnnual, reasoning: "aged unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			portfolio := tt.portfolio
			if portfolio == nil {
				portfolio = []models.StoredCertificate{tt.cert}
			}
			got, reasoning := calc.Determine(tt.cert, portfolio, tt.ship)
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, reasoning)
			assert.Contains(t, reasoning, tt.reasoning)
		})
	}
}

func TestDetermineIsDeterministic(t *testing.T) {
	calc := newTestCalculator()
	c := cert("c1", "CLASSIFICATION CERTIFICATE", models.CertTypeFullTerm, "2022-04-15", "2027-04-15")
	portfolio := []models.StoredCertificate{c}

	first, firstReason := calc.Determine(c, portfolio, establishedShip)
	for i := 0; i < 5; i++ {
		got, reason := calc.Determine(c, portfolio, establishedShip)
		assert.Equal(t, first, got)
		assert.Equal(t, firstReason, reason)
	}
	assert.Equal(t, models.SurveySpecial, first)
}

func TestDetermineUsesConfiguredThresholds(t *testing.T) {
	th := DefaultThresholds()
	th.RenewalDueMonths = 12
	calc := NewCalculator(th, WithClock(func() time.Time { return fixedNow }))

	c := cert("c1", "CLASSIFICATION CERTIFICATE", models.CertTypeFullTerm, "2022-04-15", "2027-04-15")
	got, reasoning := calc.Determine(c, []models.StoredCertificate{c}, establishedShip)
	assert.Equal(t, models.SurveyRenewal, got)
	assert.Contains(t, reasoning, "(<= 12)")
}

func TestNextDue(t *testing.T) {
	calc := newTestCalculator()
	format := func(w Window) [3]string {
		return [3]string{w.Due.Format("2006-01-02"), w.From.Format("2006-01-02"), w.To.Format("2006-01-02")}
	}

	t.Run("renewal", func(t *testing.T) {
		w, ok := calc.NextDue(cert("c1", "CLASSIFICATION CERTIFICATE", models.CertTypeFullTerm, "2021-08-01", "2026-08-01"), models.SurveyRenewal)
		require.True(t, ok)
		assert.Equal(t, [3]string{"2026-08-01", "2026-05-01", "2026-08-01"}, format(w))
	})

	t.Run("annual anniversary of future expiry", func(t *testing.T) {
		w, ok := calc.NextDue(cert("c1", "INTERNATIONAL LOAD LINE CERTIFICATE", models.CertTypeFullTerm, "2025-03-10", "2030-03-10"), models.SurveyAnnual)
		require.True(t, ok)
		assert.Equal(t, [3]string{"2027-03-10", "2026-12-10", "2027-06-10"}, format(w))
	})

	t.Run("annual anniversary later this year", func(t *testing.T) {
		w, ok := calc.NextDue(cert("c1", "INTERNATIONAL LOAD LINE CERTIFICATE", models.CertTypeFullTerm, "2025-09-01", "2030-09-01"), models.SurveyAnnual)
		require.True(t, ok)
		assert.Equal(t, "2026-09-01", w.Due.Format("2006-01-02"))
	})

	t.Run("intermediate at half cycle", func(t *testing.T) {
		w, ok := calc.NextDue(cert("c1", "SAFETY MANAGEMENT CERTIFICATE", models.CertTypeFullTerm, "2024-06-15", "2029-06-15"), models.SurveyIntermediate)
		require.True(t, ok)
		assert.Equal(t, [3]string{"2026-12-15", "2026-09-15", "2027-03-15"}, format(w))
	})

	t.Run("special at expiry", func(t *testing.T) {
		w, ok := calc.NextDue(cert("c1", "CLASSIFICATION CERTIFICATE", models.CertTypeFullTerm, "2022-04-15", "2027-04-15"), models.SurveySpecial)
		require.True(t, ok)
		assert.Equal(t, [3]string{"2027-04-15", "2027-01-15", "2027-04-15"}, format(w))
	})

	t.Run("event driven surveys have no window", func(t *testing.T) {
		c := cert("c1", "CLASSIFICATION CERTIFICATE", models.CertTypeFullTerm, "2022-04-15", "2027-04-15")
		_, ok := calc.NextDue(c, models.SurveyInitial)
		assert.False(t, ok)
		_, ok = calc.NextDue(c, models.SurveyAdditional)
		assert.False(t, ok)
	})

	t.Run("missing dates", func(t *testing.T) {
		_, ok := calc.NextDue(cert("c1", "CLASSIFICATION CERTIFICATE", models.CertTypeFullTerm, "", ""), models.SurveyRenewal)
		assert.False(t, ok)
	})
}

type fakePortfolio struct {
	ship  models.Ship
	certs []models.StoredCertificate
	err   error
}

func (f *fakePortfolio) FindCertificates(ctx context.Context, shipID string) ([]models.StoredCertificate, error) {
	return f.certs, f.err
}

func (f *fakePortfolio) GetShip(ctx context.Context, shipID string) (models.Ship, error) {
	return f.ship, nil
}

func TestDetermineAll(t *testing.T) {
	calc := newTestCalculator()
	store := &fakePortfolio{
		ship: establishedShip,
		certs: []models.StoredCertificate{
			cert("c1", "CLASSIFICATION CERTIFICATE", models.CertTypeFullTerm, "2022-04-15", "2027-04-15"),
			cert("c2", "INTERNATIONAL LOAD LINE CERTIFICATE", models.CertTypeFullTerm, "2021-08-01", "2026-08-01"),
		},
	}

	report, err := calc.DetermineAll(context.Background(), store, "ship-1")
	require.NoError(t, err)
	require.Len(t, report.Determinations, 2)

	assert.Equal(t, "c1", report.Determinations[0].CertID)
	assert.Equal(t, models.SurveySpecial, report.Determinations[0].SurveyType)
	assert.Equal(t, "2027-04-15", report.Determinations[0].DueDate)

	assert.Equal(t, models.SurveyRenewal, report.Determinations[1].SurveyType)
	assert.Equal(t, "2026-05-01", report.Determinations[1].WindowFrom)
	assert.True(t, report.Analysis.RenewalRequired)
}

func TestDetermineAllStoreError(t *testing.T) {
	calc := newTestCalculator()
	boom := errors.New("boom")
	_, err := calc.DetermineAll(context.Background(), &fakePortfolio{err: boom}, "ship-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestThresholdsValidate(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())

	th := DefaultThresholds()
	th.AnnualMinAgeMonths = -1
	assert.Error(t, th.Validate())

	th = DefaultThresholds()
	th.IntermediateMinAgeMonths = 50
	assert.Error(t, th.Validate())
}
