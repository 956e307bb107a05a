package survey

import "shipcerts/pkg/models"

// Cycle describes the survey regime of a certificate category.
type Cycle struct {
	FullCycleYears        int
	IntermediateMonths    int // 0 when the category has no intermediate survey
	AnnualRequired        bool
	SpecialSurveyRequired bool
}

// FullCycleMonths is the certificate cycle length in months.
func (c Cycle) FullCycleMonths() int {
	return c.FullCycleYears * 12
}

// HasIntermediate reports whether the category defines an intermediate interval.
func (c Cycle) HasIntermediate() bool {
	return c.IntermediateMonths > 0
}

func halfCycle(years int) int {
	return years * 12 / 2
}

var cycles = map[models.SurveyCategory]Cycle{
	models.CategorySOLASClass: {FullCycleYears: 5, IntermediateMonths: halfCycle(5), AnnualRequired: true, SpecialSurveyRequired: true},
	models.CategoryClass:      {FullCycleYears: 5, IntermediateMonths: halfCycle(5), AnnualRequired: true, SpecialSurveyRequired: true},
	models.CategoryLoadLine:   {FullCycleYears: 5, IntermediateMonths: halfCycle(5), AnnualRequired: true},
	models.CategoryISM:        {FullCycleYears: 5, IntermediateMonths: halfCycle(5), AnnualRequired: true},
	models.CategoryISPS:       {FullCycleYears: 5, IntermediateMonths: halfCycle(5)},
	models.CategoryMLC:        {FullCycleYears: 3, IntermediateMonths: halfCycle(3)},
	models.CategoryRadio:      {FullCycleYears: 5, IntermediateMonths: halfCycle(5), AnnualRequired: true},
	models.CategoryPollution:  {FullCycleYears: 5, IntermediateMonths: halfCycle(5), AnnualRequired: true},
	models.CategoryOther:      {FullCycleYears: 5},
}

// CycleFor returns the survey regime of a category; unknown categories get
// the OTHER regime.
func CycleFor(category models.SurveyCategory) Cycle {
	if c, ok := cycles[category]; ok {
		return c
	}
	return cycles[models.CategoryOther]
}
