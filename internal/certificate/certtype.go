package certificate

import (
	"strings"

	"shipcerts/pkg/models"
)

// certTypeSynonyms is checked in order; the first substring hit wins.
var certTypeSynonyms = []struct {
	keyword  string
	certType models.CertType
}{
	{"full", models.CertTypeFullTerm},
	{"interim", models.CertTypeInterim},
	{"short", models.CertTypeShortTerm},
	{"provisional", models.CertTypeProvisional},
	{"conditional", models.CertTypeConditional},
}

// ValidateCertType maps a free-text certificate type to the closed set.
// Empty input stays empty; unknown non-empty input becomes Other.
func ValidateCertType(raw string) models.CertType {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return ""
	}

	for _, syn := range certTypeSynonyms {
		if strings.Contains(value, syn.keyword) {
			return syn.certType
		}
	}

	if value == strings.ToLower(string(models.CertTypeOther)) {
		return models.CertTypeOther
	}

	log := componentLog()
	log.Info().
		Str("raw", raw).
		Msg("Unknown certificate type, defaulting to Other")
	return models.CertTypeOther
}

// ValidateNextSurveyType maps a free-text survey type to the record enum.
func ValidateNextSurveyType(raw string) models.NextSurveyType {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case value == "":
		return ""
	case strings.Contains(value, "initial"):
		return models.NextSurveyInitial
	case strings.Contains(value, "intermediate"):
		return models.NextSurveyIntermediate
	case strings.Contains(value, "renewal"):
		return models.NextSurveyRenewal
	case strings.Contains(value, "annual"):
		return models.NextSurveyAnnual
	default:
		return models.NextSurveyOther
	}
}
