package survey

import (
	"strings"

	"shipcerts/pkg/models"
)

type categoryRule struct {
	phrase   string
	category models.SurveyCategory
}

// exactTitles are statutory certificate titles; a title found in the
// certificate name settles the category before any keyword heuristic.
var exactTitles = []categoryRule{
	{"CARGO SHIP SAFETY CONSTRUCTION", models.CategorySOLASClass},
	{"CARGO SHIP SAFETY EQUIPMENT", models.CategorySOLASClass},
	{"CARGO SHIP SAFETY RADIO", models.CategoryRadio},
	{"CARGO SHIP SAFETY CERTIFICATE", models.CategorySOLASClass},
	{"PASSENGER SHIP SAFETY", models.CategorySOLASClass},
	{"CLASSIFICATION CERTIFICATE", models.CategoryClass},
	{"CERTIFICATE OF CLASS", models.CategoryClass},
	{"INTERNATIONAL LOAD LINE", models.CategoryLoadLine},
	{"SAFETY MANAGEMENT CERTIFICATE", models.CategoryISM},
	{"DOCUMENT OF COMPLIANCE", models.CategoryISM},
	{"INTERNATIONAL SHIP SECURITY", models.CategoryISPS},
	{"MARITIME LABOUR CERTIFICATE", models.CategoryMLC},
	{"MARITIME LABOUR COMPLIANCE", models.CategoryMLC},
	{"INTERNATIONAL OIL POLLUTION PREVENTION", models.CategoryPollution},
	{"INTERNATIONAL AIR POLLUTION PREVENTION", models.CategoryPollution},
	{"INTERNATIONAL SEWAGE POLLUTION PREVENTION", models.CategoryPollution},
	{"BALLAST WATER MANAGEMENT", models.CategoryPollution},
}

// keywordRules are broader heuristics applied in order.
var keywordRules = []categoryRule{
	{"SAFETY CONSTRUCTION", models.CategorySOLASClass},
	{"SAFETY EQUIPMENT", models.CategorySOLASClass},
	{"SOLAS", models.CategorySOLASClass},
	{"CLASSIFICATION", models.CategoryClass},
	{"CLASS", models.CategoryClass},
	{"HULL", models.CategoryClass},
	{"MACHINERY", models.CategoryClass},
	{"LOAD LINE", models.CategoryLoadLine},
	{"LOADLINE", models.CategoryLoadLine},
	{"SAFETY MANAGEMENT", models.CategoryISM},
	{"ISM", models.CategoryISM},
	{"SHIP SECURITY", models.CategoryISPS},
	{"ISPS", models.CategoryISPS},
	{"ISSC", models.CategoryISPS},
	{"MARITIME LABOUR", models.CategoryMLC},
	{"MARITIME LABOR", models.CategoryMLC},
	{"MLC", models.CategoryMLC},
	{"CREW ACCOMMODATION", models.CategoryMLC},
	{"RADIO", models.CategoryRadio},
	{"GMDSS", models.CategoryRadio},
	{"POLLUTION", models.CategoryPollution},
	{"MARPOL", models.CategoryPollution},
	{"IOPP", models.CategoryPollution},
	{"SEWAGE", models.CategoryPollution},
	{"GARBAGE", models.CategoryPollution},
	{"BALLAST", models.CategoryPollution},
	{"ANTI-FOULING", models.CategoryPollution},
}

// Categorize buckets a certificate by name. Exact titles are tried before
// keywords and the first match wins.
func Categorize(certName string) models.SurveyCategory {
	name := strings.ToUpper(strings.Join(strings.Fields(certName), " "))
	if name == "" {
		return models.CategoryOther
	}
	for _, rule := range exactTitles {
		if strings.Contains(name, rule.phrase) {
			return rule.category
		}
	}
	for _, rule := range keywordRules {
		if containsWord(name, rule.phrase) {
			return rule.category
		}
	}
	return models.CategoryOther
}

// containsWord matches phrase on word boundaries so short acronyms do not
// fire inside longer words.
func containsWord(s, phrase string) bool {
	for idx := 0; idx <= len(s)-len(phrase); {
		i := strings.Index(s[idx:], phrase)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(phrase)
		if (start == 0 || !isAlnum(s[start-1])) && (end == len(s) || !isAlnum(s[end])) {
			return true
		}
		idx = start + 1
	}
	return false
}

func isAlnum(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
