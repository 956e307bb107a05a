package certificate

import (
	"path/filepath"
	"strings"

	"shipcerts/pkg/models"
)

type categoryKeywords struct {
	category models.AuditCategory
	keywords []string
}

// auditKeywords is scanned in order. Crew accommodation is checked first
// because those certificates also mention labour convention terms.
var auditKeywords = []categoryKeywords{
	{models.AuditCategoryCICA, []string{"CREW ACCOMMODATION", "CICA"}},
	{models.AuditCategoryISM, []string{"SAFETY MANAGEMENT", "ISM", "SMC"}},
	{models.AuditCategoryISPS, []string{"SHIP SECURITY", "ISPS", "ISSC"}},
	{models.AuditCategoryMLC, []string{"MARITIME LABOUR", "MARITIME LABOR", "MLC", "DMLC"}},
}

// auditAbbreviations links certificate codes to their audit family.
var auditAbbreviations = map[string]models.AuditCategory{
	"SMC":  models.AuditCategoryISM,
	"DOC":  models.AuditCategoryISM,
	"ISSC": models.AuditCategoryISPS,
	"MLC":  models.AuditCategoryMLC,
	"DMLC": models.AuditCategoryMLC,
	"CICA": models.AuditCategoryCICA,
}

// DetectCategory classifies a document into an audit family. The filename is
// checked first, then the certificate name, then the certificate title table.
func DetectCategory(filename, certName string) models.AuditCategory {
	if c := scanKeywords(filenameWords(filename)); c != models.AuditCategoryNone {
		return c
	}
	name := normalizeName(certName)
	if c := scanKeywords(name); c != models.AuditCategoryNone {
		return c
	}
	if short, ok := lookup(certificateAbbreviations, name); ok && name != "" {
		return auditAbbreviations[short]
	}
	return models.AuditCategoryNone
}

// ParseCategory reads a category reported by the model. Anything other than
// the four audit families yields AuditCategoryNone.
func ParseCategory(raw string) models.AuditCategory {
	switch c := models.AuditCategory(strings.ToUpper(strings.TrimSpace(raw))); c {
	case models.AuditCategoryISM, models.AuditCategoryISPS, models.AuditCategoryMLC, models.AuditCategoryCICA:
		return c
	}
	return models.AuditCategoryNone
}

func scanKeywords(text string) models.AuditCategory {
	if text == "" {
		return models.AuditCategoryNone
	}
	for _, group := range auditKeywords {
		for _, kw := range group.keywords {
			if containsPhrase(text, kw) {
				return group.category
			}
		}
	}
	return models.AuditCategoryNone
}

func filenameWords(filename string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(base)
	if base == "" {
		return ""
	}
	return normalizeName(base)
}
