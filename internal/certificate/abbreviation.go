package certificate

import (
	"strings"
	"unicode"

	"shipcerts/pkg/models"
)

type abbreviation struct {
	name  string
	short string
}

// certificateAbbreviations maps statutory certificate titles to their codes.
// More specific titles come before titles they contain.
var certificateAbbreviations = []abbreviation{
	{"CARGO SHIP SAFETY CONSTRUCTION CERTIFICATE", "CSSC"},
	{"CARGO SHIP SAFETY EQUIPMENT CERTIFICATE", "CSSE"},
	{"CARGO SHIP SAFETY RADIO CERTIFICATE", "CSSR"},
	{"CARGO SHIP SAFETY CERTIFICATE", "CSC"},
	{"PASSENGER SHIP SAFETY CERTIFICATE", "PSSC"},
	{"INTERNATIONAL LOAD LINE CERTIFICATE", "ILL"},
	{"INTERNATIONAL OIL POLLUTION PREVENTION CERTIFICATE", "IOPP"},
	{"INTERNATIONAL AIR POLLUTION PREVENTION CERTIFICATE", "IAPP"},
	{"INTERNATIONAL SEWAGE POLLUTION PREVENTION CERTIFICATE", "ISPP"},
	{"INTERNATIONAL ENERGY EFFICIENCY CERTIFICATE", "IEEC"},
	{"INTERNATIONAL ANTI-FOULING SYSTEM CERTIFICATE", "IAFS"},
	{"INTERNATIONAL TONNAGE CERTIFICATE", "ITC"},
	{"INTERNATIONAL SHIP SECURITY CERTIFICATE", "ISSC"},
	{"BALLAST WATER MANAGEMENT CERTIFICATE", "BWMC"},
	{"SAFETY MANAGEMENT CERTIFICATE", "SMC"},
	{"DOCUMENT OF COMPLIANCE", "DOC"},
	{"DECLARATION OF MARITIME LABOUR COMPLIANCE", "DMLC"},
	{"MARITIME LABOUR CERTIFICATE", "MLC"},
	{"CERTIFICATE OF INSPECTION", "CICA"},
	{"CREW ACCOMMODATION", "CICA"},
	{"MINIMUM SAFE MANNING DOCUMENT", "MSMD"},
	{"CONTINUOUS SYNOPSIS RECORD", "CSR"},
	{"CERTIFICATE OF REGISTRY", "COR"},
	{"CIVIL LIABILITY", "CLC"},
	{"CLASSIFICATION CERTIFICATE", "CLASS"},
	{"CERTIFICATE OF CLASS", "CLASS"},
}

// organizationAbbreviations maps classification societies and flag
// administrations to the codes used on certificate lists.
var organizationAbbreviations = []abbreviation{
	{"BUREAU VERITAS", "BV"},
	{"LLOYD'S REGISTER", "LR"},
	{"LLOYDS REGISTER", "LR"},
	{"DET NORSKE VERITAS", "DNV"},
	{"DNV", "DNV"},
	{"AMERICAN BUREAU OF SHIPPING", "ABS"},
	{"NIPPON KAIJI KYOKAI", "NK"},
	{"CLASSNK", "NK"},
	{"KOREAN REGISTER", "KR"},
	{"CHINA CLASSIFICATION SOCIETY", "CCS"},
	{"REGISTRO ITALIANO NAVALE", "RINA"},
	{"RINA", "RINA"},
	{"INDIAN REGISTER OF SHIPPING", "IRS"},
	{"POLISH REGISTER OF SHIPPING", "PRS"},
	{"CROATIAN REGISTER OF SHIPPING", "CRS"},
	{"RUSSIAN MARITIME REGISTER OF SHIPPING", "RS"},
	{"VIETNAM REGISTER", "VR"},
	{"PANAMA MARITIME AUTHORITY", "PMA"},
	{"LIBERIAN INTERNATIONAL SHIP", "LISCR"},
	{"REPUBLIC OF THE MARSHALL ISLANDS", "RMI"},
	{"MARSHALL ISLANDS MARITIME", "RMI"},
	{"MARITIME AND PORT AUTHORITY OF SINGAPORE", "MPA"},
	{"BAHAMAS MARITIME AUTHORITY", "BMA"},
	{"HONG KONG MARINE DEPARTMENT", "HKMD"},
	{"TRANSPORT MALTA", "TM"},
}

// organizationFillers are skipped when deriving an issuer code from initials.
var organizationFillers = map[string]bool{
	"OF": true, "THE": true, "AND": true, "&": true, "FOR": true, "DE": true, "DU": true,
}

// minReverseMatchLen keeps very short names from matching inside long titles.
const minReverseMatchLen = 10

// CertificateAbbreviation derives the short code for a certificate name.
// Reports skip the statutory title table.
func CertificateAbbreviation(certName string, docType models.DocumentType) string {
	name := normalizeName(certName)
	if name == "" {
		return ""
	}

	if docType != models.DocumentTestReport && docType != models.DocumentSurveyReport {
		if short, ok := lookup(certificateAbbreviations, name); ok {
			return short
		}
	}

	words := splitWords(name)
	switch {
	case len(words) >= 2:
		return initials(words, 4)
	case len(words) == 1:
		return truncate(words[0], 3)
	default:
		return ""
	}
}

// OrganizationAbbreviation derives the short code for an issuing authority.
func OrganizationAbbreviation(issuedBy string) string {
	name := normalizeName(issuedBy)
	if name == "" {
		return ""
	}

	if short, ok := lookup(organizationAbbreviations, name); ok {
		return short
	}

	var words []string
	for _, w := range splitWords(name) {
		if !organizationFillers[w] {
			words = append(words, w)
		}
	}
	switch {
	case len(words) >= 2:
		return initials(words, 4)
	case len(words) == 1 && len(words[0]) <= 4:
		return words[0]
	case len(words) == 1:
		return truncate(words[0], 3)
	default:
		return ""
	}
}

func lookup(table []abbreviation, name string) (string, bool) {
	for _, entry := range table {
		if containsPhrase(name, entry.name) {
			return entry.short, true
		}
	}
	for _, entry := range table {
		if len(name) >= minReverseMatchLen && strings.Contains(entry.name, name) {
			return entry.short, true
		}
	}
	return "", false
}

// containsPhrase reports whether phrase occurs in s on word boundaries.
func containsPhrase(s, phrase string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], phrase)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(phrase)
		if (start == 0 || !isWordRune(rune(s[start-1]))) && (end == len(s) || !isWordRune(rune(s[end]))) {
			return true
		}
		idx = start + 1
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func normalizeName(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer("’", "'", "`", "'").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '&' || r == '\'')
	})
}

func initials(words []string, max int) string {
	var b strings.Builder
	for _, w := range words {
		for _, r := range w {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				b.WriteRune(unicode.ToUpper(r))
				break
			}
		}
		if b.Len() >= max {
			break
		}
	}
	return b.String()
}

func truncate(word string, n int) string {
	runes := []rune(strings.ToUpper(word))
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes)
}
