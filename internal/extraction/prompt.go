package extraction

import (
	"fmt"
	"path/filepath"
	"strings"

	"shipcerts/pkg/models"
)

// promptField is one entry of the target JSON object described to the model.
type promptField struct {
	name        string
	instruction string
}

// personField is the document-type specific key holding the inspecting person.
func personField(docType models.DocumentType) string {
	switch docType {
	case models.DocumentAuditCertificate:
		return "auditor_name"
	case models.DocumentTestReport:
		return "inspector_name"
	default:
		return "surveyor_name"
	}
}

const fullTextDates = "as printed, written in full-text form such as \"15 November 2024\"; do not convert to numbers"

func fieldsFor(docType models.DocumentType) []promptField {
	nameInstruction := "full certificate title exactly as printed, e.g. \"SAFETY MANAGEMENT CERTIFICATE\""
	numberInstruction := "certificate number exactly as printed"
	switch docType {
	case models.DocumentTestReport:
		nameInstruction = "title of the test report, e.g. \"LIFERAFT SERVICE REPORT\""
		numberInstruction = "report or service certificate number"
	case models.DocumentSurveyReport:
		nameInstruction = "title of the survey report, e.g. \"ANNUAL SURVEY REPORT\""
		numberInstruction = "report number"
	}

	fields := []promptField{
		{"cert_name", nameInstruction},
		{"cert_no", numberInstruction},
		{"cert_type", "one of: Full Term, Interim, Provisional, Short term, Conditional, Other"},
		{"issue_date", "date of issue, " + fullTextDates},
		{"valid_date", "expiry / valid until date, " + fullTextDates},
		{"last_endorse", "date of the most recent endorsement or annual verification, " + fullTextDates},
		{"next_survey", "date the next survey or audit is due, " + fullTextDates},
		{"next_survey_type", "one of: Initial, Intermediate, Renewal, Annual, Other"},
		{"issued_by", "issuing organization or flag administration, full name as printed"},
		{"ship_name", "name of the ship"},
		{"imo_number", "IMO number, 7 digits"},
		{personField(docType), "name of the person who signed or carried out the inspection"},
		{"notes", "conditions, remarks or limitations stated on the document"},
		{"confidence_score", "your confidence in the extraction, a number between 0 and 1"},
	}
	return fields
}

func documentLabel(docType models.DocumentType) string {
	switch docType {
	case models.DocumentCertificate:
		return "statutory or class ship certificate"
	case models.DocumentAuditCertificate:
		return "ship audit certificate (ISM, ISPS, MLC or crew accommodation inspection)"
	case models.DocumentTestReport:
		return "equipment test or service report"
	case models.DocumentSurveyReport:
		return "ship survey report"
	}
	return ""
}

const auditCategoryRules = `Audit category rules, apply in this order and stop at the first match:
1. If the document mentions "CREW ACCOMMODATION" the category is CICA.
2. If it mentions "SAFETY MANAGEMENT", "ISM" or "SMC" the category is ISM.
3. If it mentions "SHIP SECURITY", "ISPS" or "ISSC" the category is ISPS.
4. If it mentions "MARITIME LABOUR", "MLC" or "DMLC" the category is MLC.
Report the category in the "category" key (CICA, ISM, ISPS, MLC or null).`

const certificateRules = `Certificate rules:
- cert_type is Interim when the title or body says "Interim", Short term when it says "Short Term", otherwise Full Term for a standard five-year certificate.
- If several dates appear, issue_date is the date the certificate was issued, not an endorsement date.
- Endorsement boxes for annual or intermediate verification give last_endorse.`

// BuildPrompt creates the extraction prompt for a document. It returns an
// empty string when there is no text or the document type is unknown; the
// extractor treats that as a failure to extract.
func BuildPrompt(text, filename string, docType models.DocumentType) string {
	text = strings.TrimSpace(text)
	label := documentLabel(docType)
	if text == "" || label == "" {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Extract the fields of this %s and return a single JSON object.\n\n", label)

	if name := filepath.Base(filename); filename != "" && name != "." {
		fmt.Fprintf(&b, "File name (secondary hint only, prefer the document text): %s\n\n", name)
	}

	b.WriteString("JSON keys and instructions:\n")
	for _, f := range fieldsFor(docType) {
		fmt.Fprintf(&b, "- %q: %s\n", f.name, f.instruction)
	}
	if docType == models.DocumentAuditCertificate {
		b.WriteString("- \"category\": audit category, see rules below\n")
	}

	b.WriteString("\nGeneral rules:\n")
	b.WriteString("- Use null for any field not present on the document. Never guess.\n")
	b.WriteString("- Dates must be copied in full-text form (day, month name, year), never as numeric dates.\n")
	b.WriteString("- Return only the JSON object, without Markdown or commentary.\n\n")

	switch docType {
	case models.DocumentAuditCertificate:
		b.WriteString(auditCategoryRules)
		b.WriteString("\n\n")
	case models.DocumentCertificate:
		b.WriteString(certificateRules)
		b.WriteString("\n\n")
	}

	b.WriteString("Document text:\n<<<\n")
	b.WriteString(text)
	b.WriteString("\n>>>\n")
	return b.String()
}
