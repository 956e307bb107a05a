package extraction

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipcerts/pkg/models"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":"b"}`, `{"a":"b"}`},
		{"json fence", "```json\n{\"a\":\"b\"}\n```", `{"a":"b"}`},
		{"bare fence", "```\n{\"a\":\"b\"}\n```", `{"a":"b"}`},
		{"surrounding space", "  \n```json\n{}\n```\n ", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFences(tt.in))
		})
	}
}

func TestParseResponse(t *testing.T) {
	fields, err := ParseResponse(`{
		"cert_name": "  Document of Compliance ",
		"cert_no": 12345,
		"imo_number": "9123456",
		"next_survey": "null",
		"valid_date": null,
		"issued_by": "N/A",
		"confidence_score": 0.8,
		"flag_state_endorsed": true
	}`)
	require.NoError(t, err)

	assert.Equal(t, models.ExtractedFields{
		"cert_name":           "Document of Compliance",
		"cert_no":             "12345",
		"imo_number":          "9123456",
		"confidence_score":    "0.8",
		"flag_state_endorsed": "true",
	}, fields)
}

func TestParseResponseLists(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want models.ExtractedFields
	}{
		{
			name: "notes list joined",
			raw:  `{"cert_name": "SMC", "cert_no": "1", "notes": ["Condition A", "Condition B"]}`,
			want: models.ExtractedFields{"cert_name": "SMC", "cert_no": "1", "notes": "Condition A; Condition B"},
		},
		{
			name: "person list joined with commas",
			raw:  `{"cert_name": "SMC", "cert_no": "1", "auditor_name": ["R. Okafor", null, "L. Berg"]}`,
			want: models.ExtractedFields{"cert_name": "SMC", "cert_no": "1", "auditor_name": "R. Okafor, L. Berg"},
		},
		{
			name: "unknown nested object dropped",
			raw:  `{"cert_name": "SMC", "cert_no": "1", "ship": {"name": "NORDIC STAR"}}`,
			want: models.ExtractedFields{"cert_name": "SMC", "cert_no": "1"},
		},
		{
			name: "unknown list keeps scalars",
			raw:  `{"cert_name": "SMC", "cert_no": "1", "endorsements": ["2023", {"year": 2024}, 2025]}`,
			want: models.ExtractedFields{"cert_name": "SMC", "cert_no": "1", "endorsements": "2023; 2025"},
		},
		{
			name: "empty list dropped",
			raw:  `{"cert_name": "SMC", "cert_no": "1", "notes": []}`,
			want: models.ExtractedFields{"cert_name": "SMC", "cert_no": "1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, err := ParseResponse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, fields)
		})
	}
}

func TestParseResponseErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"empty", "", ErrEmptyResponse},
		{"empty fence", "```json\n```", ErrEmptyResponse},
		{"prose", "Sorry, I cannot help with that.", ErrDecodeFailed},
		{"array", `[{"cert_name": "X"}]`, ErrDecodeFailed},
		{"nested value", `{"cert_name": {"text": "X"}}`, ErrDecodeFailed},
		{"nested notes entry", `{"notes": [{"text": "X"}]}`, ErrDecodeFailed},
		{"wrong type", `{"issue_date": 20240101}`, ErrDecodeFailed},
		{"truncated", `{"cert_name": "X"`, ErrDecodeFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResponse(tt.raw)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRecordFromFields(t *testing.T) {
	fields := models.ExtractedFields{
		"cert_name":        "MARITIME LABOUR CERTIFICATE",
		"cert_no":          "MLC-7",
		"cert_type":        "Interim",
		"next_survey_type": "Intermediate",
		"auditor_name":     "R. Okafor",
		"surveyor_name":    "ignored",
		"confidence_score": "0.75",
	}

	rec := RecordFromFields(fields, models.DocumentAuditCertificate)
	assert.Equal(t, "MLC-7", rec.CertNo)
	assert.Equal(t, models.CertTypeInterim, rec.CertType)
	assert.Equal(t, models.NextSurveyIntermediate, rec.NextSurveyType)
	assert.Equal(t, "R. Okafor", rec.SurveyorName)
	assert.InDelta(t, 0.75, rec.ConfidenceScore, 1e-9)

	delete(fields, "auditor_name")
	rec = RecordFromFields(fields, models.DocumentAuditCertificate)
	assert.Equal(t, "ignored", rec.SurveyorName, "falls back to surveyor_name")

	rec = RecordFromFields(models.ExtractedFields{"confidence_score": "high"}, models.DocumentCertificate)
	assert.Zero(t, rec.ConfidenceScore)
}

func TestBuildPrompt(t *testing.T) {
	text := "SAFETY MANAGEMENT CERTIFICATE\nCertificate No. SMC-1"

	prompt := BuildPrompt(text, "/uploads/2024/SMC_NORDIC.pdf", models.DocumentAuditCertificate)
	assert.Contains(t, prompt, "ship audit certificate")
	assert.Contains(t, prompt, "SMC_NORDIC.pdf")
	assert.NotContains(t, prompt, "/uploads/2024")
	assert.Contains(t, prompt, `"auditor_name"`)
	assert.Contains(t, prompt, `"category"`)
	assert.Contains(t, prompt, "CREW ACCOMMODATION")
	assert.Contains(t, prompt, "<<<\n"+text+"\n>>>")

	// CICA is checked before the labour convention rule
	assert.Less(t, strings.Index(prompt, "CICA"), strings.Index(prompt, "MARITIME LABOUR"))
}

func TestBuildPromptPersonFieldPerType(t *testing.T) {
	tests := []struct {
		docType models.DocumentType
		want    string
		absent  string
	}{
		{models.DocumentCertificate, `"surveyor_name"`, `"auditor_name"`},
		{models.DocumentSurveyReport, `"surveyor_name"`, `"inspector_name"`},
		{models.DocumentTestReport, `"inspector_name"`, `"surveyor_name"`},
		{models.DocumentAuditCertificate, `"auditor_name"`, `"inspector_name"`},
	}
	for _, tt := range tests {
		t.Run(string(tt.docType), func(t *testing.T) {
			prompt := BuildPrompt("some text", "", tt.docType)
			assert.Contains(t, prompt, tt.want)
			assert.NotContains(t, prompt, tt.absent)
			assert.NotContains(t, prompt, "File name")
		})
	}
}

func TestBuildPromptEmpty(t *testing.T) {
	assert.Empty(t, BuildPrompt("   \n", "a.pdf", models.DocumentCertificate))
	assert.Empty(t, BuildPrompt("text", "a.pdf", models.DocumentType("invoice")))
}
