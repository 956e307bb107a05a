package extraction

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"shipcerts/pkg/models"
)

var fencePattern = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\\n?(.*?)\\n?```$")

// StripCodeFences removes a Markdown code fence wrapped around the response.
func StripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

// responseSchema accepts one JSON object. Record fields are scalars; notes and
// person names may also be lists. Unknown keys may hold anything and are
// flattened or dropped by ParseResponse.
const responseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "cert_name":        {"type": ["string", "null"]},
    "cert_no":          {"type": ["string", "number", "null"]},
    "cert_type":        {"type": ["string", "null"]},
    "issue_date":       {"type": ["string", "null"]},
    "valid_date":       {"type": ["string", "null"]},
    "last_endorse":     {"type": ["string", "null"]},
    "next_survey":      {"type": ["string", "null"]},
    "next_survey_type": {"type": ["string", "null"]},
    "issued_by":        {"type": ["string", "null"]},
    "ship_name":        {"type": ["string", "null"]},
    "imo_number":       {"type": ["string", "number", "null"]},
    "confidence_score": {"type": ["number", "string", "null"]},
    "notes":            {"$ref": "#/definitions/textOrList"},
    "surveyor_name":    {"$ref": "#/definitions/textOrList"},
    "auditor_name":     {"$ref": "#/definitions/textOrList"},
    "inspector_name":   {"$ref": "#/definitions/textOrList"}
  },
  "additionalProperties": true,
  "definitions": {
    "textOrList": {
      "type": ["string", "array", "null"],
      "items": {"type": ["string", "number", "boolean", "null"]}
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("certificate_response.json", strings.NewReader(responseSchema)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile("certificate_response.json")
	})
	return schema, schemaErr
}

// nullStrings are textual placeholders models use for missing values.
var nullStrings = map[string]bool{"null": true, "none": true, "n/a": true, "": true}

// ParseResponse turns raw model output into field values: fences are
// stripped, the JSON is validated against the response schema, and every
// value is flattened to a string with nulls dropped.
func ParseResponse(raw string) (models.ExtractedFields, error) {
	body := StripCodeFences(raw)
	if body == "" {
		return nil, ErrEmptyResponse
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}

	sch, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return nil, fmt.Errorf("%w: json does not match schema: %v", ErrDecodeFailed, err)
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrDecodeFailed)
	}

	fields := make(models.ExtractedFields, len(obj))
	for key, value := range obj {
		s := flatten(key, value)
		if nullStrings[strings.ToLower(s)] {
			continue
		}
		fields[key] = s
	}
	return fields, nil
}

// listSeparators joins list values per key; other keys use "; ".
var listSeparators = map[string]string{
	"surveyor_name":  ", ",
	"auditor_name":   ", ",
	"inspector_name": ", ",
}

// flatten reduces a decoded value to one string. Lists are joined, nested
// objects are dropped.
func flatten(key string, v any) string {
	switch t := v.(type) {
	case map[string]any:
		return ""
	case []any:
		sep, ok := listSeparators[key]
		if !ok {
			sep = "; "
		}
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if _, nested := item.(map[string]any); nested {
				continue
			}
			if _, nested := item.([]any); nested {
				continue
			}
			if s := scalarString(item); !nullStrings[strings.ToLower(s)] {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, sep)
	default:
		return scalarString(v)
	}
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// RecordFromFields maps raw field values onto a record. The document type
// selects which person key fills surveyor_name.
func RecordFromFields(fields models.ExtractedFields, docType models.DocumentType) models.CertificateRecord {
	rec := models.CertificateRecord{
		CertName:       fields["cert_name"],
		CertNo:         fields["cert_no"],
		CertType:       models.CertType(fields["cert_type"]),
		IssueDate:      fields["issue_date"],
		ValidDate:      fields["valid_date"],
		LastEndorse:    fields["last_endorse"],
		NextSurvey:     fields["next_survey"],
		NextSurveyType: models.NextSurveyType(fields["next_survey_type"]),
		IssuedBy:       fields["issued_by"],
		ShipName:       fields["ship_name"],
		IMONumber:      fields["imo_number"],
		SurveyorName:   fields[personField(docType)],
		Notes:          fields["notes"],
	}
	if rec.SurveyorName == "" {
		rec.SurveyorName = fields["surveyor_name"]
	}
	if score, err := strconv.ParseFloat(fields["confidence_score"], 64); err == nil {
		rec.ConfidenceScore = score
	}
	return rec
}
