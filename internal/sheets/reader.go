package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shipcerts/pkg/models"
)

var ErrEmptySheet = errors.New("sheet is empty")

// ReadRange reads values from a range such as "Certificates!A:O".
func (s *Service) ReadRange(ctx context.Context, rangeSpec string) ([][]interface{}, error) {
	const op = "ReadRange"

	s.log.Debug().Str("range", rangeSpec).Msg("Reading range from spreadsheet")

	resp, err := s.sheetsService.Spreadsheets.Values.Get(s.spreadsheetID, rangeSpec).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read range %s: %w", op, rangeSpec, err)
	}

	s.log.Debug().
		Int("rows", len(resp.Values)).
		Str("range", rangeSpec).
		Msg("Successfully read range from spreadsheet")
	return resp.Values, nil
}

// ReadRegister reads the certificate records of a register sheet written by
// WriteResults. Rows that are not accepted or lack a name or number are
// skipped.
func (s *Service) ReadRegister(ctx context.Context, sheetName string) ([]models.CertificateRecord, error) {
	const op = "ReadRegister"

	values, err := s.ReadRange(ctx, sheetName+"!A:"+lastColumn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s: %s: %w", op, sheetName, ErrEmptySheet)
	}

	records := ParseRegister(values)
	s.log.Info().
		Int("total_rows", len(values)-1).
		Int("parsed_records", len(records)).
		Str("sheet", sheetName).
		Msg("Certificate register read successfully")
	return records, nil
}

// ParseRegister converts raw sheet values, header row first, to records.
func ParseRegister(values [][]interface{}) []models.CertificateRecord {
	if len(values) < 2 {
		return nil
	}

	var records []models.CertificateRecord
	for _, row := range values[1:] {
		status := getString(row, 1)
		if status != "" && status != "accepted" {
			continue
		}
		rec := parseRegisterRow(row)
		if !rec.HasRequiredFields() {
			continue
		}
		records = append(records, rec)
	}
	return records
}

func parseRegisterRow(row []interface{}) models.CertificateRecord {
	rec := models.CertificateRecord{
		CertName:         getString(row, 2),
		CertAbbreviation: getString(row, 3),
		CertNo:           getString(row, 4),
		CertType:         models.CertType(getString(row, 5)),
		IssueDate:        getString(row, 6),
		ValidDate:        getString(row, 7),
		LastEndorse:      getString(row, 8),
		IssuedBy:         getString(row, 10),
	}

	// "2026-01-15 (Intermediate)"
	next := getString(row, 9)
	if date, kind, ok := strings.Cut(next, " ("); ok {
		rec.NextSurvey = date
		rec.NextSurveyType = models.NextSurveyType(strings.TrimSuffix(kind, ")"))
	} else {
		rec.NextSurvey = next
	}
	return rec
}

func getString(row []interface{}, index int) string {
	if index >= len(row) || row[index] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%v", row[index]))
}
