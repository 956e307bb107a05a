package extraction_test

import (
	"context"
	"fmt"
	"strings"

	"shipcerts/internal/extraction"
	"shipcerts/pkg/models"
)

type cannedModel string

func (m cannedModel) Complete(ctx context.Context, prompt string) (string, error) {
	return string(m), nil
}

type onePage struct{}

func (onePage) Split(data []byte, filename string, maxPagesPerChunk int) ([]models.PDFChunk, error) {
	return []models.PDFChunk{{Content: data, ChunkNum: 1, PageRange: "1-1", StartPage: 1, EndPage: 1, PageCount: 1}}, nil
}

func (onePage) PageTexts(ctx context.Context, data []byte) ([]string, error) {
	return []string{strings.Repeat("INTERNATIONAL SHIP SECURITY CERTIFICATE ", 3)}, nil
}

func (onePage) RenderPages(ctx context.Context, data []byte, dpi float64) ([][]byte, error) {
	return nil, nil
}

func ExampleExtractor_Extract() {
	model := cannedModel(`{
		"cert_name": "International Ship Security Certificate",
		"cert_no": "ISSC-0457",
		"cert_type": "Full Term",
		"issue_date": "2 February 2024",
		"valid_date": "1 February 2029",
		"issued_by": "Lloyd's Register"
	}`)

	ex := extraction.NewExtractor(extraction.Dependencies{
		LLM:      model,
		Pages:    onePage{},
		Splitter: onePage{},
	}, extraction.Options{})

	res, err := ex.Extract(context.Background(), extraction.Document{
		Filename: "issc.pdf",
		Content:  []byte("%PDF-1.7"),
		Type:     models.DocumentAuditCertificate,
	})
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println(res.Status)
	fmt.Println(res.Record.CertAbbreviation, res.Record.CertNo)
	fmt.Println(res.Record.IssueDate, "to", res.Record.ValidDate)
	fmt.Println(res.Record.IssuedByAbbreviation, res.Category)
	// Output:
	// accepted
	// ISSC ISSC-0457
	// 2024-02-02 to 2029-02-01
	// LR ISPS
}
