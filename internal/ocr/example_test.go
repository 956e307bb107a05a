package ocr_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"shipcerts/internal/ocr"
	"shipcerts/internal/pdf"
)

// Example demonstrates OCR of a scanned certificate with Cloud Vision.
func Example() {
	// Load .env file (using godotenv in main)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	engine, err := ocr.NewVisionEngine(ctx)
	if err != nil {
		log.Fatalf("Failed to create OCR engine: %v", err)
	}
	defer engine.Close()

	data, err := os.ReadFile("scanned_certificate.pdf")
	if err != nil {
		log.Fatalf("Failed to read PDF: %v", err)
	}

	images, err := pdf.NewFitzInspector().RenderPages(ctx, data, pdf.DefaultRenderDPI)
	if err != nil {
		log.Fatalf("Failed to render pages: %v", err)
	}

	result, err := ocr.ExtractPages(ctx, engine, images, 1, 60*time.Second)
	if err != nil {
		log.Fatalf("Failed to OCR document: %v", err)
	}

	fmt.Printf("Pages: %d (failed: %d)\n", len(result.Pages), result.FailedPages)
	fmt.Printf("Extracted text:\n%s\n", result.Text)
}

// ExampleNewDocumentAIEngine demonstrates the Document AI OCR processor.
func ExampleNewDocumentAIEngine() {
	ctx := context.Background()

	engine, err := ocr.NewDocumentAIEngine(ctx, ocr.DocumentAIConfig{
		ProjectID:   os.Getenv("GOOGLE_CLOUD_PROJECT"),
		Location:    "eu",
		ProcessorID: os.Getenv("DOCUMENT_AI_PROCESSOR_ID"),
	})
	if err != nil {
		log.Fatalf("Failed to create Document AI engine: %v", err)
	}
	defer engine.Close()

	page, err := os.ReadFile("page_001.png")
	if err != nil {
		log.Fatalf("Failed to read page: %v", err)
	}

	text, err := engine.ExtractText(ctx, page)
	if err != nil {
		log.Fatalf("Failed to OCR page: %v", err)
	}
	fmt.Println(text)
}
