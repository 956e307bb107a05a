package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// VisionEngine implements Engine using Google Cloud Vision document text detection.
type VisionEngine struct {
	client *vision.ImageAnnotatorClient
}

// credentialOptions reads GOOGLE_CREDENTIALS or GOOGLE_APPLICATION_CREDENTIALS.
func credentialOptions() []option.ClientOption {
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(credJSON))}
	}
	if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		return []option.ClientOption{option.WithCredentialsFile(credFile)}
	}
	return nil
}

// NewVisionEngine creates a Vision engine with credentials from environment.
// It expects either GOOGLE_APPLICATION_CREDENTIALS path or GOOGLE_CREDENTIALS JSON in env
// and falls back to application default credentials.
func NewVisionEngine(ctx context.Context) (*VisionEngine, error) {
	const op = "NewVisionEngine"

	opts := credentialOptions()
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		if len(opts) == 0 {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapOCRError(op, err, "failed to create Vision client")
	}

	return &VisionEngine{client: client}, nil
}

// NewVisionEngineWithClient creates an engine with an explicit client (for testing).
func NewVisionEngineWithClient(client *vision.ImageAnnotatorClient) *VisionEngine {
	return &VisionEngine{client: client}
}

// ExtractText runs document text detection on one page image.
func (v *VisionEngine) ExtractText(ctx context.Context, image []byte) (string, error) {
	const op = "ExtractText"

	if err := validateImage(image); err != nil {
		return "", WrapOCRError(op, err, fmt.Sprintf("image size: %d bytes", len(image)))
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: image},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return "", classifyError(op, err)
	}
	if len(resp.Responses) == 0 {
		return "", WrapOCRError(op, ErrOCRFailed, "no response from Vision API")
	}

	page := resp.Responses[0]
	if page.Error != nil {
		return "", WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API error: %s", page.Error.Message))
	}
	if page.FullTextAnnotation == nil {
		return "", nil
	}
	return page.FullTextAnnotation.Text, nil
}

// Close closes the underlying Vision client.
func (v *VisionEngine) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}

func validateImage(image []byte) error {
	if len(image) == 0 {
		return ErrInvalidImage
	}
	if len(image) > MaxImageSizeBytes {
		return ErrImageTooLarge
	}
	return nil
}

// classifyError maps gRPC failures of either backend onto the package sentinels.
func classifyError(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return WrapOCRError(op, ErrContextCanceled, "processing was canceled")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return WrapOCRError(op, context.DeadlineExceeded, "processing timeout")
	}

	switch status.Code(err) {
	case codes.ResourceExhausted:
		return WrapOCRError(op, ErrQuotaExceeded, err.Error())
	case codes.Unauthenticated, codes.PermissionDenied:
		return WrapOCRError(op, ErrMissingCredentials, err.Error())
	case codes.InvalidArgument:
		return WrapOCRError(op, ErrInvalidImage, err.Error())
	case codes.DeadlineExceeded:
		return WrapOCRError(op, context.DeadlineExceeded, "processing timeout")
	case codes.Canceled:
		return WrapOCRError(op, ErrContextCanceled, "processing was canceled")
	}
	return WrapOCRError(op, ErrOCRFailed, err.Error())
}
