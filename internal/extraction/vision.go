package extraction

import (
	"context"
	"fmt"
	"time"

	vision "cloud.google.com/go/vision/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// Vision implements the Engine interface using the Google Cloud Vision API
type Vision struct {
	client *vision.ImageAnnotatorClient
}

// NewVision creates a new Vision Engine instance. With an empty credentials
// file path it falls back to application default credentials.
func NewVision(credentialsFile string) (*Vision, error) {
	ctx := context.Background()

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating vision client: %w", err)
	}

	return &Vision{client: client}, nil
}

// RecognizeImage runs document text detection over a single PNG image
func (v *Vision) RecognizeImage(pngData []byte) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	annotation, err := v.client.DetectDocumentText(ctx, &visionpb.Image{Content: pngData}, nil)
	if err != nil {
		return "", fmt.Errorf("detecting document text: %w", err)
	}
	if annotation == nil {
		// Vision returns a nil annotation for images with no readable text
		return "", nil
	}
	return annotation.GetText(), nil
}

// Close closes the Vision client
func (v *Vision) Close() error {
	return v.client.Close()
}
