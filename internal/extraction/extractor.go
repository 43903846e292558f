package extraction

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// Rasterizer renders every page of a PDF file to an image, in document order.
type Rasterizer interface {
	RenderPages(path string) ([]image.Image, error)
}

// fitzRasterizer implements Rasterizer using MuPDF via go-fitz
type fitzRasterizer struct{}

func (fitzRasterizer) RenderPages(path string) ([]image.Image, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	pages := make([]image.Image, 0, doc.NumPage())
	for n := 0; n < doc.NumPage(); n++ {
		img, err := doc.Image(n)
		if err != nil {
			return nil, fmt.Errorf("rendering PDF page %d: %w", n+1, err)
		}
		pages = append(pages, img)
	}
	return pages, nil
}

// Extractor turns an uploaded receipt (image or PDF) into plain text by
// running an OCR engine over it, page by page for PDFs.
type Extractor struct {
	engine     Engine
	rasterizer Rasterizer
	tempDir    string // "" means the system default
}

// NewExtractor creates an Extractor backed by the MuPDF rasterizer
func NewExtractor(engine Engine) *Extractor {
	return &Extractor{engine: engine, rasterizer: fitzRasterizer{}}
}

// NewExtractorWithDeps creates an Extractor with custom dependencies for testing
func NewExtractorWithDeps(engine Engine, rasterizer Rasterizer, tempDir string) *Extractor {
	return &Extractor{engine: engine, rasterizer: rasterizer, tempDir: tempDir}
}

// ExtractText produces the OCR text of an uploaded receipt. PDFs are
// rasterized page by page and the page texts are joined with a newline, in
// page order. Everything else is treated as a single image. The raw OCR
// output passes through with no confidence filtering.
func (e *Extractor) ExtractText(data []byte, contentType string) (string, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if mimeType == "application/pdf" {
		return e.extractPDF(data)
	}

	pngData, err := normalizeToPNG(data, mimeType)
	if err != nil {
		return "", err
	}
	return e.engine.RecognizeImage(pngData)
}

// extractPDF hands the PDF to the rasterizer through a temporary file. The
// temporary file is removed before returning on every path.
func (e *Extractor) extractPDF(data []byte) (string, error) {
	tmp, err := os.CreateTemp(e.tempDir, "receipt-*.pdf")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing temp file: %w", err)
	}

	pages, err := e.rasterizer.RenderPages(tmpPath)
	if err != nil {
		return "", err
	}

	texts := make([]string, 0, len(pages))
	for i, page := range pages {
		var buf bytes.Buffer
		if err := png.Encode(&buf, page); err != nil {
			return "", fmt.Errorf("encoding page %d: %w", i+1, err)
		}
		text, err := e.engine.RecognizeImage(buf.Bytes())
		if err != nil {
			return "", fmt.Errorf("recognizing page %d: %w", i+1, err)
		}
		texts = append(texts, text)
	}

	return strings.Join(texts, "\n"), nil
}
