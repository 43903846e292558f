package extraction

// Engine defines the interface for OCR engines. Input is always PNG-encoded
// image data; output is whatever text the engine read, unfiltered.
type Engine interface {
	// RecognizeImage runs OCR over a single PNG image
	RecognizeImage(pngData []byte) (string, error)
	// Close releases any resources held by the engine
	Close() error
}
