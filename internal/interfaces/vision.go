package interfaces

import "context"

// VisionModel sends an image plus an extraction instruction to a multimodal
// model and returns its free-form text response. Implementations wrap one
// provider and one API key; key rotation is layered above this interface.
type VisionModel interface {
	// ExtractFromImage submits a PNG image and a text instruction and returns
	// the raw model response text.
	ExtractFromImage(ctx context.Context, png []byte, instruction string) (string, error)

	// Provider names the backing model provider for logging.
	Provider() string
}

// BrowserProvider hands out headless browser contexts with an explicit
// release. The returned context is valid until release is called; callers
// must release on every exit path.
type BrowserProvider interface {
	// Acquire returns a browser context and its release function.
	Acquire() (context.Context, func(), error)

	// Shutdown tears down all browser instances.
	Shutdown() error
}
