package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"

	// webp uploads are decode-only; imaging registers the remaining formats.
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedFormat marks input the codec cannot decode. It is surfaced
// to callers distinctly so clients get an actionable message instead of a
// generic upload failure.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// OutputContentType is the single format every stored image is re-encoded to.
const OutputContentType = "image/jpeg"

var decodableMimeTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"image/bmp",
	"image/tiff",
}

// Processor normalizes raw uploads into storage-ready JPEG bytes.
type Processor struct {
	maxWidth int
	quality  int
}

// NewProcessor builds a processor with the configured bounds.
func NewProcessor(maxWidth, quality int) (*Processor, error) {
	if maxWidth <= 0 {
		return nil, fmt.Errorf("max width must be positive")
	}
	if quality <= 0 || quality > 100 {
		return nil, fmt.Errorf("jpeg quality must be in 1..100")
	}
	return &Processor{maxWidth: maxWidth, quality: quality}, nil
}

// Normalize sniffs, decodes, orients, downsizes, and re-encodes one image.
// Orientation honors embedded EXIF rotation; width is capped at the
// configured bound preserving aspect ratio.
func (p *Processor) Normalize(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrUnsupportedFormat)
	}

	detected := mimetype.Detect(data)
	if !isDecodable(detected.String()) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, detected.String())
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	if img.Bounds().Dx() > p.maxWidth {
		img = imaging.Resize(img, p.maxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.quality)); err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}
	return buf.Bytes(), nil
}

func isDecodable(mimeType string) bool {
	clean := strings.ToLower(strings.TrimSpace(mimeType))
	for _, candidate := range decodableMimeTypes {
		if candidate == clean {
			return true
		}
	}
	return false
}
