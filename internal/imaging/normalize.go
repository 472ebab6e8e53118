// Package imaging provides raster normalization, thumbnailing and the
// two-photo composite used by moment capture.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const jpegQuality = 90

// Normalized is the result of decoding and normalizing an input image.
type Normalized struct {
	Data     []byte
	MimeType string
	Width    int
	Height   int
}

// Normalize decodes the input and converts non-standard raster encodings
// (webp, bmp, tiff, gif) to JPEG. JPEG and PNG inputs pass through
// byte-identical so content hashes stay stable across retries.
func Normalize(data []byte) (*Normalized, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	out := &Normalized{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}

	switch format {
	case "jpeg":
		out.Data = data
		out.MimeType = "image/jpeg"
	case "png":
		out.Data = data
		out.MimeType = "image/png"
	default:
		encoded, err := encodeJPEG(img)
		if err != nil {
			return nil, fmt.Errorf("re-encode %s as jpeg: %w", format, err)
		}
		out.Data = encoded
		out.MimeType = "image/jpeg"
	}

	return out, nil
}

// Dimensions returns the pixel size of an encoded image without a full
// decode.
func Dimensions(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("decode image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// Thumbnail scales the image to fit within maxPx on the longer side and
// returns it as JPEG.
func Thumbnail(data []byte, maxPx int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	thumb := imaging.Fit(img, maxPx, maxPx, imaging.Lanczos)
	return encodeJPEG(thumb)
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
