package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// ErrComposition is wrapped by all Combine failures.
var ErrComposition = errors.New("composition failed")

// Combine renders the two photos side by side, first on the left, scaled to
// a common height. Output is deterministic for the same inputs in the same
// order: retried combines hash identically, so composites dedup like any
// other media.
func Combine(first, second []byte) ([]byte, error) {
	left, _, err := image.Decode(bytes.NewReader(first))
	if err != nil {
		return nil, fmt.Errorf("%w: decode first photo: %v", ErrComposition, err)
	}
	right, _, err := image.Decode(bytes.NewReader(second))
	if err != nil {
		return nil, fmt.Errorf("%w: decode second photo: %v", ErrComposition, err)
	}

	height := left.Bounds().Dy()
	if right.Bounds().Dy() < height {
		height = right.Bounds().Dy()
	}
	if height <= 0 {
		return nil, fmt.Errorf("%w: empty input image", ErrComposition)
	}

	left = imaging.Resize(left, 0, height, imaging.Lanczos)
	right = imaging.Resize(right, 0, height, imaging.Lanczos)

	width := left.Bounds().Dx() + right.Bounds().Dx()
	canvas := imaging.New(width, height, color.White)
	canvas = imaging.Paste(canvas, left, image.Pt(0, 0))
	canvas = imaging.Paste(canvas, right, image.Pt(left.Bounds().Dx(), 0))

	out, err := encodeJPEG(canvas)
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %v", ErrComposition, err)
	}
	return out, nil
}
