package facedetect

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// DefaultMaxDimension bounds the longest side handed to the detector. Webcam
// frames are well below it; phone photos are not.
const DefaultMaxDimension = 1280

// ErrEmptyImage is returned for a zero-length payload.
var ErrEmptyImage = errors.New("empty image payload")

// Decode parses an encoded image, applies its EXIF orientation and shrinks it
// so neither side exceeds maxDim. maxDim <= 0 disables resizing.
func Decode(data []byte, maxDim int) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("image has no pixels (%dx%d)", b.Dx(), b.Dy())
	}
	if maxDim > 0 && (b.Dx() > maxDim || b.Dy() > maxDim) {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Linear)
	}
	return img, nil
}
