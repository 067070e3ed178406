package reader

import (
	"bytes"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"
	"unicode"

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/draw"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// Tesseract gets slow on large phone photos without reading them better
	MAX_FRAME_DIMENSION = 2000
	FRAME_QUALITY       = 90
)

// frameOrientation is the EXIF orientation of a JPEG frame, 1 when unknown
func frameOrientation(frame []byte) int {
	x, err := exif.Decode(bytes.NewReader(frame))
	if err != nil {
		return 1
	}

	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}

	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return orientation
}

// upright rotates img so text reads left to right. Mirrored orientations
// are only rotated, OCR doesn't care about the flip.
func upright(img image.Image, orientation int) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	var rotated *image.RGBA
	switch orientation {
	case 3, 4:
		rotated = image.NewRGBA(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				rotated.Set(width-1-x, height-1-y, img.At(bounds.Min.X+x, bounds.Min.Y+y))
			}
		}
	case 5, 6:
		rotated = image.NewRGBA(image.Rect(0, 0, height, width))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				rotated.Set(height-1-y, x, img.At(bounds.Min.X+x, bounds.Min.Y+y))
			}
		}
	case 7, 8:
		rotated = image.NewRGBA(image.Rect(0, 0, height, width))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				rotated.Set(y, width-1-x, img.At(bounds.Min.X+x, bounds.Min.Y+y))
			}
		}
	default:
		return img
	}
	return rotated
}

// prepareFrame turns a camera frame upright & shrinks it to
// MAX_FRAME_DIMENSION. Frames that can't be decoded are passed on as is,
// the OCR engine may still read them.
func prepareFrame(frame []byte) []byte {
	img, format, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return frame
	}

	orientation := 1
	if format == "jpeg" {
		orientation = frameOrientation(frame)
	}

	bounds := img.Bounds()
	if orientation == 1 && bounds.Dx() <= MAX_FRAME_DIMENSION && bounds.Dy() <= MAX_FRAME_DIMENSION {
		return frame
	}

	img = upright(img, orientation)
	bounds = img.Bounds()

	if bounds.Dx() > MAX_FRAME_DIMENSION || bounds.Dy() > MAX_FRAME_DIMENSION {
		scale := float64(MAX_FRAME_DIMENSION) / float64(bounds.Dx())
		if bounds.Dy() > bounds.Dx() {
			scale = float64(MAX_FRAME_DIMENSION) / float64(bounds.Dy())
		}

		width := max(1, int(float64(bounds.Dx())*scale))
		height := max(1, int(float64(bounds.Dy())*scale))

		scaled := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, bounds, draw.Over, nil)
		img = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: FRAME_QUALITY}); err != nil {
		logg.Warnf("unable to re-encode frame, using original: %v", err)
		return frame
	}

	logg.Debugf("prepared frame: orientation %v, %vx%v, %v -> %v bytes",
		orientation, img.Bounds().Dx(), img.Bounds().Dy(), len(frame), buf.Len())
	return buf.Bytes()
}

// cleanText folds OCR output into plain text the speech engine can read:
// compatibility forms such as ligatures are expanded & stray control
// characters dropped.
func cleanText(text string) string {
	t := transform.Chain(norm.NFKC, runes.Remove(runes.Predicate(func(r rune) bool {
		return unicode.IsControl(r) && r != '\n' && r != '\t'
	})))

	cleaned, _, err := transform.String(t, text)
	if err != nil {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(cleaned)
}
