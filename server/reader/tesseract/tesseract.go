package tesseract

import (
	"context"

	"github.com/Daskott/enablex/shared"
	"github.com/otiai10/gosseract/v2"
	"github.com/pkg/errors"
)

const DEFAULT_LANGUAGE = "eng"

// OCR recognizes text with the tesseract engine. Each call uses its own
// client, tesseract clients aren't safe for concurrent use.
type OCR struct {
	Language string
}

func New(language string) *OCR {
	if language == "" {
		language = DEFAULT_LANGUAGE
	}
	return &OCR{Language: language}
}

func (ocr *OCR) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(ocr.Language); err != nil {
		return "", errors.Wrapf(shared.ErrService, "tesseract language %v: %v", ocr.Language, err)
	}

	if err := client.SetImageFromBytes(image); err != nil {
		return "", errors.Wrapf(shared.ErrService, "tesseract image: %v", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", errors.Wrapf(shared.ErrService, "tesseract: %v", err)
	}

	return text, nil
}
