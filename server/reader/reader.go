package reader

import (
	"context"
	"os"
	"sync"

	"github.com/Daskott/enablex/server/logger"
	"github.com/Daskott/enablex/server/speech"
	"github.com/Daskott/enablex/shared"
	"github.com/pkg/errors"
)

const (
	NO_TEXT_MESSAGE = "No text found in image"

	READ_RATE   = 0.8
	REPEAT_RATE = 0.7
)

var logg = logger.NewLogger("reader")

// Camera captures a still frame
type Camera interface {
	Capture(ctx context.Context) ([]byte, error)
}

// OCR extracts text from an image
type OCR interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

type Speaker interface {
	Speak(utterance speech.Utterance) error
}

// FileCamera reads the latest frame the device camera wrote to Path
type FileCamera struct {
	Path string
}

func (camera FileCamera) Capture(ctx context.Context) ([]byte, error) {
	if camera.Path == "" {
		return nil, errors.Wrap(shared.ErrDeviceUnavailable, "no camera configured")
	}

	image, err := os.ReadFile(camera.Path)
	switch {
	case os.IsNotExist(err):
		return nil, errors.Wrapf(shared.ErrDeviceUnavailable, "no frame at %v", camera.Path)
	case os.IsPermission(err):
		return nil, errors.Wrapf(shared.ErrPermissionDenied, "reading %v", camera.Path)
	case err != nil:
		return nil, err
	}

	return image, nil
}

// Reader captures a frame, recognizes its text & reads it aloud
type Reader struct {
	mu      sync.Mutex
	camera  Camera
	ocr     OCR
	speaker Speaker
	last    string
}

func New(camera Camera, ocr OCR, speaker Speaker) *Reader {
	return &Reader{camera: camera, ocr: ocr, speaker: speaker}
}

// ReadAloud returns the recognized text, or NO_TEXT_MESSAGE when the frame
// has none. Only recognized text is spoken.
func (reader *Reader) ReadAloud(ctx context.Context) (string, error) {
	if reader.camera == nil {
		return "", errors.Wrap(shared.ErrDeviceUnavailable, "no camera")
	}

	image, err := reader.camera.Capture(ctx)
	if err != nil {
		return "", err
	}

	text, err := reader.Recognize(ctx, image)
	if err != nil {
		return "", err
	}

	if text == "" {
		return NO_TEXT_MESSAGE, nil
	}

	reader.speak(text, READ_RATE)
	return text, nil
}

// Recognize runs OCR on image, "" means no text was found
func (reader *Reader) Recognize(ctx context.Context, image []byte) (string, error) {
	if reader.ocr == nil {
		return "", shared.ErrUnsupported
	}

	if len(image) == 0 {
		return "", errors.Wrap(shared.ErrInvalidInput, "empty image")
	}

	text, err := reader.ocr.Recognize(ctx, prepareFrame(image))
	if err != nil {
		if errors.Is(err, shared.ErrService) {
			return "", err
		}
		return "", errors.Wrap(shared.ErrService, err.Error())
	}

	text = cleanText(text)

	reader.mu.Lock()
	reader.last = text
	reader.mu.Unlock()

	return text, nil
}

// Repeat reads the last recognized text again, a little slower
func (reader *Reader) Repeat() error {
	reader.mu.Lock()
	text := reader.last
	reader.mu.Unlock()

	if text == "" {
		return errors.Wrap(shared.ErrNotFound, "nothing read yet")
	}

	return reader.speak(text, REPEAT_RATE)
}

func (reader *Reader) LastText() string {
	reader.mu.Lock()
	defer reader.mu.Unlock()
	return reader.last
}

func (reader *Reader) speak(text string, rate float64) error {
	if reader.speaker == nil {
		return nil
	}

	err := reader.speaker.Speak(speech.Utterance{Text: text, Rate: rate})
	if err != nil {
		logg.Warnf("unable to read aloud: %v", err)
	}
	return err
}
