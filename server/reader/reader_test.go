package reader

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Daskott/enablex/server/speech"
	"github.com/Daskott/enablex/shared"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type ocrStub struct {
	text string
	err  error
}

func (ocr ocrStub) Recognize(ctx context.Context, image []byte) (string, error) {
	return ocr.text, ocr.err
}

type speakerStub struct {
	mu     sync.Mutex
	spoken []speech.Utterance
}

func (speaker *speakerStub) Speak(utterance speech.Utterance) error {
	speaker.mu.Lock()
	defer speaker.mu.Unlock()
	speaker.spoken = append(speaker.spoken, utterance)
	return nil
}

func writeFrame(t *testing.T) FileCamera {
	path := filepath.Join(t.TempDir(), "frame.png")
	assert.Nil(t, os.WriteFile(path, []byte("png"), 0600))
	return FileCamera{Path: path}
}

func TestReadAloud(t *testing.T) {
	t.Run("should speak recognized text", func(t *testing.T) {
		speaker := &speakerStub{}
		reader := New(writeFrame(t), ocrStub{text: "  Take two tablets daily \n"}, speaker)

		text, err := reader.ReadAloud(context.Background())
		assert.Nil(t, err)
		assert.Equal(t, "Take two tablets daily", text)
		assert.Len(t, speaker.spoken, 1)
		assert.Equal(t, READ_RATE, speaker.spoken[0].Rate)

		assert.Nil(t, reader.Repeat())
		assert.Equal(t, REPEAT_RATE, speaker.spoken[1].Rate)
	})

	t.Run("should report frames without text", func(t *testing.T) {
		speaker := &speakerStub{}
		reader := New(writeFrame(t), ocrStub{text: "   "}, speaker)

		text, err := reader.ReadAloud(context.Background())
		assert.Nil(t, err)
		assert.Equal(t, NO_TEXT_MESSAGE, text)
		assert.Empty(t, speaker.spoken)
		assert.True(t, errors.Is(reader.Repeat(), shared.ErrNotFound))
	})

	t.Run("should surface ocr failure as service error", func(t *testing.T) {
		reader := New(writeFrame(t), ocrStub{err: errors.New("engine crashed")}, nil)

		_, err := reader.ReadAloud(context.Background())
		assert.True(t, errors.Is(err, shared.ErrService))
	})

	t.Run("should surface missing camera frame", func(t *testing.T) {
		reader := New(FileCamera{Path: filepath.Join(t.TempDir(), "missing.png")}, ocrStub{}, nil)

		_, err := reader.ReadAloud(context.Background())
		assert.True(t, errors.Is(err, shared.ErrDeviceUnavailable))

		_, err = New(FileCamera{}, ocrStub{}, nil).ReadAloud(context.Background())
		assert.True(t, errors.Is(err, shared.ErrDeviceUnavailable))
	})
}
