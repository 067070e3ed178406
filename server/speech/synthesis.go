package speech

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/Daskott/enablex/server/logger"
	"github.com/Daskott/enablex/shared"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

const (
	DEFAULT_ESPEAK = "espeak"

	BASE_WORDS_PER_MINUTE = 175
)

var logg = logger.NewLogger("speech")

// Utterance is text to speak. Rate, pitch & volume are relative, 1 is normal.
// A nil pitch or volume means normal, 0 is a valid value (volume 0 is mute).
type Utterance struct {
	Text   string   `json:"text" validate:"required"`
	Rate   float64  `json:"rate" validate:"omitempty,gt=0,lte=10"`
	Pitch  *float64 `json:"pitch" validate:"omitempty,gte=0,lte=2"`
	Volume *float64 `json:"volume" validate:"omitempty,gte=0,lte=1"`
}

// Engine plays a single utterance, blocking until it's done or ctx is cancelled
type Engine interface {
	Say(ctx context.Context, utterance Utterance) error
}

// Synthesizer plays one utterance at a time, a new one interrupts the
// utterance in progress
type Synthesizer struct {
	// serial orders Speak & Cancel, mu guards the fields below
	serial  sync.Mutex
	mu      sync.Mutex
	engine  Engine
	cancel  context.CancelFunc
	done    chan struct{}
	current string
}

func NewSynthesizer(engine Engine) *Synthesizer {
	return &Synthesizer{engine: engine}
}

func (synth *Synthesizer) Speak(utterance Utterance) error {
	utterance.Text = strings.TrimSpace(utterance.Text)
	if utterance.Text == "" {
		return errors.Wrap(shared.ErrInvalidInput, "nothing to speak")
	}
	if synth.engine == nil {
		return shared.ErrUnsupported
	}

	utterance = withDefaults(utterance)

	synth.serial.Lock()
	defer synth.serial.Unlock()

	synth.stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	synth.mu.Lock()
	synth.cancel, synth.done, synth.current = cancel, done, utterance.Text
	synth.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()

		if err := synth.engine.Say(ctx, utterance); err != nil && ctx.Err() == nil {
			logg.Errorf("speaking failed: %v", err)
		}

		synth.mu.Lock()
		if synth.done == done {
			synth.cancel, synth.done, synth.current = nil, nil, ""
		}
		synth.mu.Unlock()
	}()

	return nil
}

// Cancel stops the utterance in progress, if any
func (synth *Synthesizer) Cancel() {
	synth.serial.Lock()
	defer synth.serial.Unlock()
	synth.stop()
}

// Speaking returns the text being spoken, "" when silent
func (synth *Synthesizer) Speaking() string {
	synth.mu.Lock()
	defer synth.mu.Unlock()
	return synth.current
}

// stop must be called with serial held. It waits for the engine to return
// so two utterances never overlap.
func (synth *Synthesizer) stop() {
	synth.mu.Lock()
	cancel, done := synth.cancel, synth.done
	synth.cancel, synth.done, synth.current = nil, nil, ""
	synth.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

func withDefaults(utterance Utterance) Utterance {
	if utterance.Rate <= 0 {
		utterance.Rate = 1
	}
	if utterance.Pitch == nil {
		utterance.Pitch = lo.ToPtr(1.0)
	}
	if utterance.Volume == nil {
		utterance.Volume = lo.ToPtr(1.0)
	}
	return utterance
}

// EspeakEngine speaks through the espeak command line synthesizer
type EspeakEngine struct {
	Binary string
}

// NewEspeakEngine fails with shared.ErrUnsupported when the binary can't be found
func NewEspeakEngine(binary string) (*EspeakEngine, error) {
	if binary == "" {
		binary = DEFAULT_ESPEAK
	}

	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, errors.Wrapf(shared.ErrUnsupported, "speech synthesis: %v", err)
	}

	return &EspeakEngine{Binary: path}, nil
}

func (engine *EspeakEngine) Say(ctx context.Context, utterance Utterance) error {
	cmd := exec.CommandContext(ctx, engine.Binary, EspeakArgs(utterance)...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("Say: %v %s", err, output)
	}
	return nil
}

// EspeakArgs maps an utterance onto espeak's speed, pitch (0-99) &
// amplitude (0-200) flags
func EspeakArgs(utterance Utterance) []string {
	utterance = withDefaults(utterance)

	speed := int(math.Round(BASE_WORDS_PER_MINUTE * utterance.Rate))
	pitch := clamp(int(math.Round(50 * *utterance.Pitch)), 0, 99)
	amplitude := clamp(int(math.Round(100 * *utterance.Volume)), 0, 200)

	return []string{
		"-s", strconv.Itoa(speed),
		"-p", strconv.Itoa(pitch),
		"-a", strconv.Itoa(amplitude),
		"--", utterance.Text,
	}
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
