package speech

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Daskott/enablex/shared"
	"github.com/pkg/errors"
)

const RESTART_DELAY = 250 * time.Millisecond

// ErrNoSpeech ends a recognition session quietly, the session restarts
var ErrNoSpeech = errors.New("no speech detected")

type Segment struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// Recognizer runs one platform recognition session, emitting segments until
// the platform ends it (nil) or it fails
type Recognizer interface {
	Listen(ctx context.Context, emit func(Segment)) error
}

type TranscriptNotifier interface {
	Transcribed(transcript Transcript)
}

type Transcript struct {
	Listening bool     `json:"listening"`
	Interim   string   `json:"interim"`
	History   []string `json:"history"`
	Error     string   `json:"error,omitempty"`
}

// Session is a continuous recognition session. When the platform ends a
// session while the user hasn't stopped listening, it is restarted.
type Session struct {
	mu         sync.Mutex
	recognizer Recognizer
	notifiers  []TranscriptNotifier
	listening  bool
	cancel     context.CancelFunc
	interim    string
	history    []string
	lastErr    error
	restarts   int
}

func NewSession(recognizer Recognizer, notifiers ...TranscriptNotifier) *Session {
	return &Session{recognizer: recognizer, notifiers: notifiers}
}

func (session *Session) Start() error {
	if session.recognizer == nil {
		return shared.ErrUnsupported
	}

	session.mu.Lock()
	if session.listening {
		session.mu.Unlock()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	session.listening, session.cancel, session.lastErr = true, cancel, nil
	session.mu.Unlock()

	go session.run(ctx)
	session.publish()
	return nil
}

func (session *Session) Stop() {
	session.mu.Lock()
	if !session.listening {
		session.mu.Unlock()
		return
	}

	session.listening = false
	session.interim = ""
	session.cancel()
	session.cancel = nil
	session.mu.Unlock()

	session.publish()
}

// Clear drops the finalized history
func (session *Session) Clear() {
	session.mu.Lock()
	session.history = nil
	session.interim = ""
	session.mu.Unlock()

	session.publish()
}

func (session *Session) Transcript() Transcript {
	session.mu.Lock()
	defer session.mu.Unlock()

	transcript := Transcript{
		Listening: session.listening,
		Interim:   session.interim,
		History:   append([]string{}, session.history...),
	}
	if session.lastErr != nil {
		transcript.Error = session.lastErr.Error()
	}
	return transcript
}

// Restarts is the number of times the platform ended the session & it was
// started again
func (session *Session) Restarts() int {
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.restarts
}

func (session *Session) run(ctx context.Context) {
	for {
		err := session.recognizer.Listen(ctx, session.handle)

		session.mu.Lock()
		if ctx.Err() != nil || !session.listening {
			session.mu.Unlock()
			return
		}

		if err != nil && !errors.Is(err, ErrNoSpeech) {
			session.listening = false
			session.lastErr = classify(err)
			session.cancel()
			session.cancel = nil
			session.mu.Unlock()

			logg.Warnf("recognition stopped: %v", err)
			session.publish()
			return
		}

		session.restarts++
		session.mu.Unlock()
		logg.Debug("recognition ended by platform, restarting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(RESTART_DELAY):
		}
	}
}

func (session *Session) handle(segment Segment) {
	session.mu.Lock()
	if segment.Final {
		if text := strings.TrimSpace(segment.Text); text != "" {
			session.history = append(session.history, text)
		}
		session.interim = ""
		session.lastErr = nil
	} else {
		session.interim = segment.Text
	}
	session.mu.Unlock()

	session.publish()
}

func (session *Session) publish() {
	transcript := session.Transcript()
	for _, notifier := range session.notifiers {
		notifier.Transcribed(transcript)
	}
}

// classify keeps the typed conditions the UI knows how to show, anything
// else is a service failure
func classify(err error) error {
	for _, known := range []error{shared.ErrPermissionDenied, shared.ErrDeviceUnavailable, shared.ErrUnsupported, shared.ErrService} {
		if errors.Is(err, known) {
			return known
		}
	}
	return errors.Wrap(shared.ErrService, err.Error())
}
