package speech

import (
	"context"
	"sync"

	"github.com/Daskott/enablex/shared"
	"github.com/pkg/errors"
)

// PushRecognizer is fed by the device UI, which runs the platform
// recognizer & posts its segments & session ends
type PushRecognizer struct {
	mu      sync.Mutex
	emit    func(Segment)
	endChan chan error
}

func NewPushRecognizer() *PushRecognizer {
	return &PushRecognizer{}
}

func (recognizer *PushRecognizer) Listen(ctx context.Context, emit func(Segment)) error {
	endChan := make(chan error, 1)

	recognizer.mu.Lock()
	recognizer.emit, recognizer.endChan = emit, endChan
	recognizer.mu.Unlock()

	defer func() {
		recognizer.mu.Lock()
		if recognizer.endChan == endChan {
			recognizer.emit, recognizer.endChan = nil, nil
		}
		recognizer.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-endChan:
		return err
	}
}

// Publish forwards a segment to the running session
func (recognizer *PushRecognizer) Publish(segment Segment) error {
	recognizer.mu.Lock()
	emit := recognizer.emit
	recognizer.mu.Unlock()

	if emit == nil {
		return errors.Wrap(shared.ErrUnsupported, "not listening")
	}

	emit(segment)
	return nil
}

// End reports the platform ended the session, err is nil for a normal end
func (recognizer *PushRecognizer) End(err error) {
	recognizer.mu.Lock()
	defer recognizer.mu.Unlock()

	if recognizer.endChan != nil {
		select {
		case recognizer.endChan <- err:
		default:
		}
	}
}
