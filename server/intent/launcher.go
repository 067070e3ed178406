package intent

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sync"

	"github.com/Daskott/enablex/colors"
	"github.com/Daskott/enablex/server/logger"
)

var logg = logger.NewLogger("intent")

// Launcher hands a URI over to the OS. It never waits for the
// receiving app to acknowledge anything.
type Launcher interface {
	Launch(ctx context.Context, uri string) error
}

// ExecLauncher opens URIs with the platform opener e.g. xdg-open
type ExecLauncher struct {
	Opener string
}

func NewExecLauncher(opener string) *ExecLauncher {
	if opener == "" {
		opener = defaultOpener()
	}
	return &ExecLauncher{Opener: opener}
}

func (launcher *ExecLauncher) Launch(ctx context.Context, uri string) error {
	cmd := exec.CommandContext(ctx, launcher.Opener, uri)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("Launch: %v", err)
	}

	// Reap the opener in the background, the handoff is fire-and-forget
	go cmd.Wait()

	return nil
}

// LogLauncher only logs the URIs, it's used in dev mode
type LogLauncher struct{}

func (LogLauncher) Launch(ctx context.Context, uri string) error {
	logg.Infof("%v %v", colors.Tag(colors.Blue, "intent"), uri)
	return nil
}

// RecordingLauncher keeps every launched URI, for tests
type RecordingLauncher struct {
	mu   sync.Mutex
	URIs []string
	Err  error
}

func (launcher *RecordingLauncher) Launch(ctx context.Context, uri string) error {
	launcher.mu.Lock()
	defer launcher.mu.Unlock()

	launcher.URIs = append(launcher.URIs, uri)
	return launcher.Err
}

func (launcher *RecordingLauncher) Launched() []string {
	launcher.mu.Lock()
	defer launcher.mu.Unlock()

	return append([]string{}, launcher.URIs...)
}

func defaultOpener() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "windows":
		return "explorer"
	default:
		return "xdg-open"
	}
}
