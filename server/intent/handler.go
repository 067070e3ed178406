package intent

import (
	"context"
	"fmt"

	"github.com/Daskott/enablex/server/work"
)

const (
	LAUNCH_HANDLER = "launch_intent"

	URI_ARG = "uri"
)

// Registrar is implemented by the work adapter
type Registrar interface {
	Register(name string, handler work.Handler) error
}

// RegisterHandler binds the launch job handler to launcher. Jobs carry the
// URI to hand off in the "uri" arg.
func RegisterHandler(registrar Registrar, launcher Launcher) error {
	return registrar.Register(LAUNCH_HANDLER, func(args map[string]interface{}) error {
		uri, ok := args[URI_ARG].(string)
		if !ok || uri == "" {
			return fmt.Errorf("%v: missing %q arg", LAUNCH_HANDLER, URI_ARG)
		}

		return launcher.Launch(context.Background(), uri)
	})
}

// LaunchJob returns the job params for handing off uri
func LaunchJob(name, uri string) work.JobParams {
	return work.JobParams{
		Name:    name,
		Handler: LAUNCH_HANDLER,
		Args:    map[string]interface{}{URI_ARG: uri},
	}
}
