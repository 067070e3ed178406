package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/Daskott/enablex/server/speech"
	"github.com/Daskott/enablex/server/work"
	"github.com/Daskott/enablex/shared"
	"github.com/Daskott/enablex/utils"
	"github.com/go-playground/validator"
	"github.com/pkg/errors"
)

// ---------------------------------------------------------------------------------//
// Handler Helper functions
// --------------------------------------------------------------------------------//

func writeResponse(rw http.ResponseWriter, payLoad ResponsePayload, statusCode int) {
	if statusCode >= http.StatusInternalServerError {
		logg.Error(payLoad.Errors)
	} else if statusCode >= http.StatusBadRequest {
		logg.Info(payLoad.Errors)
	}

	rw.WriteHeader(statusCode)
	json.NewEncoder(rw).Encode(payLoad)
}

func writeData(rw http.ResponseWriter, data interface{}) {
	writeResponse(rw, ResponsePayload{Success: true, Data: data}, http.StatusOK)
}

func writeError(rw http.ResponseWriter, err error) {
	writeResponse(rw, ResponsePayload{Errors: errorMessages(err)}, statusFor(err))
}

// statusFor maps the typed conditions to the status the device UI expects
func statusFor(err error) int {
	var validationErrs validator.ValidationErrors

	switch {
	case errors.As(err, &validationErrs), errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, shared.ErrSOSInProgress),
		errors.Is(err, shared.ErrCountdownActive),
		errors.Is(err, shared.ErrNoCountdown):
		return http.StatusConflict
	case errors.Is(err, shared.ErrNoContactsConfigured),
		errors.Is(err, shared.ErrProfileIncomplete):
		return http.StatusUnprocessableEntity
	case errors.Is(err, shared.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, shared.ErrDeviceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, shared.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, shared.ErrService):
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}

func errorMessages(err error) []string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return strings.Split(validationErrs.Error(), "\n")
	}
	return []string{err.Error()}
}

// decodeBody decodes the JSON request body into out, an empty body is
// left as the zero value
func decodeBody(r *http.Request, out interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}

	err := json.NewDecoder(r.Body).Decode(out)
	if err != nil {
		return errors.Wrap(shared.ErrInvalidInput, err.Error())
	}
	return nil
}

// recognitionError turns the error code the device UI reports when the
// platform ends a recognition session into its typed condition
func recognitionError(code string) error {
	switch code {
	case "":
		return nil
	case "no-speech", "aborted":
		return speech.ErrNoSpeech
	case "not-allowed", "service-not-allowed":
		return shared.ErrPermissionDenied
	case "audio-capture":
		return shared.ErrDeviceUnavailable
	case "network":
		return shared.ErrService
	}

	return errors.Errorf("recognition ended: %v", code)
}

// ---------------------------------------------------------------------------------//
// Server Helper functions
// --------------------------------------------------------------------------------//

func serve(server *http.Server) {
	logg.Infof("EnableX server is listening on %v", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Fatal(err)
	}
}

func cleanup(app *App, workerPool *work.WorkerPoolAdapter, server *http.Server) {
	// Tear down open views, pending countdowns & location requests first
	app.Close()

	// Stop all jobs i.e. reminders, dashboard refresh & pending handoffs
	workerPool.Stop()

	// Shutdown server gracefully
	ctxShutDown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutDown); err != nil {
		logg.Fatalf("EnableX server shutdown failed:%+s", err)
	}

	if err := app.closeStore(); err != nil {
		logg.Error(err)
	}

	logg.Infof("EnableX server stopped properly")
}

// configDirectory retrieves the directory to store enablex data
func configDirectory(devMode bool) string {
	configDir, err := utils.DataDir(devMode)
	fatalOnError(err)

	return configDir
}

func fatalOnError(err error) {
	if err != nil {
		logg.Fatal(err)
	}
}
