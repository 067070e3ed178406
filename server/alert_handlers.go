package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Daskott/enablex/server/intent"
	"github.com/Daskott/enablex/server/location"
	"github.com/Daskott/enablex/server/models"
	"github.com/Daskott/enablex/shared"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ---------------------------------------------------------------------------------//
// Alerting workflow
// --------------------------------------------------------------------------------//

func (app *App) alertStatus(rw http.ResponseWriter, r *http.Request) {
	writeData(rw, app.workflow.Status())
}

func (app *App) alertEvents(rw http.ResponseWriter, r *http.Request) {
	events, err := app.workflow.Events()
	if err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, events)
}

func (app *App) triggerSOS(rw http.ResponseWriter, r *http.Request) {
	result, err := app.workflow.TriggerSOS(r.Context())
	if err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, result)
}

func (app *App) triggerFall(rw http.ResponseWriter, r *http.Request) {
	if err := app.workflow.TriggerFall(); err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, app.workflow.Status())
}

func (app *App) restartCountdown(rw http.ResponseWriter, r *http.Request) {
	if err := app.workflow.RestartCountdown(); err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, app.workflow.Status())
}

func (app *App) imFine(rw http.ResponseWriter, r *http.Request) {
	if err := app.workflow.ImFine(); err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, app.workflow.Status())
}

func (app *App) cancelFall(rw http.ResponseWriter, r *http.Request) {
	if err := app.workflow.CancelFall(); err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, app.workflow.Status())
}

func (app *App) callCaregiver(rw http.ResponseWriter, r *http.Request) {
	contact, err := app.workflow.CallCaregiver(r.Context())
	if err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, contact)
}

// shareLocation sends the map link to the priority contacts & opens the map
// on the device
func (app *App) shareLocation(rw http.ResponseWriter, r *http.Request) {
	mapURL, err := app.workflow.ShareLocation(r.Context())
	if err != nil {
		writeError(rw, err)
		return
	}

	err = app.workers.Perform(intent.LaunchJob(fmt.Sprintf("map_%v", uuid.NewString()), mapURL))
	if err != nil {
		logg.Errorf("unable to open map: %v", err)
	}

	writeData(rw, map[string]string{"url": mapURL})
}

// ---------------------------------------------------------------------------------//
// Location
// --------------------------------------------------------------------------------//

type locationResponse struct {
	Location *models.LocationSample `json:"location"`
	URL      string                 `json:"url,omitempty"`
	Watching bool                   `json:"watching"`
	Error    string                 `json:"error,omitempty"`
}

func (app *App) locationResponse(sample *models.LocationSample) locationResponse {
	response := locationResponse{Location: sample, Watching: app.locations.Watching()}
	if sample != nil {
		response.URL = intent.MapsURL(*sample)
	}
	if err := app.locations.LastError(); err != nil {
		response.Error = err.Error()
	}
	return response
}

func (app *App) currentLocation(rw http.ResponseWriter, r *http.Request) {
	writeData(rw, app.locationResponse(app.locations.Cached()))
}

// pushLocation receives a position fix from the device UI
func (app *App) pushLocation(rw http.ResponseWriter, r *http.Request) {
	sample := models.LocationSample{}
	if err := decodeBody(r, &sample); err != nil {
		writeError(rw, err)
		return
	}

	if err := app.locations.Push(sample); err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, app.locationResponse(&sample))
}

// locationError receives a failed position fix from the device UI
func (app *App) locationError(rw http.ResponseWriter, r *http.Request) {
	data := struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}{}
	if err := decodeBody(r, &data); err != nil {
		writeError(rw, err)
		return
	}

	app.locations.Fail(positionError(data.Code, data.Message))
	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

func (app *App) freshLocation(rw http.ResponseWriter, r *http.Request) {
	timeout := app.config.EnableX.Alerting.LocationTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	sample, err := app.locations.RequestFresh(r.Context(), timeout)
	if err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, app.locationResponse(&sample))
}

func (app *App) startWatch(rw http.ResponseWriter, r *http.Request) {
	app.locations.StartWatch(location.DEFAULT_WATCH_INTERVAL)
	writeData(rw, app.locationResponse(app.locations.Cached()))
}

func (app *App) stopWatch(rw http.ResponseWriter, r *http.Request) {
	app.locations.StopWatch()
	writeData(rw, app.locationResponse(app.locations.Cached()))
}

// positionError maps the device's geolocation error codes
func positionError(code, message string) error {
	var err error
	switch code {
	case "permission_denied":
		err = shared.ErrPermissionDenied
	case "position_unavailable":
		err = shared.ErrDeviceUnavailable
	case "timeout":
		err = shared.ErrTimeout
	case "unsupported":
		err = shared.ErrUnsupported
	default:
		err = shared.ErrService
	}

	if message == "" {
		return err
	}
	return errors.Wrap(err, message)
}
