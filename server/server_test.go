package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Daskott/enablex/server/alert"
	"github.com/Daskott/enablex/server/intent"
	"github.com/Daskott/enablex/server/models"
	"github.com/Daskott/enablex/server/realtime"
	"github.com/Daskott/enablex/server/speech"
	"github.com/Daskott/enablex/server/store"
	"github.com/Daskott/enablex/server/work"
	"github.com/Daskott/enablex/shared"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type testResponse struct {
	Errors  []string        `json:"errors"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Paging  *models.Paging  `json:"paging"`
}

type testServer struct {
	app      *App
	router   http.Handler
	launcher *intent.RecordingLauncher
	workers  *work.WorkerPoolAdapter
}

func newTestServer(t *testing.T, devices Devices) *testServer {
	return newTestServerWithTimeout(t, devices, 50*time.Millisecond)
}

func newTestServerWithTimeout(t *testing.T, devices Devices, locationTimeout time.Duration) *testServer {
	launcher := &intent.RecordingLauncher{}
	devices.Launcher = launcher

	config := shared.ServerConfig{}
	config.EnableX.Alerting.LocationTimeout = locationTimeout
	config.EnableX.Intent.SupportEmails = []string{"support@enablex.app"}

	workers := work.NewWorkerAdapter("UTC", 2)
	app, err := NewApp(config, store.NewMemoryKV(), workers, realtime.NewHub(), devices)
	if err != nil {
		t.Fatal(err)
	}

	workers.Start()
	t.Cleanup(func() {
		app.Close()
		workers.Stop()
	})

	return &testServer{app: app, router: app.Handler(), launcher: launcher, workers: workers}
}

func (server *testServer) do(t *testing.T, method, path string, body interface{}) (int, testResponse) {
	var reader *bytes.Reader
	switch value := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(value)
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	rec := httptest.NewRecorder()
	server.router.ServeHTTP(rec, req)

	response := testResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("%v %v: invalid response body %q: %v", method, path, rec.Body.String(), err)
	}

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	return rec.Code, response
}

func decodeData(t *testing.T, response testResponse, out interface{}) {
	if err := json.Unmarshal(response.Data, out); err != nil {
		t.Fatalf("invalid data %q: %v", string(response.Data), err)
	}
}

func TestContactRoutes(t *testing.T) {
	server := newTestServer(t, Devices{})

	status, response := server.do(t, "POST", "/contacts", map[string]string{"name": "Ada", "phone": "bad", "type": "family"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, response.Success)
	assert.NotEmpty(t, response.Errors)

	status, response = server.do(t, "POST", "/contacts", []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, status)

	status, response = server.do(t, "POST", "/contacts", map[string]string{"name": "Ada", "phone": "+1 (555) 010-0000", "type": "Family"})
	assert.Equal(t, http.StatusCreated, status)

	created := models.Contact{}
	decodeData(t, response, &created)
	assert.Equal(t, "family", created.Category)
	assert.NotEmpty(t, created.ID)

	t.Run("list returns the added contact", func(t *testing.T) {
		status, response := server.do(t, "GET", "/contacts", nil)
		assert.Equal(t, http.StatusOK, status)

		contacts := []models.Contact{}
		decodeData(t, response, &contacts)
		assert.Len(t, contacts, 1)
	})

	t.Run("update keeps the id", func(t *testing.T) {
		status, response := server.do(t, "PUT", "/contacts/"+created.ID, map[string]string{"name": "Dr. Ada", "phone": "+15550100000", "type": "doctor"})
		assert.Equal(t, http.StatusOK, status)

		updated := models.Contact{}
		decodeData(t, response, &updated)
		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, "doctor", updated.Category)
	})

	t.Run("unknown contact is not found", func(t *testing.T) {
		status, _ := server.do(t, "GET", "/contacts/missing", nil)
		assert.Equal(t, http.StatusNotFound, status)

		status, _ = server.do(t, "DELETE", "/contacts/missing", nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	status, _ = server.do(t, "DELETE", "/contacts/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestSOSRoute(t *testing.T) {
	server := newTestServer(t, Devices{})

	status, response := server.do(t, "POST", "/alert/sos", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, []string{shared.ErrNoContactsConfigured.Error()}, response.Errors)

	server.do(t, "POST", "/contacts", map[string]string{"name": "Ada", "phone": "+15550100000", "type": "family"})

	status, response = server.do(t, "POST", "/alert/sos", nil)
	assert.Equal(t, http.StatusOK, status)

	result := alert.Result{}
	decodeData(t, response, &result)
	assert.Equal(t, alert.SOS_REASON, result.Reason)
	assert.Equal(t, 1, result.Attempted)

	assert.Eventually(t, func() bool {
		launched := server.launcher.Launched()
		return len(launched) == 1 && strings.HasPrefix(launched[0], "sms:+15550100000?body=")
	}, time.Second, 10*time.Millisecond)

	t.Run("a second press inside the cool-down is rejected", func(t *testing.T) {
		status, _ := server.do(t, "POST", "/alert/sos", nil)
		assert.Equal(t, http.StatusConflict, status)
	})

	t.Run("event is logged", func(t *testing.T) {
		_, response := server.do(t, "GET", "/alert/events", nil)

		events := []models.EmergencyEvent{}
		decodeData(t, response, &events)
		assert.Len(t, events, 1)
		assert.Equal(t, models.SOS_EVENT, events[0].Kind)
	})
}

func TestSOSAsksDeviceForLocation(t *testing.T) {
	server := newTestServerWithTimeout(t, Devices{}, 5*time.Second)
	server.do(t, "POST", "/contacts", map[string]string{"name": "Ada", "phone": "+15550100000", "type": "family"})

	daemon := httptest.NewServer(server.router)
	defer daemon.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(daemon.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	assert.Eventually(t, func() bool { return server.app.hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	// The device UI answers the request with a fix
	answered := make(chan int, 1)
	go func() {
		for {
			message := realtime.Message{}
			if err := conn.ReadJSON(&message); err != nil {
				return
			}
			if message.Type == realtime.LOCATION_REQUEST_MESSAGE {
				status, _ := server.do(t, "POST", "/location", map[string]float64{"lat": 43.65, "lng": -79.38})
				answered <- status
				return
			}
		}
	}()

	start := time.Now()
	status, response := server.do(t, "POST", "/alert/sos", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, http.StatusOK, <-answered)

	result := alert.Result{}
	decodeData(t, response, &result)
	if assert.NotNil(t, result.Location) {
		assert.Equal(t, 43.65, result.Location.Latitude)
		assert.Equal(t, -79.38, result.Location.Longitude)
	}
}

func TestFallRoutes(t *testing.T) {
	server := newTestServer(t, Devices{})

	status, _ := server.do(t, "POST", "/alert/fall/ok", nil)
	assert.Equal(t, http.StatusConflict, status)

	status, response := server.do(t, "POST", "/alert/fall", nil)
	assert.Equal(t, http.StatusOK, status)

	pending := alert.Status{}
	decodeData(t, response, &pending)
	assert.Equal(t, alert.FALL_PENDING, pending.State)
	assert.Equal(t, alert.DEFAULT_COUNTDOWN_TICKS, pending.Countdown)

	status, _ = server.do(t, "POST", "/alert/fall", nil)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = server.do(t, "POST", "/alert/fall/restart", nil)
	assert.Equal(t, http.StatusOK, status)

	status, response = server.do(t, "POST", "/alert/fall/ok", nil)
	assert.Equal(t, http.StatusOK, status)

	resolved := alert.Status{}
	decodeData(t, response, &resolved)
	assert.Equal(t, alert.IDLE, resolved.State)
	assert.Equal(t, alert.RESOLVED_OK, resolved.LastResolution)
	assert.Empty(t, server.launcher.Launched())
}

func TestViewRoutes(t *testing.T) {
	server := newTestServer(t, Devices{})

	status, _ := server.do(t, "POST", "/views/unknown/open", nil)
	assert.Equal(t, http.StatusNotFound, status)

	t.Run("leaving the emergency view stops the countdown", func(t *testing.T) {
		status, _ := server.do(t, "POST", "/views/emergency/open", nil)
		assert.Equal(t, http.StatusOK, status)

		server.do(t, "POST", "/alert/fall", nil)
		assert.Equal(t, alert.FALL_PENDING, server.app.workflow.Status().State)

		status, _ = server.do(t, "POST", "/views/medication/open", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, alert.IDLE, server.app.workflow.Status().State)

		_, response := server.do(t, "GET", "/alert/events", nil)
		events := []models.EmergencyEvent{}
		decodeData(t, response, &events)
		assert.Len(t, events, 1)
	})

	t.Run("maps view watches location while open", func(t *testing.T) {
		server.do(t, "POST", "/views/maps/open", nil)
		assert.True(t, server.app.locations.Watching())

		server.do(t, "POST", "/views/maps/close", nil)
		assert.False(t, server.app.locations.Watching())
	})

	t.Run("dashboard", func(t *testing.T) {
		server.do(t, "POST", "/tasks", map[string]string{"title": "Water the plants"})
		server.do(t, "POST", "/medicines", map[string]interface{}{"name": "Aspirin", "times": []string{"23:59"}})

		status, response := server.do(t, "GET", "/dashboard", nil)
		assert.Equal(t, http.StatusOK, status)

		dashboard := struct {
			UserName string        `json:"userName"`
			Doses    []models.Dose `json:"upcomingMedications"`
			Tasks    []models.Task `json:"upcomingTasks"`
		}{}
		decodeData(t, response, &dashboard)
		assert.Equal(t, "Margaret", dashboard.UserName)
		assert.Len(t, dashboard.Doses, 1)
		assert.Len(t, dashboard.Tasks, 1)
	})
}

func TestLocationRoutes(t *testing.T) {
	server := newTestServer(t, Devices{})

	status, response := server.do(t, "POST", "/location/fresh", nil)
	assert.Equal(t, http.StatusGatewayTimeout, status)

	status, response = server.do(t, "POST", "/location", map[string]float64{"lat": 43.65, "lng": -79.38})
	assert.Equal(t, http.StatusOK, status)

	status, response = server.do(t, "GET", "/location", nil)
	assert.Equal(t, http.StatusOK, status)

	current := struct {
		Location *models.LocationSample `json:"location"`
		URL      string                 `json:"url"`
	}{}
	decodeData(t, response, &current)
	assert.Equal(t, 43.65, current.Location.Latitude)
	assert.Equal(t, "https://www.google.com/maps/search/?api=1&query=43.65%2C-79.38", current.URL)

	status, _ = server.do(t, "POST", "/location", map[string]float64{"lat": 123, "lng": 3})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = server.do(t, "POST", "/location/error", map[string]string{"code": "permission_denied"})
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, errors.Is(server.app.locations.LastError(), shared.ErrPermissionDenied))
}

func TestProfileRoutes(t *testing.T) {
	server := newTestServer(t, Devices{})

	status, _ := server.do(t, "POST", "/profile/login", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = server.do(t, "PUT", "/profile", map[string]string{"name": "Grace", "phone": "+15550100001"})
	assert.Equal(t, http.StatusOK, status)

	status, _ = server.do(t, "POST", "/profile/login", nil)
	assert.Equal(t, http.StatusOK, status)

	_, response := server.do(t, "GET", "/profile", nil)
	profile := profileResponse{}
	decodeData(t, response, &profile)
	assert.Equal(t, "Grace", profile.DisplayName)
	assert.True(t, profile.LoggedIn)
	assert.Equal(t, models.DEFAULT_LANGUAGE, profile.Language)

	status, _ = server.do(t, "PUT", "/profile/language", map[string]string{"language": "fr"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = server.do(t, "PUT", "/profile/language", map[string]string{"language": "te"})
	assert.Equal(t, http.StatusOK, status)

	_, response = server.do(t, "GET", "/profile", nil)
	decodeData(t, response, &profile)
	assert.Equal(t, "te", profile.Language)

	status, _ = server.do(t, "POST", "/profile/support", map[string]string{"message": " "})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = server.do(t, "POST", "/profile/support", map[string]string{"message": "The reader is slow"})
	assert.Equal(t, http.StatusAccepted, status)
	assert.Eventually(t, func() bool {
		launched := server.launcher.Launched()
		return len(launched) == 1 && strings.HasPrefix(launched[0], "mailto:support@enablex.app")
	}, time.Second, 10*time.Millisecond)
}

func TestTaskAndActivityRoutes(t *testing.T) {
	server := newTestServer(t, Devices{})

	status, _ := server.do(t, "POST", "/tasks", map[string]string{"title": "  "})
	assert.Equal(t, http.StatusBadRequest, status)

	_, response := server.do(t, "POST", "/tasks", map[string]string{"title": "Call the pharmacy"})
	task := models.Task{}
	decodeData(t, response, &task)

	status, response = server.do(t, "POST", "/tasks/"+task.ID+"/toggle", nil)
	assert.Equal(t, http.StatusOK, status)
	decodeData(t, response, &task)
	assert.True(t, task.Completed)

	status, response = server.do(t, "GET", "/activity?page=1&pageSize=10", nil)
	assert.Equal(t, http.StatusOK, status)

	activities := []models.Activity{}
	decodeData(t, response, &activities)
	assert.Len(t, activities, 1)
	assert.Equal(t, models.TASK_ACTIVITY, activities[0].Kind)
	assert.Equal(t, int64(1), response.Paging.Total)
}

func TestMedicationRoutes(t *testing.T) {
	server := newTestServer(t, Devices{})

	status, _ := server.do(t, "POST", "/medicines/alert", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = server.do(t, "POST", "/medicines", map[string]interface{}{"name": "Aspirin", "times": []string{"25:00"}})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = server.do(t, "POST", "/medicines", map[string]interface{}{"name": "Aspirin", "times": []string{"8:00"}})
	assert.Equal(t, http.StatusCreated, status)

	status, response := server.do(t, "POST", "/medicines/alert", nil)
	assert.Equal(t, http.StatusOK, status)

	reminder := struct {
		MedicineName string `json:"medicineName"`
	}{}
	decodeData(t, response, &reminder)
	assert.Equal(t, "Aspirin", reminder.MedicineName)

	status, _ = server.do(t, "POST", "/medicines/alert/taken", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = server.do(t, "POST", "/medicines/alert/taken", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDeviceRoutesWithoutDevices(t *testing.T) {
	server := newTestServer(t, Devices{})

	tests := []struct {
		description string
		method      string
		path        string
		body        interface{}
		status      int
	}{
		{"speaking needs text", "POST", "/speech", map[string]string{"text": ""}, http.StatusBadRequest},
		{"speaking needs an engine", "POST", "/speech", map[string]string{"text": "hello"}, http.StatusNotImplemented},
		{"reading needs a camera", "POST", "/reader/read", nil, http.StatusServiceUnavailable},
		{"recognizing needs ocr", "POST", "/reader/recognize", []byte{0x89, 0x50}, http.StatusNotImplemented},
		{"nothing to repeat", "POST", "/reader/repeat", nil, http.StatusNotFound},
		{"segments need a session", "POST", "/hearing/segments", map[string]string{"text": "hi"}, http.StatusNotImplemented},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			status, response := server.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, status)
			assert.False(t, response.Success)
		})
	}
}

func TestHearingRoutes(t *testing.T) {
	server := newTestServer(t, Devices{})

	status, _ := server.do(t, "POST", "/hearing/start", nil)
	assert.Equal(t, http.StatusOK, status)

	assert.Eventually(t, func() bool {
		return server.app.recognizer.Publish(speech.Segment{Text: "good morning", Final: true}) == nil
	}, time.Second, 10*time.Millisecond)

	status, response := server.do(t, "GET", "/hearing", nil)
	assert.Equal(t, http.StatusOK, status)

	transcript := speech.Transcript{}
	decodeData(t, response, &transcript)
	assert.True(t, transcript.Listening)
	assert.Equal(t, []string{"good morning"}, transcript.History)

	status, _ = server.do(t, "POST", "/hearing/stop", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.False(t, server.app.hearing.Transcript().Listening)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		description string
		err         error
		status      int
	}{
		{"validation", models.ValidateVar("x", "phone_number"), http.StatusBadRequest},
		{"wrapped not found", errors.Wrap(shared.ErrNotFound, "contact"), http.StatusNotFound},
		{"permission", shared.ErrPermissionDenied, http.StatusForbidden},
		{"sos in progress", shared.ErrSOSInProgress, http.StatusConflict},
		{"no contacts", shared.ErrNoContactsConfigured, http.StatusUnprocessableEntity},
		{"unsupported", shared.ErrUnsupported, http.StatusNotImplemented},
		{"device unavailable", shared.ErrDeviceUnavailable, http.StatusServiceUnavailable},
		{"timeout", errors.Wrap(shared.ErrTimeout, "location"), http.StatusGatewayTimeout},
		{"service", shared.ErrService, http.StatusBadGateway},
		{"anything else", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			assert.Equal(t, tt.status, statusFor(tt.err))
		})
	}
}

func TestDeviceErrorCodes(t *testing.T) {
	assert.Nil(t, recognitionError(""))
	assert.Equal(t, speech.ErrNoSpeech, recognitionError("no-speech"))
	assert.Equal(t, shared.ErrPermissionDenied, recognitionError("not-allowed"))
	assert.Equal(t, shared.ErrDeviceUnavailable, recognitionError("audio-capture"))
	assert.EqualError(t, recognitionError("bad-grammar"), "recognition ended: bad-grammar")

	assert.Equal(t, shared.ErrTimeout, positionError("timeout", ""))
	assert.True(t, errors.Is(positionError("position_unavailable", "gps off"), shared.ErrDeviceUnavailable))
	assert.True(t, errors.Is(positionError("weird", ""), shared.ErrService))
}
