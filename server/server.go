package server

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Daskott/enablex/server/alert"
	"github.com/Daskott/enablex/server/contacts"
	"github.com/Daskott/enablex/server/intent"
	"github.com/Daskott/enablex/server/location"
	"github.com/Daskott/enablex/server/logger"
	"github.com/Daskott/enablex/server/medication"
	"github.com/Daskott/enablex/server/metrics"
	"github.com/Daskott/enablex/server/models"
	"github.com/Daskott/enablex/server/profile"
	"github.com/Daskott/enablex/server/reader"
	"github.com/Daskott/enablex/server/reader/tesseract"
	"github.com/Daskott/enablex/server/realtime"
	"github.com/Daskott/enablex/server/shell"
	"github.com/Daskott/enablex/server/speech"
	"github.com/Daskott/enablex/server/store"
	"github.com/Daskott/enablex/server/tasks"
	"github.com/Daskott/enablex/server/work"
	"github.com/Daskott/enablex/shared"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var logg = logger.NewLogger("server")

// Devices are the platform capabilities the daemon hands work to.
// A nil capability is reported to the UI as unsupported.
type Devices struct {
	Launcher intent.Launcher
	// Location source polled for positions, nil when the device UI pushes them
	Location location.Source
	Speech   speech.Engine
	Camera   reader.Camera
	OCR      reader.OCR
}

// App wires every component of the companion
type App struct {
	config     shared.ServerConfig
	repo       *store.Repository
	closer     io.Closer
	workers    *work.WorkerPoolAdapter
	hub        *realtime.Hub
	book       *contacts.Book
	locations  *location.Provider
	workflow   *alert.Workflow
	medication *medication.Scheduler
	tasks      *tasks.List
	settings   *profile.Settings
	shell      *shell.Shell
	synth      *speech.Synthesizer
	recognizer *speech.PushRecognizer
	hearing    *speech.Session
	reader     *reader.Reader
}

func Start(config shared.ServerConfig, devMode bool) {
	kv, err := openStore(config, devMode)
	fatalOnError(err)

	workerPool := work.NewWorkerAdapter(config.EnableX.Cron.TimeZone, work.MAX_CONCURRENCY)
	hub := realtime.NewHub()

	app, err := NewApp(config, kv, workerPool, hub, detectDevices(config, devMode))
	fatalOnError(err)

	metrics.Register()

	err = registerJobHandlers(app, workerPool)
	fatalOnError(err)

	err = enqueueJobs(workerPool)
	fatalOnError(err)

	workerPool.Start()

	server := &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%v", config.EnableX.Listener.Port),
		Handler:      app.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go serve(server)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cleanup(app, workerPool, server)
}

// NewApp wires the components over kv. The worker pool is used to schedule
// reminders & launch handoffs, it's started by the caller.
func NewApp(config shared.ServerConfig, kv store.KV, workerPool *work.WorkerPoolAdapter, hub *realtime.Hub, devices Devices) (*App, error) {
	repo := store.NewRepository(kv)

	app := &App{
		config:     config,
		repo:       repo,
		workers:    workerPool,
		hub:        hub,
		book:       contacts.NewBook(repo),
		locations:  location.NewProvider(repo, devices.Location),
		tasks:      tasks.NewList(repo),
		settings:   profile.NewSettings(repo, workerPool, config.EnableX.Intent.SupportEmails),
		synth:      speech.NewSynthesizer(devices.Speech),
		recognizer: speech.NewPushRecognizer(),
	}

	app.locations.SetRequester(hub)

	if closer, ok := kv.(io.Closer); ok {
		app.closer = closer
	}

	if devices.Launcher == nil {
		devices.Launcher = intent.LogLauncher{}
	}
	if err := intent.RegisterHandler(workerPool, devices.Launcher); err != nil {
		return nil, fmt.Errorf("NewApp: %v", err)
	}

	dispatcher := alert.NewIntentDispatcher(workerPool)
	app.workflow = alert.NewWorkflow(alert.Deps{
		Contacts:   app.book,
		Locations:  app.locations,
		Events:     repo,
		Dispatcher: dispatcher,
		Dialer:     dispatcher,
		Notifiers:  []alert.Notifier{hub, metrics.Recorder{}},
	}, alertOptions(config.EnableX.Alerting))

	app.medication = medication.NewScheduler(repo, workerPool, medication.DEFAULT_SNOOZE, hub, metrics.Recorder{})
	if err := app.medication.Start(); err != nil {
		return nil, fmt.Errorf("NewApp: %v", err)
	}

	app.hearing = speech.NewSession(app.recognizer, hub)
	app.reader = reader.New(devices.Camera, devices.OCR, app.synth)

	app.shell = shell.New(app.settings, app.medication, app.tasks)
	if err := app.registerViews(); err != nil {
		return nil, fmt.Errorf("NewApp: %v", err)
	}

	return app, nil
}

// Handler serves the API under /api/v1, the update stream on /ws & metrics
func (app *App) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/ws", app.hub.ServeWS)
	router.Handle("/metrics", promhttp.Handler())
	app.routes(router.PathPrefix("/api/v1").Subrouter())

	return router
}

// Close tears down every view & the timers they own
func (app *App) Close() {
	app.shell.CloseAll()
	app.workflow.Close()
	app.locations.Close()
	app.medication.Close()
	app.hearing.Stop()
	app.synth.Cancel()
	app.hub.Close()
}

func (app *App) closeStore() error {
	if app.closer == nil {
		return nil
	}
	return app.closer.Close()
}

// registerViews binds the setup & teardown each view needs
func (app *App) registerViews() error {
	hooks := map[string]shell.Hooks{
		shell.EMERGENCY_VIEW: {OnClose: app.workflow.Close},
		shell.MAPS_VIEW: {
			OnOpen:  func() { app.locations.StartWatch(location.DEFAULT_WATCH_INTERVAL) },
			OnClose: app.locations.StopWatch,
		},
		shell.HEARING_VIEW: {OnClose: app.hearing.Stop},
		shell.READER_VIEW:  {OnClose: app.synth.Cancel},
	}

	for view, viewHooks := range hooks {
		if err := app.shell.Register(view, viewHooks); err != nil {
			return err
		}
	}
	return nil
}

func alertOptions(config shared.AlertingConfig) alert.Options {
	return alert.Options{
		CountdownTicks:  config.CountdownSeconds,
		Tick:            time.Second,
		SOSCooldown:     config.SOSCooldown,
		LocationTimeout: config.LocationTimeout,
	}
}

// openStore uses the encrypted sqlite db when a pass phrase is configured,
// dev mode falls back to memory
func openStore(config shared.ServerConfig, devMode bool) (store.KV, error) {
	if config.Sqlite.PassPhrase == "" {
		if !devMode {
			return nil, fmt.Errorf("openStore: sqlite.passPhrase is required")
		}

		logg.Warn("No sqlite pass phrase set, data will not outlive the server")
		return store.NewMemoryKV(), nil
	}

	return store.NewSqliteKV(config.Sqlite.PassPhrase, configDirectory(devMode))
}

func detectDevices(config shared.ServerConfig, devMode bool) Devices {
	var devices Devices

	if config.EnableX.Intent.Launcher == "log" || (devMode && config.EnableX.Intent.Launcher == "") {
		devices.Launcher = intent.LogLauncher{}
	} else {
		devices.Launcher = intent.NewExecLauncher(config.EnableX.Intent.Opener)
	}

	locationConfig := config.EnableX.Location
	if locationConfig.FixedLatitude != nil && locationConfig.FixedLongitude != nil {
		devices.Location = location.FixedSource{Sample: models.LocationSample{
			Latitude:  *locationConfig.FixedLatitude,
			Longitude: *locationConfig.FixedLongitude,
		}}
	}

	engine, err := speech.NewEspeakEngine(config.EnableX.Speech.EspeakBinary)
	if err != nil {
		logg.Warnf("Speech synthesis disabled: %v", err)
	} else {
		devices.Speech = engine
	}

	if config.EnableX.Reader.FramePath != "" {
		devices.Camera = reader.FileCamera{Path: config.EnableX.Reader.FramePath}
		devices.OCR = tesseract.New(config.EnableX.Reader.Language)
	}

	return devices
}
