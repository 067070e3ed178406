package server

import (
	"time"

	"github.com/Daskott/enablex/server/realtime"
	"github.com/Daskott/enablex/server/work"
)

const (
	REFRESH_DASHBOARD_HANDLER = "refresh_dashboard"

	// Upcoming doses & the greeting change with the clock, so connected
	// UIs get a fresh dashboard every minute
	DASHBOARD_REFRESH_SCHEDULE = "* * * * *"
)

func (app *App) refreshDashboard(map[string]interface{}) error {
	dashboard, err := app.shell.Dashboard(time.Now())
	if err != nil {
		return err
	}

	app.hub.Broadcast(realtime.DASHBOARD_MESSAGE, dashboard)
	return nil
}

func registerJobHandlers(app *App, wpa *work.WorkerPoolAdapter) error {
	return wpa.Register(REFRESH_DASHBOARD_HANDLER, app.refreshDashboard)
}

func enqueueJobs(wpa *work.WorkerPoolAdapter) error {
	return wpa.PeriodicallyPerform(DASHBOARD_REFRESH_SCHEDULE, work.JobParams{
		Name:    REFRESH_DASHBOARD_HANDLER,
		Handler: REFRESH_DASHBOARD_HANDLER,
		Unique:  true,
		Args:    map[string]interface{}{},
	})
}
