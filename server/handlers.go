package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Daskott/enablex/server/models"
	"github.com/gorilla/mux"
)

type ResponsePayload struct {
	Errors  []string    `json:"errors"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Paging  interface{} `json:"paging,omitempty"`
}

func (app *App) routes(router *mux.Router) {
	router.Use(loggingMiddleware, initialContextMiddleware)

	router.HandleFunc("/dashboard", app.dashboard).Methods("GET")
	router.HandleFunc("/views/{view}/open", app.openView).Methods("POST")
	router.HandleFunc("/views/{view}/close", app.closeView).Methods("POST")

	router.HandleFunc("/contacts", app.listContacts).Methods("GET")
	router.HandleFunc("/contacts", app.createContact).Methods("POST")
	router.HandleFunc("/contacts/{id}", app.findContact).Methods("GET")
	router.HandleFunc("/contacts/{id}", app.updateContact).Methods("PUT")
	router.HandleFunc("/contacts/{id}", app.deleteContact).Methods("DELETE")

	router.HandleFunc("/alert", app.alertStatus).Methods("GET")
	router.HandleFunc("/alert/events", app.alertEvents).Methods("GET")
	router.HandleFunc("/alert/sos", app.triggerSOS).Methods("POST")
	router.HandleFunc("/alert/fall", app.triggerFall).Methods("POST")
	router.HandleFunc("/alert/fall/restart", app.restartCountdown).Methods("POST")
	router.HandleFunc("/alert/fall/ok", app.imFine).Methods("POST")
	router.HandleFunc("/alert/fall/cancel", app.cancelFall).Methods("POST")
	router.HandleFunc("/alert/call", app.callCaregiver).Methods("POST")
	router.HandleFunc("/alert/share", app.shareLocation).Methods("POST")

	router.HandleFunc("/location", app.currentLocation).Methods("GET")
	router.HandleFunc("/location", app.pushLocation).Methods("POST")
	router.HandleFunc("/location/error", app.locationError).Methods("POST")
	router.HandleFunc("/location/fresh", app.freshLocation).Methods("POST")
	router.HandleFunc("/location/watch", app.startWatch).Methods("POST")
	router.HandleFunc("/location/watch", app.stopWatch).Methods("DELETE")

	router.HandleFunc("/medicines", app.listMedicines).Methods("GET")
	router.HandleFunc("/medicines", app.createMedicine).Methods("POST")
	router.HandleFunc("/medicines/upcoming", app.upcomingDoses).Methods("GET")
	router.HandleFunc("/medicines/alert", app.activeReminder).Methods("GET")
	router.HandleFunc("/medicines/alert", app.simulateReminder).Methods("POST")
	router.HandleFunc("/medicines/alert/taken", app.takenReminder).Methods("POST")
	router.HandleFunc("/medicines/alert/snooze", app.snoozeReminder).Methods("POST")
	router.HandleFunc("/medicines/{id}", app.updateMedicine).Methods("PUT")
	router.HandleFunc("/medicines/{id}", app.deleteMedicine).Methods("DELETE")

	router.HandleFunc("/tasks", app.listTasks).Methods("GET")
	router.HandleFunc("/tasks", app.createTask).Methods("POST")
	router.HandleFunc("/tasks/{id}/toggle", app.toggleTask).Methods("POST")
	router.HandleFunc("/tasks/{id}", app.deleteTask).Methods("DELETE")
	router.HandleFunc("/activity", app.listActivity).Methods("GET")

	router.HandleFunc("/profile", app.findProfile).Methods("GET")
	router.HandleFunc("/profile", app.saveProfile).Methods("PUT")
	router.HandleFunc("/profile/login", app.logIn).Methods("POST")
	router.HandleFunc("/profile/logout", app.logOut).Methods("POST")
	router.HandleFunc("/profile/support", app.sendSupportMessage).Methods("POST")
	router.HandleFunc("/profile/language", app.setLanguage).Methods("PUT")

	router.HandleFunc("/speech", app.speak).Methods("POST")
	router.HandleFunc("/speech", app.cancelSpeech).Methods("DELETE")
	router.HandleFunc("/hearing", app.transcript).Methods("GET")
	router.HandleFunc("/hearing", app.clearTranscript).Methods("DELETE")
	router.HandleFunc("/hearing/start", app.startListening).Methods("POST")
	router.HandleFunc("/hearing/stop", app.stopListening).Methods("POST")
	router.HandleFunc("/hearing/segments", app.publishSegment).Methods("POST")
	router.HandleFunc("/hearing/end", app.endRecognition).Methods("POST")

	router.HandleFunc("/reader/read", app.readAloud).Methods("POST")
	router.HandleFunc("/reader/recognize", app.recognizeImage).Methods("POST")
	router.HandleFunc("/reader/repeat", app.repeatText).Methods("POST")
	router.HandleFunc("/reader", app.lastReadText).Methods("GET")
}

// ---------------------------------------------------------------------------------//
// Shell
// --------------------------------------------------------------------------------//

func (app *App) dashboard(rw http.ResponseWriter, r *http.Request) {
	dashboard, err := app.shell.Dashboard(time.Now())
	if err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, dashboard)
}

func (app *App) openView(rw http.ResponseWriter, r *http.Request) {
	if err := app.shell.Open(mux.Vars(r)["view"]); err != nil {
		writeError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

func (app *App) closeView(rw http.ResponseWriter, r *http.Request) {
	if err := app.shell.Close(mux.Vars(r)["view"]); err != nil {
		writeError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Contacts
// --------------------------------------------------------------------------------//

func (app *App) listContacts(rw http.ResponseWriter, r *http.Request) {
	contacts, err := app.book.List()
	if err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, contacts)
}

func (app *App) findContact(rw http.ResponseWriter, r *http.Request) {
	contact, err := app.book.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, contact)
}

func (app *App) createContact(rw http.ResponseWriter, r *http.Request) {
	data := models.Contact{}
	if err := decodeBody(r, &data); err != nil {
		writeError(rw, err)
		return
	}

	contact, err := app.book.Add(data.Name, data.Phone, data.Category)
	if err != nil {
		writeError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: contact}, http.StatusCreated)
}

func (app *App) updateContact(rw http.ResponseWriter, r *http.Request) {
	data := models.Contact{}
	if err := decodeBody(r, &data); err != nil {
		writeError(rw, err)
		return
	}
	data.ID = mux.Vars(r)["id"]

	contact, err := app.book.Update(data)
	if err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, contact)
}

func (app *App) deleteContact(rw http.ResponseWriter, r *http.Request) {
	if err := app.book.Delete(mux.Vars(r)["id"]); err != nil {
		writeError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Tasks & activity
// --------------------------------------------------------------------------------//

func (app *App) listTasks(rw http.ResponseWriter, r *http.Request) {
	tasks, err := app.tasks.All()
	if err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, tasks)
}

func (app *App) createTask(rw http.ResponseWriter, r *http.Request) {
	data := models.Task{}
	if err := decodeBody(r, &data); err != nil {
		writeError(rw, err)
		return
	}

	task, err := app.tasks.Add(data.Title)
	if err != nil {
		writeError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: task}, http.StatusCreated)
}

func (app *App) toggleTask(rw http.ResponseWriter, r *http.Request) {
	task, err := app.tasks.Toggle(mux.Vars(r)["id"])
	if err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, task)
}

func (app *App) deleteTask(rw http.ResponseWriter, r *http.Request) {
	if err := app.tasks.Delete(mux.Vars(r)["id"]); err != nil {
		writeError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

func (app *App) listActivity(rw http.ResponseWriter, r *http.Request) {
	activities, err := app.repo.ActivityLog()
	if err != nil {
		writeError(rw, err)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))

	activities, paging := models.Paginate(activities, page, pageSize)
	writeResponse(rw, ResponsePayload{Success: true, Data: activities, Paging: paging}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Profile
// --------------------------------------------------------------------------------//

type profileResponse struct {
	models.Profile
	DisplayName string `json:"displayName"`
	LoggedIn    bool   `json:"loggedIn"`
	Language    string `json:"language"`
}

func (app *App) findProfile(rw http.ResponseWriter, r *http.Request) {
	profile, err := app.settings.Get()
	if err != nil {
		writeError(rw, err)
		return
	}

	loggedIn, err := app.settings.LoggedIn()
	if err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, profileResponse{
		Profile:     profile,
		DisplayName: app.settings.DisplayName(),
		LoggedIn:    loggedIn,
		Language:    app.settings.Language(),
	})
}

func (app *App) setLanguage(rw http.ResponseWriter, r *http.Request) {
	data := struct {
		Language string `json:"language"`
	}{}
	if err := decodeBody(r, &data); err != nil {
		writeError(rw, err)
		return
	}

	code, err := app.settings.SetLanguage(data.Language)
	if err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, map[string]string{"language": code})
}

func (app *App) saveProfile(rw http.ResponseWriter, r *http.Request) {
	data := models.Profile{}
	if err := decodeBody(r, &data); err != nil {
		writeError(rw, err)
		return
	}

	profile, err := app.settings.Save(data.Name, data.Phone)
	if err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, profile)
}

func (app *App) logIn(rw http.ResponseWriter, r *http.Request) {
	if err := app.settings.Login(); err != nil {
		writeError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

func (app *App) logOut(rw http.ResponseWriter, r *http.Request) {
	if err := app.settings.Logout(); err != nil {
		writeError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

func (app *App) sendSupportMessage(rw http.ResponseWriter, r *http.Request) {
	data := struct {
		Message string `json:"message"`
	}{}
	if err := decodeBody(r, &data); err != nil {
		writeError(rw, err)
		return
	}

	if err := app.settings.SendSupportMessage(data.Message); err != nil {
		writeError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusAccepted)
}
