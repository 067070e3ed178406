package server

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Daskott/enablex/server/models"
	"github.com/Daskott/enablex/server/speech"
	"github.com/Daskott/enablex/shared"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

// images posted to the reader are camera stills
const MAX_IMAGE_BYTES = 10 << 20

// ---------------------------------------------------------------------------------//
// Medication
// --------------------------------------------------------------------------------//

func (app *App) listMedicines(rw http.ResponseWriter, r *http.Request) {
	medicines, err := app.medication.List()
	if err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, medicines)
}

func (app *App) createMedicine(rw http.ResponseWriter, r *http.Request) {
	data := models.Medicine{}
	if err := decodeBody(r, &data); err != nil {
		writeError(rw, err)
		return
	}

	medicine, err := app.medication.Add(data.Name, data.Times)
	if err != nil {
		writeError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: medicine}, http.StatusCreated)
}

func (app *App) updateMedicine(rw http.ResponseWriter, r *http.Request) {
	data := models.Medicine{}
	if err := decodeBody(r, &data); err != nil {
		writeError(rw, err)
		return
	}
	data.ID = mux.Vars(r)["id"]

	medicine, err := app.medication.Update(data)
	if err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, medicine)
}

func (app *App) deleteMedicine(rw http.ResponseWriter, r *http.Request) {
	if err := app.medication.Delete(mux.Vars(r)["id"]); err != nil {
		writeError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

func (app *App) upcomingDoses(rw http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 3
	}

	doses, err := app.medication.Upcoming(time.Now(), limit)
	if err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, doses)
}

func (app *App) activeReminder(rw http.ResponseWriter, r *http.Request) {
	writeData(rw, app.medication.ActiveAlert())
}

func (app *App) simulateReminder(rw http.ResponseWriter, r *http.Request) {
	reminder, err := app.medication.SimulateAlert()
	if err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, reminder)
}

func (app *App) takenReminder(rw http.ResponseWriter, r *http.Request) {
	if err := app.medication.Taken(); err != nil {
		writeError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

func (app *App) snoozeReminder(rw http.ResponseWriter, r *http.Request) {
	if err := app.medication.Snooze(); err != nil {
		writeError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Speech
// --------------------------------------------------------------------------------//

func (app *App) speak(rw http.ResponseWriter, r *http.Request) {
	utterance := speech.Utterance{}
	if err := decodeBody(r, &utterance); err != nil {
		writeError(rw, err)
		return
	}

	if err := models.Validate(utterance); err != nil {
		writeError(rw, err)
		return
	}

	if err := app.synth.Speak(utterance); err != nil {
		writeError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusAccepted)
}

func (app *App) cancelSpeech(rw http.ResponseWriter, r *http.Request) {
	app.synth.Cancel()
	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

func (app *App) transcript(rw http.ResponseWriter, r *http.Request) {
	writeData(rw, app.hearing.Transcript())
}

func (app *App) clearTranscript(rw http.ResponseWriter, r *http.Request) {
	app.hearing.Clear()
	writeData(rw, app.hearing.Transcript())
}

func (app *App) startListening(rw http.ResponseWriter, r *http.Request) {
	if err := app.hearing.Start(); err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, app.hearing.Transcript())
}

func (app *App) stopListening(rw http.ResponseWriter, r *http.Request) {
	app.hearing.Stop()
	writeData(rw, app.hearing.Transcript())
}

// publishSegment receives recognized speech from the device UI
func (app *App) publishSegment(rw http.ResponseWriter, r *http.Request) {
	segment := speech.Segment{}
	if err := decodeBody(r, &segment); err != nil {
		writeError(rw, err)
		return
	}

	if err := app.recognizer.Publish(segment); err != nil {
		writeError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

// endRecognition is posted when the platform ends a recognition session
func (app *App) endRecognition(rw http.ResponseWriter, r *http.Request) {
	data := struct {
		Error string `json:"error"`
	}{}
	if err := decodeBody(r, &data); err != nil {
		writeError(rw, err)
		return
	}

	app.recognizer.End(recognitionError(data.Error))
	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Reader
// --------------------------------------------------------------------------------//

type readResponse struct {
	Text string `json:"text"`
}

func (app *App) readAloud(rw http.ResponseWriter, r *http.Request) {
	text, err := app.reader.ReadAloud(r.Context())
	if err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, readResponse{Text: text})
}

// recognizeImage runs OCR on an image uploaded as the raw request body
func (app *App) recognizeImage(rw http.ResponseWriter, r *http.Request) {
	image, err := io.ReadAll(io.LimitReader(r.Body, MAX_IMAGE_BYTES))
	if err != nil {
		writeError(rw, errors.Wrap(shared.ErrInvalidInput, err.Error()))
		return
	}

	text, err := app.reader.Recognize(r.Context(), image)
	if err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, readResponse{Text: text})
}

func (app *App) repeatText(rw http.ResponseWriter, r *http.Request) {
	if err := app.reader.Repeat(); err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, readResponse{Text: app.reader.LastText()})
}

func (app *App) lastReadText(rw http.ResponseWriter, r *http.Request) {
	writeData(rw, readResponse{Text: app.reader.LastText()})
}
