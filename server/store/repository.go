package store

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Daskott/enablex/server/models"
)

const (
	USER_NAME_KEY        = "enablex_user_name"
	USER_PHONE_KEY       = "enablex_user_phone"
	LOGGED_IN_KEY        = "enablex_logged_in"
	CAREGIVERS_KEY       = "enablex_caregivers"
	MEDICINES_KEY        = "enablex_medicines"
	TASKS_KEY            = "enablex_tasks"
	EVENT_LOG_KEY        = "enablex_event_log"
	CURRENT_LOCATION_KEY = "enablex_current_location"
	ACTIVITY_LOG_KEY     = "enablex_activity_log"
	LANGUAGE_KEY         = "enablex_language"
)

var AllKeys = []string{
	USER_NAME_KEY,
	USER_PHONE_KEY,
	LOGGED_IN_KEY,
	CAREGIVERS_KEY,
	MEDICINES_KEY,
	TASKS_KEY,
	EVENT_LOG_KEY,
	CURRENT_LOCATION_KEY,
	ACTIVITY_LOG_KEY,
	LANGUAGE_KEY,
}

// Repository gives typed access to every key in the local store.
// It's passed to each component that needs persistence.
type Repository struct {
	kv KV
}

func NewRepository(kv KV) *Repository {
	return &Repository{kv: kv}
}

func (repo *Repository) Profile() (models.Profile, error) {
	name, _, err := repo.kv.Get(USER_NAME_KEY)
	if err != nil {
		return models.Profile{}, fmt.Errorf("Profile: %v", err)
	}

	phone, _, err := repo.kv.Get(USER_PHONE_KEY)
	if err != nil {
		return models.Profile{}, fmt.Errorf("Profile: %v", err)
	}

	return models.Profile{Name: name, Phone: phone}, nil
}

func (repo *Repository) SaveProfile(profile models.Profile) error {
	err := repo.kv.Set(USER_NAME_KEY, profile.Name)
	if err != nil {
		return fmt.Errorf("SaveProfile: %v", err)
	}

	err = repo.kv.Set(USER_PHONE_KEY, profile.Phone)
	if err != nil {
		return fmt.Errorf("SaveProfile: %v", err)
	}

	return nil
}

func (repo *Repository) LoggedIn() (bool, error) {
	value, ok, err := repo.kv.Get(LOGGED_IN_KEY)
	if err != nil || !ok {
		return false, err
	}

	loggedIn, err := strconv.ParseBool(value)
	if err != nil {
		// Anything other than "true" counts as logged out
		return false, nil
	}

	return loggedIn, nil
}

func (repo *Repository) SetLoggedIn(loggedIn bool) error {
	return repo.kv.Set(LOGGED_IN_KEY, strconv.FormatBool(loggedIn))
}

// Language is the saved interface language code, "" when none was chosen
func (repo *Repository) Language() (string, error) {
	value, _, err := repo.kv.Get(LANGUAGE_KEY)
	if err != nil {
		return "", fmt.Errorf("Language: %v", err)
	}
	return value, nil
}

func (repo *Repository) SetLanguage(code string) error {
	return repo.kv.Set(LANGUAGE_KEY, code)
}

func (repo *Repository) Contacts() ([]models.Contact, error) {
	contacts := []models.Contact{}
	err := repo.getJSON(CAREGIVERS_KEY, &contacts)
	return contacts, err
}

func (repo *Repository) SaveContacts(contacts []models.Contact) error {
	return repo.setJSON(CAREGIVERS_KEY, contacts)
}

func (repo *Repository) Medicines() ([]models.Medicine, error) {
	medicines := []models.Medicine{}
	err := repo.getJSON(MEDICINES_KEY, &medicines)
	return medicines, err
}

func (repo *Repository) SaveMedicines(medicines []models.Medicine) error {
	return repo.setJSON(MEDICINES_KEY, medicines)
}

func (repo *Repository) Tasks() ([]models.Task, error) {
	tasks := []models.Task{}
	err := repo.getJSON(TASKS_KEY, &tasks)
	return tasks, err
}

func (repo *Repository) SaveTasks(tasks []models.Task) error {
	return repo.setJSON(TASKS_KEY, tasks)
}

func (repo *Repository) EventLog() ([]models.EmergencyEvent, error) {
	events := []models.EmergencyEvent{}
	err := repo.getJSON(EVENT_LOG_KEY, &events)
	return events, err
}

func (repo *Repository) SaveEventLog(events []models.EmergencyEvent) error {
	return repo.setJSON(EVENT_LOG_KEY, events)
}

// Location returns the last known location, if any
func (repo *Repository) Location() (*models.LocationSample, error) {
	var sample *models.LocationSample
	err := repo.getJSON(CURRENT_LOCATION_KEY, &sample)
	return sample, err
}

func (repo *Repository) SaveLocation(sample models.LocationSample) error {
	return repo.setJSON(CURRENT_LOCATION_KEY, sample)
}

func (repo *Repository) ActivityLog() ([]models.Activity, error) {
	activities := []models.Activity{}
	err := repo.getJSON(ACTIVITY_LOG_KEY, &activities)
	return activities, err
}

// LogActivity adds an activity to the front of the activity log,
// keeping only the latest MAX_ACTIVITIES
func (repo *Repository) LogActivity(activity models.Activity) error {
	activities, err := repo.ActivityLog()
	if err != nil {
		return err
	}

	activities = append([]models.Activity{activity}, activities...)
	if len(activities) > models.MAX_ACTIVITIES {
		activities = activities[:models.MAX_ACTIVITIES]
	}

	return repo.setJSON(ACTIVITY_LOG_KEY, activities)
}

// Clear removes every key owned by the app
func (repo *Repository) Clear() error {
	for _, key := range AllKeys {
		if err := repo.kv.Delete(key); err != nil {
			return fmt.Errorf("Clear: %v", err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func (repo *Repository) getJSON(key string, out interface{}) error {
	value, ok, err := repo.kv.Get(key)
	if err != nil {
		return fmt.Errorf("getJSON(%v): %v", key, err)
	}

	if !ok || value == "" {
		return nil
	}

	err = json.Unmarshal([]byte(value), out)
	if err != nil {
		return fmt.Errorf("getJSON(%v): %v", key, err)
	}

	return nil
}

func (repo *Repository) setJSON(key string, in interface{}) error {
	value, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("setJSON(%v): %v", key, err)
	}

	err = repo.kv.Set(key, string(value))
	if err != nil {
		return fmt.Errorf("setJSON(%v): %v", key, err)
	}

	return nil
}
