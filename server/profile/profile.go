package profile

import (
	"fmt"
	"strings"

	"github.com/Daskott/enablex/server/intent"
	"github.com/Daskott/enablex/server/logger"
	"github.com/Daskott/enablex/server/models"
	"github.com/Daskott/enablex/server/work"
	"github.com/Daskott/enablex/shared"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"golang.org/x/text/language"
)

const (
	DEFAULT_NAME = "Margaret"

	SUPPORT_SUBJECT = "EnableX Support Request"
)

var logg = logger.NewLogger("profile")

type Store interface {
	Profile() (models.Profile, error)
	SaveProfile(profile models.Profile) error
	LoggedIn() (bool, error)
	SetLoggedIn(loggedIn bool) error
	Language() (string, error)
	SetLanguage(code string) error
}

type Queue interface {
	Perform(job work.JobParams) error
}

// Settings holds the user's own details. There is no authentication, being
// logged in only means a name & phone number were provided.
type Settings struct {
	store         Store
	queue         Queue
	supportEmails []string
}

func NewSettings(store Store, queue Queue, supportEmails []string) *Settings {
	return &Settings{store: store, queue: queue, supportEmails: supportEmails}
}

func (settings *Settings) Get() (models.Profile, error) {
	return settings.store.Profile()
}

// DisplayName is the saved name or DEFAULT_NAME
func (settings *Settings) DisplayName() string {
	profile, err := settings.store.Profile()
	if err != nil {
		logg.Warn(err)
	}

	if strings.TrimSpace(profile.Name) == "" {
		return DEFAULT_NAME
	}
	return profile.Name
}

func (settings *Settings) Save(name, phone string) (models.Profile, error) {
	profile := models.Profile{Name: strings.TrimSpace(name), Phone: strings.TrimSpace(phone)}

	if profile.Phone != "" {
		if err := models.ValidateVar(profile.Phone, "phone_number"); err != nil {
			return models.Profile{}, err
		}
	}

	if err := settings.store.SaveProfile(profile); err != nil {
		return models.Profile{}, err
	}
	return profile, nil
}

// Login marks the user as logged in, it needs both a name & phone number
func (settings *Settings) Login() error {
	profile, err := settings.store.Profile()
	if err != nil {
		return err
	}

	if !profile.IsComplete() {
		return shared.ErrProfileIncomplete
	}

	return settings.store.SetLoggedIn(true)
}

func (settings *Settings) Logout() error {
	return settings.store.SetLoggedIn(false)
}

func (settings *Settings) LoggedIn() (bool, error) {
	return settings.store.LoggedIn()
}

// Language is the chosen interface language, models.DEFAULT_LANGUAGE until
// one is set
func (settings *Settings) Language() string {
	code, err := settings.store.Language()
	if err != nil {
		logg.Warn(err)
	}

	if code == "" {
		return models.DEFAULT_LANGUAGE
	}
	return code
}

// SetLanguage saves the base language of tag e.g. "ta-IN" is saved as "ta".
// Only models.SUPPORTED_LANGUAGES are accepted.
func (settings *Settings) SetLanguage(tag string) (string, error) {
	parsed, err := language.Parse(strings.TrimSpace(tag))
	if err != nil {
		return "", errors.Wrapf(shared.ErrInvalidInput, "unknown language %q", tag)
	}

	base, _ := parsed.Base()
	code := base.String()
	if !lo.Contains(models.SUPPORTED_LANGUAGES, code) {
		return "", errors.Wrapf(shared.ErrInvalidInput, "language %q isn't supported", code)
	}

	if err := settings.store.SetLanguage(code); err != nil {
		return "", err
	}
	return code, nil
}

// SendSupportMessage opens a mail to the support addresses with the message
// & the user's details
func (settings *Settings) SendSupportMessage(message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return errors.Wrap(shared.ErrInvalidInput, "please enter your message")
	}

	if len(settings.supportEmails) == 0 || settings.queue == nil {
		return errors.Wrap(shared.ErrUnsupported, "no support address configured")
	}

	profile, err := settings.store.Profile()
	if err != nil {
		return err
	}

	uri := intent.Mailto(settings.supportEmails, SUPPORT_SUBJECT, SupportBody(profile, message))
	return settings.queue.Perform(intent.LaunchJob(fmt.Sprintf("support_%v", uuid.NewString()), uri))
}

func SupportBody(profile models.Profile, message string) string {
	name, phone := profile.Name, profile.Phone
	if name == "" {
		name = "User"
	}
	if phone == "" {
		phone = "N/A"
	}

	return fmt.Sprintf("From: %v\nPhone: %v\n\nMessage:\n%v", name, phone, message)
}
