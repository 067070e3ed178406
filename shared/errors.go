package shared

import "github.com/pkg/errors"

// Conditions surfaced to the device UI. None of them is fatal, each one is
// shown inline with a retry affordance.
var (
	ErrPermissionDenied     = errors.New("permission denied")
	ErrDeviceUnavailable    = errors.New("device unavailable")
	ErrUnsupported          = errors.New("not supported on this device")
	ErrNoContactsConfigured = errors.New("no caregivers added, please add contacts first")
	ErrService              = errors.New("network or service error")
	ErrTimeout              = errors.New("timed out")

	ErrNotFound          = errors.New("record not found")
	ErrSOSInProgress     = errors.New("sos alert already being sent")
	ErrCountdownActive   = errors.New("fall countdown already running")
	ErrNoCountdown       = errors.New("no fall countdown running")
	ErrProfileIncomplete = errors.New("please enter your name and phone number")
	ErrInvalidInput      = errors.New("invalid input")
)
