package alert

import (
	"fmt"
	"strings"
	"time"

	"github.com/Daskott/enablex/server/intent"
	"github.com/Daskott/enablex/server/models"
)

const (
	SOS_REASON          = "SOS Button Pressed"
	FALL_TIMEOUT_REASON = "FALL DETECTED - User did not respond"

	ALERT_PAYLOAD = "alert"
	SHARE_PAYLOAD = "share"

	TIME_LAYOUT = "1/2/2006, 3:04:05 PM"
)

// Payload is what gets handed to a contact's messaging app
type Payload struct {
	Kind      string                 `json:"kind"`
	Reason    string                 `json:"reason"`
	Location  *models.LocationSample `json:"location"`
	Timestamp time.Time              `json:"timestamp"`
}

func NewAlertPayload(reason string, location *models.LocationSample, at time.Time) Payload {
	return Payload{Kind: ALERT_PAYLOAD, Reason: reason, Location: location, Timestamp: at}
}

func NewSharePayload(location models.LocationSample, at time.Time) Payload {
	return Payload{Kind: SHARE_PAYLOAD, Location: &location, Timestamp: at}
}

// Message is the text body sent to the contact
func (payload Payload) Message() string {
	at := payload.Timestamp.Local().Format(TIME_LAYOUT)

	if payload.Kind == SHARE_PAYLOAD && payload.Location != nil {
		return fmt.Sprintf("📍 Live Location Shared\n\nView my current location: %v\n\nShared at: %v",
			intent.MapsURL(*payload.Location), at)
	}

	var message strings.Builder
	message.WriteString("🚨 EMERGENCY ALERT 🚨\n\n")
	message.WriteString(payload.Reason)
	message.WriteString("\n\nUser needs immediate assistance!\n\n")

	if payload.Location != nil {
		fmt.Fprintf(&message, "📍 Live Location: %v\n\nCoordinates: %v\n\n",
			intent.MapsURL(*payload.Location), payload.Location)
	} else {
		message.WriteString("📍 Location: Unable to retrieve\n\n")
	}

	fmt.Fprintf(&message, "⏰ Time: %v\n\nThis is an automated alert from EnableX.", at)
	return message.String()
}
