package intent

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Daskott/enablex/server/models"
)

const MAPS_SEARCH_URL = "https://www.google.com/maps/search/"

// SMS builds a messaging intent with the body pre-filled
func SMS(phone, body string) string {
	return fmt.Sprintf("sms:%s?body=%s", cleanPhone(phone), escape(body))
}

// Tel builds a dial intent for a single phone number
func Tel(phone string) string {
	return "tel:" + cleanPhone(phone)
}

// Mailto builds a mail intent for one or more addresses
func Mailto(addresses []string, subject, body string) string {
	query := url.Values{}
	if subject != "" {
		query.Set("subject", subject)
	}
	if body != "" {
		query.Set("body", body)
	}

	uri := "mailto:" + strings.Join(addresses, ",")
	if len(query) > 0 {
		// mail clients expect %20 rather than '+' for spaces
		uri += "?" + strings.ReplaceAll(query.Encode(), "+", "%20")
	}

	return uri
}

// MapsURL builds a web mapping query for a location
func MapsURL(sample models.LocationSample) string {
	query := url.Values{}
	query.Set("api", "1")
	query.Set("query", fmt.Sprintf("%v,%v", sample.Latitude, sample.Longitude))

	return MAPS_SEARCH_URL + "?" + query.Encode()
}

func cleanPhone(phone string) string {
	return strings.ReplaceAll(strings.TrimSpace(phone), " ", "")
}

// escape percent-encodes like a URI component, spaces become %20
func escape(value string) string {
	return strings.ReplaceAll(url.QueryEscape(value), "+", "%20")
}
