package models

const DEFAULT_LANGUAGE = "en"

// SUPPORTED_LANGUAGES are the interface languages, as ISO 639-1 codes
var SUPPORTED_LANGUAGES = []string{"en", "ta", "ml", "ne", "te", "kn"}

type Profile struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (profile Profile) IsComplete() bool {
	return profile.Name != "" && profile.Phone != ""
}
