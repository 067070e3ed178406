package models

const (
	FAMILY_CONTACT = "family"
	DOCTOR_CONTACT = "doctor"
)

var ContactCategoryMap = map[string]bool{
	FAMILY_CONTACT: true,
	DOCTOR_CONTACT: true,
}

// Contact is a caregiver who can be reached when the user needs help.
// Family contacts take priority over doctors when an alert goes out.
type Contact struct {
	BaseModel
	Name     string `json:"name" validate:"required"`
	Phone    string `json:"phone" validate:"required,phone_number"`
	Category string `json:"type" validate:"required,oneof=family doctor"`
}

func (contact Contact) IsFamily() bool {
	return contact.Category == FAMILY_CONTACT
}
