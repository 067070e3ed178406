package contacts

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Daskott/enablex/server/logger"
	"github.com/Daskott/enablex/server/models"
	"github.com/Daskott/enablex/shared"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

var logg = logger.NewLogger("contacts")

type Store interface {
	Contacts() ([]models.Contact, error)
	SaveContacts(contacts []models.Contact) error
}

// Book is the caregiver list, kept in insertion order
type Book struct {
	mu    sync.Mutex
	store Store
}

func NewBook(store Store) *Book {
	return &Book{store: store}
}

func (book *Book) List() ([]models.Contact, error) {
	book.mu.Lock()
	defer book.mu.Unlock()

	return book.store.Contacts()
}

func (book *Book) Get(id string) (models.Contact, error) {
	contacts, err := book.List()
	if err != nil {
		return models.Contact{}, err
	}

	contact, ok := lo.Find(contacts, func(c models.Contact) bool { return c.ID == id })
	if !ok {
		return models.Contact{}, errors.Wrapf(shared.ErrNotFound, "contact %v", id)
	}
	return contact, nil
}

// Add validates & appends a new contact, duplicate phone numbers are allowed
func (book *Book) Add(name, phone, category string) (models.Contact, error) {
	contact := models.Contact{
		BaseModel: models.BaseModel{ID: models.NewID()},
		Name:      strings.TrimSpace(name),
		Phone:     strings.TrimSpace(phone),
		Category:  strings.ToLower(strings.TrimSpace(category)),
	}

	if err := models.Validate(contact); err != nil {
		return models.Contact{}, err
	}

	book.mu.Lock()
	defer book.mu.Unlock()

	contacts, err := book.store.Contacts()
	if err != nil {
		return models.Contact{}, err
	}

	if err := book.store.SaveContacts(append(contacts, contact)); err != nil {
		return models.Contact{}, fmt.Errorf("Add: %v", err)
	}

	logg.Infof("Added %v contact %v", contact.Category, contact.Name)
	return contact, nil
}

// Update replaces the fields of an existing contact, keeping its id & position
func (book *Book) Update(contact models.Contact) (models.Contact, error) {
	contact.Name = strings.TrimSpace(contact.Name)
	contact.Phone = strings.TrimSpace(contact.Phone)
	contact.Category = strings.ToLower(strings.TrimSpace(contact.Category))

	if err := models.Validate(contact); err != nil {
		return models.Contact{}, err
	}

	book.mu.Lock()
	defer book.mu.Unlock()

	contacts, err := book.store.Contacts()
	if err != nil {
		return models.Contact{}, err
	}

	_, index, ok := lo.FindIndexOf(contacts, func(c models.Contact) bool { return c.ID == contact.ID })
	if !ok {
		return models.Contact{}, errors.Wrapf(shared.ErrNotFound, "contact %v", contact.ID)
	}
	contacts[index] = contact

	if err := book.store.SaveContacts(contacts); err != nil {
		return models.Contact{}, fmt.Errorf("Update: %v", err)
	}
	return contact, nil
}

func (book *Book) Delete(id string) error {
	book.mu.Lock()
	defer book.mu.Unlock()

	contacts, err := book.store.Contacts()
	if err != nil {
		return err
	}

	remaining := lo.Reject(contacts, func(c models.Contact, _ int) bool { return c.ID == id })
	if len(remaining) == len(contacts) {
		return errors.Wrapf(shared.ErrNotFound, "contact %v", id)
	}

	if err := book.store.SaveContacts(remaining); err != nil {
		return fmt.Errorf("Delete: %v", err)
	}
	return nil
}

// PriorityContacts returns the family contacts if there are any, otherwise
// every contact. Order within the set is insertion order.
func PriorityContacts(contacts []models.Contact) []models.Contact {
	family := lo.Filter(contacts, func(c models.Contact, _ int) bool { return c.IsFamily() })
	if len(family) > 0 {
		return family
	}
	return contacts
}

// Primary is the contact to call first: the first family contact, else the
// first contact
func Primary(contacts []models.Contact) (models.Contact, bool) {
	priority := PriorityContacts(contacts)
	if len(priority) == 0 {
		return models.Contact{}, false
	}
	return priority[0], true
}
