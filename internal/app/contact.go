package app

import (
	"strings"

	"voyago_booking/internal/domain"
)

// ContactInput is the raw form payload for the booking's contact record.
type ContactInput struct {
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Address          string `json:"address"`
	City             string `json:"city"`
	ZipCode          string `json:"zip_code"`
	Country          string `json:"country"`
	EmergencyContact string `json:"emergency_contact"`
}

// PrefillContact seeds a contact form from the leader traveller. The result
// is a convenience default only; the submitted contact record is
// authoritative on its own.
func PrefillContact(leader domain.Traveller) ContactInput {
	return ContactInput{
		Email:   leader.Email,
		Phone:   leader.Phone,
		Country: leader.Nationality,
	}
}

// CollectContact validates and normalizes the contact form. Like the
// traveller collector it returns either a frozen record or field errors,
// never both.
func CollectContact(in ContactInput) (domain.ContactInfo, domain.FieldErrors) {
	errs := domain.FieldErrors{}
	c := domain.ContactInfo{
		Email:            strings.TrimSpace(in.Email),
		Phone:            strings.TrimSpace(in.Phone),
		Address:          strings.TrimSpace(in.Address),
		City:             strings.TrimSpace(in.City),
		ZipCode:          strings.TrimSpace(in.ZipCode),
		Country:          strings.ToUpper(strings.TrimSpace(in.Country)),
		EmergencyContact: strings.TrimSpace(in.EmergencyContact),
	}

	if !validEmail(c.Email) {
		errs.Add("contact.email", "a valid email is required")
	}
	if c.Phone == "" {
		errs.Add("contact.phone", "phone is required")
	}
	if c.Address == "" {
		errs.Add("contact.address", "address is required")
	}
	if c.City == "" {
		errs.Add("contact.city", "city is required")
	}

	if len(errs) > 0 {
		return domain.ContactInfo{}, errs
	}
	return c, nil
}
