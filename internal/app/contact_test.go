package app_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voyago_booking/internal/app"
	"voyago_booking/internal/domain"
)

func validContact() app.ContactInput {
	return app.ContactInput{
		Email:   "ada@example.com",
		Phone:   "+90 555 123 4567",
		Address: "Istiklal Cd. 1",
		City:    "Istanbul",
		ZipCode: "34000",
		Country: "tr",
	}
}

func TestCollectContact_HappyPath(t *testing.T) {
	c, errs := app.CollectContact(validContact())
	require.Nil(t, errs)
	assert.Equal(t, "ada@example.com", c.Email)
	assert.Equal(t, "TR", c.Country, "country code normalized to upper case")
	assert.Equal(t, "Istanbul", c.City)
}

func TestCollectContact_RequiredFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*app.ContactInput)
		path   string
	}{
		{"bad email", func(in *app.ContactInput) { in.Email = "nope" }, "contact.email"},
		{"empty email", func(in *app.ContactInput) { in.Email = "" }, "contact.email"},
		{"empty phone", func(in *app.ContactInput) { in.Phone = "  " }, "contact.phone"},
		{"empty address", func(in *app.ContactInput) { in.Address = "" }, "contact.address"},
		{"empty city", func(in *app.ContactInput) { in.City = "" }, "contact.city"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validContact()
			tc.mutate(&in)
			c, errs := app.CollectContact(in)
			require.NotNil(t, errs)
			assert.Contains(t, errs, tc.path)
			assert.Equal(t, domain.ContactInfo{}, c, "no partial record on failure")
		})
	}
}

func TestPrefillContact(t *testing.T) {
	leader := domain.Traveller{
		Nationality: "TR",
		IsLeader:    true,
		Email:       "ada@example.com",
		Phone:       "+90 555 123 4567",
	}
	in := app.PrefillContact(leader)
	assert.Equal(t, "ada@example.com", in.Email)
	assert.Equal(t, "+90 555 123 4567", in.Phone)
	assert.Equal(t, "TR", in.Country)
	assert.Empty(t, in.Address, "address stays for the user to fill")
}
