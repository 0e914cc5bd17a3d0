package app

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"voyago_booking/internal/domain"
)

// TravellerInput is the raw, untrusted form payload for one traveller.
// Dates use the 2006-01-02 layout.
type TravellerInput struct {
	Name               string `json:"name"`
	Surname            string `json:"surname"`
	BirthDate          string `json:"birth_date"`
	Gender             string `json:"gender"`
	Nationality        string `json:"nationality"`
	IdentityNumber     string `json:"identity_number"`
	PassportNumber     string `json:"passport_number"`
	PassportIssueDate  string `json:"passport_issue_date"`
	PassportExpireDate string `json:"passport_expire_date"`
	PassportCountry    string `json:"passport_country"`
	IsLeader           bool   `json:"is_leader"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
}

const dateLayout = "2006-01-02"

// earliest acceptable birthdate; anything before it is treated as a typo
var minBirthDate = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// TravellerCollector validates and normalizes traveller form input into
// frozen domain records. The identity branch depends on nationality: the
// domestic code requires a checksum-valid national identity number, anything
// else requires a passport with a future expiry.
type TravellerCollector struct {
	Domestic string           // domestic nationality code, e.g. "TR"
	Now      func() time.Time // injectable clock
}

func NewTravellerCollector(domestic string) *TravellerCollector {
	if domestic == "" {
		domestic = "TR"
	}
	return &TravellerCollector{Domestic: strings.ToUpper(domestic), Now: time.Now}
}

// Collect returns either the validated travellers or the field errors, never
// both. The returned slice is a fresh copy; callers own it.
func (c *TravellerCollector) Collect(inputs []TravellerInput) ([]domain.Traveller, domain.FieldErrors) {
	errs := domain.FieldErrors{}
	if len(inputs) == 0 {
		errs.Add("travellers", "at least one traveller is required")
		return nil, errs
	}

	now := c.now()
	out := make([]domain.Traveller, 0, len(inputs))
	leaders := 0

	for i, in := range inputs {
		path := func(field string) string { return fmt.Sprintf("travellers[%d].%s", i, field) }
		t := domain.Traveller{
			Name:        strings.TrimSpace(in.Name),
			Surname:     strings.TrimSpace(in.Surname),
			Gender:      strings.ToLower(strings.TrimSpace(in.Gender)),
			Nationality: strings.ToUpper(strings.TrimSpace(in.Nationality)),
			IsLeader:    in.IsLeader,
		}

		if t.Name == "" {
			errs.Add(path("name"), "name is required")
		}
		if t.Surname == "" {
			errs.Add(path("surname"), "surname is required")
		}
		if t.Gender != "male" && t.Gender != "female" {
			errs.Add(path("gender"), "gender must be male or female")
		}
		if t.Nationality == "" {
			errs.Add(path("nationality"), "nationality is required")
		}

		if bd, err := time.Parse(dateLayout, strings.TrimSpace(in.BirthDate)); err != nil {
			errs.Add(path("birth_date"), "birth date must be YYYY-MM-DD")
		} else if bd.After(now) {
			errs.Add(path("birth_date"), "birth date cannot be in the future")
		} else if bd.Before(minBirthDate) {
			errs.Add(path("birth_date"), "birth date is implausibly old")
		} else {
			t.BirthDate = bd
		}

		if t.Nationality == c.Domestic {
			id := strings.TrimSpace(in.IdentityNumber)
			if !ValidIdentityNumber(id) {
				errs.Add(path("identity_number"), "identity number is not valid")
			}
			t.IdentityNumber = id
		} else if t.Nationality != "" {
			c.collectPassport(in, &t, errs, path, now)
		}

		if in.IsLeader {
			leaders++
			t.Email = strings.TrimSpace(in.Email)
			t.Phone = strings.TrimSpace(in.Phone)
			if !validEmail(t.Email) {
				errs.Add(path("email"), "a valid email is required for the lead traveller")
			}
			if digitCount(t.Phone) < 7 {
				errs.Add(path("phone"), "a phone number with at least 7 digits is required for the lead traveller")
			}
		}

		out = append(out, t)
	}

	switch {
	case leaders == 0:
		errs.Add("travellers", "exactly one traveller must be marked as leader")
	case leaders > 1:
		errs.Add("travellers", "only one traveller may be marked as leader")
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

func (c *TravellerCollector) collectPassport(in TravellerInput, t *domain.Traveller, errs domain.FieldErrors, path func(string) string, now time.Time) {
	p := domain.Passport{
		Number:                 strings.TrimSpace(in.PassportNumber),
		CitizenshipCountryCode: strings.ToUpper(strings.TrimSpace(in.PassportCountry)),
	}
	if p.CitizenshipCountryCode == "" {
		p.CitizenshipCountryCode = t.Nationality
	}
	if p.Number == "" {
		errs.Add(path("passport_number"), "passport number is required for non-domestic travellers")
	}
	if exp := strings.TrimSpace(in.PassportExpireDate); exp == "" {
		errs.Add(path("passport_expire_date"), "passport expiry date is required")
	} else if d, err := time.Parse(dateLayout, exp); err != nil {
		errs.Add(path("passport_expire_date"), "passport expiry date must be YYYY-MM-DD")
	} else if !d.After(now) {
		errs.Add(path("passport_expire_date"), "passport must not be expired")
	} else {
		p.ExpireDate = d
	}
	if iss := strings.TrimSpace(in.PassportIssueDate); iss != "" {
		if d, err := time.Parse(dateLayout, iss); err != nil {
			errs.Add(path("passport_issue_date"), "passport issue date must be YYYY-MM-DD")
		} else {
			p.IssueDate = d
		}
	}
	t.Passport = &p
}

func (c *TravellerCollector) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// ValidIdentityNumber reports whether s is a checksum-valid domestic identity
// number: 11 digits, leading digit non-zero, and two derived checks over the
// alternating digit sums matching the 10th and 11th digits:
//
//	d10 = (7*(d1+d3+d5+d7+d9) - (d2+d4+d6+d8)) mod 10
//	d11 = (d1+...+d10) mod 10
func ValidIdentityNumber(s string) bool {
	if len(s) != 11 || s[0] == '0' {
		return false
	}
	var d [11]int
	for i := 0; i < 11; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
		d[i] = int(s[i] - '0')
	}
	odd := d[0] + d[2] + d[4] + d[6] + d[8]
	even := d[1] + d[3] + d[5] + d[7]
	if ((7*odd-even)%10+10)%10 != d[9] {
		return false
	}
	sum := 0
	for i := 0; i < 10; i++ {
		sum += d[i]
	}
	return sum%10 == d[10]
}

// validEmail is a syntactic check only: one '@', a non-empty local part, and
// a dotted domain.
func validEmail(s string) bool {
	at := strings.IndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return false
	}
	local, dom := s[:at], s[at+1:]
	if strings.ContainsAny(local, " \t") || strings.ContainsAny(dom, " \t@") {
		return false
	}
	dot := strings.LastIndexByte(dom, '.')
	return dot > 0 && dot < len(dom)-1
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
