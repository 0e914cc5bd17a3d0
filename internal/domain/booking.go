package domain

import "time"

type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxActive    TxStatus = "active"
	TxExpired   TxStatus = "expired"
	TxCommitted TxStatus = "committed"
	TxFailed    TxStatus = "failed"
)

// Transaction is the externally held inventory hold. The gateway assigns
// TransactionID and ExpiresOn when the hold is created; after ExpiresOn the
// hold is void regardless of anything we do locally.
type Transaction struct {
	TransactionID string    `json:"transaction_id"`
	ExpiresOn     time.Time `json:"expires_on"`
	Status        TxStatus  `json:"status"`
}

// Expired reports whether the hold has lapsed at the given instant.
func (t Transaction) Expired(now time.Time) bool {
	return !t.ExpiresOn.IsZero() && !now.Before(t.ExpiresOn)
}

type Price struct {
	Amount    float64  `json:"amount"`
	Currency  string   `json:"currency"`
	OldAmount *float64 `json:"old_amount,omitempty"`
}

type Room struct {
	Name      string `json:"name"`
	BoardType string `json:"board_type,omitempty"`
	Adults    int    `json:"adults"`
	Children  int    `json:"children"`
}

// Offer is read-only input from the search/offer service.
type Offer struct {
	OfferID      string    `json:"offer_id"`
	CheckIn      time.Time `json:"check_in"`
	CheckOut     time.Time `json:"check_out"`
	Nights       int       `json:"nights"`
	Price        Price     `json:"price"`
	Rooms        []Room    `json:"rooms,omitempty"`
	IsAvailable  bool      `json:"is_available"`
	IsRefundable bool      `json:"is_refundable"`
	ExpiresOn    time.Time `json:"expires_on"`
}

type Passport struct {
	Number                 string    `json:"number"`
	IssueDate              time.Time `json:"issue_date,omitempty"`
	ExpireDate             time.Time `json:"expire_date"`
	CitizenshipCountryCode string    `json:"citizenship_country_code"`
}

// Traveller is one passenger on the booking. Exactly one traveller carries
// IsLeader; the leader alone carries Email/Phone. Identity branch depends on
// nationality: domestic travellers carry IdentityNumber, everyone else a
// passport.
type Traveller struct {
	OrderNumber    int       `json:"order_number"`
	Name           string    `json:"name"`
	Surname        string    `json:"surname"`
	BirthDate      time.Time `json:"birth_date"`
	Gender         string    `json:"gender"`
	Nationality    string    `json:"nationality"`
	IdentityNumber string    `json:"identity_number,omitempty"`
	Passport       *Passport `json:"passport,omitempty"`
	IsLeader       bool      `json:"is_leader"`
	Email          string    `json:"email,omitempty"`
	Phone          string    `json:"phone,omitempty"`
}

type ContactInfo struct {
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Address          string `json:"address"`
	City             string `json:"city"`
	ZipCode          string `json:"zip_code,omitempty"`
	Country          string `json:"country,omitempty"`
	EmergencyContact string `json:"emergency_contact,omitempty"`
}

// CustomerRecord is the synthetic customer the gateway's save call expects,
// derived from the leader traveller plus the contact record.
type CustomerRecord struct {
	Name        string    `json:"name"`
	Surname     string    `json:"surname"`
	BirthDate   time.Time `json:"birth_date"`
	Nationality string    `json:"nationality"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address"`
	City        string    `json:"city"`
	ZipCode     string    `json:"zip_code,omitempty"`
	Country     string    `json:"country,omitempty"`
}

// ReservationInfo is the assembled payload for the gateway's save operation.
type ReservationInfo struct {
	Travellers      []Traveller    `json:"travellers"`
	Customer        CustomerRecord `json:"customer"`
	Note            string         `json:"note,omitempty"`
	AgencyReference string         `json:"agency_reference,omitempty"`
}

// ReservationRecord is the durable artifact of a successful commit.
type ReservationRecord struct {
	ReservationNumber string         `json:"reservation_number"`
	TransactionID     string         `json:"transaction_id"`
	Travellers        []Traveller    `json:"travellers"`
	Contact           ContactInfo    `json:"contact"`
	Offer             Offer          `json:"offer"`
	CommittedAt       time.Time      `json:"committed_at"`
	Detail            map[string]any `json:"detail,omitempty"` // best-effort enrichment
}
