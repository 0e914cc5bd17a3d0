package domain

import (
	"context"
	"time"
)

// HoldResult is the gateway's answer to a begin-transaction call.
type HoldResult struct {
	TransactionID      string
	ExpiresOn          time.Time
	Status             string
	TravellerTemplates []Traveller
}

// CommitResult is the gateway's answer to a commit call. Some gateway tenants
// return only the encrypted form of the reservation number.
type CommitResult struct {
	ReservationNumber          string
	EncryptedReservationNumber string
}

// BookingGateway is the remote booking API. Implementations translate the
// uniform response envelope: header.success=false becomes *DomainError,
// transport/HTTP failures become *TransportError.
type BookingGateway interface {
	BeginTransaction(ctx context.Context, offerIDs []string, currency, culture string) (HoldResult, error)
	SetReservationInfo(ctx context.Context, transactionID string, info ReservationInfo) error
	CommitTransaction(ctx context.Context, transactionID string) (CommitResult, error)
	GetReservationDetail(ctx context.Context, reservationNumber string) (map[string]any, error)
}

// Snapshot is the persisted image of one booking session; it lets an
// in-progress booking survive navigation and process restarts.
type Snapshot struct {
	SessionID  string             `json:"session_id"`
	State      string             `json:"state"`
	Tx         Transaction        `json:"tx"`
	Offer      Offer              `json:"offer"`
	Templates  []Traveller        `json:"templates,omitempty"`
	Travellers []Traveller        `json:"travellers,omitempty"`
	Contact    *ContactInfo       `json:"contact,omitempty"`
	Record     *ReservationRecord `json:"record,omitempty"`
	Attempts   int                `json:"attempts,omitempty"`
}

type SessionStore interface {
	Save(ctx context.Context, snap Snapshot, ttl time.Duration) error
	Load(ctx context.Context, sessionID string) (Snapshot, bool, error)
	Delete(ctx context.Context, sessionID string) error
}

// ReservationArchive stores committed reservations durably. Archive failures
// are logged and never affect the committed outcome.
type ReservationArchive interface {
	Archive(ctx context.Context, rec ReservationRecord) error
	GetReservation(ctx context.Context, reservationNumber string) (ReservationRecord, error)
}
