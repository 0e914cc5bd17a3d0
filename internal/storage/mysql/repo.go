package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"voyago_booking/internal/domain"
)

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// Archive writes the committed reservation once. Replays (double archive
// after a retried commit path) only refresh the enrichment detail; the
// original row is never rewritten.
func (r *Repo) Archive(ctx context.Context, rec domain.ReservationRecord) error {
	travellers, err := json.Marshal(rec.Travellers)
	if err != nil {
		return fmt.Errorf("marshal travellers: %w", err)
	}
	contact, err := json.Marshal(rec.Contact)
	if err != nil {
		return fmt.Errorf("marshal contact: %w", err)
	}
	offer, err := json.Marshal(rec.Offer)
	if err != nil {
		return fmt.Errorf("marshal offer: %w", err)
	}
	var detail any
	if rec.Detail != nil {
		b, err := json.Marshal(rec.Detail)
		if err != nil {
			return fmt.Errorf("marshal detail: %w", err)
		}
		detail = string(b)
	}

	_, err = r.db.ExecContext(ctx, insertReservationSQL,
		rec.ReservationNumber,
		rec.TransactionID,
		rec.Offer.OfferID,
		rec.Offer.CheckIn,
		rec.Offer.CheckOut,
		rec.Offer.Price.Currency,
		rec.Offer.Price.Amount,
		string(travellers),
		string(contact),
		string(offer),
		detail,
		rec.CommittedAt,
	)
	return err
}

func (r *Repo) GetReservation(ctx context.Context, reservationNumber string) (domain.ReservationRecord, error) {
	row := r.db.QueryRowContext(ctx, getReservationSQL, reservationNumber)

	var (
		rec        domain.ReservationRecord
		travellers []byte
		contact    []byte
		offer      []byte
		detail     sql.NullString
	)
	err := row.Scan(
		&rec.ReservationNumber,
		&rec.TransactionID,
		&travellers,
		&contact,
		&offer,
		&detail,
		&rec.CommittedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ReservationRecord{}, domain.ErrReservationNotFound
	}
	if err != nil {
		return domain.ReservationRecord{}, err
	}

	if err := json.Unmarshal(travellers, &rec.Travellers); err != nil {
		return domain.ReservationRecord{}, fmt.Errorf("unmarshal travellers: %w", err)
	}
	if err := json.Unmarshal(contact, &rec.Contact); err != nil {
		return domain.ReservationRecord{}, fmt.Errorf("unmarshal contact: %w", err)
	}
	if err := json.Unmarshal(offer, &rec.Offer); err != nil {
		return domain.ReservationRecord{}, fmt.Errorf("unmarshal offer: %w", err)
	}
	if detail.Valid && detail.String != "" {
		if err := json.Unmarshal([]byte(detail.String), &rec.Detail); err != nil {
			return domain.ReservationRecord{}, fmt.Errorf("unmarshal detail: %w", err)
		}
	}
	return rec, nil
}
