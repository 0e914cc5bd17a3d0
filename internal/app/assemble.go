package app

import (
	"errors"

	"voyago_booking/internal/domain"
)

var (
	ErrNoLeader       = errors.New("no traveller is marked as leader")
	ErrMultipleLeader = errors.New("more than one traveller is marked as leader")
)

// BuildReservationInfo merges validated travellers and contact info into the
// payload the gateway's save operation expects. It is a pure mapping: no
// I/O, no mutation of its inputs, and deterministic for identical inputs.
//
// Order numbers are 1-based by array position regardless of which traveller
// carries the leader flag. The customer record is derived from the leader
// traveller plus the contact record.
func BuildReservationInfo(travellers []domain.Traveller, contact domain.ContactInfo, note, agencyRef string) (domain.ReservationInfo, error) {
	if len(travellers) == 0 {
		return domain.ReservationInfo{}, ErrNoLeader
	}

	var leader *domain.Traveller
	out := make([]domain.Traveller, len(travellers))
	for i := range travellers {
		out[i] = travellers[i]
		out[i].OrderNumber = i + 1
		if out[i].Passport != nil {
			p := *travellers[i].Passport
			out[i].Passport = &p
		}
		if out[i].IsLeader {
			if leader != nil {
				return domain.ReservationInfo{}, ErrMultipleLeader
			}
			leader = &out[i]
		}
	}
	if leader == nil {
		return domain.ReservationInfo{}, ErrNoLeader
	}

	return domain.ReservationInfo{
		Travellers: out,
		Customer: domain.CustomerRecord{
			Name:        leader.Name,
			Surname:     leader.Surname,
			BirthDate:   leader.BirthDate,
			Nationality: leader.Nationality,
			Email:       contact.Email,
			Phone:       contact.Phone,
			Address:     contact.Address,
			City:        contact.City,
			ZipCode:     contact.ZipCode,
			Country:     contact.Country,
		},
		Note:            note,
		AgencyReference: agencyRef,
	}, nil
}
