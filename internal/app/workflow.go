package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"voyago_booking/internal/domain"
)

type State string

const (
	StateIdle             State = "idle"
	StateHoldPending      State = "hold_pending"
	StateHoldActive       State = "hold_active"
	StateTravellersReady  State = "travellers_ready"
	StateReservationSaved State = "reservation_saved"
	StateCommitted        State = "committed"
	StateExpired          State = "expired"
	StateHoldFailed       State = "hold_failed"
)

// WorkflowConfig carries the knobs one booking session runs with.
type WorkflowConfig struct {
	Currency      string
	Culture       string
	Domestic      string           // domestic nationality code
	CommitRetries int              // max commit attempts before the session is declared stuck
	Now           func() time.Time // injectable clock
}

func (c *WorkflowConfig) defaults() {
	if c.Currency == "" {
		c.Currency = "EUR"
	}
	if c.Culture == "" {
		c.Culture = "en-US"
	}
	if c.CommitRetries <= 0 {
		c.CommitRetries = 3
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Workflow drives one booking attempt through the ordered protocol
// beginHold -> saveReservation -> commit against a time-limited hold.
//
// At most one operation may be in flight per workflow; a second call while
// one is pending returns ErrOperationInFlight rather than queueing, because
// the gateway does not guarantee idempotent retries for commit. The expiry
// deadline is re-checked before every gateway call; wall-clock drift during
// a long form fill is the normal case, not the exception.
type Workflow struct {
	sessionID string
	gw        domain.BookingGateway
	store     domain.SessionStore // optional; nil disables persistence
	cfg       WorkflowConfig
	collector *TravellerCollector
	inflight  *semaphore.Weighted

	// OnTransition, when set, observes every state change.
	OnTransition func(from, to string)

	mu         sync.Mutex
	state      State
	tx         domain.Transaction
	offer      domain.Offer
	templates  []domain.Traveller
	travellers []domain.Traveller
	contact    *domain.ContactInfo
	record     *domain.ReservationRecord
	attempts   int
}

func NewWorkflow(sessionID string, gw domain.BookingGateway, store domain.SessionStore, cfg WorkflowConfig) *Workflow {
	cfg.defaults()
	return &Workflow{
		sessionID: sessionID,
		gw:        gw,
		store:     store,
		cfg:       cfg,
		collector: &TravellerCollector{Domestic: cfg.Domestic, Now: cfg.Now},
		inflight:  semaphore.NewWeighted(1),
		state:     StateIdle,
	}
}

// RestoreWorkflow rebuilds a workflow from a persisted snapshot.
func RestoreWorkflow(snap domain.Snapshot, gw domain.BookingGateway, store domain.SessionStore, cfg WorkflowConfig) *Workflow {
	w := NewWorkflow(snap.SessionID, gw, store, cfg)
	w.state = State(snap.State)
	w.tx = snap.Tx
	w.offer = snap.Offer
	w.templates = snap.Templates
	w.travellers = snap.Travellers
	w.contact = snap.Contact
	w.record = snap.Record
	w.attempts = snap.Attempts
	return w
}

// BeginHold acquires a time-limited inventory hold for the offer. It is
// accepted from Idle, from HoldFailed (retry) and from Expired (restart);
// a second call on top of a live hold is rejected so one session can never
// open duplicate holds.
func (w *Workflow) BeginHold(ctx context.Context, offer domain.Offer) error {
	if !w.inflight.TryAcquire(1) {
		return domain.ErrOperationInFlight
	}
	defer w.inflight.Release(1)

	w.mu.Lock()
	switch w.state {
	case StateIdle, StateHoldFailed, StateExpired:
	default:
		defer w.mu.Unlock()
		return &domain.SequenceError{State: string(w.state), Op: "beginHold"}
	}
	if offer.OfferID == "" {
		defer w.mu.Unlock()
		return domain.FieldErrors{"offer_id": "offer id is required"}
	}
	w.to(StateHoldPending)
	w.mu.Unlock()

	res, err := w.gw.BeginTransaction(ctx, []string{offer.OfferID}, w.cfg.Currency, w.cfg.Culture)
	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		// no partial state survives a failed hold attempt
		w.tx = domain.Transaction{}
		w.to(StateHoldFailed)
		return err
	}

	w.tx = domain.Transaction{TransactionID: res.TransactionID, ExpiresOn: res.ExpiresOn, Status: domain.TxActive}
	w.offer = offer
	w.templates = res.TravellerTemplates
	w.travellers = nil
	w.contact = nil
	w.record = nil
	w.attempts = 0
	w.to(StateHoldActive)
	w.persist(ctx)
	return nil
}

// CollectTravellers validates traveller input and parks the frozen records
// on the session without touching the gateway. Re-entry is allowed until the
// reservation is saved, so "back" navigation never loses captured data.
func (w *Workflow) CollectTravellers(ctx context.Context, inputs []TravellerInput) error {
	if !w.inflight.TryAcquire(1) {
		return domain.ErrOperationInFlight
	}
	defer w.inflight.Release(1)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateHoldActive && w.state != StateTravellersReady {
		return &domain.SequenceError{State: string(w.state), Op: "collectTravellers"}
	}
	if w.tx.Expired(w.cfg.Now()) {
		w.expireLocked(ctx)
		return domain.ErrExpired
	}

	ts, ferrs := w.collector.Collect(inputs)
	if ferrs != nil {
		return ferrs
	}
	w.travellers = ts
	w.to(StateTravellersReady)
	w.persist(ctx)
	return nil
}

// SaveReservationInput is the submission that moves a session to
// ReservationSaved. Travellers may be omitted when a prior CollectTravellers
// already captured them.
type SaveReservationInput struct {
	Travellers      []TravellerInput
	Contact         ContactInput
	Note            string
	AgencyReference string
}

// SaveReservation validates travellers and contact locally, assembles the
// gateway payload and submits it. Validation failures never reach the
// network. A transport or gateway failure leaves the session in
// TravellersReady with all captured data intact, so the caller can retry
// without re-acquiring the hold.
func (w *Workflow) SaveReservation(ctx context.Context, in SaveReservationInput) error {
	if !w.inflight.TryAcquire(1) {
		return domain.ErrOperationInFlight
	}
	defer w.inflight.Release(1)

	w.mu.Lock()
	if w.state != StateHoldActive && w.state != StateTravellersReady {
		defer w.mu.Unlock()
		return &domain.SequenceError{State: string(w.state), Op: "saveReservation"}
	}
	if w.tx.Expired(w.cfg.Now()) {
		defer w.mu.Unlock()
		w.expireLocked(ctx)
		return domain.ErrExpired
	}

	errs := domain.FieldErrors{}
	travellers := w.travellers
	if len(in.Travellers) > 0 {
		ts, ferrs := w.collector.Collect(in.Travellers)
		if ferrs != nil {
			errs.Merge("", ferrs)
		} else {
			travellers = ts
		}
	} else if len(travellers) == 0 {
		errs.Add("travellers", "at least one traveller is required")
	}
	contact, cerrs := CollectContact(in.Contact)
	if cerrs != nil {
		errs.Merge("", cerrs)
	}
	if len(errs) > 0 {
		defer w.mu.Unlock()
		return errs
	}

	info, err := BuildReservationInfo(travellers, contact, in.Note, in.AgencyReference)
	if err != nil {
		defer w.mu.Unlock()
		return domain.FieldErrors{"travellers": err.Error()}
	}

	// local validation passed: the captured data survives a failed submit
	w.travellers = travellers
	w.contact = &contact
	w.to(StateTravellersReady)
	txID := w.tx.TransactionID
	w.mu.Unlock()

	err = w.gw.SetReservationInfo(ctx, txID, info)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateTravellersReady {
		// the session was expired while the call was on the wire
		return domain.ErrExpired
	}
	if err != nil {
		w.persist(ctx)
		return err
	}
	w.to(StateReservationSaved)
	w.persist(ctx)
	return nil
}

// Commit converts the held inventory plus saved reservation info into a
// permanent reservation. Success is one-way: a later Commit call is rejected
// locally without contacting the gateway, which is what makes a double click
// harmless. Failures leave the session in ReservationSaved for a bounded
// number of further attempts.
func (w *Workflow) Commit(ctx context.Context) (domain.ReservationRecord, error) {
	if !w.inflight.TryAcquire(1) {
		return domain.ReservationRecord{}, domain.ErrOperationInFlight
	}
	defer w.inflight.Release(1)

	w.mu.Lock()
	if w.state != StateReservationSaved {
		defer w.mu.Unlock()
		return domain.ReservationRecord{}, &domain.SequenceError{State: string(w.state), Op: "commit"}
	}
	if w.tx.Expired(w.cfg.Now()) {
		defer w.mu.Unlock()
		w.expireLocked(ctx)
		return domain.ReservationRecord{}, domain.ErrExpired
	}
	if w.attempts >= w.cfg.CommitRetries {
		defer w.mu.Unlock()
		return domain.ReservationRecord{}, domain.ErrCommitRetriesExhausted
	}
	w.attempts++
	txID := w.tx.TransactionID
	w.mu.Unlock()

	res, err := w.gw.CommitTransaction(ctx, txID)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateReservationSaved {
		// the session was expired while the call was on the wire
		return domain.ReservationRecord{}, domain.ErrExpired
	}
	if err != nil {
		w.persist(ctx)
		return domain.ReservationRecord{}, err
	}

	number := res.ReservationNumber
	if number == "" {
		number = res.EncryptedReservationNumber
	}
	rec := domain.ReservationRecord{
		ReservationNumber: number,
		TransactionID:     txID,
		Travellers:        w.travellers,
		Offer:             w.offer,
		CommittedAt:       w.cfg.Now().UTC(),
	}
	if w.contact != nil {
		rec.Contact = *w.contact
	}
	w.tx.Status = domain.TxCommitted
	w.record = &rec
	w.to(StateCommitted)

	// best-effort enrichment; its failure must not shadow the committed outcome
	if detail, derr := w.gw.GetReservationDetail(ctx, number); derr != nil {
		log.Warn().Str("session", w.sessionID).Str("reservation", number).Err(derr).
			Msg("reservation detail enrichment failed")
	} else {
		w.record.Detail = detail
	}

	w.persist(ctx)
	return *w.record, nil
}

// WorkflowView is a read-only snapshot of the session for callers.
type WorkflowView struct {
	SessionID         string                    `json:"session_id"`
	State             State                     `json:"state"`
	Transaction       domain.Transaction        `json:"transaction"`
	Offer             domain.Offer              `json:"offer"`
	Templates         []domain.Traveller        `json:"traveller_templates,omitempty"`
	Reservation       *domain.ReservationRecord `json:"reservation,omitempty"`
	RemainingAttempts int                       `json:"remaining_commit_attempts"`
}

// View reports current state; it also performs the lazy expiry transition so
// a poll observes Expired as soon as the deadline passes. The transition is
// taken only when no operation is in flight: an operation releases w.mu
// around its gateway call, and expiring underneath it would clear data the
// resume path still needs.
func (w *Workflow) View(ctx context.Context) WorkflowView {
	if w.inflight.TryAcquire(1) {
		w.mu.Lock()
		switch w.state {
		case StateHoldActive, StateTravellersReady, StateReservationSaved:
			if w.tx.Expired(w.cfg.Now()) {
				w.expireLocked(ctx)
			}
		}
		w.mu.Unlock()
		w.inflight.Release(1)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	v := WorkflowView{
		SessionID:         w.sessionID,
		State:             w.state,
		Transaction:       w.tx,
		Offer:             w.offer,
		Templates:         w.templates,
		RemainingAttempts: w.cfg.CommitRetries - w.attempts,
	}
	if w.record != nil {
		rec := *w.record
		v.Reservation = &rec
	}
	return v
}

// Record returns the committed reservation, if any.
func (w *Workflow) Record() (domain.ReservationRecord, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.record == nil {
		return domain.ReservationRecord{}, false
	}
	return *w.record, true
}

// expireLocked marks the transaction dead and drops everything collected
// against it. Stale traveller data must not be replayed against a new hold
// without the user re-confirming, so the snapshot is deleted too. Caller
// holds w.mu.
func (w *Workflow) expireLocked(ctx context.Context) {
	w.tx.Status = domain.TxExpired
	w.travellers = nil
	w.contact = nil
	w.templates = nil
	w.to(StateExpired)
	if w.store != nil {
		if err := w.store.Delete(ctx, w.sessionID); err != nil {
			log.Warn().Str("session", w.sessionID).Err(err).Msg("session snapshot delete failed")
		}
	}
}

// to transitions the state machine; every change funnels through here.
func (w *Workflow) to(s State) {
	if w.OnTransition != nil {
		w.OnTransition(string(w.state), string(s))
	}
	w.state = s
}

// persist writes the current snapshot, best-effort. Caller holds w.mu.
func (w *Workflow) persist(ctx context.Context) {
	if w.store == nil {
		return
	}
	snap := domain.Snapshot{
		SessionID:  w.sessionID,
		State:      string(w.state),
		Tx:         w.tx,
		Offer:      w.offer,
		Templates:  w.templates,
		Travellers: w.travellers,
		Contact:    w.contact,
		Record:     w.record,
		Attempts:   w.attempts,
	}
	ttl := w.tx.ExpiresOn.Sub(w.cfg.Now()) + 5*time.Minute
	if w.state == StateCommitted {
		ttl = 24 * time.Hour // keep the confirmation around for the confirmation screen
	}
	if ttl <= 0 {
		return
	}
	if err := w.store.Save(ctx, snap, ttl); err != nil {
		log.Warn().Str("session", w.sessionID).Err(err).Msg("session snapshot save failed")
	}
}
