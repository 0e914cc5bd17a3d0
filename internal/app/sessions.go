package app

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"voyago_booking/internal/domain"
)

// SessionManager owns the live booking workflows, one per session id. A
// session that fell out of memory (restart, another replica) is rehydrated
// from the session store before use.
type SessionManager struct {
	gw      domain.BookingGateway
	store   domain.SessionStore
	archive domain.ReservationArchive // optional
	cfg     WorkflowConfig

	// observer applied to every workflow's state transitions
	onTransition func(from, to string)

	mu   sync.Mutex
	live map[string]*Workflow
}

func NewSessionManager(gw domain.BookingGateway, store domain.SessionStore, archive domain.ReservationArchive, cfg WorkflowConfig) *SessionManager {
	cfg.defaults()
	return &SessionManager{
		gw:      gw,
		store:   store,
		archive: archive,
		cfg:     cfg,
		live:    map[string]*Workflow{},
	}
}

// SetTransitionObserver installs a callback for workflow state changes
// (wired to metrics in main).
func (m *SessionManager) SetTransitionObserver(fn func(from, to string)) {
	m.onTransition = fn
}

// Begin opens a new session and acquires the hold. On hold failure no
// session survives; the caller simply begins again.
func (m *SessionManager) Begin(ctx context.Context, offer domain.Offer) (string, WorkflowView, error) {
	sid := uuid.NewString()
	w := NewWorkflow(sid, m.gw, m.store, m.cfg)
	w.OnTransition = m.onTransition

	if err := w.BeginHold(ctx, offer); err != nil {
		return "", WorkflowView{}, err
	}

	m.mu.Lock()
	m.pruneLocked(ctx)
	m.live[sid] = w
	m.mu.Unlock()

	log.Info().Str("session", sid).Str("offer", offer.OfferID).Msg("booking session opened")
	return sid, w.View(ctx), nil
}

func (m *SessionManager) CollectTravellers(ctx context.Context, sid string, inputs []TravellerInput) error {
	w, err := m.get(ctx, sid)
	if err != nil {
		return err
	}
	return w.CollectTravellers(ctx, inputs)
}

func (m *SessionManager) SaveReservation(ctx context.Context, sid string, in SaveReservationInput) error {
	w, err := m.get(ctx, sid)
	if err != nil {
		return err
	}
	return w.SaveReservation(ctx, in)
}

// Commit finalizes the booking and archives the record, best-effort, to the
// durable store. An archive failure never turns a committed booking into an
// error for the caller.
func (m *SessionManager) Commit(ctx context.Context, sid string) (domain.ReservationRecord, error) {
	w, err := m.get(ctx, sid)
	if err != nil {
		return domain.ReservationRecord{}, err
	}
	rec, err := w.Commit(ctx)
	if err != nil {
		return domain.ReservationRecord{}, err
	}
	if m.archive != nil {
		if aerr := m.archive.Archive(ctx, rec); aerr != nil {
			log.Error().Str("session", sid).Str("reservation", rec.ReservationNumber).Err(aerr).
				Msg("reservation archive write failed")
		}
	}
	return rec, nil
}

func (m *SessionManager) View(ctx context.Context, sid string) (WorkflowView, error) {
	w, err := m.get(ctx, sid)
	if err != nil {
		return WorkflowView{}, err
	}
	return w.View(ctx), nil
}

func (m *SessionManager) get(ctx context.Context, sid string) (*Workflow, error) {
	m.mu.Lock()
	w, ok := m.live[sid]
	m.mu.Unlock()
	if ok {
		return w, nil
	}
	if m.store == nil {
		return nil, domain.ErrSessionNotFound
	}

	snap, found, err := m.store.Load(ctx, sid)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrSessionNotFound
	}
	w = RestoreWorkflow(snap, m.gw, m.store, m.cfg)
	w.OnTransition = m.onTransition

	m.mu.Lock()
	defer m.mu.Unlock()
	// lost the race to another rehydration: keep the first one
	if prior, ok := m.live[sid]; ok {
		return prior, nil
	}
	m.live[sid] = w
	return w, nil
}

// pruneLocked drops dead sessions from memory; their snapshots (if any)
// expire by TTL on their own. Caller holds m.mu.
func (m *SessionManager) pruneLocked(ctx context.Context) {
	for sid, w := range m.live {
		v := w.View(ctx)
		if v.State == StateExpired || v.State == StateHoldFailed {
			delete(m.live, sid)
		}
	}
}
