package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"voyago_booking/internal/adapters/gateway"
	"voyago_booking/internal/domain"
)

func okEnvelope(body any) map[string]any {
	return map[string]any{
		"header": map[string]any{"success": true},
		"body":   body,
	}
}

func failEnvelope(msgs ...string) map[string]any {
	list := make([]map[string]any, 0, len(msgs))
	for _, m := range msgs {
		list = append(list, map[string]any{"message": m})
	}
	return map[string]any{
		"header": map[string]any{"success": false, "messages": list},
	}
}

func newClient(t *testing.T, url string) *gateway.Client {
	t.Helper()
	cl, err := gateway.New(url, "test-key", 100) // high RPS for tests
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	return cl
}

func TestClient_BeginTransaction_RetriesThenSuccess(t *testing.T) {
	expires := time.Now().Add(15 * time.Minute).UTC().Truncate(time.Second)
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/booking/begintransaction" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "test-key" {
			t.Errorf("missing api key header")
		}
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			// two transient failures
			w.WriteHeader(500)
		default:
			_ = json.NewEncoder(w).Encode(okEnvelope(map[string]any{
				"transactionId": "T1",
				"expiresOn":     expires.Format(time.RFC3339),
				"status":        "active",
				"travellers": []map[string]any{
					{"orderNumber": 1, "isLeader": true},
					{"orderNumber": 2},
				},
			}))
		}
	}))
	defer ts.Close()

	cl := newClient(t, ts.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got, err := cl.BeginTransaction(ctx, []string{"OFR1"}, "EUR", "en-US")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.TransactionID != "T1" || !got.ExpiresOn.Equal(expires) {
		t.Fatalf("unexpected result: %+v", got)
	}
	if len(got.TravellerTemplates) != 2 || !got.TravellerTemplates[0].IsLeader {
		t.Fatalf("unexpected templates: %+v", got.TravellerTemplates)
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 calls due to retries, got %d", hits)
	}
}

func TestClient_EnvelopeFailureIsDomainError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// HTTP 200, but the envelope says no
		_ = json.NewEncoder(w).Encode(failEnvelope("insufficient allotment", "try another date"))
	}))
	defer ts.Close()

	cl := newClient(t, ts.URL)
	_, err := cl.CommitTransaction(context.Background(), "T1")

	var derr *domain.DomainError
	if !errors.As(err, &derr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	if derr.Message() != "insufficient allotment" {
		t.Fatalf("gateway message must be surfaced verbatim, got %q", derr.Message())
	}
}

func TestClient_Non2xxIsTransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	cl := newClient(t, ts.URL)
	err := cl.SetReservationInfo(context.Background(), "T1", domain.ReservationInfo{})

	var terr *domain.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestClient_SetReservationInfo_WirePayload(t *testing.T) {
	var captured map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(okEnvelope(nil))
	}))
	defer ts.Close()

	info := domain.ReservationInfo{
		Travellers: []domain.Traveller{
			{
				OrderNumber: 1,
				Name:        "Ada",
				Surname:     "Yilmaz",
				BirthDate:   time.Date(1990, 4, 2, 0, 0, 0, 0, time.UTC),
				Nationality: "TR",
				IsLeader:    true,
			},
			{
				OrderNumber: 2,
				Name:        "John",
				Surname:     "Doe",
				Passport: &domain.Passport{
					Number:                 "C01X00T47",
					ExpireDate:             time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC),
					CitizenshipCountryCode: "DE",
				},
			},
		},
		Customer: domain.CustomerRecord{Name: "Ada", Email: "ada@example.com"},
		Note:     "late check-in",
	}

	cl := newClient(t, ts.URL)
	if err := cl.SetReservationInfo(context.Background(), "T9", info); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if captured["transactionId"] != "T9" {
		t.Fatalf("transactionId missing: %v", captured)
	}
	travellers, _ := captured["travellers"].([]any)
	if len(travellers) != 2 {
		t.Fatalf("expected 2 travellers on the wire, got %v", captured["travellers"])
	}
	first, _ := travellers[0].(map[string]any)
	if first["birthDate"] != "1990-04-02" || first["isLeader"] != true {
		t.Fatalf("unexpected first traveller: %v", first)
	}
	second, _ := travellers[1].(map[string]any)
	pass, _ := second["passportInfo"].(map[string]any)
	if pass == nil || pass["expireDate"] != "2030-03-01" {
		t.Fatalf("unexpected passport: %v", second)
	}
	if captured["reservationNote"] != "late check-in" {
		t.Fatalf("note missing: %v", captured)
	}
}

func TestClient_GetReservationDetail(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/booking/getreservationdetail" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(okEnvelope(map[string]any{
			"reservationNumber": "RSV1",
			"hotelName":         "Test Palace",
		}))
	}))
	defer ts.Close()

	cl := newClient(t, ts.URL)
	got, err := cl.GetReservationDetail(context.Background(), "RSV1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got["hotelName"] != "Test Palace" {
		t.Fatalf("unexpected detail: %v", got)
	}
}

func TestClient_RequiresAPIKey(t *testing.T) {
	if _, err := gateway.New("http://x", "", 5); err == nil {
		t.Fatalf("expected error for empty key")
	}
}
