// internal/adapters/gateway/client.go
package gateway

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"voyago_booking/internal/adapters/observability"
	"voyago_booking/internal/domain"
)

// Client talks to the external booking gateway. Every response arrives in
// the uniform envelope {header:{success,messages},body}; header.success=false
// on an HTTP 200 is still a failure (*domain.DomainError), while transport
// and non-2xx problems become *domain.TransportError.
type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// ---- domain.BookingGateway ----

func (c *Client) BeginTransaction(ctx context.Context, offerIDs []string, currency, culture string) (domain.HoldResult, error) {
	req := struct {
		OfferIDs []string `json:"offerIds"`
		Currency string   `json:"currency"`
		Culture  string   `json:"culture"`
	}{OfferIDs: offerIDs, Currency: currency, Culture: culture}

	var body struct {
		TransactionID string          `json:"transactionId"`
		ExpiresOn     time.Time       `json:"expiresOn"`
		Status        string          `json:"status"`
		Travellers    []wireTraveller `json:"travellers"`
	}
	if err := c.post(ctx, "begintransaction", req, &body); err != nil {
		return domain.HoldResult{}, err
	}
	out := domain.HoldResult{
		TransactionID: body.TransactionID,
		ExpiresOn:     body.ExpiresOn,
		Status:        body.Status,
	}
	for _, t := range body.Travellers {
		out.TravellerTemplates = append(out.TravellerTemplates, t.toDomain())
	}
	return out, nil
}

func (c *Client) SetReservationInfo(ctx context.Context, transactionID string, info domain.ReservationInfo) error {
	req := struct {
		TransactionID string          `json:"transactionId"`
		Travellers    []wireTraveller `json:"travellers"`
		CustomerInfo  wireCustomer    `json:"customerInfo"`
		Note          string          `json:"reservationNote,omitempty"`
		AgencyRef     string          `json:"agencyReservationNumber,omitempty"`
	}{
		TransactionID: transactionID,
		CustomerInfo:  customerToWire(info.Customer),
		Note:          info.Note,
		AgencyRef:     info.AgencyReference,
	}
	for _, t := range info.Travellers {
		req.Travellers = append(req.Travellers, travellerToWire(t))
	}
	return c.post(ctx, "setreservationinfo", req, nil)
}

func (c *Client) CommitTransaction(ctx context.Context, transactionID string) (domain.CommitResult, error) {
	req := struct {
		TransactionID string `json:"transactionId"`
	}{TransactionID: transactionID}

	var body struct {
		ReservationNumber          string `json:"reservationNumber"`
		EncryptedReservationNumber string `json:"encryptedReservationNumber"`
	}
	if err := c.post(ctx, "committransaction", req, &body); err != nil {
		return domain.CommitResult{}, err
	}
	return domain.CommitResult{
		ReservationNumber:          body.ReservationNumber,
		EncryptedReservationNumber: body.EncryptedReservationNumber,
	}, nil
}

func (c *Client) GetReservationDetail(ctx context.Context, reservationNumber string) (map[string]any, error) {
	req := struct {
		ReservationNumber string `json:"reservationNumber"`
	}{ReservationNumber: reservationNumber}

	var body map[string]any
	if err := c.post(ctx, "getreservationdetail", req, &body); err != nil {
		return nil, err
	}
	return body, nil
}

// ---- wire shapes ----

type wirePassport struct {
	Number      string `json:"number"`
	IssueDate   string `json:"issueDate,omitempty"`
	ExpireDate  string `json:"expireDate"`
	CountryCode string `json:"citizenshipCountryCode"`
}

type wireTraveller struct {
	OrderNumber    int           `json:"orderNumber"`
	Name           string        `json:"name"`
	Surname        string        `json:"surname"`
	BirthDate      string        `json:"birthDate,omitempty"`
	Gender         string        `json:"gender,omitempty"`
	Nationality    string        `json:"nationality,omitempty"`
	IdentityNumber string        `json:"identityNumber,omitempty"`
	Passport       *wirePassport `json:"passportInfo,omitempty"`
	IsLeader       bool          `json:"isLeader"`
	Email          string        `json:"email,omitempty"`
	Phone          string        `json:"phone,omitempty"`
}

type wireCustomer struct {
	Name        string `json:"name"`
	Surname     string `json:"surname"`
	BirthDate   string `json:"birthDate,omitempty"`
	Nationality string `json:"nationality,omitempty"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	City        string `json:"city"`
	ZipCode     string `json:"zipCode,omitempty"`
	Country     string `json:"country,omitempty"`
}

const wireDate = "2006-01-02"

func fmtDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(wireDate)
}

func parseDate(s string) time.Time {
	t, _ := time.Parse(wireDate, s)
	return t
}

func travellerToWire(t domain.Traveller) wireTraveller {
	w := wireTraveller{
		OrderNumber:    t.OrderNumber,
		Name:           t.Name,
		Surname:        t.Surname,
		BirthDate:      fmtDate(t.BirthDate),
		Gender:         t.Gender,
		Nationality:    t.Nationality,
		IdentityNumber: t.IdentityNumber,
		IsLeader:       t.IsLeader,
		Email:          t.Email,
		Phone:          t.Phone,
	}
	if t.Passport != nil {
		w.Passport = &wirePassport{
			Number:      t.Passport.Number,
			IssueDate:   fmtDate(t.Passport.IssueDate),
			ExpireDate:  fmtDate(t.Passport.ExpireDate),
			CountryCode: t.Passport.CitizenshipCountryCode,
		}
	}
	return w
}

func (w wireTraveller) toDomain() domain.Traveller {
	t := domain.Traveller{
		OrderNumber:    w.OrderNumber,
		Name:           w.Name,
		Surname:        w.Surname,
		BirthDate:      parseDate(w.BirthDate),
		Gender:         w.Gender,
		Nationality:    w.Nationality,
		IdentityNumber: w.IdentityNumber,
		IsLeader:       w.IsLeader,
		Email:          w.Email,
		Phone:          w.Phone,
	}
	if w.Passport != nil {
		t.Passport = &domain.Passport{
			Number:                 w.Passport.Number,
			IssueDate:              parseDate(w.Passport.IssueDate),
			ExpireDate:             parseDate(w.Passport.ExpireDate),
			CitizenshipCountryCode: w.Passport.CountryCode,
		}
	}
	return t
}

func customerToWire(c domain.CustomerRecord) wireCustomer {
	return wireCustomer{
		Name:        c.Name,
		Surname:     c.Surname,
		BirthDate:   fmtDate(c.BirthDate),
		Nationality: c.Nationality,
		Email:       c.Email,
		Phone:       c.Phone,
		Address:     c.Address,
		City:        c.City,
		ZipCode:     c.ZipCode,
		Country:     c.Country,
	}
}

// ---- transport ----

type envelope struct {
	Header struct {
		Success  bool `json:"success"`
		Messages []struct {
			Message string `json:"message"`
		} `json:"messages"`
	} `json:"header"`
	Body json.RawMessage `json:"body"`
}

// post performs a POST with client-side rate limiting and retries, then
// unwraps the response envelope. Retries on 429 and transient 5xx, honoring
// Retry-After when provided.
func (c *Client) post(ctx context.Context, op string, in, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return &domain.TransportError{Op: op, Err: err}
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return &domain.TransportError{Op: op, Err: err}
	}
	u, err := url.JoinPath(c.base, "booking", op)
	if err != nil {
		return &domain.TransportError{Op: op, Err: err}
	}

	start := time.Now()
	var lastErr error
	for i := 0; i < 4; i++ {
		// fresh request each attempt; the body reader is consumed
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
		if err != nil {
			return &domain.TransportError{Op: op, Err: err}
		}
		if c.key != "" {
			req.Header.Set("X-API-Key", c.key)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "voyago-booking/1.0")

		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return &domain.TransportError{Op: op, Err: ctx.Err()}
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return &domain.TransportError{Op: op, Err: ctx.Err()}
			}
			observability.ObserveGateway(op, 0, time.Since(start))
			return &domain.TransportError{Op: op, Err: lastErr}
		}

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			env := envelope{}
			derr := json.NewDecoder(resp.Body).Decode(&env)
			resp.Body.Close()
			observability.ObserveGateway(op, resp.StatusCode, time.Since(start))
			if derr != nil {
				return &domain.TransportError{Op: op, Err: derr}
			}
			if !env.Header.Success {
				msgs := make([]string, 0, len(env.Header.Messages))
				for _, m := range env.Header.Messages {
					msgs = append(msgs, m.Message)
				}
				return &domain.DomainError{Op: op, Messages: msgs}
			}
			if out == nil || len(env.Body) == 0 {
				return nil
			}
			if err := json.Unmarshal(env.Body, out); err != nil {
				return &domain.TransportError{Op: op, Err: err}
			}
			return nil

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return &domain.TransportError{Op: op, Err: ctx.Err()}
			}
			observability.ObserveGateway(op, resp.StatusCode, time.Since(start))
			return &domain.TransportError{Op: op, Err: lastErr}

		default:
			// read a small error body for diagnostics
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			observability.ObserveGateway(op, resp.StatusCode, time.Since(start))
			return &domain.TransportError{
				Op:  op,
				Err: fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b))),
			}
		}
	}

	return &domain.TransportError{Op: op, Err: lastErr}
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential backoff delay with concurrency-safe jitter.
// i = retry attempt (0,1,2,...). Base doubles each attempt (200ms, 400ms, 800ms...),
// with up to +50% random jitter to avoid thundering herds.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
