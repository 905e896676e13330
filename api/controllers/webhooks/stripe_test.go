package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/haggleport/haggleport-backend/pkg/errors"
	"github.com/haggleport/haggleport-backend/pkg/types"
)

const testSecret = "whsec_test"

type fakeWebhookService struct {
	calls int
	err   error
}

func (f *fakeWebhookService) Process(_ context.Context, _ stripe.Event) (bool, error) {
	f.calls++
	return f.err == nil, f.err
}

type fakeSigningClient struct{ secret string }

func (f *fakeSigningClient) SigningSecret() string { return f.secret }

func eventPayload(t *testing.T) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"id":     "evt_test",
		"object": "event",
		"type":   "payment_intent.succeeded",
		"data": map[string]any{"object": map[string]any{"id": "pi_1"}},
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return raw
}

func signPayload(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func postEvent(handler http.HandlerFunc, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestStripeWebhookRejectsMissingSignature(t *testing.T) {
	service := &fakeWebhookService{}
	handler := StripeWebhook(service, &fakeSigningClient{secret: testSecret}, nil)

	rec := postEvent(handler, eventPayload(t), "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body types.ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != string(pkgerrors.CodeSignature) {
		t.Fatalf("code = %s", body.Error.Code)
	}
	if service.calls != 0 {
		t.Fatal("service must not run before signature verification")
	}
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	service := &fakeWebhookService{}
	handler := StripeWebhook(service, &fakeSigningClient{secret: testSecret}, nil)
	payload := eventPayload(t)

	rec := postEvent(handler, payload, signPayload(payload, "whsec_other"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatal("service must not run on a forged signature")
	}
}

func TestStripeWebhookProcessesVerifiedEvent(t *testing.T) {
	service := &fakeWebhookService{}
	handler := StripeWebhook(service, &fakeSigningClient{secret: testSecret}, nil)
	payload := eventPayload(t)

	rec := postEvent(handler, payload, signPayload(payload, testSecret))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("service calls = %d, want 1", service.calls)
	}
}

func TestStripeWebhookAcksHandlerFailure(t *testing.T) {
	service := &fakeWebhookService{err: errors.New("db down")}
	handler := StripeWebhook(service, &fakeSigningClient{secret: testSecret}, nil)
	payload := eventPayload(t)

	rec := postEvent(handler, payload, signPayload(payload, testSecret))
	if rec.Code != http.StatusOK {
		t.Fatalf("handler failure must still acknowledge, got %d", rec.Code)
	}
	if service.calls != 1 {
		t.Fatalf("service calls = %d, want 1", service.calls)
	}
}
