package partner

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/courtside-solutions/ms-go-booking-payments/config"
)

func TestSyncBookingPaidSignsBody(t *testing.T) {
	var gotSignature string
	var gotRequestID string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get("x-pwa-signature")
		gotRequestID = r.Header.Get("X-Request-ID")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(config.PartnerConfig{
		SyncURL:     server.URL,
		Secret:      "partner-secret",
		HTTPTimeout: 5 * time.Second,
	})

	err := client.SyncBookingPaid(context.Background(), &BookingPaidPayload{
		Event:         "booking.paid",
		BookingID:     "booking-1",
		VenueID:       "venue-9",
		Status:        "LUNAS",
		PaymentStatus: "PAID",
		TotalAmount:   150000,
		PaidAmount:    135000,
		PaymentMethod: "QRIS",
		CustomerName:  "Budi",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotRequestID == "" {
		t.Error("expected X-Request-ID header to be set")
	}

	mac := hmac.New(sha256.New, []byte("partner-secret"))
	mac.Write(gotBody)
	want := hex.EncodeToString(mac.Sum(nil))
	if gotSignature != want {
		t.Errorf("expected signature %s, got %s", want, gotSignature)
	}

	var payload BookingPaidPayload
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatalf("failed to decode delivered payload: %v", err)
	}
	if payload.Status != "LUNAS" {
		t.Errorf("expected status LUNAS, got %s", payload.Status)
	}
	if payload.Timestamp == "" {
		t.Error("expected timestamp to be filled in")
	}
}

func TestSyncBookingPaidNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(config.PartnerConfig{SyncURL: server.URL, Secret: "s"})

	err := client.SyncBookingPaid(context.Background(), &BookingPaidPayload{
		Event:     "booking.paid",
		BookingID: "booking-1",
	})
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestSyncBookingPaidRequiresURL(t *testing.T) {
	client := NewClient(config.PartnerConfig{Secret: "s"})

	err := client.SyncBookingPaid(context.Background(), &BookingPaidPayload{Event: "booking.paid"})
	if err == nil {
		t.Fatal("expected error when sync url is missing")
	}
}

func TestSignatureEmptySecret(t *testing.T) {
	if got := Signature([]byte(`{}`), ""); got != "" {
		t.Errorf("expected empty signature without secret, got %s", got)
	}
}
