package docdata

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		BaseURL:          server.URL,
		MerchantName:     "merchant",
		MerchantPassword: "secret",
		PaymentPageURL:   "https://pay.example.com/menu",
	})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	return client, server
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient(Config{BaseURL: "https://example.com"}); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got %v", err)
	}
}

func TestCreateOrderSuccess(t *testing.T) {
	var gotBody map[string]interface{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orders/create" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success":   true,
			"order_key": "ODK-123",
		})
	})

	result, err := client.CreateOrder(context.Background(), CreateInput{
		MerchantOrderNo: "ORD-1001",
		TotalGross:      "100.00",
		Currency:        "EUR",
		Shopper: Shopper{
			Street: strings.Repeat("x", 40),
		},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if result.OrderKey != "ODK-123" {
		t.Fatalf("unexpected order key: %s", result.OrderKey)
	}

	shopper, ok := gotBody["shopper"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected shopper payload, got %v", gotBody)
	}
	street, _ := shopper["street"].(string)
	if len(street) != 32 {
		t.Fatalf("expected street truncated to 32 chars, got %d", len(street))
	}
}

func TestCreateOrderRejected(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   "profile not found",
		})
	})

	_, err := client.CreateOrder(context.Background(), CreateInput{
		MerchantOrderNo: "ORD-1001",
		TotalGross:      "100.00",
	})
	if !errors.Is(err, ErrCreateRejected) {
		t.Fatalf("expected ErrCreateRejected, got %v", err)
	}
}

func TestStatusRequestParsesReport(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orders/status" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"report": map[string]interface{}{
				"order_key":         "ODK-123",
				"merchant_order_no": "ORD-1001",
				"status":            "paid",
				"total_captured":    "100.00",
				"payments": []map[string]interface{}{
					{
						"id":             "pay-1",
						"status":         "PAID",
						"method":         "SEPA_BANK_TRANSFER",
						"amount_debited": "100.00",
						"bank_transfer": map[string]string{
							"iban": "NL02ABNA0123456789",
						},
					},
				},
			},
		})
	})

	report, err := client.StatusRequest(context.Background(), "ODK-123")
	if err != nil {
		t.Fatalf("status request failed: %v", err)
	}
	if report.MerchantOrderNo != "ORD-1001" || report.Status != "paid" {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(report.Payments) != 1 || report.Payments[0].BankTransfer == nil {
		t.Fatalf("expected one payment with bank transfer details, got %+v", report.Payments)
	}
	if report.Payments[0].BankTransfer.IBAN != "NL02ABNA0123456789" {
		t.Fatalf("unexpected iban: %s", report.Payments[0].BankTransfer.IBAN)
	}
}

func TestStatusRequestUnknownOrder(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   "unknown order",
		})
	})

	_, err := client.StatusRequest(context.Background(), "ODK-404")
	if !errors.Is(err, ErrOrderUnknown) {
		t.Fatalf("expected ErrOrderUnknown, got %v", err)
	}
}

func TestPaymentPageURL(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	got := client.PaymentPageURL("ODK-123")
	if !strings.Contains(got, "payment_cluster_key=ODK-123") {
		t.Fatalf("unexpected payment page url: %s", got)
	}
	if !strings.Contains(got, "merchant_name=merchant") {
		t.Fatalf("unexpected payment page url: %s", got)
	}
}
