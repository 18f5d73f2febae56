package service

import (
	"testing"

	"github.com/paybridge-next/internal/constants"
)

func TestMapStatusTable(t *testing.T) {
	statusMap := NewStatusMap(map[string]string{
		"CHARGED-BACK": constants.OrderStatusChargedBack,
		"PAID":         constants.OrderStatusPaid,
	}, nil)

	cases := []struct {
		external string
		expected string
	}{
		{"PAID", "paid"},
		{"CHARGED-BACK", "charged_back"},
		{"paid", "paid"},
		{"SHOPPER_REDIRECTED", "SHOPPER_REDIRECTED"},
		{" PAID ", "paid"},
		{"", ""},
	}
	for _, c := range cases {
		if got := statusMap.MapStatus(c.external); got != c.expected {
			t.Fatalf("MapStatus(%q) = %q, expected %q", c.external, got, c.expected)
		}
	}
}

func TestCascadeFor(t *testing.T) {
	statusMap := NewStatusMap(nil, map[string]string{
		constants.OrderStatusPaid: constants.OrderStatusPaid,
	})

	itemStatus, ok := statusMap.CascadeFor(constants.OrderStatusPaid)
	if !ok || itemStatus != constants.OrderStatusPaid {
		t.Fatalf("expected cascade to paid, got %q ok=%v", itemStatus, ok)
	}
	if _, ok := statusMap.CascadeFor(constants.OrderStatusCancelled); ok {
		t.Fatalf("expected no cascade for cancelled")
	}
	if _, ok := statusMap.CascadeFor("something_else"); ok {
		t.Fatalf("expected no cascade for unknown status")
	}
}

func TestIsStatusRegression(t *testing.T) {
	if !isStatusRegression(constants.OrderStatusPaid, constants.OrderStatusPending) {
		t.Fatalf("paid -> pending should be a regression")
	}
	if isStatusRegression(constants.OrderStatusPending, constants.OrderStatusPaid) {
		t.Fatalf("pending -> paid is forward progress")
	}
	if isStatusRegression("mystery", constants.OrderStatusPaid) {
		t.Fatalf("unknown current status should never flag regression")
	}
	if isStatusRegression(constants.OrderStatusPaid, "mystery") {
		t.Fatalf("unknown target status should never flag regression")
	}
}
