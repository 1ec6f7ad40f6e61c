package xid

import (
	"strings"
	"testing"
	"time"
)

func TestNewUsesPrefix(t *testing.T) {
	a := New("sale")
	b := New("sale")
	if !strings.HasPrefix(a, "sale-") {
		t.Fatalf("expected sale- prefix, got %s", a)
	}
	if a == b {
		t.Fatalf("expected distinct ids, got %s twice", a)
	}
}

func TestReceiptNumberKeepsLastSixDigits(t *testing.T) {
	at := time.UnixMilli(1717171234567)
	if got := ReceiptNumber(at); got != "RCP234567" {
		t.Fatalf("expected RCP234567, got %s", got)
	}

	early := time.UnixMilli(1000000000042)
	if got := ReceiptNumber(early); got != "RCP000042" {
		t.Fatalf("expected zero padded RCP000042, got %s", got)
	}
}
