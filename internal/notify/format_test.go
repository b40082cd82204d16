package notify

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatAmountGrouping(t *testing.T) {
	amount := decimal.RequireFromString("1500000")

	en := FormatAmount("en", "IDR", amount)
	if en != "IDR 1,500,000" {
		t.Fatalf("en = %q", en)
	}

	id := FormatAmount("id", "IDR", amount)
	if id != "IDR 1.500.000" {
		t.Fatalf("id = %q", id)
	}
}

func TestFormatAmountUnknownLocaleFallsBack(t *testing.T) {
	got := FormatAmount("not-a-locale", "USD", decimal.RequireFromString("42.50"))
	if got != "USD 42.5" {
		t.Fatalf("got %q", got)
	}
}

func TestMilestoneAchievedCopy(t *testing.T) {
	for _, locale := range []string{"en", "id", "es"} {
		title, body := milestoneAchievedCopy(locale, "Clean Water", "First Pump", "USD 500")
		if title == "" {
			t.Fatalf("%s: empty title", locale)
		}
		if !strings.Contains(body, "Clean Water") || !strings.Contains(body, "First Pump") {
			t.Fatalf("%s: body %q missing fundraiser or milestone title", locale, body)
		}
		if !strings.Contains(body, "USD 500") {
			t.Fatalf("%s: body %q missing amount", locale, body)
		}
	}
}
