package notify

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// FormatAmount renders a monetary amount with locale-aware digit grouping,
// e.g. "IDR 1.500.000" for Indonesian readers and "IDR 1,500,000" for
// English ones.
func FormatAmount(locale, currency string, amount decimal.Decimal) string {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	p := message.NewPrinter(tag)
	f, _ := amount.Float64()
	return p.Sprintf("%s %v", currency, number.Decimal(f, number.MaxFractionDigits(2)))
}

// milestoneAchievedCopy returns the push notification title and body for a
// freshly achieved milestone in the owner's locale.
func milestoneAchievedCopy(locale, fundraiserTitle, milestoneTitle, amount string) (string, string) {
	switch locale {
	case "id":
		return "Pencapaian baru", fmt.Sprintf("%s: tahap %q tercapai (%s)", fundraiserTitle, milestoneTitle, amount)
	case "es":
		return "Hito alcanzado", fmt.Sprintf("%s: se alcanzó el hito %q (%s)", fundraiserTitle, milestoneTitle, amount)
	default:
		return "Milestone reached", fmt.Sprintf("%s: milestone %q reached (%s)", fundraiserTitle, milestoneTitle, amount)
	}
}
