// Package upi builds UPI deep links for invoice collection.
package upi

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildPayLink renders a upi://pay deep link for the given amount in minor
// units (paise). It returns "" when the payee VPA or display name is not
// configured, which callers surface as "payment link unavailable".
func BuildPayLink(vpa, payeeName string, amountMinor int64, reference string) string {
	vpa = strings.TrimSpace(vpa)
	payeeName = strings.TrimSpace(payeeName)
	if vpa == "" || payeeName == "" {
		return ""
	}

	q := url.Values{}
	q.Set("pa", vpa)
	q.Set("pn", payeeName)
	q.Set("am", FormatAmount(amountMinor))
	q.Set("cu", "INR")
	if reference != "" {
		q.Set("tn", reference)
	}
	return "upi://pay?" + q.Encode()
}

// FormatAmount renders paise as rupees with two decimal places.
func FormatAmount(amountMinor int64) string {
	sign := ""
	if amountMinor < 0 {
		sign = "-"
		amountMinor = -amountMinor
	}
	return fmt.Sprintf("%s%d.%02d", sign, amountMinor/100, amountMinor%100)
}
