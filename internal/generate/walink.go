package generate

import (
	"net/url"
	"strings"
)

const waBaseURL = "https://wa.me/"

// DigitsOnly strips every non-digit from phone.
func DigitsOnly(phone string) string {
	var sb strings.Builder
	sb.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// EncodeMessage percent-encodes everything outside the RFC 3986 unreserved
// set. Spaces become %20.
func EncodeMessage(msg string) string {
	return strings.ReplaceAll(url.QueryEscape(msg), "+", "%20")
}

// WALink builds the WhatsApp deep link for phone pre-filled with msg.
func WALink(phone, msg string) string {
	return waBaseURL + DigitsOnly(phone) + "?text=" + EncodeMessage(msg)
}
