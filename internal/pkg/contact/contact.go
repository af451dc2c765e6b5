// Package contact normalises the addresses OTP codes are sent to: e-mail
// addresses and E.164 phone numbers.
package contact

import (
	"fmt"
	"strings"

	"github.com/wellness-api/internal/domain"
	"github.com/wellness-api/internal/pkg/validate"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

var phoneNoise = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

// Normalize trims raw and returns its canonical form: lower-cased for
// e-mail, separators stripped for phone numbers.
func Normalize(raw string) (string, error) {
	addr := strings.TrimSpace(raw)
	if addr == "" {
		return "", fmt.Errorf("contact address required: %w", domain.ErrBadRequest)
	}
	if IsEmail(addr) {
		addr = strings.ToLower(addr)
		if err := validate.Var(addr, "email,max=254"); err != nil {
			return "", fmt.Errorf("malformed e-mail address: %w", domain.ErrBadRequest)
		}
		return addr, nil
	}
	addr = phoneNoise.Replace(addr)
	if err := validate.Var(addr, "e164"); err != nil {
		return "", fmt.Errorf("malformed phone number, want E.164: %w", domain.ErrBadRequest)
	}
	return addr, nil
}

func IsEmail(addr string) bool { return strings.Contains(addr, "@") }

// Channel names the delivery channel for a normalised address.
func Channel(addr string) string {
	if IsEmail(addr) {
		return ChannelEmail
	}
	return ChannelSMS
}

// Mask hides most of an address for logging.
func Mask(addr string) string {
	if i := strings.Index(addr, "@"); i > 0 {
		return addr[:1] + "***" + addr[i:]
	}
	if len(addr) > 4 {
		return "***" + addr[len(addr)-4:]
	}
	return "***"
}
