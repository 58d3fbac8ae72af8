package sms

import (
	"strings"

	"github.com/ttacon/libphonenumber"
)

// DefaultRegion is used to parse numbers typed without a country code.
const DefaultRegion = "MM"

// Normalize returns number in E.164 form. Numbers libphonenumber cannot
// parse or validate are returned trimmed but otherwise as typed.
func Normalize(number, region string) string {
	number = strings.TrimSpace(number)
	p, ok := parse(number, region)
	if !ok {
		return number
	}
	return libphonenumber.Format(p, libphonenumber.E164)
}

// TelURI returns an RFC 3966 tel: URI for number.
func TelURI(number, region string) string {
	number = strings.TrimSpace(number)
	if p, ok := parse(number, region); ok {
		return libphonenumber.Format(p, libphonenumber.RFC3966)
	}
	var b strings.Builder
	for i, r := range number {
		if (r >= '0' && r <= '9') || (r == '+' && i == 0) {
			b.WriteRune(r)
		}
	}
	return "tel:" + b.String()
}

func parse(number, region string) (*libphonenumber.PhoneNumber, bool) {
	if number == "" {
		return nil, false
	}
	if region == "" {
		region = DefaultRegion
	}
	p, err := libphonenumber.Parse(number, strings.ToUpper(region))
	if err != nil || !libphonenumber.IsValidNumber(p) {
		return nil, false
	}
	return p, true
}
