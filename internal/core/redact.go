package core

import (
	"regexp"
	"strings"
)

var (
	emailAddressPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePattern        = regexp.MustCompile(`(\+?\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
	urlPattern          = regexp.MustCompile(`https?://(www\.)?([A-Za-z0-9.-]+)\.[A-Za-z]{2,}[^\s]*`)
)

// RedactEmail masks an address for public display: david@purdue.edu -> d***@p***.edu
func RedactEmail(address string) string {
	parts := strings.Split(strings.TrimSpace(address), "@")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return redactedAddress
	}
	local, domain := parts[0], parts[1]

	labels := strings.Split(domain, ".")
	name, tld := labels[0], strings.Join(labels[1:], ".")
	if name == "" {
		return redactedAddress
	}

	return firstRune(local) + "***@" + firstRune(name) + "***." + tld
}

// SanitizeBody strips contact details from a body and limits it to maxLength runes
func SanitizeBody(body string, maxLength int) string {
	if body == "" {
		return ""
	}

	sanitized := emailAddressPattern.ReplaceAllStringFunc(body, RedactEmail)
	sanitized = phonePattern.ReplaceAllString(sanitized, "***-***-****")
	sanitized = urlPattern.ReplaceAllString(sanitized, "[$2]")

	if runes := []rune(sanitized); maxLength > 0 && len(runes) > maxLength {
		sanitized = string(runes[:maxLength]) + "..."
	}
	return sanitized
}

func firstRune(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}
