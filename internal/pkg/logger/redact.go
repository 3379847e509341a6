package logger

import "strings"

// RedactEmail masks an email address for safe logging:
// "john.doe@example.com" becomes "jo***@example.com". Local parts of
// two characters or fewer are fully masked.
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	name := parts[0]
	if len(name) > 2 {
		return name[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}

// RedactPhone masks a phone number, keeping any leading country code and
// the last two digits: "+919876543210" becomes "+91*******10".
func RedactPhone(phone string) string {
	if len(phone) < 6 {
		return "***"
	}
	prefix := ""
	rest := phone
	if strings.HasPrefix(phone, "+") && len(phone) > 5 {
		prefix = phone[:3]
		rest = phone[3:]
	}
	if len(rest) <= 2 {
		return prefix + "***"
	}
	return prefix + strings.Repeat("*", len(rest)-2) + rest[len(rest)-2:]
}
