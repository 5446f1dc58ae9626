package logger

import (
	"strings"
)

// MaskLogin masks a login identifier for logging. Emails become
// "u***@*******.com"; usernames keep their first character.
func MaskLogin(login string) string {
	if strings.Contains(login, "@") {
		return SanitizedEmail(login)
	}
	if len(login) <= 1 {
		return strings.Repeat("*", len(login))
	}
	return login[:1] + strings.Repeat("*", len(login)-1)
}

// SanitizedEmail masks an email address for logging (e.g., "u***@e***.com")
func SanitizedEmail(email string) string {
	username, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return "[invalid-email]"
	}

	if len(username) > 1 {
		username = username[:1] + strings.Repeat("*", len(username)-1)
	}

	labels := strings.Split(domain, ".")
	for i := 0; i < len(labels)-1; i++ {
		labels[i] = strings.Repeat("*", len(labels[i]))
	}

	return username + "@" + strings.Join(labels, ".")
}

var sensitiveParams = []string{"password", "token", "secret", "sid", "login", "email", "auth"}

// SanitizeQueryString reports whether a query string should be redacted
// from request logs.
func SanitizeQueryString(rawQuery string) bool {
	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
